package domain

import "time"

// Progress steps shown to the applicant, 1 through 6
const (
	StepLogin = iota + 1
	StepTerms
	StepDetails
	StepLetter
	StepBank
	StepCredit
)

// ProjectStep maps a request status to its progress step. letterDownloaded
// only matters for LetterIssued, where fetching the letter advances to the bank step.
func ProjectStep(status Status, letterDownloaded bool) int {
	switch status {
	case StatusWaitingForLetter:
		return StepLetter
	case StatusLetterIssued:
		if letterDownloaded {
			return StepBank
		}
		return StepLetter
	case StatusWaitingForBankApproval:
		return StepBank
	case StatusLoanPaid:
		return StepCredit
	default:
		return StepDetails
	}
}

// DashboardStep covers the states before a request exists
func DashboardStep(termsAccepted bool, req *LoanRequest, letterDownloaded bool) int {
	if req == nil {
		if !termsAccepted {
			return StepTerms
		}
		return StepDetails
	}
	return ProjectStep(req.Status, letterDownloaded)
}

// PollInterval returns how often a client should refresh a request in this
// status. false means manual refresh only.
func PollInterval(status Status) (time.Duration, bool) {
	switch status {
	case StatusIdentityCheck:
		return 2 * time.Second, true
	case StatusWaitingForLetter, StatusWaitingForBankApproval:
		return 5 * time.Second, true
	default:
		return 0, false
	}
}

// PollIntervalMs is PollInterval in milliseconds, nil when there is no polling
func PollIntervalMs(status Status) *int64 {
	d, ok := PollInterval(status)
	if !ok {
		return nil
	}
	ms := d.Milliseconds()
	return &ms
}

// NewView builds the applicant-facing projection of a request
func NewView(req *LoanRequest, termsAccepted, letterDownloaded bool) *LoanRequestView {
	view := &LoanRequestView{
		Request: req,
		Step:    DashboardStep(termsAccepted || req != nil, req, letterDownloaded),
	}
	if req != nil {
		view.PollIntervalMs = PollIntervalMs(req.Status)
	}
	return view
}
