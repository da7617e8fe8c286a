package domain

import (
	"fmt"
	"time"

	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
)

// Status is a loan request lifecycle state
type Status string

const (
	StatusSubmitted              Status = "Submitted"
	StatusIdentityCheck          Status = "IdentityCheck"
	StatusRejectedByShahkar      Status = "RejectedByShahkar"
	StatusWaitingForLetter       Status = "WaitingForLetter"
	StatusLetterIssued           Status = "LetterIssued"
	StatusWaitingForBankApproval Status = "WaitingForBankApproval"
	StatusLoanPaid               Status = "LoanPaid"
	StatusClosed                 Status = "Closed"
)

// transitions is the directed lifecycle graph. Close edges are listed explicitly
// so every legal move can be read off one table.
var transitions = map[Status][]Status{
	StatusSubmitted:              {StatusIdentityCheck, StatusClosed},
	StatusIdentityCheck:          {StatusWaitingForLetter, StatusRejectedByShahkar, StatusClosed},
	StatusRejectedByShahkar:      {StatusClosed},
	StatusWaitingForLetter:       {StatusLetterIssued, StatusClosed},
	StatusLetterIssued:           {StatusWaitingForBankApproval, StatusClosed},
	StatusWaitingForBankApproval: {StatusLoanPaid, StatusClosed},
	StatusLoanPaid:               {},
	StatusClosed:                 {},
}

// AllStatuses returns every status in lifecycle order
func AllStatuses() []Status {
	return []Status{
		StatusSubmitted,
		StatusIdentityCheck,
		StatusRejectedByShahkar,
		StatusWaitingForLetter,
		StatusLetterIssued,
		StatusWaitingForBankApproval,
		StatusLoanPaid,
		StatusClosed,
	}
}

// ParseStatus converts a raw value into a known Status
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", customError.WrapValidation(fmt.Sprintf("unknown status %q", raw))
	}
	return s, nil
}

func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known statuses
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// HoldsActiveSlot reports whether a request in this status blocks a new submission.
// Only Closed frees the slot; LoanPaid and RejectedByShahkar keep it.
func (s Status) HoldsActiveSlot() bool {
	return s != StatusClosed
}

// CanTransitionTo reports whether target is a direct successor of s
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ApplyTransition moves req to target if target is a direct successor of its
// current status. Repeating the current status is a no-op and reports false.
func ApplyTransition(req *LoanRequest, target Status, now time.Time) (bool, error) {
	if req.Status == target {
		return false, nil
	}
	if !req.Status.CanTransitionTo(target) {
		return false, customError.WrapInvalidStateTransition(req.ID, req.Status.String(), target.String())
	}

	req.Status = target
	req.UpdatedAt = now
	return true, nil
}
