package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Branch is a bank branch the applicant presents the letter at
type Branch struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// BankResult is recorded only when the bank pays out the loan
type BankResult struct {
	PaidAmountToman decimal.Decimal `json:"paidAmountToman"`
	TenorMonths     int             `json:"tenorMonths"`
	PaidAt          time.Time       `json:"paidAt"`
}

// LoanRequest represents a travel loan request entity
type LoanRequest struct {
	ID          string          `json:"id"`
	Mobile      string          `json:"mobile"`
	NationalID  string          `json:"nationalId"`
	AmountToman decimal.Decimal `json:"amountToman"`
	TenorMonths int             `json:"tenorMonths"`
	Branch      Branch          `json:"branch"`
	Status      Status          `json:"status"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	BankResult  *BankResult     `json:"bankResult,omitempty"`
}

// Clone returns a deep copy so stores never hand out shared pointers
func (r *LoanRequest) Clone() *LoanRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.BankResult != nil {
		br := *r.BankResult
		c.BankResult = &br
	}
	return &c
}

// DTOs for requests and responses

type CreateLoanParams struct {
	NationalID                 string          `json:"nationalId" validate:"required,len=10,number"`
	AmountToman                decimal.Decimal `json:"amountToman"`
	TenorMonths                int             `json:"tenorMonths" validate:"required,tenor"`
	BranchCode                 string          `json:"branchCode" validate:"required"`
	AcceptedTerms              bool            `json:"acceptedTerms" validate:"required"`
	AcceptedReturnedChequeRule bool            `json:"acceptedReturnedChequeRule" validate:"required"`
}

type BankResultParams struct {
	Approved bool            `json:"approved"`
	Amount   decimal.Decimal `json:"amount"`
	Tenor    int             `json:"tenor"`
}

// ListFilter narrows the administrator listing. Viewer, when set, is the
// mobile whose active request is surfaced first.
type ListFilter struct {
	Status *Status
	Search string
	Viewer string
}

type LoanRequestView struct {
	Request        *LoanRequest `json:"request"`
	Step           int          `json:"step"`
	PollIntervalMs *int64       `json:"pollIntervalMs"`
}

type Stats struct {
	Total              int `json:"total"`
	WaitingForLetter   int `json:"waitingForLetter"`
	WaitingForBank     int `json:"waitingForBank"`
	Paid               int `json:"paid"`
	RejectedByIdentity int `json:"rejectedByIdentity"`
	Closed             int `json:"closed"`
}
