package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
	"github.com/segyhp/travel-loan-engine/pkg/utils"
)

// AmountBounds is the configured range a requested amount must stay inside
type AmountBounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Contains reports whether amount lies inside the bounds
func (b AmountBounds) Contains(amount decimal.Decimal) bool {
	return utils.InRange(amount, b.Min, b.Max)
}

// Normalize enforces the entity invariants checked on every write: amount is
// clamped into bounds, status is known and bankResult is present iff paid.
func (r *LoanRequest) Normalize(bounds AmountBounds) error {
	if !r.Status.IsValid() {
		return customError.WrapValidation(fmt.Sprintf("unknown status %q", r.Status))
	}

	r.AmountToman = utils.ClampDecimal(r.AmountToman, bounds.Min, bounds.Max)

	paid := r.Status == StatusLoanPaid
	if paid && r.BankResult == nil {
		return customError.WrapValidation("a paid loan request requires a bank result")
	}
	if !paid && r.BankResult != nil {
		return customError.WrapValidation("bank result is only recorded on paid loan requests")
	}
	return nil
}
