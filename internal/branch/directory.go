package branch

import (
	"context"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
)

// Directory resolves the bank branches a letter can be addressed to
type Directory interface {
	List(ctx context.Context) ([]domain.Branch, error)
	Lookup(ctx context.Context, code string) (domain.Branch, error)
}

var defaultBranches = []domain.Branch{
	{Code: "101", Name: "شعبه مرکزی تهران"},
	{Code: "102", Name: "شعبه میدان آزادی"},
	{Code: "103", Name: "شعبه سعادت‌آباد"},
	{Code: "104", Name: "شعبه پونک"},
	{Code: "201", Name: "شعبه مرکزی اصفهان"},
	{Code: "301", Name: "شعبه مرکزی شیراز"},
}

type staticDirectory struct {
	branches []domain.Branch
	byCode   map[string]domain.Branch
}

// NewStaticDirectory serves a fixed branch list. With no branches it falls
// back to the built-in list.
func NewStaticDirectory(branches ...domain.Branch) Directory {
	if len(branches) == 0 {
		branches = defaultBranches
	}
	d := &staticDirectory{
		branches: append([]domain.Branch(nil), branches...),
		byCode:   make(map[string]domain.Branch, len(branches)),
	}
	for _, b := range d.branches {
		d.byCode[b.Code] = b
	}
	return d
}

func (d *staticDirectory) List(context.Context) ([]domain.Branch, error) {
	return append([]domain.Branch(nil), d.branches...), nil
}

func (d *staticDirectory) Lookup(_ context.Context, code string) (domain.Branch, error) {
	b, ok := d.byCode[code]
	if !ok {
		return domain.Branch{}, customError.WrapValidation("unknown branch code " + code)
	}
	return b, nil
}
