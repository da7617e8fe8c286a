package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

const selectColumns = `
	id, mobile, national_id, amount_toman, tenor_months, branch_code, branch_name,
	status, version, created_at, updated_at, paid_amount_toman, paid_tenor_months, paid_at
`

type loanRequestRow struct {
	ID              string              `db:"id"`
	Mobile          string              `db:"mobile"`
	NationalID      string              `db:"national_id"`
	AmountToman     decimal.Decimal     `db:"amount_toman"`
	TenorMonths     int                 `db:"tenor_months"`
	BranchCode      string              `db:"branch_code"`
	BranchName      string              `db:"branch_name"`
	Status          string              `db:"status"`
	Version         int64               `db:"version"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
	PaidAmountToman decimal.NullDecimal `db:"paid_amount_toman"`
	PaidTenorMonths sql.NullInt64       `db:"paid_tenor_months"`
	PaidAt          sql.NullTime        `db:"paid_at"`
}

func (row loanRequestRow) toDomain() *domain.LoanRequest {
	req := &domain.LoanRequest{
		ID:          row.ID,
		Mobile:      row.Mobile,
		NationalID:  row.NationalID,
		AmountToman: row.AmountToman,
		TenorMonths: row.TenorMonths,
		Branch:      domain.Branch{Code: row.BranchCode, Name: row.BranchName},
		Status:      domain.Status(row.Status),
		Version:     row.Version,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.PaidAmountToman.Valid {
		req.BankResult = &domain.BankResult{
			PaidAmountToman: row.PaidAmountToman.Decimal,
			TenorMonths:     int(row.PaidTenorMonths.Int64),
			PaidAt:          row.PaidAt.Time,
		}
	}
	return req
}

func bankColumns(req *domain.LoanRequest) (decimal.NullDecimal, sql.NullInt64, sql.NullTime) {
	if req.BankResult == nil {
		return decimal.NullDecimal{}, sql.NullInt64{}, sql.NullTime{}
	}
	return decimal.NewNullDecimal(req.BankResult.PaidAmountToman),
		sql.NullInt64{Int64: int64(req.BankResult.TenorMonths), Valid: true},
		sql.NullTime{Time: req.BankResult.PaidAt, Valid: true}
}

type loanRequestRepository struct {
	db     *sqlx.DB
	bounds domain.AmountBounds
	now    func() time.Time
}

func NewLoanRequestRepository(db *sqlx.DB, bounds domain.AmountBounds) LoanRequestRepository {
	return &loanRequestRepository{db: db, bounds: bounds, now: time.Now}
}

// EnsureSchema creates the loan_requests table and its indexes if missing
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (r *loanRequestRepository) Create(ctx context.Context, req *domain.LoanRequest) error {
	if err := req.Normalize(r.bounds); err != nil {
		return err
	}
	if req.Version == 0 {
		req.Version = 1
	}

	query := `
		INSERT INTO loan_requests (id, mobile, national_id, amount_toman, tenor_months, branch_code, branch_name,
			status, version, created_at, updated_at, paid_amount_toman, paid_tenor_months, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	paidAmount, paidTenor, paidAt := bankColumns(req)
	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.Mobile,
		req.NationalID,
		req.AmountToman,
		req.TenorMonths,
		req.Branch.Code,
		req.Branch.Name,
		string(req.Status),
		req.Version,
		req.CreatedAt,
		req.UpdatedAt,
		paidAmount,
		paidTenor,
		paidAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if strings.Contains(pqErr.Constraint, "mobile") {
			return customError.WrapAlreadyActive(req.Mobile)
		}
		return customError.WrapValidation("loan request id already in use")
	}
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

func (r *loanRequestRepository) GetActive(ctx context.Context, mobile string) (*domain.LoanRequest, error) {
	query := `SELECT ` + selectColumns + ` FROM loan_requests WHERE mobile = $1 AND status <> $2`

	var row loanRequestRow
	err := r.db.GetContext(ctx, &row, query, mobile, string(domain.StatusClosed))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapNotFound("active:" + mobile)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return row.toDomain(), nil
}

func (r *loanRequestRepository) GetByID(ctx context.Context, id string) (*domain.LoanRequest, error) {
	query := `SELECT ` + selectColumns + ` FROM loan_requests WHERE id = $1`

	var row loanRequestRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapNotFound(id)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return row.toDomain(), nil
}

func (r *loanRequestRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.LoanRequest, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != nil {
		where = append(where, "status = "+arg(string(*filter.Status)))
	}
	if filter.Search != "" {
		p := arg(likePattern(filter.Search))
		where = append(where, "(LOWER(id) LIKE "+p+` ESCAPE '\' OR mobile LIKE `+p+` ESCAPE '\' OR national_id LIKE `+p+` ESCAPE '\')`)
	}

	query := `SELECT ` + selectColumns + ` FROM loan_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.Viewer != "" {
		query += " ORDER BY (mobile = " + arg(filter.Viewer) + " AND status <> 'Closed') DESC, seq ASC"
	} else {
		query += " ORDER BY seq ASC"
	}

	var rows []loanRequestRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	result := make([]*domain.LoanRequest, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (r *loanRequestRepository) ListStale(ctx context.Context, status domain.Status, updatedBefore time.Time) ([]*domain.LoanRequest, error) {
	query := `SELECT ` + selectColumns + ` FROM loan_requests WHERE status = $1 AND updated_at < $2 ORDER BY seq ASC`

	var rows []loanRequestRow
	if err := r.db.SelectContext(ctx, &rows, query, string(status), updatedBefore); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	result := make([]*domain.LoanRequest, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (r *loanRequestRepository) Update(ctx context.Context, id string, expectedVersion int64, mutate MutateFunc) (*domain.LoanRequest, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, customError.WrapStaleWrite(id)
	}

	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	return r.save(ctx, current, next)
}

// Close retries when a concurrent write bumped the version between its read and write
func (r *loanRequestRepository) Close(ctx context.Context, id string) (*domain.LoanRequest, error) {
	return retryOnStale(closeAttempts, func() (*domain.LoanRequest, error) {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		changed, err := domain.ApplyTransition(next, domain.StatusClosed, r.now())
		if err != nil {
			return nil, err
		}
		if !changed {
			return next, nil
		}
		return r.save(ctx, current, next)
	})
}

// save writes next only if the row still carries current's version
func (r *loanRequestRepository) save(ctx context.Context, current, next *domain.LoanRequest) (*domain.LoanRequest, error) {
	if err := prepareWrite(current, next, r.bounds); err != nil {
		return nil, err
	}

	query := `
		UPDATE loan_requests
		SET national_id = $3, amount_toman = $4, tenor_months = $5, status = $6, version = $7, updated_at = $8,
			paid_amount_toman = $9, paid_tenor_months = $10, paid_at = $11
		WHERE id = $1 AND version = $2
	`

	paidAmount, paidTenor, paidAt := bankColumns(next)
	res, err := r.db.ExecContext(ctx, query,
		next.ID,
		current.Version,
		next.NationalID,
		next.AmountToman,
		next.TenorMonths,
		string(next.Status),
		next.Version,
		next.UpdatedAt,
		paidAmount,
		paidTenor,
		paidAt,
	)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if affected == 0 {
		return nil, customError.WrapStaleWrite(next.ID)
	}
	return next, nil
}
