package repositories

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/db"
	"github.com/jackc/pgx/v5"
)

const fineColumns = "f.id, f.user_id, f.loan_id, f.amount_cents, f.reason, f.status, f.payment_id, f.yookassa_payment_id, f.paid_at, f.created_at"

// FineRepository handles fines and their settlement
type FineRepository struct {
	db *db.PostgresDB
}

// NewFineRepository creates a new fine repository
func NewFineRepository(database *db.PostgresDB) *FineRepository {
	return &FineRepository{db: database}
}

// FineFilter mirrors the admin list filters
type FineFilter struct {
	ListParams
	Status *models.FineStatus
	Reason string
	UserID *int64
}

func scanFine(row rowScanner) (*models.Fine, error) {
	var f models.Fine
	err := row.Scan(&f.ID, &f.UserID, &f.LoanID, &f.AmountCents, &f.Reason, &f.Status, &f.PaymentID, &f.YookassaPaymentID, &f.PaidAt, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a fine
func (r *FineRepository) Create(ctx context.Context, f *models.Fine) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("fines").
		Columns("user_id", "loan_id", "amount_cents", "reason", "status", "payment_id", "yookassa_payment_id", "paid_at").
		Values(f.UserID, f.LoanID, f.AmountCents, f.Reason, f.Status, f.PaymentID, f.YookassaPaymentID, f.PaidAt).
		Suffix("RETURNING id, created_at"), "fine", &f.ID, &f.CreatedAt)
}

// GetByID loads a fine
func (r *FineRepository) GetByID(ctx context.Context, id int64) (*models.Fine, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(fineColumns).From("fines f").Where(squirrel.Eq{"f.id": id}), "fine", scanFine)
}

// List returns one page of fines
func (r *FineRepository) List(ctx context.Context, f FineFilter) ([]*models.Fine, PageInfo, error) {
	base := sb.Select().From("fines f").Join("users u ON u.id = f.user_id")
	if f.Status != nil {
		base = base.Where(squirrel.Eq{"f.status": *f.Status})
	}
	if f.Reason != "" {
		base = base.Where(squirrel.ILike{"f.reason": "%" + f.Reason + "%"})
	}
	if f.UserID != nil {
		base = base.Where(squirrel.Eq{"f.user_id": *f.UserID})
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "u.username", "f.reason"))
	}
	order := orderClause(f.ListParams, map[string]string{"amount": "f.amount_cents", "createdAt": "f.created_at"}, "f.created_at DESC")
	return fetchPage(ctx, r.db.Pool, base, []string{fineColumns}, order, f.ListParams, "fine", scanFine)
}

func updateFine(ctx context.Context, q db.Querier, f *models.Fine) error {
	return execAffectingOne(ctx, q, sb.Update("fines").SetMap(map[string]interface{}{
		"user_id":             f.UserID,
		"loan_id":             f.LoanID,
		"amount_cents":        f.AmountCents,
		"reason":              f.Reason,
		"status":              f.Status,
		"payment_id":          f.PaymentID,
		"yookassa_payment_id": f.YookassaPaymentID,
		"paid_at":             f.PaidAt,
	}).Where(squirrel.Eq{"id": f.ID}), "fine")
}

// Update replaces a fine's columns
func (r *FineRepository) Update(ctx context.Context, f *models.Fine) error {
	return updateFine(ctx, r.db.Pool, f)
}

// Settle locks the fine, applies fn and stores it. When fn leaves the fine
// paid and it is tied to a loan, the loan is settled in the same transaction.
func (r *FineRepository) Settle(ctx context.Context, id int64, now time.Time, fn func(*models.Fine) error) (*models.Fine, error) {
	var fine *models.Fine
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		f, err := fetchOne(ctx, tx, sb.Select(fineColumns).From("fines f").
			Where(squirrel.Eq{"f.id": id}).Suffix("FOR UPDATE"), "fine", scanFine)
		if err != nil {
			return err
		}
		wasPaid := f.Status == models.FineStatusPaid
		if err := fn(f); err != nil {
			return err
		}
		if err := updateFine(ctx, tx, f); err != nil {
			return err
		}
		fine = f
		if wasPaid || f.Status != models.FineStatusPaid || f.LoanID == nil {
			return nil
		}

		loan, err := fetchOne(ctx, tx, sb.Select(loanColumns).From("book_loans bl").
			Where(squirrel.Eq{"bl.id": *f.LoanID}).Suffix("FOR UPDATE"), "book loan", scanLoan)
		if err != nil {
			return err
		}
		models.SettleLoan(loan, now)
		return updateLoan(ctx, tx, loan)
	})
	return fine, err
}

// ListReconcilable returns unpaid fines that carry a gateway payment id
func (r *FineRepository) ListReconcilable(ctx context.Context, limit uint64) ([]*models.Fine, error) {
	query := sb.Select(fineColumns).From("fines f").
		Where(squirrel.Eq{"f.status": models.FineStatusUnpaid}).
		Where(squirrel.NotEq{"f.yookassa_payment_id": nil}).
		Where(squirrel.NotEq{"f.yookassa_payment_id": ""}).
		OrderBy("f.created_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return fetchAll(ctx, r.db.Pool, query, "fine", scanFine)
}

// Delete removes a fine
func (r *FineRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "fines", id, "fine")
}
