package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/db"
	"github.com/jackc/pgx/v5"
)

const copyColumns = "bc.id, bc.book_id, bc.branch_id, bc.book_count, bc.status, bc.acquisition_date, bc.return_date, bc.condition, bc.created_at"

// BookCopyRepository handles physical stock
type BookCopyRepository struct {
	db *db.PostgresDB
}

// NewBookCopyRepository creates a new copy repository
func NewBookCopyRepository(database *db.PostgresDB) *BookCopyRepository {
	return &BookCopyRepository{db: database}
}

// BookCopyFilter mirrors the admin list filters
type BookCopyFilter struct {
	ListParams
	Status    *models.CopyStatus
	Condition string
	BranchID  *int64
	BookID    *int64
}

func scanBookCopy(row rowScanner) (*models.BookCopy, error) {
	var c models.BookCopy
	err := row.Scan(&c.ID, &c.BookID, &c.BranchID, &c.BookCount, &c.Status, &c.AcquisitionDate, &c.ReturnDate, &c.Condition, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a copy batch
func (r *BookCopyRepository) Create(ctx context.Context, c *models.BookCopy) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("book_copies").
		Columns("book_id", "branch_id", "book_count", "status", "acquisition_date", "return_date", "condition").
		Values(c.BookID, c.BranchID, c.BookCount, c.Status, c.AcquisitionDate, c.ReturnDate, c.Condition).
		Suffix("RETURNING id, created_at"), "book copy", &c.ID, &c.CreatedAt)
}

// GetByID loads a copy batch
func (r *BookCopyRepository) GetByID(ctx context.Context, id int64) (*models.BookCopy, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(copyColumns).From("book_copies bc").Where(squirrel.Eq{"bc.id": id}), "book copy", scanBookCopy)
}

// List returns one page of copies
func (r *BookCopyRepository) List(ctx context.Context, f BookCopyFilter) ([]*models.BookCopy, PageInfo, error) {
	base := sb.Select().From("book_copies bc").
		Join("books bk ON bk.id = bc.book_id").
		Join("branches b ON b.id = bc.branch_id")
	eq := squirrel.Eq{}
	if f.Status != nil {
		eq["bc.status"] = *f.Status
	}
	if f.Condition != "" {
		eq["bc.condition"] = f.Condition
	}
	if f.BranchID != nil {
		eq["bc.branch_id"] = *f.BranchID
	}
	if f.BookID != nil {
		eq["bc.book_id"] = *f.BookID
	}
	if len(eq) > 0 {
		base = base.Where(eq)
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "bk.title", "b.name"))
	}
	order := orderClause(f.ListParams, map[string]string{"returnDate": "bc.return_date", "createdAt": "bc.created_at"}, "bc.created_at DESC")
	return fetchPage(ctx, r.db.Pool, base, []string{copyColumns}, order, f.ListParams, "book copy", scanBookCopy)
}

// Update replaces a copy batch's columns
func (r *BookCopyRepository) Update(ctx context.Context, c *models.BookCopy) error {
	return execAffectingOne(ctx, r.db.Pool, sb.Update("book_copies").SetMap(map[string]interface{}{
		"book_id":          c.BookID,
		"branch_id":        c.BranchID,
		"book_count":       c.BookCount,
		"status":           c.Status,
		"acquisition_date": c.AcquisitionDate,
		"return_date":      c.ReturnDate,
		"condition":        c.Condition,
	}).Where(squirrel.Eq{"id": c.ID}), "book copy")
}

// MarkOverdue flags active copies whose return date is before today
func (r *BookCopyRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	return execCount(ctx, r.db.Pool, sb.Update("book_copies").
		Set("status", models.CopyStatusOverdue).
		Where(squirrel.Eq{"status": models.CopyStatusActive}).
		Where(squirrel.Lt{"return_date": models.DateOf(today)}), "book copy")
}

// Delete removes a copy batch
func (r *BookCopyRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "book_copies", id, "book copy")
}

const bookingColumns = "bb.id, bb.user_id, bb.book_copy_id, bb.branch_id, bb.status, bb.ready_by, bb.pickup_deadline, bb.created_at"

// BookBookingRepository handles copy reservations
type BookBookingRepository struct {
	db *db.PostgresDB
}

// NewBookBookingRepository creates a new booking repository
func NewBookBookingRepository(database *db.PostgresDB) *BookBookingRepository {
	return &BookBookingRepository{db: database}
}

// BookBookingFilter mirrors the admin list filters
type BookBookingFilter struct {
	ListParams
	Status   *models.BookingStatus
	BranchID *int64
	UserID   *int64
}

func scanBooking(row rowScanner) (*models.BookBooking, error) {
	var b models.BookBooking
	err := row.Scan(&b.ID, &b.UserID, &b.BookCopyID, &b.BranchID, &b.Status, &b.ReadyBy, &b.PickupDeadline, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a booking
func (r *BookBookingRepository) Create(ctx context.Context, b *models.BookBooking) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("book_bookings").
		Columns("user_id", "book_copy_id", "branch_id", "status", "ready_by", "pickup_deadline").
		Values(b.UserID, b.BookCopyID, b.BranchID, b.Status, b.ReadyBy, b.PickupDeadline).
		Suffix("RETURNING id, created_at"), "book booking", &b.ID, &b.CreatedAt)
}

// GetByID loads a booking
func (r *BookBookingRepository) GetByID(ctx context.Context, id int64) (*models.BookBooking, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(bookingColumns).From("book_bookings bb").Where(squirrel.Eq{"bb.id": id}), "book booking", scanBooking)
}

// List returns one page of bookings
func (r *BookBookingRepository) List(ctx context.Context, f BookBookingFilter) ([]*models.BookBooking, PageInfo, error) {
	base := sb.Select().From("book_bookings bb").
		Join("users u ON u.id = bb.user_id").
		Join("book_copies bc ON bc.id = bb.book_copy_id").
		Join("books bk ON bk.id = bc.book_id")
	eq := squirrel.Eq{}
	if f.Status != nil {
		eq["bb.status"] = *f.Status
	}
	if f.BranchID != nil {
		eq["bb.branch_id"] = *f.BranchID
	}
	if f.UserID != nil {
		eq["bb.user_id"] = *f.UserID
	}
	if len(eq) > 0 {
		base = base.Where(eq)
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "u.username", "bk.title"))
	}
	order := orderClause(f.ListParams, map[string]string{"createdAt": "bb.created_at", "pickupDeadline": "bb.pickup_deadline"}, "bb.created_at DESC")
	return fetchPage(ctx, r.db.Pool, base, []string{bookingColumns}, order, f.ListParams, "book booking", scanBooking)
}

func (r *BookBookingRepository) lock(ctx context.Context, tx pgx.Tx, id int64) (*models.BookBooking, error) {
	return fetchOne(ctx, tx, sb.Select(bookingColumns).From("book_bookings bb").
		Where(squirrel.Eq{"bb.id": id}).Suffix("FOR UPDATE"), "book booking", scanBooking)
}

func updateBooking(ctx context.Context, q db.Querier, b *models.BookBooking) error {
	return execAffectingOne(ctx, q, sb.Update("book_bookings").SetMap(map[string]interface{}{
		"user_id":         b.UserID,
		"book_copy_id":    b.BookCopyID,
		"branch_id":       b.BranchID,
		"status":          b.Status,
		"ready_by":        b.ReadyBy,
		"pickup_deadline": b.PickupDeadline,
	}).Where(squirrel.Eq{"id": b.ID}), "book booking")
}

// Update replaces a booking's columns
func (r *BookBookingRepository) Update(ctx context.Context, b *models.BookBooking) error {
	return updateBooking(ctx, r.db.Pool, b)
}

// Transition locks the booking, applies fn and stores the result
func (r *BookBookingRepository) Transition(ctx context.Context, id int64, fn func(*models.BookBooking) error) (*models.BookBooking, error) {
	var booking *models.BookBooking
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		b, err := r.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
		booking = b
		return updateBooking(ctx, tx, b)
	})
	return booking, err
}

// Issue marks a ready booking as issued and creates its loan in one transaction.
// build receives the locked booking and returns the loan to insert.
func (r *BookBookingRepository) Issue(ctx context.Context, id int64, build func(*models.BookBooking) (*models.BookLoan, error)) (*models.BookLoan, error) {
	var loan *models.BookLoan
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		b, err := r.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		l, err := build(b)
		if err != nil {
			return err
		}
		if err := updateBooking(ctx, tx, b); err != nil {
			return err
		}
		if err := insertLoan(ctx, tx, l); err != nil {
			return err
		}
		loan = l
		return nil
	})
	return loan, err
}

// ExpireReady moves ready bookings past their pickup deadline to expired
func (r *BookBookingRepository) ExpireReady(ctx context.Context, now time.Time) (int64, error) {
	return execCount(ctx, r.db.Pool, sb.Update("book_bookings").
		Set("status", models.BookingStatusExpired).
		Where(squirrel.Eq{"status": models.BookingStatusReady}).
		Where(squirrel.Lt{"pickup_deadline": now}), "book booking")
}

// Delete removes a booking
func (r *BookBookingRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "book_bookings", id, "book booking")
}

const loanColumns = "bl.id, bl.user_id, bl.book_copy_id, bl.booking_id, bl.issued_by, bl.issue_date, bl.due_date, bl.return_date, bl.returned_to, bl.renewals, bl.status, bl.created_at"

// BookLoanRepository handles loans
type BookLoanRepository struct {
	db *db.PostgresDB
}

// NewBookLoanRepository creates a new loan repository
func NewBookLoanRepository(database *db.PostgresDB) *BookLoanRepository {
	return &BookLoanRepository{db: database}
}

// BookLoanFilter mirrors the admin list filters
type BookLoanFilter struct {
	ListParams
	Status     *models.LoanStatus
	UserID     *int64
	IssuedFrom *time.Time
	IssuedTo   *time.Time
	DueFrom    *time.Time
	DueTo      *time.Time
}

func scanLoan(row rowScanner) (*models.BookLoan, error) {
	var l models.BookLoan
	err := row.Scan(&l.ID, &l.UserID, &l.BookCopyID, &l.BookingID, &l.IssuedBy, &l.IssueDate, &l.DueDate,
		&l.ReturnDate, &l.ReturnedTo, &l.Renewals, &l.Status, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func insertLoan(ctx context.Context, q db.Querier, l *models.BookLoan) error {
	return insertReturning(ctx, q, sb.Insert("book_loans").
		Columns("user_id", "book_copy_id", "booking_id", "issued_by", "issue_date", "due_date", "return_date", "returned_to", "renewals", "status").
		Values(l.UserID, l.BookCopyID, l.BookingID, l.IssuedBy, l.IssueDate, l.DueDate, l.ReturnDate, l.ReturnedTo, l.Renewals, l.Status).
		Suffix("RETURNING id, created_at"), "book loan", &l.ID, &l.CreatedAt)
}

func updateLoan(ctx context.Context, q db.Querier, l *models.BookLoan) error {
	return execAffectingOne(ctx, q, sb.Update("book_loans").SetMap(map[string]interface{}{
		"user_id":      l.UserID,
		"book_copy_id": l.BookCopyID,
		"booking_id":   l.BookingID,
		"issued_by":    l.IssuedBy,
		"issue_date":   l.IssueDate,
		"due_date":     l.DueDate,
		"return_date":  l.ReturnDate,
		"returned_to":  l.ReturnedTo,
		"renewals":     l.Renewals,
		"status":       l.Status,
	}).Where(squirrel.Eq{"id": l.ID}), "book loan")
}

// Create inserts a loan
func (r *BookLoanRepository) Create(ctx context.Context, l *models.BookLoan) error {
	return insertLoan(ctx, r.db.Pool, l)
}

// GetByID loads a loan
func (r *BookLoanRepository) GetByID(ctx context.Context, id int64) (*models.BookLoan, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(loanColumns).From("book_loans bl").Where(squirrel.Eq{"bl.id": id}), "book loan", scanLoan)
}

// List returns one page of loans
func (r *BookLoanRepository) List(ctx context.Context, f BookLoanFilter) ([]*models.BookLoan, PageInfo, error) {
	base := sb.Select().From("book_loans bl").
		Join("users u ON u.id = bl.user_id").
		Join("book_copies bc ON bc.id = bl.book_copy_id").
		Join("books bk ON bk.id = bc.book_id")
	if f.Status != nil {
		base = base.Where(squirrel.Eq{"bl.status": *f.Status})
	}
	if f.UserID != nil {
		base = base.Where(squirrel.Eq{"bl.user_id": *f.UserID})
	}
	if f.IssuedFrom != nil {
		base = base.Where(squirrel.GtOrEq{"bl.issue_date": *f.IssuedFrom})
	}
	if f.IssuedTo != nil {
		base = base.Where(squirrel.Lt{"bl.issue_date": f.IssuedTo.AddDate(0, 0, 1)})
	}
	if f.DueFrom != nil {
		base = base.Where(squirrel.GtOrEq{"bl.due_date": *f.DueFrom})
	}
	if f.DueTo != nil {
		base = base.Where(squirrel.Lt{"bl.due_date": f.DueTo.AddDate(0, 0, 1)})
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "u.username", "bk.title"))
	}
	order := orderClause(f.ListParams, map[string]string{"issueDate": "bl.issue_date", "dueDate": "bl.due_date"}, "bl.issue_date DESC")
	return fetchPage(ctx, r.db.Pool, base, []string{loanColumns}, order, f.ListParams, "book loan", scanLoan)
}

// Update replaces a loan's columns
func (r *BookLoanRepository) Update(ctx context.Context, l *models.BookLoan) error {
	return updateLoan(ctx, r.db.Pool, l)
}

// Mutate locks the loan, applies fn and stores the result
func (r *BookLoanRepository) Mutate(ctx context.Context, id int64, fn func(*models.BookLoan) error) (*models.BookLoan, error) {
	var loan *models.BookLoan
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		l, err := fetchOne(ctx, tx, sb.Select(loanColumns).From("book_loans bl").
			Where(squirrel.Eq{"bl.id": id}).Suffix("FOR UPDATE"), "book loan", scanLoan)
		if err != nil {
			return err
		}
		if err := fn(l); err != nil {
			return err
		}
		loan = l
		return updateLoan(ctx, tx, l)
	})
	return loan, err
}

// MarkOverdue flags open loans past their due date and returns the loans it
// changed. Lost and fine-paid loans keep their status.
func (r *BookLoanRepository) MarkOverdue(ctx context.Context, now time.Time) ([]*models.BookLoan, error) {
	return fetchAll(ctx, r.db.Pool, sb.Update("book_loans").
		Set("status", models.LoanStatusOverdue).
		Where(squirrel.Eq{"status": models.LoanStatusActive, "return_date": nil}).
		Where(squirrel.Lt{"due_date": now}).
		Suffix("RETURNING "+strings.ReplaceAll(loanColumns, "bl.", "")), "book loan", scanLoan)
}

// ListOverdue returns loans currently flagged overdue
func (r *BookLoanRepository) ListOverdue(ctx context.Context) ([]*models.BookLoan, error) {
	return fetchAll(ctx, r.db.Pool, sb.Select(loanColumns).From("book_loans bl").
		Where(squirrel.Eq{"bl.status": models.LoanStatusOverdue}).OrderBy("bl.due_date"), "book loan", scanLoan)
}

// Delete removes a loan
func (r *BookLoanRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "book_loans", id, "book loan")
}
