package repositories

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/db"
	"github.com/jackc/pgx/v5"
)

const reviewColumns = "r.id, r.user_id, r.book_id, r.rating, r.review_text, r.is_approved, r.created_at, r.updated_at"

// BookReviewRepository handles reader reviews
type BookReviewRepository struct {
	db *db.PostgresDB
}

// NewBookReviewRepository creates a new review repository
func NewBookReviewRepository(database *db.PostgresDB) *BookReviewRepository {
	return &BookReviewRepository{db: database}
}

// BookReviewFilter mirrors the admin list filters
type BookReviewFilter struct {
	ListParams
	Rating     *int
	IsApproved *bool
	BookID     *int64
}

func scanReview(row rowScanner) (*models.BookReview, error) {
	var rv models.BookReview
	err := row.Scan(&rv.ID, &rv.UserID, &rv.BookID, &rv.Rating, &rv.ReviewText, &rv.IsApproved, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// Create inserts a review
func (r *BookReviewRepository) Create(ctx context.Context, rv *models.BookReview) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("book_reviews").
		Columns("user_id", "book_id", "rating", "review_text", "is_approved").
		Values(rv.UserID, rv.BookID, rv.Rating, rv.ReviewText, rv.IsApproved).
		Suffix("RETURNING id, created_at, updated_at"), "book review", &rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
}

// GetByID loads a review
func (r *BookReviewRepository) GetByID(ctx context.Context, id int64) (*models.BookReview, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(reviewColumns).From("book_reviews r").Where(squirrel.Eq{"r.id": id}), "book review", scanReview)
}

// List returns one page of reviews
func (r *BookReviewRepository) List(ctx context.Context, f BookReviewFilter) ([]*models.BookReview, PageInfo, error) {
	base := sb.Select().From("book_reviews r").
		Join("users u ON u.id = r.user_id").
		Join("books bk ON bk.id = r.book_id")
	eq := squirrel.Eq{}
	if f.Rating != nil {
		eq["r.rating"] = *f.Rating
	}
	if f.IsApproved != nil {
		eq["r.is_approved"] = *f.IsApproved
	}
	if f.BookID != nil {
		eq["r.book_id"] = *f.BookID
	}
	if len(eq) > 0 {
		base = base.Where(eq)
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "u.username", "bk.title", "r.review_text"))
	}
	order := orderClause(f.ListParams, map[string]string{"rating": "r.rating", "createdAt": "r.created_at"}, "r.created_at DESC")
	return fetchPage(ctx, r.db.Pool, base, []string{reviewColumns}, order, f.ListParams, "book review", scanReview)
}

// Update replaces a review; moving it onto a (user, book) pair that already
// has a review fails with ErrResourceAlreadyExists
func (r *BookReviewRepository) Update(ctx context.Context, rv *models.BookReview) error {
	return execAffectingOne(ctx, r.db.Pool, sb.Update("book_reviews").SetMap(map[string]interface{}{
		"user_id":     rv.UserID,
		"book_id":     rv.BookID,
		"rating":      rv.Rating,
		"review_text": rv.ReviewText,
		"is_approved": rv.IsApproved,
		"updated_at":  squirrel.Expr("NOW()"),
	}).Where(squirrel.Eq{"id": rv.ID}), "book review")
}

// SetApproved flips the moderation flag
func (r *BookReviewRepository) SetApproved(ctx context.Context, id int64, approved bool) error {
	return execAffectingOne(ctx, r.db.Pool, sb.Update("book_reviews").
		Set("is_approved", approved).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}), "book review")
}

// Delete removes a review
func (r *BookReviewRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "book_reviews", id, "book review")
}

const queueColumns = "q.id, q.user_id, q.book_id, q.branch_id, q.position, q.status, q.notified_at, q.created_at"

// BookQueueRepository handles the per-book waitlist
type BookQueueRepository struct {
	db *db.PostgresDB
}

// NewBookQueueRepository creates a new queue repository
func NewBookQueueRepository(database *db.PostgresDB) *BookQueueRepository {
	return &BookQueueRepository{db: database}
}

// BookQueueFilter mirrors the admin list filters
type BookQueueFilter struct {
	ListParams
	Status   *models.QueueStatus
	BranchID *int64
	BookID   *int64
	UserID   *int64
}

func scanQueue(row rowScanner) (*models.BookQueue, error) {
	var q models.BookQueue
	err := row.Scan(&q.ID, &q.UserID, &q.BookID, &q.BranchID, &q.Position, &q.Status, &q.NotifiedAt, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// sameBranch matches a nullable branch id, treating NULL as "any branch"
func sameBranch(column string, branchID *int64) squirrel.Sqlizer {
	return squirrel.Expr(column+" IS NOT DISTINCT FROM ?", branchID)
}

// Join appends an entry at the end of the book's queue. The position is
// computed under a lock on the book row so concurrent joins do not collide.
func (r *BookQueueRepository) Join(ctx context.Context, entry *models.BookQueue) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := fetchOne(ctx, tx, sb.Select("id").From("books").
			Where(squirrel.Eq{"id": entry.BookID}).Suffix("FOR UPDATE"), "book", scanID); err != nil {
			return err
		}

		last, err := lastWaitingPosition(ctx, tx, entry.BookID, entry.BranchID)
		if err != nil {
			return err
		}

		entry.Position = last + 1
		if entry.Status == "" {
			entry.Status = models.QueueStatusWaiting
		}
		return insertQueue(ctx, tx, entry)
	})
}

// lastWaitingPosition is the highest position still waiting in the
// (book, branch) queue, 0 when nobody waits
func lastWaitingPosition(ctx context.Context, q db.Querier, bookID int64, branchID *int64) (int, error) {
	sqlStr, args, err := sb.Select("COALESCE(MAX(position), 0)").From("book_queue").
		Where(squirrel.Eq{"book_id": bookID, "status": models.QueueStatusWaiting}).
		Where(sameBranch("branch_id", branchID)).ToSql()
	if err != nil {
		return 0, err
	}
	var last int
	if err := q.QueryRow(ctx, sqlStr, args...).Scan(&last); err != nil {
		return 0, err
	}
	return last, nil
}

func scanID(row rowScanner) (*int64, error) {
	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, err
	}
	return &id, nil
}

func insertQueue(ctx context.Context, q db.Querier, e *models.BookQueue) error {
	return insertReturning(ctx, q, sb.Insert("book_queue").
		Columns("user_id", "book_id", "branch_id", "position", "status", "notified_at").
		Values(e.UserID, e.BookID, e.BranchID, e.Position, e.Status, e.NotifiedAt).
		Suffix("RETURNING id, created_at"), "queue entry", &e.ID, &e.CreatedAt)
}

// Create inserts an entry with an explicit position
func (r *BookQueueRepository) Create(ctx context.Context, e *models.BookQueue) error {
	return insertQueue(ctx, r.db.Pool, e)
}

// GetByID loads a queue entry
func (r *BookQueueRepository) GetByID(ctx context.Context, id int64) (*models.BookQueue, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(queueColumns).From("book_queue q").Where(squirrel.Eq{"q.id": id}), "queue entry", scanQueue)
}

// List returns one page of queue entries
func (r *BookQueueRepository) List(ctx context.Context, f BookQueueFilter) ([]*models.BookQueue, PageInfo, error) {
	base := sb.Select().From("book_queue q").
		Join("users u ON u.id = q.user_id").
		Join("books bk ON bk.id = q.book_id")
	eq := squirrel.Eq{}
	if f.Status != nil {
		eq["q.status"] = *f.Status
	}
	if f.BranchID != nil {
		eq["q.branch_id"] = *f.BranchID
	}
	if f.BookID != nil {
		eq["q.book_id"] = *f.BookID
	}
	if f.UserID != nil {
		eq["q.user_id"] = *f.UserID
	}
	if len(eq) > 0 {
		base = base.Where(eq)
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "u.username", "bk.title"))
	}
	order := orderClause(f.ListParams, map[string]string{"position": "q.position", "createdAt": "q.created_at"}, "q.book_id, q.position")
	return fetchPage(ctx, r.db.Pool, base, []string{queueColumns}, order, f.ListParams, "queue entry", scanQueue)
}

// updateQueueState writes the notification state only
func updateQueueState(ctx context.Context, q db.Querier, e *models.BookQueue) error {
	return execAffectingOne(ctx, q, sb.Update("book_queue").SetMap(map[string]interface{}{
		"position":    e.Position,
		"status":      e.Status,
		"notified_at": e.NotifiedAt,
	}).Where(squirrel.Eq{"id": e.ID}), "queue entry")
}

// Update replaces an entry. An entry moved to another book or branch is
// placed at the end of that queue; a clash with an existing (user, book,
// branch) entry fails with ErrResourceAlreadyExists.
func (r *BookQueueRepository) Update(ctx context.Context, e *models.BookQueue) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		current, err := fetchOne(ctx, tx, sb.Select(queueColumns).From("book_queue q").
			Where(squirrel.Eq{"q.id": e.ID}).Suffix("FOR UPDATE"), "queue entry", scanQueue)
		if err != nil {
			return err
		}

		if current.BookID != e.BookID || !sameOptionalID(current.BranchID, e.BranchID) {
			if _, err := fetchOne(ctx, tx, sb.Select("id").From("books").
				Where(squirrel.Eq{"id": e.BookID}).Suffix("FOR UPDATE"), "book", scanID); err != nil {
				return err
			}
			last, err := lastWaitingPosition(ctx, tx, e.BookID, e.BranchID)
			if err != nil {
				return err
			}
			e.Position = last + 1
		}

		return execAffectingOne(ctx, tx, sb.Update("book_queue").SetMap(map[string]interface{}{
			"user_id":     e.UserID,
			"book_id":     e.BookID,
			"branch_id":   e.BranchID,
			"position":    e.Position,
			"status":      e.Status,
			"notified_at": e.NotifiedAt,
		}).Where(squirrel.Eq{"id": e.ID}), "queue entry")
	})
}

func sameOptionalID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// NotifyNext marks the lowest-positioned waiting entry for the book as
// notified. With a branch, entries for that branch and entries without a
// branch are eligible. Returns nil when nobody is waiting.
func (r *BookQueueRepository) NotifyNext(ctx context.Context, bookID int64, branchID *int64, now time.Time) (*models.BookQueue, error) {
	var notified *models.BookQueue
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		query := sb.Select(queueColumns).From("book_queue q").
			Where(squirrel.Eq{"q.book_id": bookID, "q.status": models.QueueStatusWaiting})
		if branchID != nil {
			query = query.Where(squirrel.Or{squirrel.Eq{"q.branch_id": *branchID}, squirrel.Eq{"q.branch_id": nil}})
		}
		entries, err := fetchAll(ctx, tx, query.
			OrderBy("q.position", "q.created_at").Limit(1).
			Suffix("FOR UPDATE SKIP LOCKED"), "queue entry", scanQueue)
		if err != nil || len(entries) == 0 {
			return err
		}
		e := entries[0]
		if !e.Notify(now) {
			return nil
		}
		if err := updateQueueState(ctx, tx, e); err != nil {
			return err
		}
		notified = e
		return nil
	})
	return notified, err
}

// Delete removes a queue entry
func (r *BookQueueRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "book_queue", id, "queue entry")
}
