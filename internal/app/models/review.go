package models

import "time"

// BookReview is a reader's rating of a book, shown once approved
type BookReview struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"userId" db:"user_id"`
	BookID     int64     `json:"bookId" db:"book_id"`
	Rating     int       `json:"rating" db:"rating" example:"5"`
	ReviewText string    `json:"reviewText" db:"review_text"`
	IsApproved bool      `json:"isApproved" db:"is_approved"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r is within 1..5
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// BookQueue is a waitlist entry for a book, optionally at one branch
type BookQueue struct {
	ID         int64       `json:"id" db:"id"`
	UserID     int64       `json:"userId" db:"user_id"`
	BookID     int64       `json:"bookId" db:"book_id"`
	BranchID   *int64      `json:"branchId,omitempty" db:"branch_id"`
	Position   int         `json:"position" db:"position"`
	Status     QueueStatus `json:"status" db:"status" example:"waiting"`
	NotifiedAt *time.Time  `json:"notifiedAt,omitempty" db:"notified_at"`
	CreatedAt  time.Time   `json:"createdAt" db:"created_at"`
}

// Notify marks a waiting entry as notified
func (q *BookQueue) Notify(now time.Time) bool {
	if q.Status != QueueStatusWaiting {
		return false
	}
	q.Status = QueueStatusNotified
	q.NotifiedAt = &now
	return true
}
