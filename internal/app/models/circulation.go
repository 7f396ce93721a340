package models

import (
	"time"

	"github.com/biblioteka/backend/internal/pkg/apperrors"
)

// DefaultCopyLoanDays is added to acquisition_date when a copy has no return date
const DefaultCopyLoanDays = 14

// BookCopy is a batch of identical physical copies held by a branch
type BookCopy struct {
	ID              int64      `json:"id" db:"id"`
	BookID          int64      `json:"bookId" db:"book_id"`
	BranchID        int64      `json:"branchId" db:"branch_id"`
	BookCount       int        `json:"bookCount" db:"book_count" example:"1"`
	Status          CopyStatus `json:"status" db:"status" example:"active"`
	AcquisitionDate *time.Time `json:"acquisitionDate,omitempty" db:"acquisition_date"`
	ReturnDate      *time.Time `json:"returnDate,omitempty" db:"return_date"`
	Condition       string     `json:"condition" db:"condition" example:"good"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`

	Book   *Book   `json:"book,omitempty"`
	Branch *Branch `json:"branch,omitempty"`
}

// ApplyDefaults fills the return date from the acquisition date and flags
// an active copy whose return date is already behind today.
func (c *BookCopy) ApplyDefaults(today time.Time) {
	if c.BookCount == 0 {
		c.BookCount = 1
	}
	if c.Status == "" {
		c.Status = CopyStatusActive
	}
	if c.Condition == "" {
		c.Condition = "good"
	}
	if c.AcquisitionDate != nil && c.ReturnDate == nil {
		rd := DateOf(*c.AcquisitionDate).AddDate(0, 0, DefaultCopyLoanDays)
		c.ReturnDate = &rd
	}
	if c.IsOverdue(today) {
		c.Status = CopyStatusOverdue
	}
}

// IsOverdue reports whether an active copy is past its return date
func (c *BookCopy) IsOverdue(today time.Time) bool {
	if c.Status != CopyStatusActive || c.ReturnDate == nil {
		return false
	}
	return DateOf(*c.ReturnDate).Before(DateOf(today))
}

// BookBooking is a reservation of a copy for pickup
type BookBooking struct {
	ID             int64         `json:"id" db:"id"`
	UserID         int64         `json:"userId" db:"user_id"`
	BookCopyID     int64         `json:"bookCopyId" db:"book_copy_id"`
	BranchID       int64         `json:"branchId" db:"branch_id"`
	Status         BookingStatus `json:"status" db:"status" example:"pending"`
	ReadyBy        *time.Time    `json:"readyBy,omitempty" db:"ready_by"`
	PickupDeadline *time.Time    `json:"pickupDeadline,omitempty" db:"pickup_deadline"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending: {BookingStatusReady, BookingStatusCancelled},
	BookingStatusReady:   {BookingStatusIssued, BookingStatusCancelled, BookingStatusExpired},
}

// CanTransition reports whether the booking may move to next
func (b *BookBooking) CanTransition(next BookingStatus) bool {
	for _, s := range bookingTransitions[b.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// MarkReady moves a pending booking to ready and opens the pickup window
func (b *BookBooking) MarkReady(now time.Time, window time.Duration) error {
	if !b.CanTransition(BookingStatusReady) {
		return apperrors.ErrInvalidStatusTransition
	}
	deadline := now.Add(window)
	b.Status = BookingStatusReady
	b.ReadyBy = &now
	b.PickupDeadline = &deadline
	return nil
}

// Cancel cancels a pending or ready booking
func (b *BookBooking) Cancel() error {
	if !b.CanTransition(BookingStatusCancelled) {
		return apperrors.ErrInvalidStatusTransition
	}
	b.Status = BookingStatusCancelled
	return nil
}

// MarkIssued records that the reserved copy was handed over
func (b *BookBooking) MarkIssued() error {
	if b.Status != BookingStatusReady {
		return apperrors.ErrBookingNotIssuable
	}
	b.Status = BookingStatusIssued
	return nil
}

// IsPickupExpired reports whether a ready booking missed its deadline
func (b *BookBooking) IsPickupExpired(now time.Time) bool {
	return b.Status == BookingStatusReady && b.PickupDeadline != nil && now.After(*b.PickupDeadline)
}

// BookLoan records a copy issued to a user
type BookLoan struct {
	ID         int64      `json:"id" db:"id"`
	UserID     int64      `json:"userId" db:"user_id"`
	BookCopyID int64      `json:"bookCopyId" db:"book_copy_id"`
	BookingID  *int64     `json:"bookingId,omitempty" db:"booking_id"`
	IssuedBy   *int64     `json:"issuedBy,omitempty" db:"issued_by"`
	IssueDate  time.Time  `json:"issueDate" db:"issue_date"`
	DueDate    time.Time  `json:"dueDate" db:"due_date"`
	ReturnDate *time.Time `json:"returnDate,omitempty" db:"return_date"`
	ReturnedTo *int64     `json:"returnedTo,omitempty" db:"returned_to"`
	Renewals   int        `json:"renewals" db:"renewals"`
	Status     LoanStatus `json:"status" db:"status" example:"active"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// DeriveStatus recomputes the status from the return and due dates.
// A returned loan is always returned; an open loan past due becomes overdue
// unless it was written off as lost or its fine was settled.
func (l *BookLoan) DeriveStatus(now time.Time) {
	if l.ReturnDate != nil {
		l.Status = LoanStatusReturned
		return
	}
	if now.After(l.DueDate) && l.Status != LoanStatusLost && l.Status != LoanStatusFinePaid {
		l.Status = LoanStatusOverdue
	}
}

// StatusDisplay returns the label for the current status
func (l *BookLoan) StatusDisplay() string {
	return l.Status.Display()
}

// IsOpen reports whether the copy is still with the reader
func (l *BookLoan) IsOpen() bool {
	return l.ReturnDate == nil && (l.Status == LoanStatusActive || l.Status == LoanStatusOverdue)
}

// Renew extends the due date by period when the renewal limit allows it
func (l *BookLoan) Renew(now time.Time, period time.Duration, maxRenewals int) error {
	if l.ReturnDate != nil || l.Status == LoanStatusReturned {
		return apperrors.ErrLoanAlreadyReturned
	}
	if !l.IsOpen() {
		return apperrors.ErrInvalidStatusTransition
	}
	if l.Renewals >= maxRenewals {
		return apperrors.ErrRenewalLimitReached
	}
	l.DueDate = l.DueDate.Add(period)
	l.Renewals++
	l.Status = LoanStatusActive
	l.DeriveStatus(now)
	return nil
}

// Return closes the loan
func (l *BookLoan) Return(now time.Time, receivedBy *int64) error {
	if l.ReturnDate != nil {
		return apperrors.ErrLoanAlreadyReturned
	}
	l.ReturnDate = &now
	l.ReturnedTo = receivedBy
	l.DeriveStatus(now)
	return nil
}
