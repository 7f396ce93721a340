package dto

import (
	"time"

	"github.com/biblioteka/backend/internal/app/models"
)

// BookCopyRequest creates or replaces a batch of copies
type BookCopyRequest struct {
	BookID          int64             `json:"bookId" binding:"required,min=1"`
	BranchID        int64             `json:"branchId" binding:"required,min=1"`
	BookCount       int               `json:"bookCount" binding:"omitempty,min=0"`
	Status          models.CopyStatus `json:"status" binding:"omitempty,oneof=active returned overdue lost"`
	AcquisitionDate *string           `json:"acquisitionDate" binding:"omitempty,datetime=2006-01-02"`
	ReturnDate      *string           `json:"returnDate" binding:"omitempty,datetime=2006-01-02"`
	Condition       string            `json:"condition" binding:"max=100"`
}

// ToModel converts the request into a copy; defaults are applied by the service
func (r *BookCopyRequest) ToModel() *models.BookCopy {
	return &models.BookCopy{
		BookID:          r.BookID,
		BranchID:        r.BranchID,
		BookCount:       r.BookCount,
		Status:          r.Status,
		AcquisitionDate: parseDate(r.AcquisitionDate),
		ReturnDate:      parseDate(r.ReturnDate),
		Condition:       r.Condition,
	}
}

// BookCopyResponse adds the overdue flag to a copy
type BookCopyResponse struct {
	models.BookCopy
	IsOverdue bool `json:"isOverdue"`
}

// BookBookingRequest reserves a copy
type BookBookingRequest struct {
	UserID     int64 `json:"userId" binding:"required,min=1"`
	BookCopyID int64 `json:"bookCopyId" binding:"required,min=1"`
	BranchID   int64 `json:"branchId" binding:"required,min=1"`
}

// ToModel converts the request into a pending booking
func (r *BookBookingRequest) ToModel() *models.BookBooking {
	return &models.BookBooking{
		UserID:     r.UserID,
		BookCopyID: r.BookCopyID,
		BranchID:   r.BranchID,
		Status:     models.BookingStatusPending,
	}
}

// BookingStatusRequest sets a booking status directly (admin edit)
type BookingStatusRequest struct {
	Status models.BookingStatus `json:"status" binding:"required,oneof=pending ready issued cancelled expired"`
}

// BookLoanRequest issues a copy directly
type BookLoanRequest struct {
	UserID     int64             `json:"userId" binding:"required,min=1"`
	BookCopyID int64             `json:"bookCopyId" binding:"required,min=1"`
	BookingID  *int64            `json:"bookingId" binding:"omitempty,min=1"`
	IssueDate  *time.Time        `json:"issueDate"`
	DueDate    *time.Time        `json:"dueDate"`
	Status     models.LoanStatus `json:"status" binding:"omitempty,oneof=active returned overdue lost fine_paid"`
}

// ToModel converts the request into a loan; the service fills dates and status
func (r *BookLoanRequest) ToModel() *models.BookLoan {
	l := &models.BookLoan{
		UserID:     r.UserID,
		BookCopyID: r.BookCopyID,
		BookingID:  r.BookingID,
		Status:     r.Status,
	}
	if r.IssueDate != nil {
		l.IssueDate = *r.IssueDate
	}
	if r.DueDate != nil {
		l.DueDate = *r.DueDate
	}
	return l
}

// BookLoanResponse adds the human-readable status
type BookLoanResponse struct {
	models.BookLoan
	StatusDisplay string `json:"statusDisplay" example:"Overdue"`
}

// NewBookLoanResponse builds the response for a loan
func NewBookLoanResponse(l *models.BookLoan) BookLoanResponse {
	return BookLoanResponse{BookLoan: *l, StatusDisplay: l.StatusDisplay()}
}

// BookQueueRequest puts a user on the waitlist
type BookQueueRequest struct {
	UserID   int64  `json:"userId" binding:"required,min=1"`
	BookID   int64  `json:"bookId" binding:"required,min=1"`
	BranchID *int64 `json:"branchId" binding:"omitempty,min=1"`
}

// ToModel converts the request into a waiting entry; position is assigned on insert
func (r *BookQueueRequest) ToModel() *models.BookQueue {
	return &models.BookQueue{
		UserID:   r.UserID,
		BookID:   r.BookID,
		BranchID: r.BranchID,
		Status:   models.QueueStatusWaiting,
	}
}

// QueueStatusRequest sets a queue entry status directly
type QueueStatusRequest struct {
	Status models.QueueStatus `json:"status" binding:"required,oneof=waiting notified cancelled completed"`
}

// NotifyNextRequest selects which waitlist to advance
type NotifyNextRequest struct {
	BookID   int64  `json:"bookId" binding:"required,min=1"`
	BranchID *int64 `json:"branchId" binding:"omitempty,min=1"`
}

// BookReviewRequest creates or replaces a review
type BookReviewRequest struct {
	UserID     int64  `json:"userId" binding:"required,min=1"`
	BookID     int64  `json:"bookId" binding:"required,min=1"`
	Rating     int    `json:"rating" binding:"required,min=1,max=5"`
	ReviewText string `json:"reviewText" binding:"required"`
	IsApproved bool   `json:"isApproved"`
}

// ToModel converts the request into a review
func (r *BookReviewRequest) ToModel() *models.BookReview {
	return &models.BookReview{
		UserID:     r.UserID,
		BookID:     r.BookID,
		Rating:     r.Rating,
		ReviewText: r.ReviewText,
		IsApproved: r.IsApproved,
	}
}
