package services

import (
	"context"
	"errors"
	"time"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/email"
	"github.com/biblioteka/backend/internal/pkg/logger"
	"github.com/biblioteka/backend/internal/pkg/websocket"
)

type copyStore interface {
	Create(ctx context.Context, c *models.BookCopy) error
	GetByID(ctx context.Context, id int64) (*models.BookCopy, error)
	List(ctx context.Context, f repositories.BookCopyFilter) ([]*models.BookCopy, repositories.PageInfo, error)
	Update(ctx context.Context, c *models.BookCopy) error
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type bookingStore interface {
	Create(ctx context.Context, b *models.BookBooking) error
	GetByID(ctx context.Context, id int64) (*models.BookBooking, error)
	List(ctx context.Context, f repositories.BookBookingFilter) ([]*models.BookBooking, repositories.PageInfo, error)
	Update(ctx context.Context, b *models.BookBooking) error
	Transition(ctx context.Context, id int64, fn func(*models.BookBooking) error) (*models.BookBooking, error)
	Issue(ctx context.Context, id int64, build func(*models.BookBooking) (*models.BookLoan, error)) (*models.BookLoan, error)
	ExpireReady(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type loanStore interface {
	Create(ctx context.Context, l *models.BookLoan) error
	GetByID(ctx context.Context, id int64) (*models.BookLoan, error)
	List(ctx context.Context, f repositories.BookLoanFilter) ([]*models.BookLoan, repositories.PageInfo, error)
	Mutate(ctx context.Context, id int64, fn func(*models.BookLoan) error) (*models.BookLoan, error)
	MarkOverdue(ctx context.Context, now time.Time) ([]*models.BookLoan, error)
	Delete(ctx context.Context, id int64) error
}

type waitlist interface {
	NotifyNext(ctx context.Context, bookID int64, branchID *int64) (*models.BookQueue, error)
}

// SweepResult counts what one overdue sweep changed
type SweepResult struct {
	OverdueLoans    int   `json:"overdueLoans"`
	OverdueCopies   int64 `json:"overdueCopies"`
	ExpiredBookings int64 `json:"expiredBookings"`
}

// CirculationService runs copies, bookings and loans
type CirculationService struct {
	copies   copyStore
	bookings bookingStore
	loans    loanStore
	users    userLookup
	books    bookLookup
	queue    waitlist
	email    email.EmailService
	notifier Notifier
	config   CirculationConfig
	now      func() time.Time
}

// NewCirculationService creates a new circulation service instance
func NewCirculationService(copies copyStore, bookings bookingStore, loans loanStore, users userLookup, books bookLookup,
	queue waitlist, emailService email.EmailService, notifier Notifier, config CirculationConfig) *CirculationService {
	return &CirculationService{
		copies:   copies,
		bookings: bookings,
		loans:    loans,
		users:    users,
		books:    books,
		queue:    queue,
		email:    emailService,
		notifier: notifierOrNop(notifier),
		config:   config,
		now:      time.Now,
	}
}

// Copies

func (s *CirculationService) CreateCopy(ctx context.Context, c *models.BookCopy) error {
	c.ApplyDefaults(s.now())
	return s.copies.Create(ctx, c)
}

func (s *CirculationService) GetCopy(ctx context.Context, id int64) (*models.BookCopy, error) {
	return s.copies.GetByID(ctx, id)
}

func (s *CirculationService) ListCopies(ctx context.Context, f repositories.BookCopyFilter) ([]*models.BookCopy, repositories.PageInfo, error) {
	return s.copies.List(ctx, f)
}

func (s *CirculationService) UpdateCopy(ctx context.Context, id int64, c *models.BookCopy) error {
	c.ID = id
	c.ApplyDefaults(s.now())
	return s.copies.Update(ctx, c)
}

func (s *CirculationService) DeleteCopy(ctx context.Context, id int64) error {
	return s.copies.Delete(ctx, id)
}

// CopyBranch returns the branch holding a copy batch
func (s *CirculationService) CopyBranch(ctx context.Context, copyID int64) (int64, error) {
	c, err := s.copies.GetByID(ctx, copyID)
	if err != nil {
		return 0, err
	}
	return c.BranchID, nil
}

// BookingBranch returns the pickup branch of a booking
func (s *CirculationService) BookingBranch(ctx context.Context, id int64) (int64, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return b.BranchID, nil
}

// LoanBranch returns the branch of the copy a loan was issued from
func (s *CirculationService) LoanBranch(ctx context.Context, id int64) (int64, error) {
	l, err := s.loans.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.CopyBranch(ctx, l.BookCopyID)
}

// IsCopyOverdue reports the overdue flag shown next to a copy
func (s *CirculationService) IsCopyOverdue(c *models.BookCopy) bool {
	return c.IsOverdue(s.now())
}

// Bookings

func (s *CirculationService) checkBookingCopy(ctx context.Context, b *models.BookBooking) error {
	c, err := s.copies.GetByID(ctx, b.BookCopyID)
	if err != nil {
		return err
	}
	if c.BranchID != b.BranchID {
		return apperrors.NewValidationError("branchId", "book copy belongs to another branch")
	}
	return nil
}

// CreateBooking reserves a copy at its own branch
func (s *CirculationService) CreateBooking(ctx context.Context, b *models.BookBooking) error {
	if err := s.checkBookingCopy(ctx, b); err != nil {
		return err
	}
	b.Status = models.BookingStatusPending
	b.ReadyBy = nil
	b.PickupDeadline = nil
	return s.bookings.Create(ctx, b)
}

func (s *CirculationService) GetBooking(ctx context.Context, id int64) (*models.BookBooking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *CirculationService) ListBookings(ctx context.Context, f repositories.BookBookingFilter) ([]*models.BookBooking, repositories.PageInfo, error) {
	return s.bookings.List(ctx, f)
}

// UpdateBooking changes who and what a booking is for; status moves through SetStatus
func (s *CirculationService) UpdateBooking(ctx context.Context, id int64, b *models.BookBooking) (*models.BookBooking, error) {
	if err := s.checkBookingCopy(ctx, b); err != nil {
		return nil, err
	}
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	current.UserID = b.UserID
	current.BookCopyID = b.BookCopyID
	current.BranchID = b.BranchID
	if err := s.bookings.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *CirculationService) DeleteBooking(ctx context.Context, id int64) error {
	return s.bookings.Delete(ctx, id)
}

// MarkBookingReady opens the pickup window and tells the reader
func (s *CirculationService) MarkBookingReady(ctx context.Context, id int64) (*models.BookBooking, error) {
	b, err := s.bookings.Transition(ctx, id, func(b *models.BookBooking) error {
		return b.MarkReady(s.now(), s.config.PickupWindow)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(&websocket.Notification{
		Type:    websocket.TypeBookingReady,
		UserID:  b.UserID,
		Message: "Your booking is ready for pickup",
		Data: map[string]any{
			"bookingId":      b.ID,
			"branchId":       b.BranchID,
			"pickupDeadline": b.PickupDeadline,
		},
	})
	return b, nil
}

func (s *CirculationService) CancelBooking(ctx context.Context, id int64) (*models.BookBooking, error) {
	return s.bookings.Transition(ctx, id, func(b *models.BookBooking) error {
		return b.Cancel()
	})
}

// IssueBooking hands the reserved copy over and opens a loan
func (s *CirculationService) IssueBooking(ctx context.Context, id int64, actorID *int64) (*models.BookLoan, error) {
	now := s.now()
	loan, err := s.bookings.Issue(ctx, id, func(b *models.BookBooking) (*models.BookLoan, error) {
		if err := b.MarkIssued(); err != nil {
			return nil, err
		}
		bookingID := b.ID
		return &models.BookLoan{
			UserID:     b.UserID,
			BookCopyID: b.BookCopyID,
			BookingID:  &bookingID,
			IssuedBy:   actorID,
			IssueDate:  now,
			DueDate:    now.Add(s.config.LoanPeriod),
			Status:     models.LoanStatusActive,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Int64("bookingID", id).Int64("loanID", loan.ID).Msg("Booking issued")
	return loan, nil
}

// SetBookingStatus applies an admin status edit through the same transitions
func (s *CirculationService) SetBookingStatus(ctx context.Context, id int64, status models.BookingStatus, actorID *int64) (*models.BookBooking, error) {
	switch status {
	case models.BookingStatusReady:
		return s.MarkBookingReady(ctx, id)
	case models.BookingStatusCancelled:
		return s.CancelBooking(ctx, id)
	case models.BookingStatusIssued:
		if _, err := s.IssueBooking(ctx, id, actorID); err != nil {
			return nil, err
		}
		return s.bookings.GetByID(ctx, id)
	}
	return s.bookings.Transition(ctx, id, func(b *models.BookBooking) error {
		if !b.CanTransition(status) {
			return apperrors.ErrInvalidStatusTransition
		}
		b.Status = status
		return nil
	})
}

// Loans

// CreateLoan issues a copy directly, filling dates from the loan period
func (s *CirculationService) CreateLoan(ctx context.Context, l *models.BookLoan, actorID *int64) error {
	now := s.now()
	if l.IssueDate.IsZero() {
		l.IssueDate = now
	}
	if l.DueDate.IsZero() {
		l.DueDate = l.IssueDate.Add(s.config.LoanPeriod)
	}
	if !l.DueDate.After(l.IssueDate) {
		return apperrors.NewValidationError("dueDate", "due date must be after issue date")
	}
	if l.Status == "" {
		l.Status = models.LoanStatusActive
	}
	if l.IssuedBy == nil {
		l.IssuedBy = actorID
	}
	l.DeriveStatus(now)
	return s.loans.Create(ctx, l)
}

func (s *CirculationService) GetLoan(ctx context.Context, id int64) (*models.BookLoan, error) {
	return s.loans.GetByID(ctx, id)
}

func (s *CirculationService) ListLoans(ctx context.Context, f repositories.BookLoanFilter) ([]*models.BookLoan, repositories.PageInfo, error) {
	return s.loans.List(ctx, f)
}

// UpdateLoan edits a loan; the status is recomputed before it is stored
func (s *CirculationService) UpdateLoan(ctx context.Context, id int64, l *models.BookLoan) (*models.BookLoan, error) {
	now := s.now()
	return s.loans.Mutate(ctx, id, func(current *models.BookLoan) error {
		current.UserID = l.UserID
		current.BookCopyID = l.BookCopyID
		current.BookingID = l.BookingID
		if !l.IssueDate.IsZero() {
			current.IssueDate = l.IssueDate
		}
		if !l.DueDate.IsZero() {
			current.DueDate = l.DueDate
		}
		if l.Status != "" {
			current.Status = l.Status
		}
		current.DeriveStatus(now)
		return nil
	})
}

func (s *CirculationService) DeleteLoan(ctx context.Context, id int64) error {
	return s.loans.Delete(ctx, id)
}

// RenewLoan extends an open loan by one loan period
func (s *CirculationService) RenewLoan(ctx context.Context, id int64) (*models.BookLoan, error) {
	now := s.now()
	return s.loans.Mutate(ctx, id, func(l *models.BookLoan) error {
		return l.Renew(now, s.config.LoanPeriod, s.config.MaxRenewals)
	})
}

// ReturnLoan closes the loan and advances the book's waitlist
func (s *CirculationService) ReturnLoan(ctx context.Context, id int64, actorID *int64) (*models.BookLoan, error) {
	now := s.now()
	loan, err := s.loans.Mutate(ctx, id, func(l *models.BookLoan) error {
		return l.Return(now, actorID)
	})
	if err != nil {
		return nil, err
	}
	s.advanceQueue(ctx, loan)
	return loan, nil
}

func (s *CirculationService) advanceQueue(ctx context.Context, loan *models.BookLoan) {
	if s.queue == nil {
		return
	}
	c, err := s.copies.GetByID(ctx, loan.BookCopyID)
	if err != nil {
		logger.Warn().Err(err).Int64("loanID", loan.ID).Msg("Failed to load copy for queue notification")
		return
	}
	branchID := c.BranchID
	if _, err := s.queue.NotifyNext(ctx, c.BookID, &branchID); err != nil {
		if errors.Is(err, apperrors.ErrQueueEmpty) {
			logger.Debug().Int64("bookID", c.BookID).Msg("Nobody waiting for returned book")
			return
		}
		logger.Warn().Err(err).Int64("bookID", c.BookID).Msg("Failed to notify queue")
	}
}

// Sweep flags overdue loans and copies and expires missed pickups
func (s *CirculationService) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := s.now()

	overdue, err := s.loans.MarkOverdue(ctx, now)
	if err != nil {
		return result, err
	}
	result.OverdueLoans = len(overdue)
	for _, l := range overdue {
		s.remindOverdue(ctx, l)
	}

	if result.OverdueCopies, err = s.copies.MarkOverdue(ctx, now); err != nil {
		return result, err
	}
	if result.ExpiredBookings, err = s.bookings.ExpireReady(ctx, now); err != nil {
		return result, err
	}

	logger.Info().
		Int("overdueLoans", result.OverdueLoans).
		Int64("overdueCopies", result.OverdueCopies).
		Int64("expiredBookings", result.ExpiredBookings).
		Msg("Circulation sweep finished")
	return result, nil
}

func (s *CirculationService) remindOverdue(ctx context.Context, l *models.BookLoan) {
	title := ""
	if c, err := s.copies.GetByID(ctx, l.BookCopyID); err == nil {
		if book, err := s.books.GetByID(ctx, c.BookID); err == nil {
			title = book.Title
		}
	}

	s.notifier.Notify(&websocket.Notification{
		Type:    websocket.TypeLoanOverdue,
		UserID:  l.UserID,
		Message: "A loan is overdue",
		Data: map[string]any{
			"loanId":  l.ID,
			"dueDate": l.DueDate,
			"title":   title,
		},
	})

	if s.email == nil {
		return
	}
	user, err := s.users.GetByID(ctx, l.UserID)
	if err != nil {
		logger.Warn().Err(err).Int64("userID", l.UserID).Msg("Failed to load user for overdue reminder")
		return
	}
	if err := s.email.SendOverdueReminder(user.Email, user.FullName(), title, l.DueDate); err != nil {
		logger.Error().Err(err).Int64("loanID", l.ID).Msg("Failed to send overdue reminder")
	}
}
