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

type queueStore interface {
	Join(ctx context.Context, e *models.BookQueue) error
	GetByID(ctx context.Context, id int64) (*models.BookQueue, error)
	List(ctx context.Context, f repositories.BookQueueFilter) ([]*models.BookQueue, repositories.PageInfo, error)
	Update(ctx context.Context, e *models.BookQueue) error
	NotifyNext(ctx context.Context, bookID int64, branchID *int64, now time.Time) (*models.BookQueue, error)
	Delete(ctx context.Context, id int64) error
}

type userLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type bookLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Book, error)
}

// QueueService manages book waitlists
type QueueService struct {
	entries     queueStore
	users       userLookup
	books       bookLookup
	email       email.EmailService
	notifier    Notifier
	emailOnTurn bool
	now         func() time.Time
}

// NewQueueService creates a new queue service instance
func NewQueueService(entries queueStore, users userLookup, books bookLookup, emailService email.EmailService, notifier Notifier, emailOnTurn bool) *QueueService {
	return &QueueService{
		entries:     entries,
		users:       users,
		books:       books,
		email:       emailService,
		notifier:    notifierOrNop(notifier),
		emailOnTurn: emailOnTurn,
		now:         time.Now,
	}
}

// Join appends the user to the end of the book's waitlist
func (s *QueueService) Join(ctx context.Context, e *models.BookQueue) error {
	e.ID = 0
	if e.Status == "" {
		e.Status = models.QueueStatusWaiting
	}
	err := s.entries.Join(ctx, e)
	if errors.Is(err, apperrors.ErrResourceAlreadyExists) {
		return apperrors.ErrAlreadyInQueue
	}
	return err
}

func (s *QueueService) Get(ctx context.Context, id int64) (*models.BookQueue, error) {
	return s.entries.GetByID(ctx, id)
}

func (s *QueueService) List(ctx context.Context, f repositories.BookQueueFilter) ([]*models.BookQueue, repositories.PageInfo, error) {
	return s.entries.List(ctx, f)
}

// Update replaces an entry. The position is kept unless the entry moves to
// another book or branch, which puts it at the end of that queue.
func (s *QueueService) Update(ctx context.Context, id int64, e *models.BookQueue) (*models.BookQueue, error) {
	current, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	current.UserID = e.UserID
	current.BookID = e.BookID
	current.BranchID = e.BranchID
	if e.Status != "" {
		current.Status = e.Status
	}
	if err := s.entries.Update(ctx, current); err != nil {
		if errors.Is(err, apperrors.ErrResourceAlreadyExists) {
			return nil, apperrors.ErrAlreadyInQueue
		}
		return nil, err
	}
	return current, nil
}

// SetStatus moves an entry to status; notifying stamps notified_at
func (s *QueueService) SetStatus(ctx context.Context, id int64, status models.QueueStatus) (*models.BookQueue, error) {
	e, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if status == models.QueueStatusNotified {
		if !e.Notify(s.now()) {
			return nil, apperrors.ErrInvalidStatusTransition
		}
	} else {
		e.Status = status
	}
	if err := s.entries.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *QueueService) Delete(ctx context.Context, id int64) error {
	return s.entries.Delete(ctx, id)
}

// NotifyNext advances the waitlist for a book and tells the reader
func (s *QueueService) NotifyNext(ctx context.Context, bookID int64, branchID *int64) (*models.BookQueue, error) {
	e, err := s.entries.NotifyNext(ctx, bookID, branchID, s.now())
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperrors.ErrQueueEmpty
	}

	title := ""
	if book, err := s.books.GetByID(ctx, bookID); err == nil {
		title = book.Title
	} else {
		logger.Warn().Err(err).Int64("bookID", bookID).Msg("Failed to load book for queue notification")
	}

	if s.emailOnTurn && s.email != nil {
		s.sendTurnEmail(ctx, e.UserID, title)
	}

	s.notifier.Notify(&websocket.Notification{
		Type:    websocket.TypeQueueAvailable,
		UserID:  e.UserID,
		Message: "A book you are waiting for is available",
		Data: map[string]any{
			"queueId":  e.ID,
			"bookId":   bookID,
			"branchId": e.BranchID,
			"title":    title,
		},
	})

	logger.Info().Int64("queueID", e.ID).Int64("userID", e.UserID).Int64("bookID", bookID).Msg("Queue entry notified")
	return e, nil
}

func (s *QueueService) sendTurnEmail(ctx context.Context, userID int64, title string) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Int64("userID", userID).Msg("Failed to load user for queue email")
		return
	}
	if err := s.email.SendQueueAvailableEmail(user.Email, user.FullName(), title); err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Failed to send queue email")
	}
}
