package services

import (
	"time"

	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/pkg/email"
	"github.com/biblioteka/backend/internal/pkg/filestorage"
	"github.com/biblioteka/backend/internal/pkg/payment"
	"github.com/biblioteka/backend/internal/pkg/websocket"
)

// Notifier pushes realtime notifications to connected users
type Notifier interface {
	Notify(n *websocket.Notification)
}

// CirculationConfig holds loan and booking rules
type CirculationConfig struct {
	LoanPeriod       time.Duration
	MaxRenewals      int
	PickupWindow     time.Duration
	NotifyQueueEmail bool
}

// Deps are the collaborators shared by the services
type Deps struct {
	Repos       *repositories.Repositories
	Storage     filestorage.FileStorage
	Payments    payment.StatusChecker // nil when the gateway is disabled
	Email       email.EmailService
	Notifier    Notifier
	Circulation CirculationConfig
}

// Services groups every business service
type Services struct {
	Users       *UserService
	Branches    *BranchService
	Catalog     *CatalogService
	Circulation *CirculationService
	Fines       *FineService
	Queue       *QueueService
	Reviews     *ReviewService
}

// NewServices wires the services over the repositories
func NewServices(d Deps) *Services {
	r := d.Repos
	queue := NewQueueService(r.BookQueue, r.Users, r.Books, d.Email, d.Notifier, d.Circulation.NotifyQueueEmail)
	return &Services{
		Users:       NewUserService(r.Users, r.Profiles, r.LibrarianAssignments),
		Branches:    NewBranchService(r.Branches, r.ReadingRooms, r.RoomBookings),
		Catalog:     NewCatalogService(r.Authors, r.Categories, r.Books, r.BookAuthors, r.BookCategories, d.Storage),
		Circulation: NewCirculationService(r.BookCopies, r.BookBookings, r.BookLoans, r.Users, r.Books, queue, d.Email, d.Notifier, d.Circulation),
		Fines:       NewFineService(r.Fines, d.Payments, d.Notifier),
		Queue:       queue,
		Reviews:     NewReviewService(r.BookReviews),
	}
}

// nopNotifier drops notifications when no hub is configured
type nopNotifier struct{}

func (nopNotifier) Notify(*websocket.Notification) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
