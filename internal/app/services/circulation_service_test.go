package services

import (
	"context"
	"testing"
	"time"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type circulationFixture struct {
	svc      *CirculationService
	copies   *fakeCopies
	bookings *fakeBookings
	loans    *fakeLoans
	queue    *fakeWaitlist
	email    *fakeEmail
	notifier *recordingNotifier
}

func newCirculationFixture() *circulationFixture {
	f := &circulationFixture{
		copies: &fakeCopies{byID: map[int64]*models.BookCopy{
			1: {ID: 1, BookID: 10, BranchID: 2, BookCount: 3, Status: models.CopyStatusActive},
		}},
		bookings: &fakeBookings{byID: map[int64]*models.BookBooking{}},
		loans:    &fakeLoans{byID: map[int64]*models.BookLoan{}},
		queue:    &fakeWaitlist{},
		email:    &fakeEmail{},
		notifier: &recordingNotifier{},
	}
	users := &fakeUsers{byID: map[int64]*models.User{
		5: {ID: 5, Username: "ivanov", Email: "ivanov@kpfu.ru", FirstName: "Ivan", LastName: "Ivanov"},
	}}
	books := newFakeBooks(&models.Book{ID: 10, Title: "War and Peace"})
	f.svc = NewCirculationService(f.copies, f.bookings, f.loans, users, books, f.queue, f.email, f.notifier, CirculationConfig{
		LoanPeriod:   14 * 24 * time.Hour,
		MaxRenewals:  2,
		PickupWindow: 72 * time.Hour,
	})
	f.svc.now = clock
	return f
}

func TestCreateCopy_AppliesDefaults(t *testing.T) {
	f := newCirculationFixture()
	acquired := fixedNow.AddDate(0, 0, -30)
	c := &models.BookCopy{BookID: 10, BranchID: 2, AcquisitionDate: &acquired}

	require.NoError(t, f.svc.CreateCopy(context.Background(), c))

	assert.Equal(t, 1, c.BookCount)
	assert.Equal(t, "good", c.Condition)
	require.NotNil(t, c.ReturnDate)
	assert.Equal(t, models.CopyStatusOverdue, c.Status)
}

func TestCreateBooking_RequiresCopyAtBranch(t *testing.T) {
	f := newCirculationFixture()

	err := f.svc.CreateBooking(context.Background(), &models.BookBooking{UserID: 5, BookCopyID: 1, BranchID: 3})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	b := &models.BookBooking{UserID: 5, BookCopyID: 1, BranchID: 2, Status: models.BookingStatusIssued}
	require.NoError(t, f.svc.CreateBooking(context.Background(), b))
	assert.Equal(t, models.BookingStatusPending, b.Status)
}

func TestBookingWorkflow_ReadyThenIssue(t *testing.T) {
	f := newCirculationFixture()
	f.bookings.byID[4] = &models.BookBooking{ID: 4, UserID: 5, BookCopyID: 1, BranchID: 2, Status: models.BookingStatusPending}
	ctx := context.Background()
	actor := int64(77)

	_, err := f.svc.IssueBooking(ctx, 4, &actor)
	assert.ErrorIs(t, err, apperrors.ErrBookingNotIssuable)

	ready, err := f.svc.MarkBookingReady(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusReady, ready.Status)
	assert.Equal(t, fixedNow.Add(72*time.Hour), *ready.PickupDeadline)
	assert.Equal(t, []string{websocket.TypeBookingReady}, f.notifier.types())

	loan, err := f.svc.IssueBooking(ctx, 4, &actor)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusActive, loan.Status)
	assert.Equal(t, fixedNow.Add(14*24*time.Hour), loan.DueDate)
	assert.Equal(t, int64(4), *loan.BookingID)
	assert.Equal(t, actor, *loan.IssuedBy)
	assert.Equal(t, models.BookingStatusIssued, f.bookings.byID[4].Status)

	_, err = f.svc.CancelBooking(ctx, 4)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
}

func TestSetBookingStatus_UsesTransitions(t *testing.T) {
	f := newCirculationFixture()
	f.bookings.byID[1] = &models.BookBooking{ID: 1, Status: models.BookingStatusPending}
	ctx := context.Background()

	_, err := f.svc.SetBookingStatus(ctx, 1, models.BookingStatusExpired, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)

	b, err := f.svc.SetBookingStatus(ctx, 1, models.BookingStatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, b.Status)
}

func TestCreateLoan_FillsDatesAndDerivesStatus(t *testing.T) {
	f := newCirculationFixture()
	actor := int64(9)

	l := &models.BookLoan{UserID: 5, BookCopyID: 1}
	require.NoError(t, f.svc.CreateLoan(context.Background(), l, &actor))
	assert.Equal(t, fixedNow, l.IssueDate)
	assert.Equal(t, fixedNow.Add(14*24*time.Hour), l.DueDate)
	assert.Equal(t, models.LoanStatusActive, l.Status)
	assert.Equal(t, actor, *l.IssuedBy)

	past := &models.BookLoan{UserID: 5, BookCopyID: 1, IssueDate: fixedNow.AddDate(0, -1, 0), DueDate: fixedNow.AddDate(0, 0, -1)}
	require.NoError(t, f.svc.CreateLoan(context.Background(), past, nil))
	assert.Equal(t, models.LoanStatusOverdue, past.Status)

	bad := &models.BookLoan{IssueDate: fixedNow, DueDate: fixedNow.Add(-time.Hour)}
	assert.ErrorIs(t, f.svc.CreateLoan(context.Background(), bad, nil), apperrors.ErrValidationFailed)
}

func TestRenewLoan_RespectsLimit(t *testing.T) {
	f := newCirculationFixture()
	due := fixedNow.AddDate(0, 0, -2)
	f.loans.byID[1] = &models.BookLoan{ID: 1, UserID: 5, BookCopyID: 1, DueDate: due, Status: models.LoanStatusOverdue}
	ctx := context.Background()

	l, err := f.svc.RenewLoan(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusActive, l.Status)
	assert.Equal(t, 1, l.Renewals)

	_, err = f.svc.RenewLoan(ctx, 1)
	require.NoError(t, err)

	_, err = f.svc.RenewLoan(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrRenewalLimitReached)
}

func TestReturnLoan_NotifiesQueueAtCopyBranch(t *testing.T) {
	f := newCirculationFixture()
	f.loans.byID[3] = &models.BookLoan{ID: 3, UserID: 5, BookCopyID: 1, DueDate: fixedNow.Add(time.Hour), Status: models.LoanStatusActive}
	actor := int64(77)

	l, err := f.svc.ReturnLoan(context.Background(), 3, &actor)
	require.NoError(t, err)

	assert.Equal(t, models.LoanStatusReturned, l.Status)
	assert.Equal(t, actor, *l.ReturnedTo)
	require.Len(t, f.queue.calls, 1)
	assert.Equal(t, int64(10), f.queue.calls[0].bookID)
	assert.Equal(t, int64(2), *f.queue.calls[0].branchID)

	_, err = f.svc.ReturnLoan(context.Background(), 3, &actor)
	assert.ErrorIs(t, err, apperrors.ErrLoanAlreadyReturned)
	assert.Len(t, f.queue.calls, 1)
}

func TestReturnLoan_EmptyQueueIsNotAnError(t *testing.T) {
	f := newCirculationFixture()
	f.queue.err = apperrors.ErrQueueEmpty
	f.loans.byID[3] = &models.BookLoan{ID: 3, UserID: 5, BookCopyID: 1, DueDate: fixedNow.Add(time.Hour), Status: models.LoanStatusActive}

	_, err := f.svc.ReturnLoan(context.Background(), 3, nil)
	assert.NoError(t, err)
}

func TestSweep_RemindsNewlyOverdueReaders(t *testing.T) {
	f := newCirculationFixture()
	due := fixedNow.AddDate(0, 0, -1)
	f.loans.overdue = []*models.BookLoan{{ID: 8, UserID: 5, BookCopyID: 1, DueDate: due, Status: models.LoanStatusOverdue}}
	f.copies.overdueMarked = 2
	f.bookings.expired = 1

	result, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SweepResult{OverdueLoans: 1, OverdueCopies: 2, ExpiredBookings: 1}, result)
	require.Len(t, f.email.overdue, 1)
	assert.Equal(t, sentEmail{to: "ivanov@kpfu.ru", name: "Ivan Ivanov", title: "War and Peace", due: due}, f.email.overdue[0])
	assert.Equal(t, []string{websocket.TypeLoanOverdue}, f.notifier.types())
}
