package models

import (
	"testing"
	"time"

	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestProfileNormalizeClearsGuestCard(t *testing.T) {
	// arrange
	p := &Profile{UserType: UserTypeGuest, LibraryCard: ptr("KFU-1")}

	// act
	p.Normalize()

	// assert
	assert.Nil(t, p.LibraryCard)
}

func TestProfileNormalizeKeepsReaderCard(t *testing.T) {
	p := &Profile{UserType: UserTypeReader, LibraryCard: ptr("KFU-1")}
	p.Normalize()
	require.NotNil(t, p.LibraryCard)
	assert.Equal(t, "KFU-1", *p.LibraryCard)

	blank := &Profile{UserType: UserTypeReader, LibraryCard: ptr("  ")}
	blank.Normalize()
	assert.Nil(t, blank.LibraryCard)

	unset := &Profile{LibraryCard: ptr("KFU-2")}
	unset.Normalize()
	assert.Equal(t, UserTypeGuest, unset.UserType)
	assert.Nil(t, unset.LibraryCard)
}

func TestBookCopyApplyDefaults(t *testing.T) {
	today := date(2025, 3, 10)

	t.Run("return date derived from acquisition", func(t *testing.T) {
		c := &BookCopy{AcquisitionDate: ptr(date(2025, 3, 5))}
		c.ApplyDefaults(today)
		require.NotNil(t, c.ReturnDate)
		assert.Equal(t, date(2025, 3, 19), *c.ReturnDate)
		assert.Equal(t, CopyStatusActive, c.Status)
		assert.Equal(t, 1, c.BookCount)
		assert.Equal(t, "good", c.Condition)
	})

	t.Run("past return date marks overdue", func(t *testing.T) {
		c := &BookCopy{Status: CopyStatusActive, AcquisitionDate: ptr(date(2025, 2, 1))}
		c.ApplyDefaults(today)
		assert.Equal(t, CopyStatusOverdue, c.Status)
	})

	t.Run("return date today is not overdue", func(t *testing.T) {
		c := &BookCopy{Status: CopyStatusActive, ReturnDate: ptr(today)}
		c.ApplyDefaults(today.Add(15 * time.Hour))
		assert.Equal(t, CopyStatusActive, c.Status)
	})

	t.Run("lost copy is left alone", func(t *testing.T) {
		c := &BookCopy{Status: CopyStatusLost, ReturnDate: ptr(date(2024, 1, 1))}
		c.ApplyDefaults(today)
		assert.Equal(t, CopyStatusLost, c.Status)
		assert.False(t, c.IsOverdue(today))
	})
}

func TestBookAvailability(t *testing.T) {
	b := &Book{Copies: []BookCopy{
		{Status: CopyStatusActive, BookCount: 2},
		{Status: CopyStatusLost, BookCount: 5},
		{Status: CopyStatusActive, BookCount: 1},
	}}
	assert.Equal(t, 3, b.AvailableCopies())
	assert.True(t, b.IsAvailable())

	empty := &Book{}
	assert.Equal(t, 0, empty.AvailableCopies())
	assert.False(t, empty.IsAvailable())
}

func TestBookAuthorsDisplay(t *testing.T) {
	b := &Book{Authors: []Author{{FullName: "Ilf"}, {FullName: "Petrov"}}}
	assert.Equal(t, "Ilf, Petrov", b.AuthorsDisplay())
	assert.Equal(t, "Not specified", (&Book{}).AuthorsDisplay())
}

func TestLoanDeriveStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name   string
		loan   BookLoan
		expect LoanStatus
	}{
		{"return date wins", BookLoan{Status: LoanStatusOverdue, DueDate: past, ReturnDate: &now}, LoanStatusReturned},
		{"past due becomes overdue", BookLoan{Status: LoanStatusActive, DueDate: past}, LoanStatusOverdue},
		{"not yet due stays active", BookLoan{Status: LoanStatusActive, DueDate: future}, LoanStatusActive},
		{"lost is kept", BookLoan{Status: LoanStatusLost, DueDate: past}, LoanStatusLost},
		{"fine paid is kept", BookLoan{Status: LoanStatusFinePaid, DueDate: past}, LoanStatusFinePaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := tt.loan
			loan.DeriveStatus(now)
			assert.Equal(t, tt.expect, loan.Status)
		})
	}
}

func TestLoanStatusDisplay(t *testing.T) {
	assert.Equal(t, "Overdue", (&BookLoan{Status: LoanStatusOverdue}).StatusDisplay())
	assert.Equal(t, "Unknown", (&BookLoan{Status: "misplaced"}).StatusDisplay())
}

func TestLoanRenew(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	period := 14 * 24 * time.Hour

	t.Run("overdue loan renewed back to active", func(t *testing.T) {
		l := &BookLoan{Status: LoanStatusOverdue, DueDate: now.Add(-48 * time.Hour)}
		require.NoError(t, l.Renew(now, period, 2))
		assert.Equal(t, LoanStatusActive, l.Status)
		assert.Equal(t, 1, l.Renewals)
		assert.Equal(t, now.Add(-48*time.Hour).Add(period), l.DueDate)
	})

	t.Run("limit reached", func(t *testing.T) {
		l := &BookLoan{Status: LoanStatusActive, DueDate: now, Renewals: 2}
		assert.ErrorIs(t, l.Renew(now, period, 2), apperrors.ErrRenewalLimitReached)
	})

	t.Run("returned loan", func(t *testing.T) {
		l := &BookLoan{Status: LoanStatusReturned, ReturnDate: &now}
		assert.ErrorIs(t, l.Renew(now, period, 2), apperrors.ErrLoanAlreadyReturned)
	})

	t.Run("lost loan", func(t *testing.T) {
		l := &BookLoan{Status: LoanStatusLost, DueDate: now}
		assert.ErrorIs(t, l.Renew(now, period, 2), apperrors.ErrInvalidStatusTransition)
	})
}

func TestLoanReturn(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	librarian := int64(7)
	l := &BookLoan{Status: LoanStatusOverdue, DueDate: now.Add(-time.Hour)}

	require.NoError(t, l.Return(now, &librarian))

	assert.Equal(t, LoanStatusReturned, l.Status)
	assert.Equal(t, &librarian, l.ReturnedTo)
	assert.ErrorIs(t, l.Return(now, nil), apperrors.ErrLoanAlreadyReturned)
}

func TestBookingTransitions(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	b := &BookBooking{Status: BookingStatusPending}
	assert.ErrorIs(t, b.MarkIssued(), apperrors.ErrBookingNotIssuable)

	require.NoError(t, b.MarkReady(now, 72*time.Hour))
	assert.Equal(t, BookingStatusReady, b.Status)
	require.NotNil(t, b.PickupDeadline)
	assert.Equal(t, now.Add(72*time.Hour), *b.PickupDeadline)
	assert.False(t, b.IsPickupExpired(now))
	assert.True(t, b.IsPickupExpired(now.Add(73*time.Hour)))

	require.NoError(t, b.MarkIssued())
	assert.ErrorIs(t, b.Cancel(), apperrors.ErrInvalidStatusTransition)
	assert.ErrorIs(t, b.MarkReady(now, time.Hour), apperrors.ErrInvalidStatusTransition)
}

func TestRoomOccupancy(t *testing.T) {
	day := date(2025, 5, 20)
	room := &ReadingRoom{ID: 1, AvailableSeats: 10}
	bookings := []RoomBooking{
		{RoomID: 1, BookingDate: day, StartTime: "10:00", EndTime: "12:00", SeatsCount: 4, Status: RoomBookingConfirmed},
		{RoomID: 1, BookingDate: day, StartTime: "11:00", EndTime: "13:00", SeatsCount: 3, Status: RoomBookingConfirmed},
		{RoomID: 1, BookingDate: day, StartTime: "12:00", EndTime: "14:00", SeatsCount: 5, Status: RoomBookingConfirmed},
		{RoomID: 1, BookingDate: day, StartTime: "10:00", EndTime: "12:00", SeatsCount: 9, Status: RoomBookingCancelled},
		{RoomID: 2, BookingDate: day, StartTime: "10:00", EndTime: "12:00", SeatsCount: 9, Status: RoomBookingConfirmed},
		{RoomID: 1, BookingDate: day.AddDate(0, 0, 1), StartTime: "10:00", EndTime: "12:00", SeatsCount: 9, Status: RoomBookingConfirmed},
	}

	// touching windows do not overlap
	assert.Equal(t, 7, room.OccupiedSeats(bookings, day, "10:30", "12:00"))
	assert.True(t, room.IsAvailable(bookings, day, "10:30", "12:00", 3))
	assert.False(t, room.IsAvailable(bookings, day, "10:30", "12:00", 4))
	assert.True(t, room.IsAvailable(bookings, day, "14:00", "15:00", 0))
}

func TestParseClockTime(t *testing.T) {
	c, err := ParseClockTime("09:05:00")
	require.NoError(t, err)
	assert.Equal(t, ClockTime("09:05"), c)
	assert.Equal(t, 545, c.Minutes())

	_, err = ParseClockTime("9am")
	assert.Error(t, err)
	assert.Equal(t, -1, ClockTime("bad").Minutes())
}

func TestFineMarkAsPaid(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	f := &Fine{Status: FineStatusUnpaid}
	require.NoError(t, f.MarkAsPaid(now, "2d8f-payment"))
	assert.Equal(t, FineStatusPaid, f.Status)
	assert.Equal(t, now, *f.PaidAt)
	assert.Equal(t, "2d8f-payment", *f.YookassaPaymentID)
	assert.ErrorIs(t, f.MarkAsPaid(now, ""), apperrors.ErrFineAlreadyPaid)

	cancelled := &Fine{Status: FineStatusCancelled}
	assert.ErrorIs(t, cancelled.MarkAsPaid(now, ""), apperrors.ErrFineNotPayable)
}

func TestFineSettleFromGateway(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	cancelled := &Fine{Status: FineStatusCancelled}
	require.NoError(t, cancelled.SettleFromGateway(now))
	assert.Equal(t, FineStatusPaid, cancelled.Status)
	assert.Equal(t, now, *cancelled.PaidAt)
	assert.ErrorIs(t, cancelled.SettleFromGateway(now), apperrors.ErrFineAlreadyPaid)
}

func TestSettleLoan(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	open := &BookLoan{Status: LoanStatusOverdue, DueDate: now.Add(-time.Hour)}
	SettleLoan(open, now)
	assert.Equal(t, LoanStatusFinePaid, open.Status)

	returned := &BookLoan{Status: LoanStatusReturned, ReturnDate: &now}
	SettleLoan(returned, now)
	assert.Equal(t, LoanStatusReturned, returned.Status)
}

func TestFineActionForGatewayStatus(t *testing.T) {
	unpaid := &Fine{Status: FineStatusUnpaid}
	assert.Equal(t, GatewayMarkPaid, unpaid.ActionForGatewayStatus(PaymentSucceeded))
	assert.Equal(t, GatewayMarkCancelled, unpaid.ActionForGatewayStatus(PaymentCanceled))
	assert.Equal(t, GatewayNoop, unpaid.ActionForGatewayStatus(PaymentPending))

	paid := &Fine{Status: FineStatusPaid}
	assert.Equal(t, GatewayNoop, paid.ActionForGatewayStatus(PaymentSucceeded))
}

func TestQueueNotify(t *testing.T) {
	now := time.Now()
	q := &BookQueue{Status: QueueStatusWaiting}
	assert.True(t, q.Notify(now))
	assert.Equal(t, QueueStatusNotified, q.Status)
	assert.False(t, q.Notify(now))
}

func TestAssignmentAllows(t *testing.T) {
	a := &LibrarianAssignment{CanManageBooks: true}
	assert.True(t, a.Allows(PermManageBooks))
	assert.False(t, a.Allows(PermManageUsers))
	assert.False(t, a.Allows("unknown"))
}
