package services

import (
	"context"
	"testing"
	"time"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRooms struct{ byID map[int64]*models.ReadingRoom }

func (f *fakeRooms) Create(context.Context, *models.ReadingRoom) error { return nil }

func (f *fakeRooms) GetByID(_ context.Context, id int64) (*models.ReadingRoom, error) {
	if r, ok := f.byID[id]; ok {
		return r, nil
	}
	return nil, apperrors.ErrResourceNotFound
}

func (f *fakeRooms) List(context.Context, repositories.ReadingRoomFilter) ([]*models.ReadingRoom, repositories.PageInfo, error) {
	return nil, repositories.PageInfo{}, nil
}

func (f *fakeRooms) Update(context.Context, *models.ReadingRoom) error { return nil }

func (f *fakeRooms) Delete(context.Context, int64) error { return nil }

// fakeRoomBookings runs the capacity check the way the locking repository does
type fakeRoomBookings struct {
	rooms    *fakeRooms
	bookings []models.RoomBooking
	saved    []*models.RoomBooking
}

func (f *fakeRoomBookings) GetByID(_ context.Context, id int64) (*models.RoomBooking, error) {
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			b := f.bookings[i]
			return &b, nil
		}
	}
	return nil, apperrors.ErrResourceNotFound
}

func (f *fakeRoomBookings) List(context.Context, repositories.RoomBookingFilter) ([]*models.RoomBooking, repositories.PageInfo, error) {
	return nil, repositories.PageInfo{}, nil
}

func (f *fakeRoomBookings) ListOverlapping(_ context.Context, roomID int64, _ time.Time, _, _ models.ClockTime, excludeID int64) ([]models.RoomBooking, error) {
	var out []models.RoomBooking
	for _, b := range f.bookings {
		if b.RoomID == roomID && b.ID != excludeID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRoomBookings) Save(ctx context.Context, b *models.RoomBooking, check repositories.CapacityCheck) error {
	room, err := f.rooms.GetByID(ctx, b.RoomID)
	if err != nil {
		return err
	}
	if b.Status == models.RoomBookingConfirmed && check != nil {
		overlapping, _ := f.ListOverlapping(ctx, b.RoomID, b.BookingDate, b.StartTime, b.EndTime, b.ID)
		if err := check(room, overlapping); err != nil {
			return err
		}
	}
	f.saved = append(f.saved, b)
	return nil
}

func (f *fakeRoomBookings) CompletePast(context.Context, time.Time) (int64, error) { return 0, nil }

func (f *fakeRoomBookings) Delete(context.Context, int64) error { return nil }

func newBranchFixture() (*BranchService, *fakeRoomBookings) {
	rooms := &fakeRooms{byID: map[int64]*models.ReadingRoom{
		1: {ID: 1, Name: "Hall A", TotalSeats: 10, AvailableSeats: 5, IsActive: true},
		2: {ID: 2, Name: "Closed", TotalSeats: 10, AvailableSeats: 10},
	}}
	day := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	bookings := &fakeRoomBookings{rooms: rooms, bookings: []models.RoomBooking{
		{ID: 1, RoomID: 1, BookingDate: day, StartTime: "10:00", EndTime: "12:00", SeatsCount: 3, Status: models.RoomBookingConfirmed},
		{ID: 2, RoomID: 1, BookingDate: day, StartTime: "12:00", EndTime: "14:00", SeatsCount: 5, Status: models.RoomBookingConfirmed},
	}}
	svc := NewBranchService(&fakeBranches{}, rooms, bookings)
	svc.now = clock
	return svc, bookings
}

type fakeBranches struct{}

func (fakeBranches) Create(context.Context, *models.Branch) error { return nil }
func (fakeBranches) GetByID(context.Context, int64) (*models.Branch, error) {
	return &models.Branch{}, nil
}
func (fakeBranches) List(context.Context, repositories.BranchFilter) ([]*models.Branch, repositories.PageInfo, error) {
	return nil, repositories.PageInfo{}, nil
}
func (fakeBranches) Update(context.Context, *models.Branch) error { return nil }
func (fakeBranches) Delete(context.Context, int64) error          { return nil }

func roomBooking(room int64, start, end models.ClockTime, seats int) *models.RoomBooking {
	return &models.RoomBooking{
		UserID:      5,
		RoomID:      room,
		BookingDate: time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC),
		StartTime:   start,
		EndTime:     end,
		SeatsCount:  seats,
	}
}

func TestCreateRoomBooking_Capacity(t *testing.T) {
	svc, store := newBranchFixture()
	ctx := context.Background()

	require.NoError(t, svc.CreateRoomBooking(ctx, roomBooking(1, "09:00", "10:30", 2)))

	err := svc.CreateRoomBooking(ctx, roomBooking(1, "11:00", "13:00", 1))
	require.ErrorIs(t, err, apperrors.ErrRoomCapacityExceeded)
	var custom *apperrors.CustomError
	require.ErrorAs(t, err, &custom)
	assert.Equal(t, 0, custom.Details["freeSeats"])

	assert.ErrorIs(t, svc.CreateRoomBooking(ctx, roomBooking(2, "09:00", "10:00", 1)), apperrors.ErrRoomInactive)
	assert.ErrorIs(t, svc.CreateRoomBooking(ctx, roomBooking(1, "12:00", "11:00", 1)), apperrors.ErrInvalidTimeWindow)
	assert.Len(t, store.saved, 1)
	assert.Equal(t, models.RoomBookingConfirmed, store.saved[0].Status)
}

func TestUpdateRoomBooking_ExcludesItself(t *testing.T) {
	svc, _ := newBranchFixture()

	b := roomBooking(1, "12:00", "14:00", 5)
	require.NoError(t, svc.UpdateRoomBooking(context.Background(), 2, b))
}

func TestCancelRoomBooking(t *testing.T) {
	svc, store := newBranchFixture()

	b, err := svc.CancelRoomBooking(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.RoomBookingCancelled, b.Status)

	store.bookings[0].Status = models.RoomBookingCancelled
	_, err = svc.CancelRoomBooking(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
}

func TestAvailability(t *testing.T) {
	svc, _ := newBranchFixture()
	day := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	resp, err := svc.Availability(context.Background(), 1, day, "11:00", "13:00", 0)
	require.NoError(t, err)
	assert.Equal(t, 8, resp.OccupiedSeats)
	assert.Equal(t, 0, resp.FreeSeats)
	assert.Equal(t, 1, resp.SeatsNeeded)
	assert.False(t, resp.Available)

	resp, err = svc.Availability(context.Background(), 1, day, "14:00", "16:00", 5)
	require.NoError(t, err)
	assert.True(t, resp.Available)
	assert.Equal(t, "2025-05-20", resp.Date)
}

func TestCreateRoom_ValidatesSeats(t *testing.T) {
	svc, _ := newBranchFixture()
	err := svc.CreateRoom(context.Background(), &models.ReadingRoom{TotalSeats: 2, AvailableSeats: 3})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}
