package services

import (
	"context"
	"fmt"
	"time"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
)

type branchStore interface {
	Create(ctx context.Context, b *models.Branch) error
	GetByID(ctx context.Context, id int64) (*models.Branch, error)
	List(ctx context.Context, f repositories.BranchFilter) ([]*models.Branch, repositories.PageInfo, error)
	Update(ctx context.Context, b *models.Branch) error
	Delete(ctx context.Context, id int64) error
}

type roomStore interface {
	Create(ctx context.Context, r *models.ReadingRoom) error
	GetByID(ctx context.Context, id int64) (*models.ReadingRoom, error)
	List(ctx context.Context, f repositories.ReadingRoomFilter) ([]*models.ReadingRoom, repositories.PageInfo, error)
	Update(ctx context.Context, r *models.ReadingRoom) error
	Delete(ctx context.Context, id int64) error
}

type roomBookingStore interface {
	GetByID(ctx context.Context, id int64) (*models.RoomBooking, error)
	List(ctx context.Context, f repositories.RoomBookingFilter) ([]*models.RoomBooking, repositories.PageInfo, error)
	ListOverlapping(ctx context.Context, roomID int64, date time.Time, start, end models.ClockTime, excludeID int64) ([]models.RoomBooking, error)
	Save(ctx context.Context, b *models.RoomBooking, check repositories.CapacityCheck) error
	CompletePast(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// BranchService manages branches, reading rooms and seat bookings
type BranchService struct {
	branches branchStore
	rooms    roomStore
	bookings roomBookingStore
	now      func() time.Time
}

// NewBranchService creates a new branch service instance
func NewBranchService(branches branchStore, rooms roomStore, bookings roomBookingStore) *BranchService {
	return &BranchService{branches: branches, rooms: rooms, bookings: bookings, now: time.Now}
}

func (s *BranchService) CreateBranch(ctx context.Context, b *models.Branch) error {
	return s.branches.Create(ctx, b)
}

func (s *BranchService) GetBranch(ctx context.Context, id int64) (*models.Branch, error) {
	return s.branches.GetByID(ctx, id)
}

func (s *BranchService) ListBranches(ctx context.Context, f repositories.BranchFilter) ([]*models.Branch, repositories.PageInfo, error) {
	return s.branches.List(ctx, f)
}

func (s *BranchService) UpdateBranch(ctx context.Context, id int64, b *models.Branch) error {
	b.ID = id
	return s.branches.Update(ctx, b)
}

func (s *BranchService) DeleteBranch(ctx context.Context, id int64) error {
	return s.branches.Delete(ctx, id)
}

func validateRoom(r *models.ReadingRoom) error {
	if r.AvailableSeats > r.TotalSeats {
		return apperrors.NewValidationError("availableSeats", "available seats cannot exceed total seats")
	}
	return nil
}

func (s *BranchService) CreateRoom(ctx context.Context, r *models.ReadingRoom) error {
	if err := validateRoom(r); err != nil {
		return err
	}
	return s.rooms.Create(ctx, r)
}

func (s *BranchService) GetRoom(ctx context.Context, id int64) (*models.ReadingRoom, error) {
	return s.rooms.GetByID(ctx, id)
}

func (s *BranchService) ListRooms(ctx context.Context, f repositories.ReadingRoomFilter) ([]*models.ReadingRoom, repositories.PageInfo, error) {
	return s.rooms.List(ctx, f)
}

func (s *BranchService) UpdateRoom(ctx context.Context, id int64, r *models.ReadingRoom) error {
	r.ID = id
	if err := validateRoom(r); err != nil {
		return err
	}
	return s.rooms.Update(ctx, r)
}

func (s *BranchService) DeleteRoom(ctx context.Context, id int64) error {
	return s.rooms.Delete(ctx, id)
}

// seatCheck rejects a confirmed booking that does not fit the seats left in
// its window. It runs while the room row is locked.
func seatCheck(b *models.RoomBooking) repositories.CapacityCheck {
	return func(room *models.ReadingRoom, overlapping []models.RoomBooking) error {
		if !room.IsActive {
			return apperrors.ErrRoomInactive
		}
		if room.IsAvailable(overlapping, b.BookingDate, b.StartTime, b.EndTime, b.SeatsCount) {
			return nil
		}
		free := room.AvailableSeats - room.OccupiedSeats(overlapping, b.BookingDate, b.StartTime, b.EndTime)
		if free < 0 {
			free = 0
		}
		return apperrors.NewCustomError(apperrors.ErrRoomCapacityExceeded,
			fmt.Sprintf("only %d seat(s) left in %s for %s-%s", free, room.Name, b.StartTime, b.EndTime)).
			WithDetails(map[string]interface{}{"freeSeats": free, "requested": b.SeatsCount})
	}
}

func validateWindow(b *models.RoomBooking) error {
	if !b.StartTime.Before(b.EndTime) {
		return apperrors.ErrInvalidTimeWindow
	}
	if b.SeatsCount < 1 {
		b.SeatsCount = 1
	}
	if b.Status == "" {
		b.Status = models.RoomBookingConfirmed
	}
	return nil
}

// CreateRoomBooking books seats if the room still has capacity for the window
func (s *BranchService) CreateRoomBooking(ctx context.Context, b *models.RoomBooking) error {
	if err := validateWindow(b); err != nil {
		return err
	}
	return s.bookings.Save(ctx, b, seatCheck(b))
}

// UpdateRoomBooking replaces a booking, re-checking capacity without counting itself
func (s *BranchService) UpdateRoomBooking(ctx context.Context, id int64, b *models.RoomBooking) error {
	b.ID = id
	if err := validateWindow(b); err != nil {
		return err
	}
	return s.bookings.Save(ctx, b, seatCheck(b))
}

// CancelRoomBooking frees the seats of a confirmed booking
func (s *BranchService) CancelRoomBooking(ctx context.Context, id int64) (*models.RoomBooking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.RoomBookingConfirmed {
		return nil, apperrors.ErrInvalidStatusTransition
	}
	b.Status = models.RoomBookingCancelled
	if err := s.bookings.Save(ctx, b, nil); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BranchService) GetRoomBooking(ctx context.Context, id int64) (*models.RoomBooking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BranchService) ListRoomBookings(ctx context.Context, f repositories.RoomBookingFilter) ([]*models.RoomBooking, repositories.PageInfo, error) {
	return s.bookings.List(ctx, f)
}

func (s *BranchService) DeleteRoomBooking(ctx context.Context, id int64) error {
	return s.bookings.Delete(ctx, id)
}

// RoomBranch returns the branch a reading room belongs to
func (s *BranchService) RoomBranch(ctx context.Context, roomID int64) (int64, error) {
	r, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return r.BranchID, nil
}

// RoomBookingBranch returns the branch of the room a booking holds seats in
func (s *BranchService) RoomBookingBranch(ctx context.Context, id int64) (int64, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.RoomBranch(ctx, b.RoomID)
}

// Availability reports free seats in a room for a window
func (s *BranchService) Availability(ctx context.Context, roomID int64, date time.Time, start, end models.ClockTime, seatsNeeded int) (*dto.RoomAvailabilityResponse, error) {
	if !start.Before(end) {
		return nil, apperrors.ErrInvalidTimeWindow
	}
	if seatsNeeded < 1 {
		seatsNeeded = 1
	}
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	overlapping, err := s.bookings.ListOverlapping(ctx, roomID, date, start, end, 0)
	if err != nil {
		return nil, err
	}

	occupied := room.OccupiedSeats(overlapping, date, start, end)
	free := room.AvailableSeats - occupied
	if free < 0 {
		free = 0
	}
	return &dto.RoomAvailabilityResponse{
		RoomID:         room.ID,
		Date:           date.Format(dto.DateLayout),
		StartTime:      string(start),
		EndTime:        string(end),
		AvailableSeats: room.AvailableSeats,
		OccupiedSeats:  occupied,
		FreeSeats:      free,
		SeatsNeeded:    seatsNeeded,
		Available:      room.IsActive && room.IsAvailable(overlapping, date, start, end, seatsNeeded),
	}, nil
}

// CompletePastBookings closes confirmed bookings whose window has ended
func (s *BranchService) CompletePastBookings(ctx context.Context) (int64, error) {
	return s.bookings.CompletePast(ctx, s.now())
}
