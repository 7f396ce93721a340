package repositories

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/db"
	"github.com/jackc/pgx/v5"
)

const branchColumns = "b.id, b.name, b.address, b.phone, b.email, b.opening_hours, b.total_seats, b.is_active, b.created_at"

// BranchRepository handles library branches
type BranchRepository struct {
	db *db.PostgresDB
}

// NewBranchRepository creates a new branch repository
func NewBranchRepository(database *db.PostgresDB) *BranchRepository {
	return &BranchRepository{db: database}
}

// BranchFilter mirrors the admin list filters
type BranchFilter struct {
	ListParams
	IsActive *bool
}

func scanBranch(row rowScanner) (*models.Branch, error) {
	var b models.Branch
	err := row.Scan(&b.ID, &b.Name, &b.Address, &b.Phone, &b.Email, &b.OpeningHours, &b.TotalSeats, &b.IsActive, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a branch
func (r *BranchRepository) Create(ctx context.Context, b *models.Branch) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("branches").
		Columns("name", "address", "phone", "email", "opening_hours", "total_seats", "is_active").
		Values(b.Name, b.Address, b.Phone, b.Email, b.OpeningHours, b.TotalSeats, b.IsActive).
		Suffix("RETURNING id, created_at"), "branch", &b.ID, &b.CreatedAt)
}

// GetByID loads a branch
func (r *BranchRepository) GetByID(ctx context.Context, id int64) (*models.Branch, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(branchColumns).From("branches b").Where(squirrel.Eq{"b.id": id}), "branch", scanBranch)
}

// List returns one page of branches
func (r *BranchRepository) List(ctx context.Context, f BranchFilter) ([]*models.Branch, PageInfo, error) {
	base := sb.Select().From("branches b")
	if f.IsActive != nil {
		base = base.Where(squirrel.Eq{"b.is_active": *f.IsActive})
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "b.name", "b.address", "b.phone"))
	}
	order := orderClause(f.ListParams, map[string]string{"name": "b.name", "createdAt": "b.created_at"}, "b.name ASC")
	return fetchPage(ctx, r.db.Pool, base, []string{branchColumns}, order, f.ListParams, "branch", scanBranch)
}

// Update replaces a branch's columns
func (r *BranchRepository) Update(ctx context.Context, b *models.Branch) error {
	return execAffectingOne(ctx, r.db.Pool, sb.Update("branches").SetMap(map[string]interface{}{
		"name":          b.Name,
		"address":       b.Address,
		"phone":         b.Phone,
		"email":         b.Email,
		"opening_hours": b.OpeningHours,
		"total_seats":   b.TotalSeats,
		"is_active":     b.IsActive,
	}).Where(squirrel.Eq{"id": b.ID}), "branch")
}

// Delete removes a branch
func (r *BranchRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "branches", id, "branch")
}

const roomColumns = "rr.id, rr.branch_id, rr.name, rr.total_seats, rr.available_seats, rr.has_computers, rr.has_outlets, rr.opening_hours, rr.description, rr.is_active, rr.created_at"

// ReadingRoomRepository handles reading rooms
type ReadingRoomRepository struct {
	db *db.PostgresDB
}

// NewReadingRoomRepository creates a new reading room repository
func NewReadingRoomRepository(database *db.PostgresDB) *ReadingRoomRepository {
	return &ReadingRoomRepository{db: database}
}

// ReadingRoomFilter mirrors the admin list filters
type ReadingRoomFilter struct {
	ListParams
	BranchID     *int64
	HasComputers *bool
	HasOutlets   *bool
	IsActive     *bool
}

func scanReadingRoom(row rowScanner) (*models.ReadingRoom, error) {
	var rr models.ReadingRoom
	err := row.Scan(&rr.ID, &rr.BranchID, &rr.Name, &rr.TotalSeats, &rr.AvailableSeats, &rr.HasComputers,
		&rr.HasOutlets, &rr.OpeningHours, &rr.Description, &rr.IsActive, &rr.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

// Create inserts a reading room
func (r *ReadingRoomRepository) Create(ctx context.Context, rr *models.ReadingRoom) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("reading_rooms").
		Columns("branch_id", "name", "total_seats", "available_seats", "has_computers", "has_outlets", "opening_hours", "description", "is_active").
		Values(rr.BranchID, rr.Name, rr.TotalSeats, rr.AvailableSeats, rr.HasComputers, rr.HasOutlets, rr.OpeningHours, rr.Description, rr.IsActive).
		Suffix("RETURNING id, created_at"), "reading room", &rr.ID, &rr.CreatedAt)
}

// GetByID loads a reading room
func (r *ReadingRoomRepository) GetByID(ctx context.Context, id int64) (*models.ReadingRoom, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(roomColumns).From("reading_rooms rr").Where(squirrel.Eq{"rr.id": id}), "reading room", scanReadingRoom)
}

// List returns one page of reading rooms
func (r *ReadingRoomRepository) List(ctx context.Context, f ReadingRoomFilter) ([]*models.ReadingRoom, PageInfo, error) {
	base := sb.Select().From("reading_rooms rr").Join("branches b ON b.id = rr.branch_id")
	eq := squirrel.Eq{}
	if f.BranchID != nil {
		eq["rr.branch_id"] = *f.BranchID
	}
	if f.HasComputers != nil {
		eq["rr.has_computers"] = *f.HasComputers
	}
	if f.HasOutlets != nil {
		eq["rr.has_outlets"] = *f.HasOutlets
	}
	if f.IsActive != nil {
		eq["rr.is_active"] = *f.IsActive
	}
	if len(eq) > 0 {
		base = base.Where(eq)
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "rr.name", "b.name", "rr.description"))
	}
	order := orderClause(f.ListParams, map[string]string{"name": "rr.name", "availableSeats": "rr.available_seats"}, "rr.name ASC")
	return fetchPage(ctx, r.db.Pool, base, []string{roomColumns}, order, f.ListParams, "reading room", scanReadingRoom)
}

// Update replaces a reading room's columns
func (r *ReadingRoomRepository) Update(ctx context.Context, rr *models.ReadingRoom) error {
	return execAffectingOne(ctx, r.db.Pool, sb.Update("reading_rooms").SetMap(map[string]interface{}{
		"branch_id":       rr.BranchID,
		"name":            rr.Name,
		"total_seats":     rr.TotalSeats,
		"available_seats": rr.AvailableSeats,
		"has_computers":   rr.HasComputers,
		"has_outlets":     rr.HasOutlets,
		"opening_hours":   rr.OpeningHours,
		"description":     rr.Description,
		"is_active":       rr.IsActive,
	}).Where(squirrel.Eq{"id": rr.ID}), "reading room")
}

// Delete removes a reading room
func (r *ReadingRoomRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "reading_rooms", id, "reading room")
}

const roomBookingColumns = "rb.id, rb.user_id, rb.room_id, rb.booking_date, to_char(rb.start_time, 'HH24:MI'), to_char(rb.end_time, 'HH24:MI'), rb.seats_count, rb.status, rb.created_at, rb.updated_at"

// RoomBookingRepository handles seat reservations
type RoomBookingRepository struct {
	db *db.PostgresDB
}

// NewRoomBookingRepository creates a new room booking repository
func NewRoomBookingRepository(database *db.PostgresDB) *RoomBookingRepository {
	return &RoomBookingRepository{db: database}
}

// RoomBookingFilter mirrors the admin list filters
type RoomBookingFilter struct {
	ListParams
	Status      *models.RoomBookingStatus
	BookingDate *time.Time
	BranchID    *int64
	RoomID      *int64
	UserID      *int64
}

// CapacityCheck decides whether a booking fits the room given the confirmed
// bookings that overlap its window.
type CapacityCheck func(room *models.ReadingRoom, overlapping []models.RoomBooking) error

func scanRoomBooking(row rowScanner) (*models.RoomBooking, error) {
	var b models.RoomBooking
	var start, end string
	err := row.Scan(&b.ID, &b.UserID, &b.RoomID, &b.BookingDate, &start, &end, &b.SeatsCount, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.StartTime, b.EndTime = models.ClockTime(start), models.ClockTime(end)
	return &b, nil
}

// GetByID loads a room booking
func (r *RoomBookingRepository) GetByID(ctx context.Context, id int64) (*models.RoomBooking, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(roomBookingColumns).From("room_bookings rb").Where(squirrel.Eq{"rb.id": id}), "room booking", scanRoomBooking)
}

// List returns one page of room bookings
func (r *RoomBookingRepository) List(ctx context.Context, f RoomBookingFilter) ([]*models.RoomBooking, PageInfo, error) {
	base := sb.Select().From("room_bookings rb").
		Join("reading_rooms rr ON rr.id = rb.room_id").
		Join("branches b ON b.id = rr.branch_id").
		Join("users u ON u.id = rb.user_id")
	eq := squirrel.Eq{}
	if f.Status != nil {
		eq["rb.status"] = *f.Status
	}
	if f.BookingDate != nil {
		eq["rb.booking_date"] = *f.BookingDate
	}
	if f.BranchID != nil {
		eq["rr.branch_id"] = *f.BranchID
	}
	if f.RoomID != nil {
		eq["rb.room_id"] = *f.RoomID
	}
	if f.UserID != nil {
		eq["rb.user_id"] = *f.UserID
	}
	if len(eq) > 0 {
		base = base.Where(eq)
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "u.username", "rr.name", "b.name"))
	}
	order := orderClause(f.ListParams, map[string]string{"bookingDate": "rb.booking_date", "createdAt": "rb.created_at"}, "rb.booking_date DESC, rb.start_time ASC")
	return fetchPage(ctx, r.db.Pool, base, []string{roomBookingColumns}, order, f.ListParams, "room booking", scanRoomBooking)
}

// ListOverlapping returns confirmed bookings of room on date whose window
// intersects [start, end). excludeID skips the booking being edited.
func (r *RoomBookingRepository) ListOverlapping(ctx context.Context, roomID int64, date time.Time, start, end models.ClockTime, excludeID int64) ([]models.RoomBooking, error) {
	return r.overlapping(ctx, r.db.Pool, roomID, date, start, end, excludeID)
}

func (r *RoomBookingRepository) overlapping(ctx context.Context, q db.Querier, roomID int64, date time.Time, start, end models.ClockTime, excludeID int64) ([]models.RoomBooking, error) {
	query := sb.Select(roomBookingColumns).From("room_bookings rb").
		Where(squirrel.Eq{"rb.room_id": roomID, "rb.booking_date": date, "rb.status": models.RoomBookingConfirmed}).
		Where("rb.start_time < ?", string(end)).
		Where("rb.end_time > ?", string(start))
	if excludeID > 0 {
		query = query.Where(squirrel.NotEq{"rb.id": excludeID})
	}
	rows, err := fetchAll(ctx, q, query, "room booking", scanRoomBooking)
	if err != nil {
		return nil, err
	}
	result := make([]models.RoomBooking, len(rows))
	for i, b := range rows {
		result[i] = *b
	}
	return result, nil
}

// Save inserts or updates a booking while holding a lock on its room, so that
// concurrent bookings for the same room are checked one at a time.
func (r *RoomBookingRepository) Save(ctx context.Context, b *models.RoomBooking, check CapacityCheck) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		room, err := fetchOne(ctx, tx, sb.Select(roomColumns).From("reading_rooms rr").
			Where(squirrel.Eq{"rr.id": b.RoomID}).Suffix("FOR UPDATE"), "reading room", scanReadingRoom)
		if err != nil {
			return err
		}

		if b.Status == models.RoomBookingConfirmed && check != nil {
			overlapping, err := r.overlapping(ctx, tx, b.RoomID, b.BookingDate, b.StartTime, b.EndTime, b.ID)
			if err != nil {
				return err
			}
			if err := check(room, overlapping); err != nil {
				return err
			}
		}

		if b.ID == 0 {
			return insertReturning(ctx, tx, sb.Insert("room_bookings").
				Columns("user_id", "room_id", "booking_date", "start_time", "end_time", "seats_count", "status").
				Values(b.UserID, b.RoomID, b.BookingDate, string(b.StartTime), string(b.EndTime), b.SeatsCount, b.Status).
				Suffix("RETURNING id, created_at, updated_at"), "room booking", &b.ID, &b.CreatedAt, &b.UpdatedAt)
		}

		return execAffectingOne(ctx, tx, sb.Update("room_bookings").SetMap(map[string]interface{}{
			"user_id":      b.UserID,
			"room_id":      b.RoomID,
			"booking_date": b.BookingDate,
			"start_time":   string(b.StartTime),
			"end_time":     string(b.EndTime),
			"seats_count":  b.SeatsCount,
			"status":       b.Status,
			"updated_at":   squirrel.Expr("NOW()"),
		}).Where(squirrel.Eq{"id": b.ID}), "room booking")
	})
}

// CompletePast marks confirmed bookings that ended before now as completed
func (r *RoomBookingRepository) CompletePast(ctx context.Context, now time.Time) (int64, error) {
	return execCount(ctx, r.db.Pool, sb.Update("room_bookings").
		Set("status", models.RoomBookingCompleted).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"status": models.RoomBookingConfirmed}).
		Where("(booking_date + end_time) < ?", now.Format("2006-01-02 15:04:05")), "room booking")
}

// Delete removes a room booking
func (r *RoomBookingRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "room_bookings", id, "room booking")
}
