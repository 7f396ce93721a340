package models

import (
	"fmt"
	"time"
)

// Branch is a physical library location
type Branch struct {
	ID           int64             `json:"id" db:"id"`
	Name         string            `json:"name" db:"name" example:"Central Library"`
	Address      string            `json:"address" db:"address"`
	Phone        string            `json:"phone" db:"phone"`
	Email        string            `json:"email" db:"email"`
	OpeningHours map[string]string `json:"openingHours" db:"opening_hours" example:"mon:09:00-20:00"`
	TotalSeats   int               `json:"totalSeats" db:"total_seats"`
	IsActive     bool              `json:"isActive" db:"is_active"`
	CreatedAt    time.Time         `json:"createdAt" db:"created_at"`
}

// ReadingRoom belongs to a branch and can be booked by seat
type ReadingRoom struct {
	ID             int64             `json:"id" db:"id"`
	BranchID       int64             `json:"branchId" db:"branch_id"`
	Name           string            `json:"name" db:"name"`
	TotalSeats     int               `json:"totalSeats" db:"total_seats"`
	AvailableSeats int               `json:"availableSeats" db:"available_seats"`
	HasComputers   bool              `json:"hasComputers" db:"has_computers"`
	HasOutlets     bool              `json:"hasOutlets" db:"has_outlets"`
	OpeningHours   map[string]string `json:"openingHours" db:"opening_hours"`
	Description    string            `json:"description" db:"description"`
	IsActive       bool              `json:"isActive" db:"is_active"`
	CreatedAt      time.Time         `json:"createdAt" db:"created_at"`

	Branch *Branch `json:"branch,omitempty"`
}

// OccupiedSeats sums the seats of confirmed bookings on date that overlap [start, end).
func (r *ReadingRoom) OccupiedSeats(bookings []RoomBooking, date time.Time, start, end ClockTime) int {
	day := DateOf(date)
	occupied := 0
	for _, b := range bookings {
		if b.RoomID != r.ID || b.Status != RoomBookingConfirmed {
			continue
		}
		if !DateOf(b.BookingDate).Equal(day) {
			continue
		}
		if b.StartTime.Before(end) && start.Before(b.EndTime) {
			occupied += b.SeatsCount
		}
	}
	return occupied
}

// IsAvailable reports whether seatsNeeded seats are still free for the window.
func (r *ReadingRoom) IsAvailable(bookings []RoomBooking, date time.Time, start, end ClockTime, seatsNeeded int) bool {
	if seatsNeeded < 1 {
		seatsNeeded = 1
	}
	return r.AvailableSeats-r.OccupiedSeats(bookings, date, start, end) >= seatsNeeded
}

// RoomBooking reserves seats in a reading room for a time window on one day
type RoomBooking struct {
	ID          int64             `json:"id" db:"id"`
	UserID      int64             `json:"userId" db:"user_id"`
	RoomID      int64             `json:"roomId" db:"room_id"`
	BookingDate time.Time         `json:"bookingDate" db:"booking_date"`
	StartTime   ClockTime         `json:"startTime" db:"start_time" example:"10:00"`
	EndTime     ClockTime         `json:"endTime" db:"end_time" example:"12:30"`
	SeatsCount  int               `json:"seatsCount" db:"seats_count"`
	Status      RoomBookingStatus `json:"status" db:"status"`
	CreatedAt   time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time         `json:"updatedAt" db:"updated_at"`
}

// ClockTime is a time of day in "15:04" form
type ClockTime string

const clockLayout = "15:04"

// ParseClockTime accepts "15:04" or "15:04:05" and normalizes to "15:04"
func ParseClockTime(s string) (ClockTime, error) {
	for _, layout := range []string{clockLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime(t.Format(clockLayout)), nil
		}
	}
	return "", fmt.Errorf("invalid time of day %q, expected HH:MM", s)
}

// Minutes returns minutes since midnight, or -1 for a malformed value
func (c ClockTime) Minutes() int {
	t, err := time.Parse(clockLayout, string(c))
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}

// Before reports whether c is strictly earlier than other
func (c ClockTime) Before(other ClockTime) bool {
	return c.Minutes() < other.Minutes()
}
