package dto

import (
	"time"

	"github.com/biblioteka/backend/internal/app/models"
)

// BranchRequest creates or replaces a branch
type BranchRequest struct {
	Name         string            `json:"name" binding:"required,max=200"`
	Address      string            `json:"address" binding:"required"`
	Phone        string            `json:"phone" binding:"omitempty,max=20,phone"`
	Email        string            `json:"email" binding:"omitempty,email"`
	OpeningHours map[string]string `json:"openingHours"`
	TotalSeats   int               `json:"totalSeats" binding:"min=0"`
	IsActive     *bool             `json:"isActive"`
}

// ToModel converts the request into a branch
func (r *BranchRequest) ToModel() *models.Branch {
	b := &models.Branch{
		Name:         r.Name,
		Address:      r.Address,
		Phone:        r.Phone,
		Email:        r.Email,
		OpeningHours: r.OpeningHours,
		TotalSeats:   r.TotalSeats,
		IsActive:     true,
	}
	if r.IsActive != nil {
		b.IsActive = *r.IsActive
	}
	if b.OpeningHours == nil {
		b.OpeningHours = map[string]string{}
	}
	return b
}

// ReadingRoomRequest creates or replaces a reading room
type ReadingRoomRequest struct {
	BranchID       int64             `json:"branchId" binding:"required,min=1"`
	Name           string            `json:"name" binding:"required,max=100"`
	TotalSeats     int               `json:"totalSeats" binding:"min=0"`
	AvailableSeats int               `json:"availableSeats" binding:"min=0,ltefield=TotalSeats"`
	HasComputers   bool              `json:"hasComputers"`
	HasOutlets     *bool             `json:"hasOutlets"`
	OpeningHours   map[string]string `json:"openingHours"`
	Description    string            `json:"description"`
	IsActive       *bool             `json:"isActive"`
}

// ToModel converts the request into a reading room
func (r *ReadingRoomRequest) ToModel() *models.ReadingRoom {
	room := &models.ReadingRoom{
		BranchID:       r.BranchID,
		Name:           r.Name,
		TotalSeats:     r.TotalSeats,
		AvailableSeats: r.AvailableSeats,
		HasComputers:   r.HasComputers,
		HasOutlets:     true,
		OpeningHours:   r.OpeningHours,
		Description:    r.Description,
		IsActive:       true,
	}
	if r.HasOutlets != nil {
		room.HasOutlets = *r.HasOutlets
	}
	if r.IsActive != nil {
		room.IsActive = *r.IsActive
	}
	if room.OpeningHours == nil {
		room.OpeningHours = map[string]string{}
	}
	return room
}

// RoomBookingRequest reserves seats in a reading room
type RoomBookingRequest struct {
	UserID      int64                    `json:"userId" binding:"required,min=1"`
	RoomID      int64                    `json:"roomId" binding:"required,min=1"`
	BookingDate string                   `json:"bookingDate" binding:"required,datetime=2006-01-02" example:"2025-05-20"`
	StartTime   string                   `json:"startTime" binding:"required,clocktime" example:"10:00"`
	EndTime     string                   `json:"endTime" binding:"required,clocktime" example:"12:00"`
	SeatsCount  int                      `json:"seatsCount" binding:"omitempty,min=1"`
	Status      models.RoomBookingStatus `json:"status" binding:"omitempty,oneof=confirmed cancelled completed"`
}

// ToModel converts the request into a room booking
func (r *RoomBookingRequest) ToModel() (*models.RoomBooking, error) {
	start, err := models.ParseClockTime(r.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := models.ParseClockTime(r.EndTime)
	if err != nil {
		return nil, err
	}
	date, err := time.Parse(DateLayout, r.BookingDate)
	if err != nil {
		return nil, err
	}

	b := &models.RoomBooking{
		UserID:      r.UserID,
		RoomID:      r.RoomID,
		BookingDate: date,
		StartTime:   start,
		EndTime:     end,
		SeatsCount:  r.SeatsCount,
		Status:      r.Status,
	}
	if b.SeatsCount == 0 {
		b.SeatsCount = 1
	}
	if b.Status == "" {
		b.Status = models.RoomBookingConfirmed
	}
	return b, nil
}

// RoomAvailabilityResponse answers an availability query
type RoomAvailabilityResponse struct {
	RoomID         int64  `json:"roomId"`
	Date           string `json:"date" example:"2025-05-20"`
	StartTime      string `json:"startTime" example:"10:00"`
	EndTime        string `json:"endTime" example:"12:00"`
	AvailableSeats int    `json:"availableSeats"`
	OccupiedSeats  int    `json:"occupiedSeats"`
	FreeSeats      int    `json:"freeSeats"`
	SeatsNeeded    int    `json:"seatsNeeded"`
	Available      bool   `json:"available"`
}

// RoomAvailabilityQuery selects the window for an availability check
type RoomAvailabilityQuery struct {
	Date        string `form:"date" binding:"required,datetime=2006-01-02"`
	StartTime   string `form:"startTime" binding:"required,clocktime"`
	EndTime     string `form:"endTime" binding:"required,clocktime"`
	SeatsNeeded int    `form:"seats" binding:"omitempty,min=1"`
}
