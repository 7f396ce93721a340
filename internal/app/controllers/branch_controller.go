package controllers

import (
	"net/http"
	"time"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/app/services"
	"github.com/biblioteka/backend/internal/middleware"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
)

// BranchController handles branches, reading rooms and room bookings
type BranchController struct {
	branchService *services.BranchService
}

// NewBranchController creates a new BranchController
func NewBranchController(branchService *services.BranchService) *BranchController {
	return &BranchController{branchService: branchService}
}

// ListBranches handles listing library branches
// @Summary List branches
// @Tags branches
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search by name or address"
// @Param isActive query bool false "Filter by active flag"
// @Param sortBy query string false "Sort field (name, totalSeats, createdAt)"
// @Param sortOrder query string false "Sort order (ASC, DESC)"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Branch}}
// @Router /admin/branches [get]
func (c *BranchController) ListBranches(ctx *gin.Context) {
	branches, page, err := c.branchService.ListBranches(ctx.Request.Context(), repositories.BranchFilter{
		ListParams: listParams(ctx),
		IsActive:   helpers.OptionalBoolQuery(ctx, "isActive"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, branches, page)
}

// GetBranch handles retrieving one branch
// @Summary Get branch by ID
// @Tags branches
// @Security BearerAuth
// @Produce json
// @Param id path int true "Branch ID"
// @Success 200 {object} dto.APIResponse{data=models.Branch}
// @Failure 404 {object} dto.ErrorResponse "Branch not found"
// @Router /admin/branches/{id} [get]
func (c *BranchController) GetBranch(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	branch, err := c.branchService.GetBranch(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, branch, "")
}

// CreateBranch handles opening a branch
// @Summary Create branch
// @Tags branches
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BranchRequest true "Branch"
// @Success 201 {object} dto.APIResponse{data=models.Branch}
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Router /admin/branches [post]
func (c *BranchController) CreateBranch(ctx *gin.Context) {
	var req dto.BranchRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	branch := req.ToModel()
	if err := c.branchService.CreateBranch(ctx.Request.Context(), branch); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, branch, "Branch created successfully")
}

// UpdateBranch handles replacing a branch
// @Summary Update branch
// @Tags branches
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Branch ID"
// @Param request body dto.BranchRequest true "Branch"
// @Success 200 {object} dto.APIResponse{data=models.Branch}
// @Failure 404 {object} dto.ErrorResponse "Branch not found"
// @Router /admin/branches/{id} [put]
func (c *BranchController) UpdateBranch(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.BranchRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	branch := req.ToModel()
	if err := c.branchService.UpdateBranch(ctx.Request.Context(), id, branch); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, branch, "Branch updated successfully")
}

// DeleteBranch handles closing a branch
// @Summary Delete branch
// @Tags branches
// @Security BearerAuth
// @Param id path int true "Branch ID"
// @Success 204
// @Failure 409 {object} dto.ErrorResponse "Branch still holds copies"
// @Router /admin/branches/{id} [delete]
func (c *BranchController) DeleteBranch(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.branchService.DeleteBranch(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// ListRooms handles listing reading rooms
// @Summary List reading rooms
// @Tags reading-rooms
// @Security BearerAuth
// @Produce json
// @Param branchId query int false "Filter by branch"
// @Param hasComputers query bool false "Filter by computers"
// @Param hasOutlets query bool false "Filter by outlets"
// @Param isActive query bool false "Filter by active flag"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.ReadingRoom}}
// @Router /admin/reading-rooms [get]
func (c *BranchController) ListRooms(ctx *gin.Context) {
	rooms, page, err := c.branchService.ListRooms(ctx.Request.Context(), repositories.ReadingRoomFilter{
		ListParams:   listParams(ctx),
		BranchID:     helpers.OptionalInt64Query(ctx, "branchId"),
		HasComputers: helpers.OptionalBoolQuery(ctx, "hasComputers"),
		HasOutlets:   helpers.OptionalBoolQuery(ctx, "hasOutlets"),
		IsActive:     helpers.OptionalBoolQuery(ctx, "isActive"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, rooms, page)
}

// GetRoom handles retrieving one reading room
// @Summary Get reading room by ID
// @Tags reading-rooms
// @Security BearerAuth
// @Produce json
// @Param id path int true "Room ID"
// @Success 200 {object} dto.APIResponse{data=models.ReadingRoom}
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Router /admin/reading-rooms/{id} [get]
func (c *BranchController) GetRoom(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	room, err := c.branchService.GetRoom(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, room, "")
}

// CreateRoom handles adding a reading room to a branch
// @Summary Create reading room
// @Tags reading-rooms
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ReadingRoomRequest true "Reading room"
// @Success 201 {object} dto.APIResponse{data=models.ReadingRoom}
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Router /admin/reading-rooms [post]
func (c *BranchController) CreateRoom(ctx *gin.Context) {
	var req dto.ReadingRoomRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	room := req.ToModel()
	if err := c.branchService.CreateRoom(ctx.Request.Context(), room); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, room, "Reading room created successfully")
}

// UpdateRoom handles replacing a reading room
// @Summary Update reading room
// @Tags reading-rooms
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Param request body dto.ReadingRoomRequest true "Reading room"
// @Success 200 {object} dto.APIResponse{data=models.ReadingRoom}
// @Router /admin/reading-rooms/{id} [put]
func (c *BranchController) UpdateRoom(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.ReadingRoomRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	room := req.ToModel()
	if err := c.branchService.UpdateRoom(ctx.Request.Context(), id, room); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, room, "Reading room updated successfully")
}

// DeleteRoom handles removing a reading room
// @Summary Delete reading room
// @Tags reading-rooms
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Success 204
// @Router /admin/reading-rooms/{id} [delete]
func (c *BranchController) DeleteRoom(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.branchService.DeleteRoom(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// RoomAvailability handles checking free seats for a window
// @Summary Check reading room availability
// @Tags reading-rooms
// @Security BearerAuth
// @Produce json
// @Param id path int true "Room ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param startTime query string true "Start time (HH:MM)"
// @Param endTime query string true "End time (HH:MM)"
// @Param seats query int false "Seats needed (default: 1)"
// @Success 200 {object} dto.APIResponse{data=dto.RoomAvailabilityResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid window"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Router /admin/reading-rooms/{id}/availability [get]
func (c *BranchController) RoomAvailability(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var q dto.RoomAvailabilityQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}
	date, err := time.Parse(dto.DateLayout, q.Date)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("date", "date must be in YYYY-MM-DD format"))
		return
	}
	result, err := c.branchService.Availability(ctx.Request.Context(), id, date,
		models.ClockTime(q.StartTime), models.ClockTime(q.EndTime), q.SeatsNeeded)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, result, "")
}

// ListRoomBookings handles listing seat reservations
// @Summary List room bookings
// @Tags room-bookings
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status (confirmed, cancelled, completed)"
// @Param bookingDate query string false "Filter by date (YYYY-MM-DD)"
// @Param branchId query int false "Filter by branch"
// @Param roomId query int false "Filter by room"
// @Param userId query int false "Filter by user"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.RoomBooking}}
// @Router /admin/room-bookings [get]
func (c *BranchController) ListRoomBookings(ctx *gin.Context) {
	date, ok := optionalDate(ctx, "bookingDate")
	if !ok {
		return
	}
	bookings, page, err := c.branchService.ListRoomBookings(ctx.Request.Context(), repositories.RoomBookingFilter{
		ListParams:  listParams(ctx),
		Status:      optionalEnum[models.RoomBookingStatus](ctx, "status"),
		BookingDate: date,
		BranchID:    helpers.OptionalInt64Query(ctx, "branchId"),
		RoomID:      helpers.OptionalInt64Query(ctx, "roomId"),
		UserID:      helpers.OptionalInt64Query(ctx, "userId"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, bookings, page)
}

// GetRoomBooking handles retrieving one seat reservation
// @Summary Get room booking by ID
// @Tags room-bookings
// @Security BearerAuth
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} dto.APIResponse{data=models.RoomBooking}
// @Failure 404 {object} dto.ErrorResponse "Booking not found"
// @Router /admin/room-bookings/{id} [get]
func (c *BranchController) GetRoomBooking(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	booking, err := c.branchService.GetRoomBooking(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, booking, "")
}

func bindRoomBooking(ctx *gin.Context) (*models.RoomBooking, bool) {
	var req dto.RoomBookingRequest
	if !middleware.BindJSON(ctx, &req) {
		return nil, false
	}
	booking, err := req.ToModel()
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return nil, false
	}
	return booking, true
}

// CreateRoomBooking handles reserving seats
// @Summary Create room booking
// @Tags room-bookings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.RoomBookingRequest true "Room booking"
// @Success 201 {object} dto.APIResponse{data=models.RoomBooking}
// @Failure 400 {object} dto.ErrorResponse "Invalid time window"
// @Failure 409 {object} dto.ErrorResponse "Room inactive"
// @Failure 422 {object} dto.ErrorResponse "Not enough free seats"
// @Router /admin/room-bookings [post]
func (c *BranchController) CreateRoomBooking(ctx *gin.Context) {
	booking, ok := bindRoomBooking(ctx)
	if !ok {
		return
	}
	if !authorizeStored(ctx, booking.RoomID, c.branchService.RoomBranch) {
		return
	}
	if err := c.branchService.CreateRoomBooking(ctx.Request.Context(), booking); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, booking, "Room booked successfully")
}

// UpdateRoomBooking handles replacing a seat reservation
// @Summary Update room booking
// @Tags room-bookings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Booking ID"
// @Param request body dto.RoomBookingRequest true "Room booking"
// @Success 200 {object} dto.APIResponse{data=models.RoomBooking}
// @Failure 422 {object} dto.ErrorResponse "Not enough free seats"
// @Router /admin/room-bookings/{id} [put]
func (c *BranchController) UpdateRoomBooking(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	booking, ok := bindRoomBooking(ctx)
	if !ok {
		return
	}
	if !authorizeStored(ctx, id, c.branchService.RoomBookingBranch) || !authorizeStored(ctx, booking.RoomID, c.branchService.RoomBranch) {
		return
	}
	if err := c.branchService.UpdateRoomBooking(ctx.Request.Context(), id, booking); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, booking, "Room booking updated successfully")
}

// CancelRoomBooking handles releasing a seat reservation
// @Summary Cancel room booking
// @Tags room-bookings
// @Security BearerAuth
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} dto.APIResponse{data=models.RoomBooking}
// @Failure 409 {object} dto.ErrorResponse "Booking is not confirmed"
// @Router /admin/room-bookings/{id}/cancel [post]
func (c *BranchController) CancelRoomBooking(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if !authorizeStored(ctx, id, c.branchService.RoomBookingBranch) {
		return
	}
	booking, err := c.branchService.CancelRoomBooking(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, booking, "Room booking cancelled")
}

// DeleteRoomBooking handles removing a seat reservation
// @Summary Delete room booking
// @Tags room-bookings
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Success 204
// @Router /admin/room-bookings/{id} [delete]
func (c *BranchController) DeleteRoomBooking(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if !authorizeStored(ctx, id, c.branchService.RoomBookingBranch) {
		return
	}
	if err := c.branchService.DeleteRoomBooking(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}
