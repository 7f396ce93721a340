package controllers

import (
	"net/http"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/app/services"
	"github.com/biblioteka/backend/internal/middleware"
	"github.com/biblioteka/backend/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
)

// CirculationController handles copies, book bookings and loans
type CirculationController struct {
	circulationService *services.CirculationService
}

// NewCirculationController creates a new CirculationController
func NewCirculationController(circulationService *services.CirculationService) *CirculationController {
	return &CirculationController{circulationService: circulationService}
}

func (c *CirculationController) copyResponse(bc *models.BookCopy) dto.BookCopyResponse {
	return dto.BookCopyResponse{BookCopy: *bc, IsOverdue: c.circulationService.IsCopyOverdue(bc)}
}

// ListCopies handles listing copy batches
// @Summary List book copies
// @Tags book-copies
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search by book title or ISBN"
// @Param status query string false "Filter by status (active, returned, overdue, lost)"
// @Param condition query string false "Filter by condition"
// @Param branchId query int false "Filter by branch"
// @Param bookId query int false "Filter by book"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]dto.BookCopyResponse}}
// @Router /admin/book-copies [get]
func (c *CirculationController) ListCopies(ctx *gin.Context) {
	copies, page, err := c.circulationService.ListCopies(ctx.Request.Context(), repositories.BookCopyFilter{
		ListParams: listParams(ctx),
		Status:     optionalEnum[models.CopyStatus](ctx, "status"),
		Condition:  ctx.Query("condition"),
		BranchID:   helpers.OptionalInt64Query(ctx, "branchId"),
		BookID:     helpers.OptionalInt64Query(ctx, "bookId"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	items := make([]dto.BookCopyResponse, 0, len(copies))
	for _, cp := range copies {
		items = append(items, c.copyResponse(cp))
	}
	respondList(ctx, items, page)
}

// GetCopy handles retrieving one copy batch
// @Summary Get book copy by ID
// @Tags book-copies
// @Security BearerAuth
// @Produce json
// @Param id path int true "Copy ID"
// @Success 200 {object} dto.APIResponse{data=dto.BookCopyResponse}
// @Failure 404 {object} dto.ErrorResponse "Copy not found"
// @Router /admin/book-copies/{id} [get]
func (c *CirculationController) GetCopy(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	bc, err := c.circulationService.GetCopy(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, c.copyResponse(bc), "")
}

// CreateCopy handles registering copies at a branch
// @Summary Create book copy
// @Tags book-copies
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BookCopyRequest true "Copy"
// @Success 201 {object} dto.APIResponse{data=dto.BookCopyResponse}
// @Failure 400 {object} dto.ErrorResponse "Unknown book or branch"
// @Router /admin/book-copies [post]
func (c *CirculationController) CreateCopy(ctx *gin.Context) {
	var req dto.BookCopyRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	bc := req.ToModel()
	if !middleware.AuthorizeBranch(ctx, bc.BranchID) {
		return
	}
	if err := c.circulationService.CreateCopy(ctx.Request.Context(), bc); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, c.copyResponse(bc), "Copy created successfully")
}

// UpdateCopy handles replacing a copy batch
// @Summary Update book copy
// @Tags book-copies
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Copy ID"
// @Param request body dto.BookCopyRequest true "Copy"
// @Success 200 {object} dto.APIResponse{data=dto.BookCopyResponse}
// @Router /admin/book-copies/{id} [put]
func (c *CirculationController) UpdateCopy(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.BookCopyRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	bc := req.ToModel()
	if !authorizeStored(ctx, id, c.circulationService.CopyBranch) || !middleware.AuthorizeBranch(ctx, bc.BranchID) {
		return
	}
	if err := c.circulationService.UpdateCopy(ctx.Request.Context(), id, bc); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, c.copyResponse(bc), "Copy updated successfully")
}

// DeleteCopy handles removing a copy batch
// @Summary Delete book copy
// @Tags book-copies
// @Security BearerAuth
// @Param id path int true "Copy ID"
// @Success 204
// @Failure 409 {object} dto.ErrorResponse "Copy has loans or bookings"
// @Router /admin/book-copies/{id} [delete]
func (c *CirculationController) DeleteCopy(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if !authorizeStored(ctx, id, c.circulationService.CopyBranch) {
		return
	}
	if err := c.circulationService.DeleteCopy(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// ListBookings handles listing book reservations
// @Summary List book bookings
// @Tags book-bookings
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status (pending, ready, issued, cancelled, expired)"
// @Param branchId query int false "Filter by branch"
// @Param userId query int false "Filter by user"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.BookBooking}}
// @Router /admin/book-bookings [get]
func (c *CirculationController) ListBookings(ctx *gin.Context) {
	bookings, page, err := c.circulationService.ListBookings(ctx.Request.Context(), repositories.BookBookingFilter{
		ListParams: listParams(ctx),
		Status:     optionalEnum[models.BookingStatus](ctx, "status"),
		BranchID:   helpers.OptionalInt64Query(ctx, "branchId"),
		UserID:     helpers.OptionalInt64Query(ctx, "userId"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, bookings, page)
}

// GetBooking handles retrieving one reservation
// @Summary Get book booking by ID
// @Tags book-bookings
// @Security BearerAuth
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} dto.APIResponse{data=models.BookBooking}
// @Failure 404 {object} dto.ErrorResponse "Booking not found"
// @Router /admin/book-bookings/{id} [get]
func (c *CirculationController) GetBooking(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	booking, err := c.circulationService.GetBooking(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, booking, "")
}

// CreateBooking handles reserving a copy; new bookings start pending
// @Summary Create book booking
// @Tags book-bookings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BookBookingRequest true "Booking"
// @Success 201 {object} dto.APIResponse{data=models.BookBooking}
// @Failure 400 {object} dto.ErrorResponse "Copy belongs to another branch"
// @Router /admin/book-bookings [post]
func (c *CirculationController) CreateBooking(ctx *gin.Context) {
	var req dto.BookBookingRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	booking := req.ToModel()
	if !middleware.AuthorizeBranch(ctx, booking.BranchID) {
		return
	}
	if err := c.circulationService.CreateBooking(ctx.Request.Context(), booking); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, booking, "Booking created successfully")
}

// UpdateBooking handles moving a reservation to another copy or user
// @Summary Update book booking
// @Tags book-bookings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Booking ID"
// @Param request body dto.BookBookingRequest true "Booking"
// @Success 200 {object} dto.APIResponse{data=models.BookBooking}
// @Router /admin/book-bookings/{id} [put]
func (c *CirculationController) UpdateBooking(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.BookBookingRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	update := req.ToModel()
	if !authorizeStored(ctx, id, c.circulationService.BookingBranch) || !middleware.AuthorizeBranch(ctx, update.BranchID) {
		return
	}
	booking, err := c.circulationService.UpdateBooking(ctx.Request.Context(), id, update)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, booking, "Booking updated successfully")
}

// DeleteBooking handles removing a reservation
// @Summary Delete book booking
// @Tags book-bookings
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Success 204
// @Router /admin/book-bookings/{id} [delete]
func (c *CirculationController) DeleteBooking(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if !authorizeStored(ctx, id, c.circulationService.BookingBranch) {
		return
	}
	if err := c.circulationService.DeleteBooking(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// MarkBookingReady handles putting a reserved copy on the pickup shelf
// @Summary Mark booking ready for pickup
// @Tags book-bookings
// @Security BearerAuth
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} dto.APIResponse{data=models.BookBooking}
// @Failure 409 {object} dto.ErrorResponse "Booking is not pending"
// @Router /admin/book-bookings/{id}/ready [post]
func (c *CirculationController) MarkBookingReady(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if !authorizeStored(ctx, id, c.circulationService.BookingBranch) {
		return
	}
	booking, err := c.circulationService.MarkBookingReady(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, booking, "Booking is ready for pickup")
}

// CancelBooking handles cancelling a pending or ready reservation
// @Summary Cancel booking
// @Tags book-bookings
// @Security BearerAuth
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} dto.APIResponse{data=models.BookBooking}
// @Failure 409 {object} dto.ErrorResponse "Booking can no longer be cancelled"
// @Router /admin/book-bookings/{id}/cancel [post]
func (c *CirculationController) CancelBooking(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if !authorizeStored(ctx, id, c.circulationService.BookingBranch) {
		return
	}
	booking, err := c.circulationService.CancelBooking(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, booking, "Booking cancelled")
}

// IssueBooking handles handing a ready reservation over as a loan
// @Summary Issue booking as a loan
// @Tags book-bookings
// @Security BearerAuth
// @Produce json
// @Param id path int true "Booking ID"
// @Success 201 {object} dto.APIResponse{data=dto.BookLoanResponse}
// @Failure 409 {object} dto.ErrorResponse "Booking is not ready"
// @Router /admin/book-bookings/{id}/issue [post]
func (c *CirculationController) IssueBooking(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if !authorizeStored(ctx, id, c.circulationService.BookingBranch) {
		return
	}
	loan, err := c.circulationService.IssueBooking(ctx.Request.Context(), id, middleware.CurrentUserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, dto.NewBookLoanResponse(loan), "Book issued successfully")
}

// SetBookingStatus handles an admin status edit, enforcing the booking lifecycle
// @Summary Set booking status
// @Tags book-bookings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Booking ID"
// @Param request body dto.BookingStatusRequest true "Status"
// @Success 200 {object} dto.APIResponse{data=models.BookBooking}
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed"
// @Router /admin/book-bookings/{id}/status [patch]
func (c *CirculationController) SetBookingStatus(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.BookingStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if !authorizeStored(ctx, id, c.circulationService.BookingBranch) {
		return
	}
	booking, err := c.circulationService.SetBookingStatus(ctx.Request.Context(), id, req.Status, middleware.CurrentUserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, booking, "Booking status updated")
}

// ListLoans handles listing loans
// @Summary List book loans
// @Tags book-loans
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search by username or book title"
// @Param status query string false "Filter by status (active, returned, overdue, lost, fine_paid)"
// @Param userId query int false "Filter by user"
// @Param issuedFrom query string false "Issued on or after (YYYY-MM-DD)"
// @Param issuedTo query string false "Issued on or before (YYYY-MM-DD)"
// @Param dueFrom query string false "Due on or after (YYYY-MM-DD)"
// @Param dueTo query string false "Due on or before (YYYY-MM-DD)"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]dto.BookLoanResponse}}
// @Router /admin/book-loans [get]
func (c *CirculationController) ListLoans(ctx *gin.Context) {
	filter := repositories.BookLoanFilter{
		ListParams: listParams(ctx),
		Status:     optionalEnum[models.LoanStatus](ctx, "status"),
		UserID:     helpers.OptionalInt64Query(ctx, "userId"),
	}
	var ok bool
	if filter.IssuedFrom, ok = optionalDate(ctx, "issuedFrom"); !ok {
		return
	}
	if filter.IssuedTo, ok = optionalDate(ctx, "issuedTo"); !ok {
		return
	}
	if filter.DueFrom, ok = optionalDate(ctx, "dueFrom"); !ok {
		return
	}
	if filter.DueTo, ok = optionalDate(ctx, "dueTo"); !ok {
		return
	}

	loans, page, err := c.circulationService.ListLoans(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	items := make([]dto.BookLoanResponse, 0, len(loans))
	for _, l := range loans {
		items = append(items, dto.NewBookLoanResponse(l))
	}
	respondList(ctx, items, page)
}

// GetLoan handles retrieving one loan
// @Summary Get book loan by ID
// @Tags book-loans
// @Security BearerAuth
// @Produce json
// @Param id path int true "Loan ID"
// @Success 200 {object} dto.APIResponse{data=dto.BookLoanResponse}
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /admin/book-loans/{id} [get]
func (c *CirculationController) GetLoan(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	loan, err := c.circulationService.GetLoan(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, dto.NewBookLoanResponse(loan), "")
}

// CreateLoan handles issuing a copy without a booking
// @Summary Create book loan
// @Tags book-loans
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BookLoanRequest true "Loan"
// @Success 201 {object} dto.APIResponse{data=dto.BookLoanResponse}
// @Failure 400 {object} dto.ErrorResponse "Due date before issue date"
// @Router /admin/book-loans [post]
func (c *CirculationController) CreateLoan(ctx *gin.Context) {
	var req dto.BookLoanRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	loan := req.ToModel()
	if !authorizeStored(ctx, loan.BookCopyID, c.circulationService.CopyBranch) {
		return
	}
	if err := c.circulationService.CreateLoan(ctx.Request.Context(), loan, middleware.CurrentUserID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, dto.NewBookLoanResponse(loan), "Loan created successfully")
}

// UpdateLoan handles editing a loan; the status is re-derived from its dates
// @Summary Update book loan
// @Tags book-loans
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Loan ID"
// @Param request body dto.BookLoanRequest true "Loan"
// @Success 200 {object} dto.APIResponse{data=dto.BookLoanResponse}
// @Router /admin/book-loans/{id} [put]
func (c *CirculationController) UpdateLoan(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.BookLoanRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	update := req.ToModel()
	if !authorizeStored(ctx, id, c.circulationService.LoanBranch) || !authorizeStored(ctx, update.BookCopyID, c.circulationService.CopyBranch) {
		return
	}
	loan, err := c.circulationService.UpdateLoan(ctx.Request.Context(), id, update)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, dto.NewBookLoanResponse(loan), "Loan updated successfully")
}

// DeleteLoan handles removing a loan record
// @Summary Delete book loan
// @Tags book-loans
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 204
// @Router /admin/book-loans/{id} [delete]
func (c *CirculationController) DeleteLoan(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if !authorizeStored(ctx, id, c.circulationService.LoanBranch) {
		return
	}
	if err := c.circulationService.DeleteLoan(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// RenewLoan handles extending an open loan
// @Summary Renew book loan
// @Tags book-loans
// @Security BearerAuth
// @Produce json
// @Param id path int true "Loan ID"
// @Success 200 {object} dto.APIResponse{data=dto.BookLoanResponse}
// @Failure 409 {object} dto.ErrorResponse "Loan already returned"
// @Failure 422 {object} dto.ErrorResponse "Renewal limit reached"
// @Router /admin/book-loans/{id}/renew [post]
func (c *CirculationController) RenewLoan(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if !authorizeStored(ctx, id, c.circulationService.LoanBranch) {
		return
	}
	loan, err := c.circulationService.RenewLoan(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, dto.NewBookLoanResponse(loan), "Loan renewed")
}

// ReturnLoan handles taking a copy back and advancing the waitlist
// @Summary Return book loan
// @Tags book-loans
// @Security BearerAuth
// @Produce json
// @Param id path int true "Loan ID"
// @Success 200 {object} dto.APIResponse{data=dto.BookLoanResponse}
// @Failure 409 {object} dto.ErrorResponse "Loan already returned"
// @Router /admin/book-loans/{id}/return [post]
func (c *CirculationController) ReturnLoan(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if !authorizeStored(ctx, id, c.circulationService.LoanBranch) {
		return
	}
	loan, err := c.circulationService.ReturnLoan(ctx.Request.Context(), id, middleware.CurrentUserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, dto.NewBookLoanResponse(loan), "Book returned")
}

// Sweep handles a manual overdue and pickup-expiry pass
// @Summary Run the overdue sweep
// @Tags book-loans
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.APIResponse{data=services.SweepResult}
// @Router /admin/book-loans/sweep [post]
func (c *CirculationController) Sweep(ctx *gin.Context) {
	result, err := c.circulationService.Sweep(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, result, "Sweep completed")
}
