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

// FineController handles fines and their payment reconciliation
type FineController struct {
	fineService *services.FineService
}

// NewFineController creates a new FineController
func NewFineController(fineService *services.FineService) *FineController {
	return &FineController{fineService: fineService}
}

// ListFines handles listing fines
// @Summary List fines
// @Tags fines
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search by reason or username"
// @Param status query string false "Filter by status (unpaid, paid, cancelled)"
// @Param reason query string false "Filter by reason"
// @Param userId query int false "Filter by user"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Fine}}
// @Router /admin/fines [get]
func (c *FineController) ListFines(ctx *gin.Context) {
	fines, page, err := c.fineService.List(ctx.Request.Context(), repositories.FineFilter{
		ListParams: listParams(ctx),
		Status:     optionalEnum[models.FineStatus](ctx, "status"),
		Reason:     ctx.Query("reason"),
		UserID:     helpers.OptionalInt64Query(ctx, "userId"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, fines, page)
}

// GetFine handles retrieving one fine
// @Summary Get fine by ID
// @Tags fines
// @Security BearerAuth
// @Produce json
// @Param id path int true "Fine ID"
// @Success 200 {object} dto.APIResponse{data=models.Fine}
// @Failure 404 {object} dto.ErrorResponse "Fine not found"
// @Router /admin/fines/{id} [get]
func (c *FineController) GetFine(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	fine, err := c.fineService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, fine, "")
}

// CreateFine handles charging a fine
// @Summary Create fine
// @Tags fines
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.FineRequest true "Fine"
// @Success 201 {object} dto.APIResponse{data=models.Fine}
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Router /admin/fines [post]
func (c *FineController) CreateFine(ctx *gin.Context) {
	var req dto.FineRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	fine, err := c.fineService.Create(ctx.Request.Context(), req.ToModel())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, fine, "Fine created successfully")
}

// UpdateFine handles editing a fine; a status change settles the linked loan
// @Summary Update fine
// @Tags fines
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Fine ID"
// @Param request body dto.FineRequest true "Fine"
// @Success 200 {object} dto.APIResponse{data=models.Fine}
// @Failure 409 {object} dto.ErrorResponse "Status change not allowed"
// @Router /admin/fines/{id} [put]
func (c *FineController) UpdateFine(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.FineRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	fine, err := c.fineService.Update(ctx.Request.Context(), id, req.ToModel())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, fine, "Fine updated successfully")
}

// DeleteFine handles removing a fine
// @Summary Delete fine
// @Tags fines
// @Security BearerAuth
// @Param id path int true "Fine ID"
// @Success 204
// @Router /admin/fines/{id} [delete]
func (c *FineController) DeleteFine(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.fineService.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// PayFine handles recording a payment taken at the desk
// @Summary Mark fine paid
// @Tags fines
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Fine ID"
// @Param request body dto.PayFineRequest false "Gateway payment reference"
// @Success 200 {object} dto.APIResponse{data=models.Fine}
// @Failure 409 {object} dto.ErrorResponse "Fine already paid or cancelled"
// @Router /admin/fines/{id}/pay [post]
func (c *FineController) PayFine(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.PayFineRequest
	if ctx.Request.ContentLength != 0 && !middleware.BindJSON(ctx, &req) {
		return
	}
	fine, err := c.fineService.Pay(ctx.Request.Context(), id, req.YookassaPaymentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, fine, "Fine paid")
}

// CancelFine handles writing a fine off
// @Summary Cancel fine
// @Tags fines
// @Security BearerAuth
// @Produce json
// @Param id path int true "Fine ID"
// @Success 200 {object} dto.APIResponse{data=models.Fine}
// @Failure 409 {object} dto.ErrorResponse "Fine already paid"
// @Router /admin/fines/{id}/cancel [post]
func (c *FineController) CancelFine(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	fine, err := c.fineService.Cancel(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, fine, "Fine cancelled")
}

// ReconcileFine handles checking one fine against the payment gateway
// @Summary Reconcile fine with gateway
// @Tags fines
// @Security BearerAuth
// @Produce json
// @Param id path int true "Fine ID"
// @Success 200 {object} dto.APIResponse{data=dto.FineReconcileResponse}
// @Failure 400 {object} dto.ErrorResponse "Fine has no gateway payment"
// @Failure 502 {object} dto.ErrorResponse "Gateway error"
// @Failure 503 {object} dto.ErrorResponse "Gateway not configured"
// @Router /admin/fines/{id}/reconcile [post]
func (c *FineController) ReconcileFine(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	result, err := c.fineService.ReconcileFine(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, result, "")
}

// ReconcileAll handles a manual pass over every unpaid fine with a gateway payment
// @Summary Reconcile all fines
// @Tags fines
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ReconcileResult}
// @Failure 503 {object} dto.ErrorResponse "Gateway not configured"
// @Router /admin/fines/reconcile [post]
func (c *FineController) ReconcileAll(ctx *gin.Context) {
	result, err := c.fineService.ReconcileAll(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, result, "Reconcile completed")
}
