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

// QueueController handles the per-book waitlist
type QueueController struct {
	queueService *services.QueueService
}

// NewQueueController creates a new QueueController
func NewQueueController(queueService *services.QueueService) *QueueController {
	return &QueueController{queueService: queueService}
}

// authorizeEntry checks the route permission at the stored entry's branch
func (c *QueueController) authorizeEntry(ctx *gin.Context, id int64) bool {
	if !middleware.BranchScoped(ctx) {
		return true
	}
	entry, err := c.queueService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return false
	}
	return authorizeOptionalBranch(ctx, entry.BranchID)
}

// ListEntries handles listing waitlist entries in position order
// @Summary List queue entries
// @Tags book-queue
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status (waiting, notified, cancelled, completed)"
// @Param branchId query int false "Filter by branch"
// @Param bookId query int false "Filter by book"
// @Param userId query int false "Filter by user"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.BookQueue}}
// @Router /admin/book-queue [get]
func (c *QueueController) ListEntries(ctx *gin.Context) {
	entries, page, err := c.queueService.List(ctx.Request.Context(), repositories.BookQueueFilter{
		ListParams: listParams(ctx),
		Status:     optionalEnum[models.QueueStatus](ctx, "status"),
		BranchID:   helpers.OptionalInt64Query(ctx, "branchId"),
		BookID:     helpers.OptionalInt64Query(ctx, "bookId"),
		UserID:     helpers.OptionalInt64Query(ctx, "userId"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, entries, page)
}

// GetEntry handles retrieving one waitlist entry
// @Summary Get queue entry by ID
// @Tags book-queue
// @Security BearerAuth
// @Produce json
// @Param id path int true "Entry ID"
// @Success 200 {object} dto.APIResponse{data=models.BookQueue}
// @Failure 404 {object} dto.ErrorResponse "Entry not found"
// @Router /admin/book-queue/{id} [get]
func (c *QueueController) GetEntry(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	entry, err := c.queueService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, entry, "")
}

// JoinQueue handles putting a user at the end of a waitlist
// @Summary Join book queue
// @Tags book-queue
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BookQueueRequest true "Queue entry"
// @Success 201 {object} dto.APIResponse{data=models.BookQueue}
// @Failure 409 {object} dto.ErrorResponse "User already queued"
// @Router /admin/book-queue [post]
func (c *QueueController) JoinQueue(ctx *gin.Context) {
	var req dto.BookQueueRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	entry := req.ToModel()
	if !authorizeOptionalBranch(ctx, entry.BranchID) {
		return
	}
	if err := c.queueService.Join(ctx.Request.Context(), entry); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, entry, "Added to queue")
}

// UpdateEntry handles moving an entry to another book or branch; the position is kept
// @Summary Update queue entry
// @Tags book-queue
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Entry ID"
// @Param request body dto.BookQueueRequest true "Queue entry"
// @Success 200 {object} dto.APIResponse{data=models.BookQueue}
// @Router /admin/book-queue/{id} [put]
func (c *QueueController) UpdateEntry(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.BookQueueRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	update := req.ToModel()
	if !c.authorizeEntry(ctx, id) || !authorizeOptionalBranch(ctx, update.BranchID) {
		return
	}
	entry, err := c.queueService.Update(ctx.Request.Context(), id, update)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, entry, "Queue entry updated")
}

// SetEntryStatus handles an admin status edit
// @Summary Set queue entry status
// @Tags book-queue
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Entry ID"
// @Param request body dto.QueueStatusRequest true "Status"
// @Success 200 {object} dto.APIResponse{data=models.BookQueue}
// @Failure 409 {object} dto.ErrorResponse "Only waiting entries can be notified"
// @Router /admin/book-queue/{id}/status [patch]
func (c *QueueController) SetEntryStatus(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.QueueStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if !c.authorizeEntry(ctx, id) {
		return
	}
	entry, err := c.queueService.SetStatus(ctx.Request.Context(), id, req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, entry, "Queue entry updated")
}

// DeleteEntry handles leaving a waitlist
// @Summary Delete queue entry
// @Tags book-queue
// @Security BearerAuth
// @Param id path int true "Entry ID"
// @Success 204
// @Router /admin/book-queue/{id} [delete]
func (c *QueueController) DeleteEntry(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if !c.authorizeEntry(ctx, id) {
		return
	}
	if err := c.queueService.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// NotifyNext handles telling the first waiting reader that the book is available
// @Summary Notify next in queue
// @Tags book-queue
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.NotifyNextRequest true "Book and optional branch"
// @Success 200 {object} dto.APIResponse{data=models.BookQueue}
// @Failure 404 {object} dto.ErrorResponse "Nobody is waiting"
// @Router /admin/book-queue/notify-next [post]
func (c *QueueController) NotifyNext(ctx *gin.Context) {
	var req dto.NotifyNextRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if !authorizeOptionalBranch(ctx, req.BranchID) {
		return
	}
	entry, err := c.queueService.NotifyNext(ctx.Request.Context(), req.BookID, req.BranchID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, entry, "Reader notified")
}
