package controllers

import (
	"net/http"

	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/app/services"
	"github.com/biblioteka/backend/internal/middleware"
	"github.com/biblioteka/backend/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
)

// ReviewController handles review moderation
type ReviewController struct {
	reviewService *services.ReviewService
}

// NewReviewController creates a new ReviewController
func NewReviewController(reviewService *services.ReviewService) *ReviewController {
	return &ReviewController{reviewService: reviewService}
}

// ListReviews handles listing reviews
// @Summary List book reviews
// @Tags book-reviews
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search in review text"
// @Param rating query int false "Filter by rating (1-5)"
// @Param isApproved query bool false "Filter by approval"
// @Param bookId query int false "Filter by book"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.BookReview}}
// @Router /admin/book-reviews [get]
func (c *ReviewController) ListReviews(ctx *gin.Context) {
	reviews, page, err := c.reviewService.List(ctx.Request.Context(), repositories.BookReviewFilter{
		ListParams: listParams(ctx),
		Rating:     optionalInt(ctx, "rating"),
		IsApproved: helpers.OptionalBoolQuery(ctx, "isApproved"),
		BookID:     helpers.OptionalInt64Query(ctx, "bookId"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, reviews, page)
}

// GetReview handles retrieving one review
// @Summary Get book review by ID
// @Tags book-reviews
// @Security BearerAuth
// @Produce json
// @Param id path int true "Review ID"
// @Success 200 {object} dto.APIResponse{data=models.BookReview}
// @Failure 404 {object} dto.ErrorResponse "Review not found"
// @Router /admin/book-reviews/{id} [get]
func (c *ReviewController) GetReview(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	review, err := c.reviewService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, review, "")
}

// CreateReview handles adding a review
// @Summary Create book review
// @Tags book-reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BookReviewRequest true "Review"
// @Success 201 {object} dto.APIResponse{data=models.BookReview}
// @Failure 400 {object} dto.ErrorResponse "Rating out of range"
// @Failure 409 {object} dto.ErrorResponse "User already reviewed this book"
// @Router /admin/book-reviews [post]
func (c *ReviewController) CreateReview(ctx *gin.Context) {
	var req dto.BookReviewRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	review := req.ToModel()
	if err := c.reviewService.Create(ctx.Request.Context(), review); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, review, "Review created successfully")
}

// UpdateReview handles replacing a review
// @Summary Update book review
// @Tags book-reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Review ID"
// @Param request body dto.BookReviewRequest true "Review"
// @Success 200 {object} dto.APIResponse{data=models.BookReview}
// @Router /admin/book-reviews/{id} [put]
func (c *ReviewController) UpdateReview(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.BookReviewRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	review := req.ToModel()
	if err := c.reviewService.Update(ctx.Request.Context(), id, review); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, review, "Review updated successfully")
}

// ApproveReview handles publishing a review
// @Summary Approve book review
// @Tags book-reviews
// @Security BearerAuth
// @Produce json
// @Param id path int true "Review ID"
// @Success 200 {object} dto.APIResponse{data=models.BookReview}
// @Router /admin/book-reviews/{id}/approve [post]
func (c *ReviewController) ApproveReview(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	review, err := c.reviewService.Approve(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, review, "Review approved")
}

// DeleteReview handles removing a review
// @Summary Delete book review
// @Tags book-reviews
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 204
// @Router /admin/book-reviews/{id} [delete]
func (c *ReviewController) DeleteReview(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.reviewService.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}
