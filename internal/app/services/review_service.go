package services

import (
	"context"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
)

type reviewStore interface {
	Create(ctx context.Context, r *models.BookReview) error
	GetByID(ctx context.Context, id int64) (*models.BookReview, error)
	List(ctx context.Context, f repositories.BookReviewFilter) ([]*models.BookReview, repositories.PageInfo, error)
	Update(ctx context.Context, r *models.BookReview) error
	SetApproved(ctx context.Context, id int64, approved bool) error
	Delete(ctx context.Context, id int64) error
}

// ReviewService moderates book reviews
type ReviewService struct {
	reviews reviewStore
}

// NewReviewService creates a new review service instance
func NewReviewService(reviews reviewStore) *ReviewService {
	return &ReviewService{reviews: reviews}
}

func validateReview(r *models.BookReview) error {
	if !models.ValidRating(r.Rating) {
		return apperrors.NewValidationError("rating", "rating must be between 1 and 5")
	}
	return nil
}

func (s *ReviewService) Create(ctx context.Context, r *models.BookReview) error {
	if err := validateReview(r); err != nil {
		return err
	}
	return s.reviews.Create(ctx, r)
}

func (s *ReviewService) Get(ctx context.Context, id int64) (*models.BookReview, error) {
	return s.reviews.GetByID(ctx, id)
}

func (s *ReviewService) List(ctx context.Context, f repositories.BookReviewFilter) ([]*models.BookReview, repositories.PageInfo, error) {
	return s.reviews.List(ctx, f)
}

func (s *ReviewService) Update(ctx context.Context, id int64, r *models.BookReview) error {
	if err := validateReview(r); err != nil {
		return err
	}
	r.ID = id
	return s.reviews.Update(ctx, r)
}

// Approve publishes a review
func (s *ReviewService) Approve(ctx context.Context, id int64) (*models.BookReview, error) {
	if err := s.reviews.SetApproved(ctx, id, true); err != nil {
		return nil, err
	}
	return s.reviews.GetByID(ctx, id)
}

func (s *ReviewService) Delete(ctx context.Context, id int64) error {
	return s.reviews.Delete(ctx, id)
}
