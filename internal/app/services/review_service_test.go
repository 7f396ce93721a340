package services

import (
	"context"
	"testing"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReviews struct {
	byID    map[int64]*models.BookReview
	created int
}

func (f *fakeReviews) Create(_ context.Context, r *models.BookReview) error {
	f.created++
	r.ID = int64(f.created)
	f.byID[r.ID] = r
	return nil
}

func (f *fakeReviews) GetByID(_ context.Context, id int64) (*models.BookReview, error) {
	if r, ok := f.byID[id]; ok {
		return r, nil
	}
	return nil, apperrors.ErrResourceNotFound
}

func (f *fakeReviews) List(context.Context, repositories.BookReviewFilter) ([]*models.BookReview, repositories.PageInfo, error) {
	return nil, repositories.PageInfo{}, nil
}

func (f *fakeReviews) Update(_ context.Context, r *models.BookReview) error {
	f.byID[r.ID] = r
	return nil
}

func (f *fakeReviews) SetApproved(_ context.Context, id int64, approved bool) error {
	r, ok := f.byID[id]
	if !ok {
		return apperrors.ErrResourceNotFound
	}
	r.IsApproved = approved
	return nil
}

func (f *fakeReviews) Delete(context.Context, int64) error { return nil }

func TestReviewRatingBounds(t *testing.T) {
	store := &fakeReviews{byID: map[int64]*models.BookReview{}}
	svc := NewReviewService(store)
	ctx := context.Background()

	for _, rating := range []int{0, 6, -1} {
		err := svc.Create(ctx, &models.BookReview{UserID: 1, BookID: 1, Rating: rating})
		assert.ErrorIs(t, err, apperrors.ErrValidationFailed, "rating %d", rating)
	}
	assert.Zero(t, store.created)

	require.NoError(t, svc.Create(ctx, &models.BookReview{UserID: 1, BookID: 1, Rating: 5}))
	assert.ErrorIs(t, svc.Update(ctx, 1, &models.BookReview{Rating: 9}), apperrors.ErrValidationFailed)
}

func TestApprove(t *testing.T) {
	store := &fakeReviews{byID: map[int64]*models.BookReview{2: {ID: 2, Rating: 4}}}
	svc := NewReviewService(store)

	r, err := svc.Approve(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, r.IsApproved)

	_, err = svc.Approve(context.Background(), 3)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}
