package services

import (
	"context"
	"errors"
	"mime/multipart"
	"testing"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestUpdateCategory_RejectsCycles(t *testing.T) {
	// 1 <- 2 <- 3
	cats := &fakeCategories{parents: map[int64]*int64{2: int64Ptr(1), 3: int64Ptr(2)}}
	svc := NewCatalogService(nil, cats, nil, nil, nil, nil)
	ctx := context.Background()

	err := svc.UpdateCategory(ctx, 1, &models.Category{Name: "root", ParentID: int64Ptr(1)})
	assert.ErrorIs(t, err, apperrors.ErrCategoryCycle)

	err = svc.UpdateCategory(ctx, 1, &models.Category{Name: "root", ParentID: int64Ptr(3)})
	assert.ErrorIs(t, err, apperrors.ErrCategoryCycle)
	assert.Empty(t, cats.updated)

	require.NoError(t, svc.UpdateCategory(ctx, 3, &models.Category{Name: "leaf", ParentID: int64Ptr(1)}))
	require.Len(t, cats.updated, 1)
	assert.Equal(t, int64(3), cats.updated[0].ID)

	require.NoError(t, svc.UpdateCategory(ctx, 2, &models.Category{Name: "detached"}))
}

func TestUploadCover_ReplacesPreviousFile(t *testing.T) {
	books := newFakeBooks(&models.Book{ID: 7, Title: "War and Peace", CoverImage: "covers/old.jpg"})
	storage := &fakeStorage{}
	svc := NewCatalogService(nil, nil, books, nil, nil, storage)

	resp, err := svc.UploadCover(context.Background(), 7, &multipart.FileHeader{Filename: "new.png", Size: 1024})
	require.NoError(t, err)

	assert.Equal(t, int64(7), resp.BookID)
	assert.Equal(t, "covers/stored-new.png", resp.CoverImage)
	assert.Equal(t, "http://cdn/covers/stored-new.png", resp.CoverURL)
	assert.Equal(t, []string{"covers/old.jpg"}, storage.deleted)
	assert.Equal(t, "covers/stored-new.png", books.byID[7].CoverImage)
}

func TestUploadCover_RemovesNewFileWhenBookMissing(t *testing.T) {
	books := newFakeBooks()
	books.failSet = apperrors.ErrResourceNotFound
	storage := &fakeStorage{}
	svc := NewCatalogService(nil, nil, books, nil, nil, storage)

	_, err := svc.UploadCover(context.Background(), 99, &multipart.FileHeader{Filename: "c.jpg", Size: 10})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	assert.Equal(t, storage.saved, storage.deleted)
}

func TestUploadCover_ValidatesImage(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewCatalogService(nil, nil, newFakeBooks(), nil, nil, storage)

	_, err := svc.UploadCover(context.Background(), 1, &multipart.FileHeader{Filename: "notes.pdf", Size: 10})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Empty(t, storage.saved)
}

func TestDeleteBook_RemovesCover(t *testing.T) {
	books := newFakeBooks(&models.Book{ID: 3, CoverImage: "covers/a.jpg"}, &models.Book{ID: 4})
	storage := &fakeStorage{}
	svc := NewCatalogService(nil, nil, books, nil, nil, storage)

	require.NoError(t, svc.DeleteBook(context.Background(), 3))
	require.NoError(t, svc.DeleteBook(context.Background(), 4))

	assert.Equal(t, []int64{3, 4}, books.deleted)
	assert.Equal(t, []string{"covers/a.jpg"}, storage.deleted)

	err := svc.DeleteBook(context.Background(), 3)
	assert.True(t, errors.Is(err, apperrors.ErrResourceNotFound))
}

func TestUpdateBook_PassesLinksThrough(t *testing.T) {
	books := newFakeBooks(&models.Book{ID: 5, Title: "Old"})
	svc := NewCatalogService(nil, nil, books, nil, nil, &fakeStorage{})

	authors := []int64{1, 2}
	b, err := svc.UpdateBook(context.Background(), 5, &models.Book{Title: "New"}, repositories.BookLinks{AuthorIDs: &authors})
	require.NoError(t, err)

	assert.Equal(t, "New", b.Title)
	require.Len(t, books.saved, 1)
	assert.Equal(t, &authors, books.saved[0].AuthorIDs)
	assert.Nil(t, books.saved[0].CategoryIDs)
}
