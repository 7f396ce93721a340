package services

import (
	"context"
	"mime/multipart"
	"slices"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/filestorage"
	"github.com/biblioteka/backend/internal/pkg/logger"
)

type authorStore interface {
	Create(ctx context.Context, a *models.Author) error
	GetByID(ctx context.Context, id int64) (*models.Author, error)
	List(ctx context.Context, f repositories.AuthorFilter) ([]*models.Author, repositories.PageInfo, error)
	Update(ctx context.Context, a *models.Author) error
	Delete(ctx context.Context, id int64) error
}

type categoryStore interface {
	Create(ctx context.Context, c *models.Category) error
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	List(ctx context.Context, f repositories.CategoryFilter) ([]*models.Category, repositories.PageInfo, error)
	AncestorIDs(ctx context.Context, id int64) ([]int64, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id int64) error
}

type bookStore interface {
	Save(ctx context.Context, b *models.Book, links repositories.BookLinks) error
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	List(ctx context.Context, f repositories.BookFilter) ([]*models.Book, repositories.PageInfo, error)
	SetCover(ctx context.Context, id int64, path string) (string, error)
	Delete(ctx context.Context, id int64) error
}

type bookAuthorStore interface {
	Create(ctx context.Context, l *models.BookAuthor) error
	GetByID(ctx context.Context, id int64) (*models.BookAuthor, error)
	List(ctx context.Context, f repositories.LinkFilter) ([]*models.BookAuthor, repositories.PageInfo, error)
	Update(ctx context.Context, l *models.BookAuthor) error
	Delete(ctx context.Context, id int64) error
}

type bookCategoryStore interface {
	Create(ctx context.Context, l *models.BookCategory) error
	GetByID(ctx context.Context, id int64) (*models.BookCategory, error)
	List(ctx context.Context, f repositories.LinkFilter) ([]*models.BookCategory, repositories.PageInfo, error)
	Update(ctx context.Context, l *models.BookCategory) error
	Delete(ctx context.Context, id int64) error
}

// CatalogService manages authors, categories, books and their links
type CatalogService struct {
	authors        authorStore
	categories     categoryStore
	books          bookStore
	bookAuthors    bookAuthorStore
	bookCategories bookCategoryStore
	storage        filestorage.FileStorage
}

// NewCatalogService creates a new catalog service instance
func NewCatalogService(authors authorStore, categories categoryStore, books bookStore,
	bookAuthors bookAuthorStore, bookCategories bookCategoryStore, storage filestorage.FileStorage) *CatalogService {
	return &CatalogService{
		authors:        authors,
		categories:     categories,
		books:          books,
		bookAuthors:    bookAuthors,
		bookCategories: bookCategories,
		storage:        storage,
	}
}

func (s *CatalogService) CreateAuthor(ctx context.Context, a *models.Author) error {
	return s.authors.Create(ctx, a)
}

func (s *CatalogService) GetAuthor(ctx context.Context, id int64) (*models.Author, error) {
	return s.authors.GetByID(ctx, id)
}

func (s *CatalogService) ListAuthors(ctx context.Context, f repositories.AuthorFilter) ([]*models.Author, repositories.PageInfo, error) {
	return s.authors.List(ctx, f)
}

func (s *CatalogService) UpdateAuthor(ctx context.Context, id int64, a *models.Author) error {
	a.ID = id
	return s.authors.Update(ctx, a)
}

func (s *CatalogService) DeleteAuthor(ctx context.Context, id int64) error {
	return s.authors.Delete(ctx, id)
}

func (s *CatalogService) CreateCategory(ctx context.Context, c *models.Category) error {
	return s.categories.Create(ctx, c)
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	return s.categories.GetByID(ctx, id)
}

func (s *CatalogService) ListCategories(ctx context.Context, f repositories.CategoryFilter) ([]*models.Category, repositories.PageInfo, error) {
	return s.categories.List(ctx, f)
}

// UpdateCategory replaces a category, refusing a parent that would close a loop
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, c *models.Category) error {
	c.ID = id
	if c.ParentID != nil {
		if *c.ParentID == id {
			return apperrors.ErrCategoryCycle
		}
		ancestors, err := s.categories.AncestorIDs(ctx, *c.ParentID)
		if err != nil {
			return err
		}
		if slices.Contains(ancestors, id) {
			return apperrors.ErrCategoryCycle
		}
	}
	return s.categories.Update(ctx, c)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return s.categories.Delete(ctx, id)
}

// CreateBook stores a book and, when given, its author and category links
func (s *CatalogService) CreateBook(ctx context.Context, b *models.Book, links repositories.BookLinks) (*models.Book, error) {
	b.ID = 0
	if err := s.books.Save(ctx, b, links); err != nil {
		return nil, err
	}
	return s.books.GetByID(ctx, b.ID)
}

// UpdateBook replaces a book's columns; links are replaced only when given
func (s *CatalogService) UpdateBook(ctx context.Context, id int64, b *models.Book, links repositories.BookLinks) (*models.Book, error) {
	b.ID = id
	if err := s.books.Save(ctx, b, links); err != nil {
		return nil, err
	}
	return s.books.GetByID(ctx, id)
}

func (s *CatalogService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	return s.books.GetByID(ctx, id)
}

func (s *CatalogService) ListBooks(ctx context.Context, f repositories.BookFilter) ([]*models.Book, repositories.PageInfo, error) {
	return s.books.List(ctx, f)
}

// DeleteBook removes the book and its stored cover
func (s *CatalogService) DeleteBook(ctx context.Context, id int64) error {
	b, err := s.books.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.books.Delete(ctx, id); err != nil {
		return err
	}
	s.removeCover(b.CoverImage)
	return nil
}

// UploadCover stores a new cover image and drops the previous file
func (s *CatalogService) UploadCover(ctx context.Context, id int64, file *multipart.FileHeader) (*dto.CoverUploadResponse, error) {
	if err := filestorage.ValidateImage(file); err != nil {
		return nil, err
	}
	path, err := s.storage.SaveFile(file, filestorage.CoversDir)
	if err != nil {
		return nil, err
	}
	previous, err := s.books.SetCover(ctx, id, path)
	if err != nil {
		s.removeCover(path)
		return nil, err
	}
	s.removeCover(previous)
	return &dto.CoverUploadResponse{BookID: id, CoverImage: path, CoverURL: s.storage.URL(path)}, nil
}

func (s *CatalogService) removeCover(path string) {
	if path == "" || s.storage == nil {
		return
	}
	if err := s.storage.DeleteFile(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to delete cover image")
	}
}

func (s *CatalogService) CreateBookAuthor(ctx context.Context, l *models.BookAuthor) error {
	return s.bookAuthors.Create(ctx, l)
}

func (s *CatalogService) GetBookAuthor(ctx context.Context, id int64) (*models.BookAuthor, error) {
	return s.bookAuthors.GetByID(ctx, id)
}

func (s *CatalogService) ListBookAuthors(ctx context.Context, f repositories.LinkFilter) ([]*models.BookAuthor, repositories.PageInfo, error) {
	return s.bookAuthors.List(ctx, f)
}

func (s *CatalogService) UpdateBookAuthor(ctx context.Context, id int64, l *models.BookAuthor) error {
	l.ID = id
	return s.bookAuthors.Update(ctx, l)
}

func (s *CatalogService) DeleteBookAuthor(ctx context.Context, id int64) error {
	return s.bookAuthors.Delete(ctx, id)
}

func (s *CatalogService) CreateBookCategory(ctx context.Context, l *models.BookCategory) error {
	return s.bookCategories.Create(ctx, l)
}

func (s *CatalogService) GetBookCategory(ctx context.Context, id int64) (*models.BookCategory, error) {
	return s.bookCategories.GetByID(ctx, id)
}

func (s *CatalogService) ListBookCategories(ctx context.Context, f repositories.LinkFilter) ([]*models.BookCategory, repositories.PageInfo, error) {
	return s.bookCategories.List(ctx, f)
}

func (s *CatalogService) UpdateBookCategory(ctx context.Context, id int64, l *models.BookCategory) error {
	l.ID = id
	return s.bookCategories.Update(ctx, l)
}

func (s *CatalogService) DeleteBookCategory(ctx context.Context, id int64) error {
	return s.bookCategories.Delete(ctx, id)
}
