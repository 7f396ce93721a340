package dto

import "github.com/biblioteka/backend/internal/app/models"

// AuthorRequest creates or replaces an author
type AuthorRequest struct {
	FullName  string `json:"fullName" binding:"required,max=200"`
	BirthYear *int   `json:"birthYear" binding:"omitempty,min=1,max=3000"`
	Country   string `json:"country" binding:"max=100"`
}

// ToModel converts the request into an author
func (r *AuthorRequest) ToModel() *models.Author {
	return &models.Author{FullName: r.FullName, BirthYear: r.BirthYear, Country: r.Country}
}

// CategoryRequest creates or replaces a category
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	ParentID    *int64 `json:"parentId" binding:"omitempty,min=1"`
	Description string `json:"description"`
}

// ToModel converts the request into a category
func (r *CategoryRequest) ToModel() *models.Category {
	return &models.Category{Name: r.Name, ParentID: r.ParentID, Description: r.Description}
}

// BookRequest creates or replaces a book. AuthorIDs and CategoryIDs, when
// present, replace the book's links.
type BookRequest struct {
	ISBN            *string  `json:"isbn" binding:"omitempty,isbnlike" example:"978-5-17-090831-8"`
	Title           string   `json:"title" binding:"required,max=300"`
	PublicationYear *int     `json:"publicationYear" binding:"omitempty,min=1,max=3000"`
	Language        string   `json:"language" binding:"max=50"`
	Description     string   `json:"description"`
	Pages           *int     `json:"pages" binding:"omitempty,min=1"`
	PriceCents      *int64   `json:"priceCents" binding:"omitempty,min=0"`
	AuthorIDs       *[]int64 `json:"authorIds" binding:"omitempty,dive,min=1"`
	CategoryIDs     *[]int64 `json:"categoryIds" binding:"omitempty,dive,min=1"`
}

// ToModel converts the request into a book
func (r *BookRequest) ToModel() *models.Book {
	b := &models.Book{
		ISBN:            r.ISBN,
		Title:           r.Title,
		PublicationYear: r.PublicationYear,
		Language:        r.Language,
		Description:     r.Description,
		Pages:           r.Pages,
		PriceCents:      models.DefaultBookPriceCents,
	}
	if r.PriceCents != nil {
		b.PriceCents = *r.PriceCents
	}
	if b.Language == "" {
		b.Language = "Russian"
	}
	return b
}

// BookAuthorRequest links a book to an author
type BookAuthorRequest struct {
	BookID   int64 `json:"bookId" binding:"required,min=1"`
	AuthorID int64 `json:"authorId" binding:"required,min=1"`
}

// BookCategoryRequest links a book to a category
type BookCategoryRequest struct {
	BookID     int64 `json:"bookId" binding:"required,min=1"`
	CategoryID int64 `json:"categoryId" binding:"required,min=1"`
}

// BookResponse adds computed fields to a book
type BookResponse struct {
	models.Book
	AuthorsDisplay  string `json:"authorsDisplay" example:"Leo Tolstoy"`
	AvailableCopies int    `json:"availableCopies" example:"3"`
	IsAvailable     bool   `json:"isAvailable"`
}

// NewBookResponse builds the response from a loaded book
func NewBookResponse(b *models.Book) BookResponse {
	return BookResponse{
		Book:            *b,
		AuthorsDisplay:  b.AuthorsDisplay(),
		AvailableCopies: b.AvailableCopies(),
		IsAvailable:     b.IsAvailable(),
	}
}

// CoverUploadResponse is returned after a cover upload
type CoverUploadResponse struct {
	BookID     int64  `json:"bookId"`
	CoverImage string `json:"coverImage" example:"covers/2f1c5c1e.jpg"`
	CoverURL   string `json:"coverUrl" example:"http://localhost:8080/uploads/covers/2f1c5c1e.jpg"`
}
