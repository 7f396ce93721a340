package models

import (
	"strings"
	"time"
)

// DefaultBookPriceCents is the replacement price used when none is given
const DefaultBookPriceCents int64 = 50000

// Author of one or more books
type Author struct {
	ID        int64     `json:"id" db:"id"`
	FullName  string    `json:"fullName" db:"full_name" example:"Leo Tolstoy"`
	BirthYear *int      `json:"birthYear,omitempty" db:"birth_year" example:"1828"`
	Country   string    `json:"country" db:"country" example:"Russia"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Category forms a tree through ParentID
type Category struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	ParentID    *int64    `json:"parentId,omitempty" db:"parent_id"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Book is a catalog title; physical stock lives in BookCopy
type Book struct {
	ID              int64     `json:"id" db:"id"`
	ISBN            *string   `json:"isbn,omitempty" db:"isbn" example:"978-5-17-090831-8"`
	Title           string    `json:"title" db:"title" example:"War and Peace"`
	PublicationYear *int      `json:"publicationYear,omitempty" db:"publication_year"`
	Language        string    `json:"language" db:"language" example:"Russian"`
	Description     string    `json:"description" db:"description"`
	CoverImage      string    `json:"coverImage,omitempty" db:"cover_image"`
	Pages           *int      `json:"pages,omitempty" db:"pages"`
	PriceCents      int64     `json:"priceCents" db:"price_cents" example:"50000"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`

	Authors    []Author   `json:"authors,omitempty"`
	Categories []Category `json:"categories,omitempty"`
	Copies     []BookCopy `json:"copies,omitempty"`
}

// AuthorsDisplay joins author names for list views
func (b *Book) AuthorsDisplay() string {
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		if name := strings.TrimSpace(a.FullName); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "Not specified"
	}
	return strings.Join(names, ", ")
}

// AvailableCopies sums book_count over active copies
func (b *Book) AvailableCopies() int {
	total := 0
	for _, c := range b.Copies {
		if c.Status == CopyStatusActive {
			total += c.BookCount
		}
	}
	return total
}

// IsAvailable reports whether at least one active copy exists
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies() > 0
}

// BookAuthor links a book to an author
type BookAuthor struct {
	ID        int64     `json:"id" db:"id"`
	BookID    int64     `json:"bookId" db:"book_id"`
	AuthorID  int64     `json:"authorId" db:"author_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// BookCategory links a book to a category
type BookCategory struct {
	ID         int64     `json:"id" db:"id"`
	BookID     int64     `json:"bookId" db:"book_id"`
	CategoryID int64     `json:"categoryId" db:"category_id"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
