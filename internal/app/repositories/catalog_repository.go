package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/db"
	"github.com/biblioteka/backend/internal/pkg/dberrors"
	"github.com/jackc/pgx/v5"
)

const authorColumns = "a.id, a.full_name, a.birth_year, a.country, a.created_at"

// AuthorRepository handles authors
type AuthorRepository struct {
	db *db.PostgresDB
}

// NewAuthorRepository creates a new author repository
func NewAuthorRepository(database *db.PostgresDB) *AuthorRepository {
	return &AuthorRepository{db: database}
}

// AuthorFilter mirrors the admin list filters
type AuthorFilter struct {
	ListParams
	Country string
}

func scanAuthor(row rowScanner) (*models.Author, error) {
	var a models.Author
	if err := row.Scan(&a.ID, &a.FullName, &a.BirthYear, &a.Country, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an author
func (r *AuthorRepository) Create(ctx context.Context, a *models.Author) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("authors").
		Columns("full_name", "birth_year", "country").
		Values(a.FullName, a.BirthYear, a.Country).
		Suffix("RETURNING id, created_at"), "author", &a.ID, &a.CreatedAt)
}

// GetByID loads an author
func (r *AuthorRepository) GetByID(ctx context.Context, id int64) (*models.Author, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(authorColumns).From("authors a").Where(squirrel.Eq{"a.id": id}), "author", scanAuthor)
}

// List returns one page of authors
func (r *AuthorRepository) List(ctx context.Context, f AuthorFilter) ([]*models.Author, PageInfo, error) {
	base := sb.Select().From("authors a")
	if f.Country != "" {
		base = base.Where(squirrel.Eq{"a.country": f.Country})
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "a.full_name", "a.country"))
	}
	order := orderClause(f.ListParams, map[string]string{"fullName": "a.full_name", "createdAt": "a.created_at"}, "a.full_name ASC")
	return fetchPage(ctx, r.db.Pool, base, []string{authorColumns}, order, f.ListParams, "author", scanAuthor)
}

// Update replaces an author's columns
func (r *AuthorRepository) Update(ctx context.Context, a *models.Author) error {
	return execAffectingOne(ctx, r.db.Pool, sb.Update("authors").
		Set("full_name", a.FullName).
		Set("birth_year", a.BirthYear).
		Set("country", a.Country).
		Where(squirrel.Eq{"id": a.ID}), "author")
}

// Delete removes an author
func (r *AuthorRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "authors", id, "author")
}

const categoryColumns = "c.id, c.name, c.parent_id, c.description, c.created_at"

// CategoryRepository handles the category tree
type CategoryRepository struct {
	db *db.PostgresDB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(database *db.PostgresDB) *CategoryRepository {
	return &CategoryRepository{db: database}
}

// CategoryFilter mirrors the admin list filters
type CategoryFilter struct {
	ListParams
	ParentID *int64
	RootOnly bool
}

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.ParentID, &c.Description, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a category
func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("categories").
		Columns("name", "parent_id", "description").
		Values(c.Name, c.ParentID, c.Description).
		Suffix("RETURNING id, created_at"), "category", &c.ID, &c.CreatedAt)
}

// GetByID loads a category
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(categoryColumns).From("categories c").Where(squirrel.Eq{"c.id": id}), "category", scanCategory)
}

// List returns one page of categories
func (r *CategoryRepository) List(ctx context.Context, f CategoryFilter) ([]*models.Category, PageInfo, error) {
	base := sb.Select().From("categories c")
	if f.ParentID != nil {
		base = base.Where(squirrel.Eq{"c.parent_id": *f.ParentID})
	} else if f.RootOnly {
		base = base.Where(squirrel.Eq{"c.parent_id": nil})
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "c.name", "c.description"))
	}
	order := orderClause(f.ListParams, map[string]string{"name": "c.name", "createdAt": "c.created_at"}, "c.name ASC")
	return fetchPage(ctx, r.db.Pool, base, []string{categoryColumns}, order, f.ListParams, "category", scanCategory)
}

// AncestorIDs walks the parent chain starting at id, id included
func (r *CategoryRepository) AncestorIDs(ctx context.Context, id int64) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `
		WITH RECURSIVE chain AS (
			SELECT id, parent_id FROM categories WHERE id = $1
			UNION
			SELECT c.id, c.parent_id FROM categories c JOIN chain ON c.id = chain.parent_id
		)
		SELECT id FROM chain`, id)
	if err != nil {
		return nil, dberrors.Translate(err, "category")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, dberrors.Translate(err, "category")
	}
	return ids, nil
}

// Update replaces a category's columns
func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	return execAffectingOne(ctx, r.db.Pool, sb.Update("categories").
		Set("name", c.Name).
		Set("parent_id", c.ParentID).
		Set("description", c.Description).
		Where(squirrel.Eq{"id": c.ID}), "category")
}

// Delete removes a category and its subtree
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "categories", id, "category")
}

const bookColumns = "bk.id, bk.isbn, bk.title, bk.publication_year, bk.language, bk.description, bk.cover_image, bk.pages, bk.price_cents, bk.created_at"

// BookRepository handles catalog titles and their links
type BookRepository struct {
	db *db.PostgresDB
}

// NewBookRepository creates a new book repository
func NewBookRepository(database *db.PostgresDB) *BookRepository {
	return &BookRepository{db: database}
}

// BookFilter mirrors the admin list filters
type BookFilter struct {
	ListParams
	Language        string
	PublicationYear *int
	AuthorID        *int64
	CategoryID      *int64
}

// BookLinks optionally replaces a book's author and category links on save
type BookLinks struct {
	AuthorIDs   *[]int64
	CategoryIDs *[]int64
}

func scanBook(row rowScanner) (*models.Book, error) {
	var b models.Book
	err := row.Scan(&b.ID, &b.ISBN, &b.Title, &b.PublicationYear, &b.Language, &b.Description, &b.CoverImage, &b.Pages, &b.PriceCents, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Save inserts or updates a book and replaces the requested links atomically
func (r *BookRepository) Save(ctx context.Context, b *models.Book, links BookLinks) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if b.ID == 0 {
			if err := insertReturning(ctx, tx, sb.Insert("books").
				Columns("isbn", "title", "publication_year", "language", "description", "cover_image", "pages", "price_cents").
				Values(b.ISBN, b.Title, b.PublicationYear, b.Language, b.Description, b.CoverImage, b.Pages, b.PriceCents).
				Suffix("RETURNING id, created_at"), "book", &b.ID, &b.CreatedAt); err != nil {
				return err
			}
		} else if err := execAffectingOne(ctx, tx, sb.Update("books").SetMap(map[string]interface{}{
			"isbn":             b.ISBN,
			"title":            b.Title,
			"publication_year": b.PublicationYear,
			"language":         b.Language,
			"description":      b.Description,
			"pages":            b.Pages,
			"price_cents":      b.PriceCents,
		}).Where(squirrel.Eq{"id": b.ID}), "book"); err != nil {
			return err
		}

		if links.AuthorIDs != nil {
			if err := replaceLinks(ctx, tx, "book_authors", "author_id", b.ID, *links.AuthorIDs, "book author"); err != nil {
				return err
			}
		}
		if links.CategoryIDs != nil {
			if err := replaceLinks(ctx, tx, "book_categories", "category_id", b.ID, *links.CategoryIDs, "book category"); err != nil {
				return err
			}
		}
		return nil
	})
}

func replaceLinks(ctx context.Context, tx pgx.Tx, table, column string, bookID int64, ids []int64, entity string) error {
	sqlStr, args, err := sb.Delete(table).Where(squirrel.Eq{"book_id": bookID}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
		return dberrors.Translate(err, entity)
	}
	if len(ids) == 0 {
		return nil
	}

	insert := sb.Insert(table).Columns("book_id", column).Suffix("ON CONFLICT DO NOTHING")
	for _, id := range ids {
		insert = insert.Values(bookID, id)
	}
	sqlStr, args, err = insert.ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
		return dberrors.Translate(err, entity)
	}
	return nil
}

// GetByID loads a book with authors, categories and copies
func (r *BookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	b, err := fetchOne(ctx, r.db.Pool, sb.Select(bookColumns).From("books bk").Where(squirrel.Eq{"bk.id": id}), "book", scanBook)
	if err != nil {
		return nil, err
	}
	if err := r.attachRelations(ctx, []*models.Book{b}, true); err != nil {
		return nil, err
	}
	return b, nil
}

// List returns one page of books with authors and copies attached
func (r *BookRepository) List(ctx context.Context, f BookFilter) ([]*models.Book, PageInfo, error) {
	base := sb.Select().From("books bk")
	if f.Language != "" {
		base = base.Where(squirrel.Eq{"bk.language": f.Language})
	}
	if f.PublicationYear != nil {
		base = base.Where(squirrel.Eq{"bk.publication_year": *f.PublicationYear})
	}
	if f.AuthorID != nil {
		base = base.Where("EXISTS (SELECT 1 FROM book_authors ba WHERE ba.book_id = bk.id AND ba.author_id = ?)", *f.AuthorID)
	}
	if f.CategoryID != nil {
		base = base.Where("EXISTS (SELECT 1 FROM book_categories bc WHERE bc.book_id = bk.id AND bc.category_id = ?)", *f.CategoryID)
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "bk.title", "bk.isbn", "bk.description"))
	}
	order := orderClause(f.ListParams, map[string]string{"title": "bk.title", "publicationYear": "bk.publication_year", "createdAt": "bk.created_at"}, "bk.title ASC")

	books, page, err := fetchPage(ctx, r.db.Pool, base, []string{bookColumns}, order, f.ListParams, "book", scanBook)
	if err != nil {
		return nil, PageInfo{}, err
	}
	if err := r.attachRelations(ctx, books, false); err != nil {
		return nil, PageInfo{}, err
	}
	return books, page, nil
}

// attachRelations batch-loads links for books; categories only when full is set
func (r *BookRepository) attachRelations(ctx context.Context, books []*models.Book, full bool) error {
	if len(books) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Book, len(books))
	ids := make([]int64, 0, len(books))
	for _, b := range books {
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	type bookAuthor struct {
		bookID int64
		author models.Author
	}
	authors, err := fetchAll(ctx, r.db.Pool, sb.Select("ba.book_id", authorColumns).From("book_authors ba").
		Join("authors a ON a.id = ba.author_id").
		Where(squirrel.Eq{"ba.book_id": ids}).OrderBy("ba.id"), "book author",
		func(row rowScanner) (*bookAuthor, error) {
			var x bookAuthor
			a := &x.author
			err := row.Scan(&x.bookID, &a.ID, &a.FullName, &a.BirthYear, &a.Country, &a.CreatedAt)
			return &x, err
		})
	if err != nil {
		return err
	}
	for _, x := range authors {
		byID[x.bookID].Authors = append(byID[x.bookID].Authors, x.author)
	}

	copies, err := fetchAll(ctx, r.db.Pool, sb.Select(copyColumns).From("book_copies bc").
		Where(squirrel.Eq{"bc.book_id": ids}).OrderBy("bc.id"), "book copy", scanBookCopy)
	if err != nil {
		return err
	}
	for _, c := range copies {
		byID[c.BookID].Copies = append(byID[c.BookID].Copies, *c)
	}

	if !full {
		return nil
	}

	type bookCategory struct {
		bookID   int64
		category models.Category
	}
	categories, err := fetchAll(ctx, r.db.Pool, sb.Select("bcat.book_id", categoryColumns).From("book_categories bcat").
		Join("categories c ON c.id = bcat.category_id").
		Where(squirrel.Eq{"bcat.book_id": ids}).OrderBy("bcat.id"), "book category",
		func(row rowScanner) (*bookCategory, error) {
			var x bookCategory
			c := &x.category
			err := row.Scan(&x.bookID, &c.ID, &c.Name, &c.ParentID, &c.Description, &c.CreatedAt)
			return &x, err
		})
	if err != nil {
		return err
	}
	for _, x := range categories {
		byID[x.bookID].Categories = append(byID[x.bookID].Categories, x.category)
	}
	return nil
}

// SetCover stores the cover path and returns the previous one
func (r *BookRepository) SetCover(ctx context.Context, id int64, path string) (string, error) {
	var previous string
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT cover_image FROM books WHERE id = $1 FOR UPDATE`, id).Scan(&previous); err != nil {
			return dberrors.Translate(err, "book")
		}
		return execAffectingOne(ctx, tx, sb.Update("books").Set("cover_image", path).Where(squirrel.Eq{"id": id}), "book")
	})
	return previous, err
}

// Delete removes a book with its copies and links
func (r *BookRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "books", id, "book")
}

const bookAuthorColumns = "ba.id, ba.book_id, ba.author_id, ba.created_at"

// BookAuthorRepository handles book-author links
type BookAuthorRepository struct {
	db *db.PostgresDB
}

// NewBookAuthorRepository creates a new link repository
func NewBookAuthorRepository(database *db.PostgresDB) *BookAuthorRepository {
	return &BookAuthorRepository{db: database}
}

// LinkFilter narrows link lists
type LinkFilter struct {
	ListParams
	BookID  *int64
	OtherID *int64
}

func scanBookAuthor(row rowScanner) (*models.BookAuthor, error) {
	var l models.BookAuthor
	if err := row.Scan(&l.ID, &l.BookID, &l.AuthorID, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a link
func (r *BookAuthorRepository) Create(ctx context.Context, l *models.BookAuthor) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("book_authors").
		Columns("book_id", "author_id").Values(l.BookID, l.AuthorID).
		Suffix("RETURNING id, created_at"), "book author", &l.ID, &l.CreatedAt)
}

// GetByID loads a link
func (r *BookAuthorRepository) GetByID(ctx context.Context, id int64) (*models.BookAuthor, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(bookAuthorColumns).From("book_authors ba").Where(squirrel.Eq{"ba.id": id}), "book author", scanBookAuthor)
}

// List returns one page of links
func (r *BookAuthorRepository) List(ctx context.Context, f LinkFilter) ([]*models.BookAuthor, PageInfo, error) {
	base := sb.Select().From("book_authors ba").
		Join("books bk ON bk.id = ba.book_id").
		Join("authors a ON a.id = ba.author_id")
	if f.BookID != nil {
		base = base.Where(squirrel.Eq{"ba.book_id": *f.BookID})
	}
	if f.OtherID != nil {
		base = base.Where(squirrel.Eq{"ba.author_id": *f.OtherID})
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "bk.title", "a.full_name"))
	}
	return fetchPage(ctx, r.db.Pool, base, []string{bookAuthorColumns}, "ba.created_at DESC", f.ListParams, "book author", scanBookAuthor)
}

// Update repoints a link
func (r *BookAuthorRepository) Update(ctx context.Context, l *models.BookAuthor) error {
	return execAffectingOne(ctx, r.db.Pool, sb.Update("book_authors").
		Set("book_id", l.BookID).Set("author_id", l.AuthorID).
		Where(squirrel.Eq{"id": l.ID}), "book author")
}

// Delete removes a link
func (r *BookAuthorRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "book_authors", id, "book author")
}

const bookCategoryColumns = "bcat.id, bcat.book_id, bcat.category_id, bcat.created_at"

// BookCategoryRepository handles book-category links
type BookCategoryRepository struct {
	db *db.PostgresDB
}

// NewBookCategoryRepository creates a new link repository
func NewBookCategoryRepository(database *db.PostgresDB) *BookCategoryRepository {
	return &BookCategoryRepository{db: database}
}

func scanBookCategory(row rowScanner) (*models.BookCategory, error) {
	var l models.BookCategory
	if err := row.Scan(&l.ID, &l.BookID, &l.CategoryID, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a link
func (r *BookCategoryRepository) Create(ctx context.Context, l *models.BookCategory) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("book_categories").
		Columns("book_id", "category_id").Values(l.BookID, l.CategoryID).
		Suffix("RETURNING id, created_at"), "book category", &l.ID, &l.CreatedAt)
}

// GetByID loads a link
func (r *BookCategoryRepository) GetByID(ctx context.Context, id int64) (*models.BookCategory, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(bookCategoryColumns).From("book_categories bcat").Where(squirrel.Eq{"bcat.id": id}), "book category", scanBookCategory)
}

// List returns one page of links
func (r *BookCategoryRepository) List(ctx context.Context, f LinkFilter) ([]*models.BookCategory, PageInfo, error) {
	base := sb.Select().From("book_categories bcat").
		Join("books bk ON bk.id = bcat.book_id").
		Join("categories c ON c.id = bcat.category_id")
	if f.BookID != nil {
		base = base.Where(squirrel.Eq{"bcat.book_id": *f.BookID})
	}
	if f.OtherID != nil {
		base = base.Where(squirrel.Eq{"bcat.category_id": *f.OtherID})
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "bk.title", "c.name"))
	}
	return fetchPage(ctx, r.db.Pool, base, []string{bookCategoryColumns}, "bcat.created_at DESC", f.ListParams, "book category", scanBookCategory)
}

// Update repoints a link
func (r *BookCategoryRepository) Update(ctx context.Context, l *models.BookCategory) error {
	return execAffectingOne(ctx, r.db.Pool, sb.Update("book_categories").
		Set("book_id", l.BookID).Set("category_id", l.CategoryID).
		Where(squirrel.Eq{"id": l.ID}), "book category")
}

// Delete removes a link
func (r *BookCategoryRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "book_categories", id, "book category")
}
