package controllers

import (
	"net/http"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/app/services"
	"github.com/biblioteka/backend/internal/middleware"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
)

// CatalogController handles authors, categories, books and their links
type CatalogController struct {
	catalogService *services.CatalogService
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(catalogService *services.CatalogService) *CatalogController {
	return &CatalogController{catalogService: catalogService}
}

// ListAuthors handles listing authors
// @Summary List authors
// @Tags authors
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search by name or country"
// @Param country query string false "Filter by country"
// @Param sortBy query string false "Sort field (fullName, birthYear, createdAt)"
// @Param sortOrder query string false "Sort order (ASC, DESC)"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Author}}
// @Router /admin/authors [get]
func (c *CatalogController) ListAuthors(ctx *gin.Context) {
	authors, page, err := c.catalogService.ListAuthors(ctx.Request.Context(), repositories.AuthorFilter{
		ListParams: listParams(ctx),
		Country:    ctx.Query("country"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, authors, page)
}

// GetAuthor handles retrieving one author
// @Summary Get author by ID
// @Tags authors
// @Security BearerAuth
// @Produce json
// @Param id path int true "Author ID"
// @Success 200 {object} dto.APIResponse{data=models.Author}
// @Failure 404 {object} dto.ErrorResponse "Author not found"
// @Router /admin/authors/{id} [get]
func (c *CatalogController) GetAuthor(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	author, err := c.catalogService.GetAuthor(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, author, "")
}

// CreateAuthor handles adding an author
// @Summary Create author
// @Tags authors
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.AuthorRequest true "Author"
// @Success 201 {object} dto.APIResponse{data=models.Author}
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Router /admin/authors [post]
func (c *CatalogController) CreateAuthor(ctx *gin.Context) {
	var req dto.AuthorRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	author := req.ToModel()
	if err := c.catalogService.CreateAuthor(ctx.Request.Context(), author); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, author, "Author created successfully")
}

// UpdateAuthor handles replacing an author
// @Summary Update author
// @Tags authors
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Author ID"
// @Param request body dto.AuthorRequest true "Author"
// @Success 200 {object} dto.APIResponse{data=models.Author}
// @Router /admin/authors/{id} [put]
func (c *CatalogController) UpdateAuthor(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.AuthorRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	author := req.ToModel()
	if err := c.catalogService.UpdateAuthor(ctx.Request.Context(), id, author); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, author, "Author updated successfully")
}

// DeleteAuthor handles removing an author
// @Summary Delete author
// @Tags authors
// @Security BearerAuth
// @Param id path int true "Author ID"
// @Success 204
// @Router /admin/authors/{id} [delete]
func (c *CatalogController) DeleteAuthor(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.catalogService.DeleteAuthor(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// ListCategories handles listing categories
// @Summary List categories
// @Tags categories
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search by name"
// @Param parentId query int false "Filter by parent category"
// @Param rootOnly query bool false "Only top-level categories"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Category}}
// @Router /admin/categories [get]
func (c *CatalogController) ListCategories(ctx *gin.Context) {
	rootOnly := helpers.OptionalBoolQuery(ctx, "rootOnly")
	categories, page, err := c.catalogService.ListCategories(ctx.Request.Context(), repositories.CategoryFilter{
		ListParams: listParams(ctx),
		ParentID:   helpers.OptionalInt64Query(ctx, "parentId"),
		RootOnly:   rootOnly != nil && *rootOnly,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, categories, page)
}

// GetCategory handles retrieving one category
// @Summary Get category by ID
// @Tags categories
// @Security BearerAuth
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} dto.APIResponse{data=models.Category}
// @Failure 404 {object} dto.ErrorResponse "Category not found"
// @Router /admin/categories/{id} [get]
func (c *CatalogController) GetCategory(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	category, err := c.catalogService.GetCategory(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, category, "")
}

// CreateCategory handles adding a category
// @Summary Create category
// @Tags categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CategoryRequest true "Category"
// @Success 201 {object} dto.APIResponse{data=models.Category}
// @Failure 400 {object} dto.ErrorResponse "Unknown parent"
// @Router /admin/categories [post]
func (c *CatalogController) CreateCategory(ctx *gin.Context) {
	var req dto.CategoryRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	category := req.ToModel()
	if err := c.catalogService.CreateCategory(ctx.Request.Context(), category); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, category, "Category created successfully")
}

// UpdateCategory handles replacing a category
// @Summary Update category
// @Tags categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param request body dto.CategoryRequest true "Category"
// @Success 200 {object} dto.APIResponse{data=models.Category}
// @Failure 400 {object} dto.ErrorResponse "Parent would create a cycle"
// @Router /admin/categories/{id} [put]
func (c *CatalogController) UpdateCategory(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.CategoryRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	category := req.ToModel()
	if err := c.catalogService.UpdateCategory(ctx.Request.Context(), id, category); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, category, "Category updated successfully")
}

// DeleteCategory handles removing a category
// @Summary Delete category
// @Tags categories
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 204
// @Router /admin/categories/{id} [delete]
func (c *CatalogController) DeleteCategory(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.catalogService.DeleteCategory(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// ListBooks handles listing the catalog
// @Summary List books
// @Tags books
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search by title, ISBN or description"
// @Param language query string false "Filter by language"
// @Param publicationYear query int false "Filter by publication year"
// @Param authorId query int false "Filter by author"
// @Param categoryId query int false "Filter by category"
// @Param sortBy query string false "Sort field (title, publicationYear, createdAt)"
// @Param sortOrder query string false "Sort order (ASC, DESC)"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]dto.BookResponse}}
// @Router /admin/books [get]
func (c *CatalogController) ListBooks(ctx *gin.Context) {
	books, page, err := c.catalogService.ListBooks(ctx.Request.Context(), repositories.BookFilter{
		ListParams:      listParams(ctx),
		Language:        ctx.Query("language"),
		PublicationYear: optionalInt(ctx, "publicationYear"),
		AuthorID:        helpers.OptionalInt64Query(ctx, "authorId"),
		CategoryID:      helpers.OptionalInt64Query(ctx, "categoryId"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	items := make([]dto.BookResponse, 0, len(books))
	for _, b := range books {
		items = append(items, dto.NewBookResponse(b))
	}
	respondList(ctx, items, page)
}

// GetBook handles retrieving a book with its authors, categories and copies
// @Summary Get book by ID
// @Tags books
// @Security BearerAuth
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} dto.APIResponse{data=dto.BookResponse}
// @Failure 404 {object} dto.ErrorResponse "Book not found"
// @Router /admin/books/{id} [get]
func (c *CatalogController) GetBook(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	book, err := c.catalogService.GetBook(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, dto.NewBookResponse(book), "")
}

// CreateBook handles adding a book to the catalog
// @Summary Create book
// @Tags books
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BookRequest true "Book"
// @Success 201 {object} dto.APIResponse{data=dto.BookResponse}
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 409 {object} dto.ErrorResponse "ISBN already exists"
// @Router /admin/books [post]
func (c *CatalogController) CreateBook(ctx *gin.Context) {
	var req dto.BookRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	book, err := c.catalogService.CreateBook(ctx.Request.Context(), req.ToModel(), repositories.BookLinks{
		AuthorIDs:   req.AuthorIDs,
		CategoryIDs: req.CategoryIDs,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, dto.NewBookResponse(book), "Book created successfully")
}

// UpdateBook handles replacing a book; omitted authorIds/categoryIds keep the current links
// @Summary Update book
// @Tags books
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Param request body dto.BookRequest true "Book"
// @Success 200 {object} dto.APIResponse{data=dto.BookResponse}
// @Failure 404 {object} dto.ErrorResponse "Book not found"
// @Router /admin/books/{id} [put]
func (c *CatalogController) UpdateBook(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.BookRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	book, err := c.catalogService.UpdateBook(ctx.Request.Context(), id, req.ToModel(), repositories.BookLinks{
		AuthorIDs:   req.AuthorIDs,
		CategoryIDs: req.CategoryIDs,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, dto.NewBookResponse(book), "Book updated successfully")
}

// DeleteBook handles removing a book and its cover
// @Summary Delete book
// @Tags books
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 204
// @Failure 409 {object} dto.ErrorResponse "Book still has copies"
// @Router /admin/books/{id} [delete]
func (c *CatalogController) DeleteBook(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.catalogService.DeleteBook(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// UploadCover handles replacing a book's cover image
// @Summary Upload book cover
// @Tags books
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Book ID"
// @Param cover formData file true "Cover image (jpg, jpeg, png, gif, webp; max 5MB)"
// @Success 200 {object} dto.APIResponse{data=dto.CoverUploadResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid image"
// @Failure 404 {object} dto.ErrorResponse "Book not found"
// @Router /admin/books/{id}/cover [post]
func (c *CatalogController) UploadCover(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	file, err := ctx.FormFile("cover")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("cover", "cover image file is required"))
		return
	}
	result, err := c.catalogService.UploadCover(ctx.Request.Context(), id, file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, result, "Cover uploaded successfully")
}

func linkFilter(ctx *gin.Context, other string) repositories.LinkFilter {
	return repositories.LinkFilter{
		ListParams: listParams(ctx),
		BookID:     helpers.OptionalInt64Query(ctx, "bookId"),
		OtherID:    helpers.OptionalInt64Query(ctx, other),
	}
}

// ListBookAuthors handles listing book-author links
// @Summary List book authors
// @Tags book-authors
// @Security BearerAuth
// @Produce json
// @Param bookId query int false "Filter by book"
// @Param authorId query int false "Filter by author"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.BookAuthor}}
// @Router /admin/book-authors [get]
func (c *CatalogController) ListBookAuthors(ctx *gin.Context) {
	links, page, err := c.catalogService.ListBookAuthors(ctx.Request.Context(), linkFilter(ctx, "authorId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, links, page)
}

// GetBookAuthor handles retrieving one book-author link
// @Summary Get book author link by ID
// @Tags book-authors
// @Security BearerAuth
// @Produce json
// @Param id path int true "Link ID"
// @Success 200 {object} dto.APIResponse{data=models.BookAuthor}
// @Router /admin/book-authors/{id} [get]
func (c *CatalogController) GetBookAuthor(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	link, err := c.catalogService.GetBookAuthor(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, link, "")
}

// CreateBookAuthor handles linking an author to a book
// @Summary Create book author link
// @Tags book-authors
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BookAuthorRequest true "Link"
// @Success 201 {object} dto.APIResponse{data=models.BookAuthor}
// @Failure 409 {object} dto.ErrorResponse "Link already exists"
// @Router /admin/book-authors [post]
func (c *CatalogController) CreateBookAuthor(ctx *gin.Context) {
	var req dto.BookAuthorRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	link := &models.BookAuthor{BookID: req.BookID, AuthorID: req.AuthorID}
	if err := c.catalogService.CreateBookAuthor(ctx.Request.Context(), link); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, link, "Author linked successfully")
}

// UpdateBookAuthor handles replacing a book-author link
// @Summary Update book author link
// @Tags book-authors
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Link ID"
// @Param request body dto.BookAuthorRequest true "Link"
// @Success 200 {object} dto.APIResponse{data=models.BookAuthor}
// @Router /admin/book-authors/{id} [put]
func (c *CatalogController) UpdateBookAuthor(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.BookAuthorRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	link := &models.BookAuthor{BookID: req.BookID, AuthorID: req.AuthorID}
	if err := c.catalogService.UpdateBookAuthor(ctx.Request.Context(), id, link); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, link, "Link updated successfully")
}

// DeleteBookAuthor handles unlinking an author
// @Summary Delete book author link
// @Tags book-authors
// @Security BearerAuth
// @Param id path int true "Link ID"
// @Success 204
// @Router /admin/book-authors/{id} [delete]
func (c *CatalogController) DeleteBookAuthor(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.catalogService.DeleteBookAuthor(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// ListBookCategories handles listing book-category links
// @Summary List book categories
// @Tags book-categories
// @Security BearerAuth
// @Produce json
// @Param bookId query int false "Filter by book"
// @Param categoryId query int false "Filter by category"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.BookCategory}}
// @Router /admin/book-categories [get]
func (c *CatalogController) ListBookCategories(ctx *gin.Context) {
	links, page, err := c.catalogService.ListBookCategories(ctx.Request.Context(), linkFilter(ctx, "categoryId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, links, page)
}

// GetBookCategory handles retrieving one book-category link
// @Summary Get book category link by ID
// @Tags book-categories
// @Security BearerAuth
// @Produce json
// @Param id path int true "Link ID"
// @Success 200 {object} dto.APIResponse{data=models.BookCategory}
// @Router /admin/book-categories/{id} [get]
func (c *CatalogController) GetBookCategory(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	link, err := c.catalogService.GetBookCategory(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, link, "")
}

// CreateBookCategory handles filing a book under a category
// @Summary Create book category link
// @Tags book-categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BookCategoryRequest true "Link"
// @Success 201 {object} dto.APIResponse{data=models.BookCategory}
// @Failure 409 {object} dto.ErrorResponse "Link already exists"
// @Router /admin/book-categories [post]
func (c *CatalogController) CreateBookCategory(ctx *gin.Context) {
	var req dto.BookCategoryRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	link := &models.BookCategory{BookID: req.BookID, CategoryID: req.CategoryID}
	if err := c.catalogService.CreateBookCategory(ctx.Request.Context(), link); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, link, "Category linked successfully")
}

// UpdateBookCategory handles replacing a book-category link
// @Summary Update book category link
// @Tags book-categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Link ID"
// @Param request body dto.BookCategoryRequest true "Link"
// @Success 200 {object} dto.APIResponse{data=models.BookCategory}
// @Router /admin/book-categories/{id} [put]
func (c *CatalogController) UpdateBookCategory(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.BookCategoryRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	link := &models.BookCategory{BookID: req.BookID, CategoryID: req.CategoryID}
	if err := c.catalogService.UpdateBookCategory(ctx.Request.Context(), id, link); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, link, "Link updated successfully")
}

// DeleteBookCategory handles removing a book from a category
// @Summary Delete book category link
// @Tags book-categories
// @Security BearerAuth
// @Param id path int true "Link ID"
// @Success 204
// @Router /admin/book-categories/{id} [delete]
func (c *CatalogController) DeleteBookCategory(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.catalogService.DeleteBookCategory(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}
