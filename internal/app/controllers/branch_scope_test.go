package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appAuth "github.com/biblioteka/backend/internal/app/auth"
	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/app/services"
	"github.com/biblioteka/backend/internal/middleware"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/auth"
	"github.com/biblioteka/backend/internal/pkg/helpers"
)

const (
	branchA int64 = 1
	branchB int64 = 2
)

// branchAssignments grants librarian 7 book management at branch A only
type branchAssignments struct{}

func (branchAssignments) GetForUserBranch(_ context.Context, userID, branchID int64) (*models.LibrarianAssignment, error) {
	if userID == 7 && branchID == branchA {
		return &models.LibrarianAssignment{UserID: 7, BranchID: branchA, CanManageBooks: true}, nil
	}
	return nil, apperrors.NewResourceNotFoundError("assignment not found")
}

func (b branchAssignments) ListForUser(ctx context.Context, userID int64) ([]*models.LibrarianAssignment, error) {
	a, err := b.GetForUserBranch(ctx, userID, branchA)
	if err != nil {
		return nil, nil
	}
	return []*models.LibrarianAssignment{a}, nil
}

type memCopies struct {
	items map[int64]*models.BookCopy
}

func (m *memCopies) Create(_ context.Context, c *models.BookCopy) error {
	c.ID = int64(len(m.items) + 100)
	stored := *c
	m.items[c.ID] = &stored
	return nil
}

func (m *memCopies) GetByID(_ context.Context, id int64) (*models.BookCopy, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("book copy not found")
	}
	copied := *c
	return &copied, nil
}

func (m *memCopies) List(_ context.Context, f repositories.BookCopyFilter) ([]*models.BookCopy, repositories.PageInfo, error) {
	return nil, helpers.NewPaginationInfo(0, f.Page, f.Size), nil
}

func (m *memCopies) Update(_ context.Context, c *models.BookCopy) error {
	if _, ok := m.items[c.ID]; !ok {
		return apperrors.NewResourceNotFoundError("book copy not found")
	}
	stored := *c
	m.items[c.ID] = &stored
	return nil
}

func (m *memCopies) MarkOverdue(context.Context, time.Time) (int64, error) { return 0, nil }

func (m *memCopies) Delete(_ context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func scopedCopyRouter(t *testing.T, store *memCopies) (*gin.Engine, string) {
	t.Helper()
	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "library"})
	m := middleware.NewAuthMiddleware(jwtService, appAuth.NewAuthorizationService(branchAssignments{}))
	token, _, err := jwtService.GenerateAccessToken(7, "kazan-desk", auth.RoleLibrarian)
	require.NoError(t, err)

	svc := services.NewCirculationService(store, nil, nil, nil, nil, nil, nil, nil, services.CirculationConfig{LoanPeriod: 14 * 24 * time.Hour})
	c := NewCirculationController(svc)

	r := gin.New()
	g := r.Group("/admin/book-copies", m.JWTAuth(), m.RequirePermission(models.PermManageBooks))
	g.POST("", c.CreateCopy)
	g.PUT("/:id", c.UpdateCopy)
	g.DELETE("/:id", c.DeleteCopy)
	return r, token
}

func authorized(router *gin.Engine, token, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCirculationController_CopiesAreBranchScoped(t *testing.T) {
	store := &memCopies{items: map[int64]*models.BookCopy{
		1: {ID: 1, BookID: 3, BranchID: branchA, BookCount: 2, Status: models.CopyStatusActive},
		2: {ID: 2, BookID: 3, BranchID: branchB, BookCount: 1, Status: models.CopyStatusActive},
	}}
	router, token := scopedCopyRouter(t, store)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"delete at other branch", http.MethodDelete, "/admin/book-copies/2", "", http.StatusForbidden},
		{"query branch is ignored", http.MethodDelete, "/admin/book-copies/2?branchId=1", "", http.StatusForbidden},
		{"create at other branch", http.MethodPost, "/admin/book-copies", `{"bookId":3,"branchId":2}`, http.StatusForbidden},
		{"move own copy to other branch", http.MethodPut, "/admin/book-copies/1", `{"bookId":3,"branchId":2}`, http.StatusForbidden},
		{"edit other branch copy into own", http.MethodPut, "/admin/book-copies/2", `{"bookId":3,"branchId":1}`, http.StatusForbidden},
		{"unknown copy", http.MethodDelete, "/admin/book-copies/99", "", http.StatusNotFound},
		{"create at own branch", http.MethodPost, "/admin/book-copies", `{"bookId":3,"branchId":1}`, http.StatusCreated},
		{"edit own copy", http.MethodPut, "/admin/book-copies/1", `{"bookId":3,"branchId":1,"bookCount":4}`, http.StatusOK},
		{"delete own copy", http.MethodDelete, "/admin/book-copies/1", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := authorized(router, token, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	require.Contains(t, store.items, int64(2))
	assert.Equal(t, branchB, store.items[2].BranchID)
}
