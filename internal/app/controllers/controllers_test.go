package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/app/services"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/helpers"
	"github.com/biblioteka/backend/internal/pkg/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Error   *dto.ErrorDetail `json:"error"`
}

func perform(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

// --- reviews ---

type memReviews struct {
	items  map[int64]*models.BookReview
	nextID int64
}

func newMemReviews() *memReviews {
	return &memReviews{items: map[int64]*models.BookReview{}}
}

func (m *memReviews) Create(_ context.Context, r *models.BookReview) error {
	for _, existing := range m.items {
		if existing.UserID == r.UserID && existing.BookID == r.BookID {
			return apperrors.NewCustomError(apperrors.ErrResourceAlreadyExists, "book review already exists")
		}
	}
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now()
	stored := *r
	m.items[r.ID] = &stored
	return nil
}

func (m *memReviews) GetByID(_ context.Context, id int64) (*models.BookReview, error) {
	r, ok := m.items[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("book review not found")
	}
	copied := *r
	return &copied, nil
}

func (m *memReviews) List(_ context.Context, f repositories.BookReviewFilter) ([]*models.BookReview, repositories.PageInfo, error) {
	var out []*models.BookReview
	for id := int64(1); id <= m.nextID; id++ {
		r, ok := m.items[id]
		if !ok {
			continue
		}
		if f.IsApproved != nil && r.IsApproved != *f.IsApproved {
			continue
		}
		out = append(out, r)
	}
	return out, helpers.NewPaginationInfo(int64(len(out)), f.Page, f.Size), nil
}

func (m *memReviews) Update(_ context.Context, r *models.BookReview) error {
	if _, ok := m.items[r.ID]; !ok {
		return apperrors.NewResourceNotFoundError("book review not found")
	}
	stored := *r
	m.items[r.ID] = &stored
	return nil
}

func (m *memReviews) SetApproved(_ context.Context, id int64, approved bool) error {
	r, ok := m.items[id]
	if !ok {
		return apperrors.NewResourceNotFoundError("book review not found")
	}
	r.IsApproved = approved
	return nil
}

func (m *memReviews) Delete(_ context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return apperrors.NewResourceNotFoundError("book review not found")
	}
	delete(m.items, id)
	return nil
}

func reviewRouter(store *memReviews) *gin.Engine {
	c := NewReviewController(services.NewReviewService(store))
	r := gin.New()
	g := r.Group("/admin/book-reviews")
	g.GET("", c.ListReviews)
	g.GET("/:id", c.GetReview)
	g.POST("", c.CreateReview)
	g.PUT("/:id", c.UpdateReview)
	g.POST("/:id/approve", c.ApproveReview)
	g.DELETE("/:id", c.DeleteReview)
	return r
}

func TestReviewController_Lifecycle(t *testing.T) {
	store := newMemReviews()
	router := reviewRouter(store)

	w, env := perform(t, router, http.MethodPost, "/admin/book-reviews", `{"userId":3,"bookId":9,"rating":4,"reviewText":"Solid translation"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	var created models.BookReview
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, int64(1), created.ID)
	assert.False(t, created.IsApproved)

	w, _ = perform(t, router, http.MethodPost, "/admin/book-reviews", `{"userId":3,"bookId":9,"rating":5,"reviewText":"again"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = perform(t, router, http.MethodPost, "/admin/book-reviews/1/approve", "")
	require.Equal(t, http.StatusOK, w.Code)
	var approved models.BookReview
	require.NoError(t, json.Unmarshal(env.Data, &approved))
	assert.True(t, approved.IsApproved)

	w, env = perform(t, router, http.MethodGet, "/admin/book-reviews?isApproved=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items      []models.BookReview `json:"items"`
		Pagination dto.PaginationInfo  `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Pagination.TotalItems)

	w, _ = perform(t, router, http.MethodDelete, "/admin/book-reviews/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env = perform(t, router, http.MethodGet, "/admin/book-reviews/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrorCodeResourceNotFound, env.Error.Code)
}

func TestReviewController_RejectsBadInput(t *testing.T) {
	router := reviewRouter(newMemReviews())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"rating above range", http.MethodPost, "/admin/book-reviews", `{"userId":1,"bookId":1,"rating":6,"reviewText":"x"}`},
		{"missing text", http.MethodPost, "/admin/book-reviews", `{"userId":1,"bookId":1,"rating":3}`},
		{"non numeric id", http.MethodGet, "/admin/book-reviews/abc", ""},
		{"zero id", http.MethodDelete, "/admin/book-reviews/0", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := perform(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
		})
	}
}

// --- queue ---

type memQueue struct {
	entries []*models.BookQueue
}

func (m *memQueue) Join(_ context.Context, e *models.BookQueue) error {
	e.ID = int64(len(m.entries) + 1)
	e.Position = 1
	for _, other := range m.entries {
		if other.BookID == e.BookID {
			e.Position++
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memQueue) GetByID(_ context.Context, id int64) (*models.BookQueue, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("queue entry not found")
}

func (m *memQueue) List(_ context.Context, f repositories.BookQueueFilter) ([]*models.BookQueue, repositories.PageInfo, error) {
	return m.entries, helpers.NewPaginationInfo(int64(len(m.entries)), f.Page, f.Size), nil
}

func (m *memQueue) Update(_ context.Context, e *models.BookQueue) error {
	return nil
}

func (m *memQueue) NotifyNext(_ context.Context, bookID int64, branchID *int64, now time.Time) (*models.BookQueue, error) {
	for _, e := range m.entries {
		if e.BookID != bookID || e.Status != models.QueueStatusWaiting {
			continue
		}
		if branchID != nil && e.BranchID != nil && *e.BranchID != *branchID {
			continue
		}
		e.Notify(now)
		return e, nil
	}
	return nil, nil
}

func (m *memQueue) Delete(_ context.Context, id int64) error {
	return nil
}

type noUsers struct{}

func (noUsers) GetByID(context.Context, int64) (*models.User, error) {
	return nil, apperrors.NewResourceNotFoundError("user not found")
}

type oneBook struct{}

func (oneBook) GetByID(_ context.Context, id int64) (*models.Book, error) {
	return &models.Book{ID: id, Title: "Anna Karenina"}, nil
}

type recordingNotifier struct {
	sent []*websocket.Notification
}

func (r *recordingNotifier) Notify(n *websocket.Notification) {
	r.sent = append(r.sent, n)
}

func TestQueueController_NotifyNext(t *testing.T) {
	store := &memQueue{}
	notifier := &recordingNotifier{}
	c := NewQueueController(services.NewQueueService(store, noUsers{}, oneBook{}, nil, notifier, false))

	router := gin.New()
	router.POST("/admin/book-queue", c.JoinQueue)
	router.POST("/admin/book-queue/notify-next", c.NotifyNext)

	w, _ := perform(t, router, http.MethodPost, "/admin/book-queue", `{"userId":4,"bookId":2}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := perform(t, router, http.MethodPost, "/admin/book-queue/notify-next", `{"bookId":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var entry models.BookQueue
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, models.QueueStatusNotified, entry.Status)
	assert.NotNil(t, entry.NotifiedAt)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(4), notifier.sent[0].UserID)
	assert.Equal(t, "Anna Karenina", notifier.sent[0].Data["title"])

	w, env = perform(t, router, http.MethodPost, "/admin/book-queue/notify-next", `{"bookId":2}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)

	w, _ = perform(t, router, http.MethodPost, "/admin/book-queue/notify-next", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
