package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateOffsetLimit(t *testing.T) {
	tests := []struct {
		name       string
		page, size int
		wantOffset uint64
		wantLimit  uint64
	}{
		{"first page", 1, 10, 0, 10},
		{"third page", 3, 10, 20, 10},
		{"zero page falls back", 0, 10, 0, 10},
		{"oversized page size", 2, 1000, uint64(DefaultPageSize), uint64(DefaultPageSize)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, limit := CalculateOffsetLimit(tt.page, tt.size)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestNewPaginationInfo(t *testing.T) {
	info := NewPaginationInfo(45, 2, 20)
	assert.Equal(t, 3, info.TotalPages)
	assert.Equal(t, 2, info.CurrentPage)
	assert.Equal(t, int64(45), info.TotalItems)

	empty := NewPaginationInfo(0, 1, 20)
	assert.Equal(t, 1, empty.TotalPages)

	clamped := NewPaginationInfo(5, 9, 20)
	assert.Equal(t, 1, clamped.CurrentPage)
}

func TestParsePaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=4&size=abc", nil)

	page, size := ParsePaginationParams(c)

	assert.Equal(t, 4, page)
	assert.Equal(t, DefaultPageSize, size)
}

func TestOptionalQueries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?branchId=7&isActive=false&bad=x", nil)

	require.NotNil(t, OptionalInt64Query(c, "branchId"))
	assert.Equal(t, int64(7), *OptionalInt64Query(c, "branchId"))
	assert.Nil(t, OptionalInt64Query(c, "bad"))
	assert.Nil(t, OptionalInt64Query(c, "missing"))
	require.NotNil(t, OptionalBoolQuery(c, "isActive"))
	assert.False(t, *OptionalBoolQuery(c, "isActive"))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *d)

	d, err = ParseDate("  ")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = ParseDate("01.03.2024")
	assert.Error(t, err)
}

func TestNilIfEmpty(t *testing.T) {
	blank := "   "
	isbn := " 978-5-17-090831-2 "
	assert.Nil(t, NilIfEmpty(nil))
	assert.Nil(t, NilIfEmpty(&blank))
	assert.Equal(t, "978-5-17-090831-2", *NilIfEmpty(&isbn))
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, 5*time.Minute, ParseDuration("5m", time.Hour))
	assert.Equal(t, time.Hour, ParseDuration("soon", time.Hour))
}
