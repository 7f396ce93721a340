package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, attempts int) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		BaseURL:     srv.URL,
		ShopID:      "shop",
		SecretKey:   "secret",
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
	}, zerolog.Nop())
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c, &calls
}

func TestCheckPaymentStatus_Succeeded(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v3/payments/pay-1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "shop", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"id":"pay-1","status":"succeeded","paid":true}`))
	}, 3)

	status, err := c.CheckPaymentStatus(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", status)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestCheckPaymentStatus_EmptyIDMakesNoCall(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, 3)

	status, err := c.CheckPaymentStatus(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, status)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestCheckPaymentStatus_NotFound(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, 3)

	_, err := c.CheckPaymentStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPaymentNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestCheckPaymentStatus_ClientErrorCarriesTruncatedBody(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(strings.Repeat("x", 500)))
	}, 3)

	_, err := c.CheckPaymentStatus(context.Background(), "pay-1")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Len(t, statusErr.Body, 200)
	assert.ErrorIs(t, err, apperrors.ErrExternalService)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestCheckPaymentStatus_RetriesServerErrors(t *testing.T) {
	var n int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"status":"canceled"}`))
	}, 3)

	status, err := c.CheckPaymentStatus(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "canceled", status)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestCheckPaymentStatus_GivesUpAfterMaxAttempts(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 2)

	_, err := c.CheckPaymentStatus(context.Background(), "pay-1")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestCheckPaymentStatus_RetriesTransportErrors(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", MaxAttempts: 2, BaseDelay: time.Millisecond}, zerolog.Nop())
	var slept int
	c.sleep = func(context.Context, time.Duration) error { slept++; return nil }

	_, err := c.CheckPaymentStatus(context.Background(), "pay-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransport)
	assert.Equal(t, 1, slept)
}

func TestBackoff_GrowsWithJitter(t *testing.T) {
	c := NewClient(Config{BaseDelay: 10 * time.Millisecond}, zerolog.Nop())

	first := c.backoff(1)
	assert.GreaterOrEqual(t, first, 10*time.Millisecond)
	assert.Less(t, first, 20*time.Millisecond)

	third := c.backoff(3)
	assert.GreaterOrEqual(t, third, 40*time.Millisecond)
	assert.Less(t, third, 50*time.Millisecond)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{}, zerolog.Nop())
	assert.Equal(t, DefaultBaseURL, c.config.BaseURL)
	assert.Equal(t, 10*time.Second, c.httpClient.Timeout)
	assert.Equal(t, 1, c.config.MaxAttempts)
}
