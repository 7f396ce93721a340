package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/biblioteka/backend/internal/pkg/apperrors"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errTransport = errors.New("yookassa request failed")

const (
	DefaultBaseURL     = "https://api.yookassa.ru"
	defaultTimeout     = 10 * time.Second
	defaultBaseDelay   = 200 * time.Millisecond
	maxErrorBodyLength = 200
)

// StatusChecker reports the state of a payment at the gateway
type StatusChecker interface {
	CheckPaymentStatus(ctx context.Context, paymentID string) (string, error)
}

// Config holds YooKassa credentials and retry settings
type Config struct {
	BaseURL     string
	ShopID      string
	SecretKey   string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
}

// StatusError is returned for non-200, non-404 gateway responses
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("yookassa api error: %d - %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return apperrors.ErrExternalService
}

// Client queries the YooKassa payments API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     zerolog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

type paymentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Paid   bool   `json:"paid"`
}

// NewClient creates a gateway client, filling zero settings with defaults
func NewClient(config Config, logger zerolog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = defaultBaseDelay
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.With().Str("component", "yookassa").Logger(),
		sleep:      sleepContext,
	}
}

// CheckPaymentStatus returns the gateway status of paymentID, one of
// succeeded, canceled, pending or waiting_for_capture. An empty id makes no
// request and returns an empty status.
func (c *Client) CheckPaymentStatus(ctx context.Context, paymentID string) (string, error) {
	if paymentID == "" {
		return "", nil
	}

	var lastErr error
	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.logger.Warn().Err(lastErr).Str("paymentId", paymentID).Int("attempt", attempt+1).
				Dur("delay", delay).Msg("Retrying payment status request")
			if err := c.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		status, err := c.fetchStatus(ctx, paymentID)
		if err == nil {
			return status, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	return "", lastErr
}

func (c *Client) fetchStatus(ctx context.Context, paymentID string) (string, error) {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/v3/payments/" + url.PathEscape(paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build payment request: %w", err)
	}
	req.SetBasicAuth(c.config.ShopID, c.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errTransport, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payment paymentResponse
		if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
			return "", fmt.Errorf("failed to decode payment %s: %w", paymentID, err)
		}
		return payment.Status, nil
	case http.StatusNotFound:
		c.logger.Warn().Str("paymentId", paymentID).Msg("Payment not found at gateway")
		return "", fmt.Errorf("%w: %s", apperrors.ErrPaymentNotFound, paymentID)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		return "", &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
}

// backoff doubles the base delay per attempt and adds up to one base delay of jitter
func (c *Client) backoff(attempt int) time.Duration {
	d := c.config.BaseDelay << (attempt - 1)
	return d + rand.N(c.config.BaseDelay)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError || statusErr.Code == http.StatusTooManyRequests
	}
	return errors.Is(err, errTransport)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
