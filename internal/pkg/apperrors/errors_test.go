package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomError_UnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("issuing loan: %w", NewConflictError("copy already issued"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "issuing loan: copy already issued", err.Error())
}

func TestIs_MatchesAnyListedError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ErrRoomCapacityExceeded)

	assert.True(t, Is(err, ErrConflict, ErrQueueEmpty, ErrRoomCapacityExceeded))
	assert.False(t, Is(err, ErrConflict, ErrQueueEmpty))
}

func TestNewValidationError_CarriesField(t *testing.T) {
	err := NewValidationError("rating", "rating must be between 1 and 5")

	var ce *CustomError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "rating", ce.Details["field"])
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestCustomError_FallbackMessages(t *testing.T) {
	assert.Equal(t, "unknown error", (&CustomError{}).Error())
	assert.Equal(t, ErrFineAlreadyPaid.Error(), NewCustomError(ErrFineAlreadyPaid, "").Error())
}
