package dberrors

import (
	"errors"
	"testing"

	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, apperrors.ErrResourceNotFound},
		{"unique", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "books_isbn_key"}, apperrors.ErrResourceAlreadyExists},
		{"foreign key", &pgconn.PgError{Code: CodeForeignKeyViolation}, apperrors.ErrReferenceNotFound},
		{"check", &pgconn.PgError{Code: CodeCheckViolation}, apperrors.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Translate(tt.err, "book"), tt.want)
		})
	}
}

func TestTranslatePassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	err := Translate(boom, "book")
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, Translate(nil, "book"))
}

func TestIsDuplicateConstraintError(t *testing.T) {
	err := &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "profiles_library_card_key"}
	assert.True(t, IsDuplicateConstraintError(err, "profiles_library_card_key"))
	assert.False(t, IsDuplicateConstraintError(err, "other"))
}
