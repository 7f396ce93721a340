package dberrors

import (
	"errors"
	"fmt"

	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the repositories care about
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
)

// IsDuplicateConstraintError checks if the error is a PostgreSQL unique violation error
// for a specific constraint.
func IsDuplicateConstraintError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == CodeUniqueViolation && pgErr.ConstraintName == constraintName
}

// Translate maps driver errors onto application errors. entity names the
// record for the error message.
func Translate(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewResourceNotFoundError(fmt.Sprintf("%s not found", entity))
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", entity, err)
	}

	switch pgErr.Code {
	case CodeUniqueViolation:
		return apperrors.NewCustomError(apperrors.ErrResourceAlreadyExists,
			fmt.Sprintf("%s already exists", entity)).
			WithDetails(map[string]interface{}{"constraint": pgErr.ConstraintName})
	case CodeForeignKeyViolation:
		return apperrors.NewCustomError(apperrors.ErrReferenceNotFound,
			fmt.Sprintf("%s references a missing or still-referenced record", entity)).
			WithDetails(map[string]interface{}{"constraint": pgErr.ConstraintName})
	case CodeCheckViolation:
		return apperrors.NewCustomError(apperrors.ErrValidationFailed,
			fmt.Sprintf("%s violates %s", entity, pgErr.ConstraintName))
	}
	return fmt.Errorf("%s: %w", entity, err)
}
