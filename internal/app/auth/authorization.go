package auth

import (
	"context"
	"errors"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/auth"
	"github.com/biblioteka/backend/internal/pkg/logger"
)

type assignmentLookup interface {
	GetForUserBranch(ctx context.Context, userID, branchID int64) (*models.LibrarianAssignment, error)
	ListForUser(ctx context.Context, userID int64) ([]*models.LibrarianAssignment, error)
}

// AuthorizationService decides branch-scoped librarian permissions
type AuthorizationService struct {
	assignments assignmentLookup
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(assignments assignmentLookup) *AuthorizationService {
	return &AuthorizationService{assignments: assignments}
}

// CanManage reports whether the caller holds perm. Admins always do. A
// librarian needs an assignment granting perm at branchID, or at any branch
// when branchID is nil.
func (s *AuthorizationService) CanManage(ctx context.Context, userID int64, role string, branchID *int64, perm models.Permission) (bool, error) {
	switch role {
	case auth.RoleAdmin:
		return true, nil
	case auth.RoleLibrarian:
	default:
		return false, nil
	}

	if branchID != nil {
		a, err := s.assignments.GetForUserBranch(ctx, userID, *branchID)
		if err != nil {
			if errors.Is(err, apperrors.ErrResourceNotFound) {
				return false, nil
			}
			logger.Error().Err(err).Int64("userID", userID).Int64("branchID", *branchID).Msg("Error loading librarian assignment")
			return false, err
		}
		return a.Allows(perm), nil
	}

	assignments, err := s.assignments.ListForUser(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error listing librarian assignments")
		return false, err
	}
	for _, a := range assignments {
		if a.Allows(perm) {
			return true, nil
		}
	}
	return false, nil
}

// Authorize is CanManage returning ErrPermissionDenied on refusal
func (s *AuthorizationService) Authorize(ctx context.Context, userID int64, role string, branchID *int64, perm models.Permission) error {
	ok, err := s.CanManage(ctx, userID, role, branchID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrPermissionDenied
	}
	return nil
}
