package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/rs/zerolog"
)

// DefaultAdminUsername is the staff account created on an empty database
const DefaultAdminUsername = "admin"

// CreateDefaultData makes sure an admin account and one branch exist. It is
// safe to run on every start.
func CreateDefaultData(ctx context.Context, repos *repositories.Repositories, lgr zerolog.Logger) (*models.User, error) {
	lgr.Info().Msg("Checking/Creating default data (admin account, main branch)...")

	admin, err := ensureAdmin(ctx, repos, lgr)
	if err != nil {
		return nil, err
	}
	if err := ensureBranch(ctx, repos, lgr); err != nil {
		return admin, err
	}
	return admin, nil
}

func ensureAdmin(ctx context.Context, repos *repositories.Repositories, lgr zerolog.Logger) (*models.User, error) {
	admin, err := repos.Users.GetByUsername(ctx, DefaultAdminUsername)
	if err == nil {
		lgr.Debug().Int64("userID", admin.ID).Msg("Admin account already exists")
		return admin, nil
	}
	if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, fmt.Errorf("failed to look up admin account: %w", err)
	}

	admin = &models.User{
		Username:  DefaultAdminUsername,
		FirstName: "Library",
		LastName:  "Administrator",
		IsStaff:   true,
		IsActive:  true,
	}
	if err := repos.Users.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin account: %w", err)
	}

	profile := &models.Profile{UserID: admin.ID, UserType: models.UserTypeAdmin}
	profile.Normalize()
	if err := repos.Profiles.Create(ctx, profile); err != nil && !errors.Is(err, apperrors.ErrResourceAlreadyExists) {
		return nil, fmt.Errorf("failed to create admin profile: %w", err)
	}
	lgr.Info().Int64("userID", admin.ID).Msg("Admin account created")
	return admin, nil
}

func ensureBranch(ctx context.Context, repos *repositories.Repositories, lgr zerolog.Logger) error {
	_, page, err := repos.Branches.List(ctx, repositories.BranchFilter{ListParams: repositories.ListParams{Page: 1, Size: 1}})
	if err != nil {
		return fmt.Errorf("failed to count branches: %w", err)
	}
	if page.TotalItems > 0 {
		return nil
	}

	branch := &models.Branch{
		Name:         "Central Library",
		Address:      "Not specified",
		OpeningHours: map[string]string{"mon-fri": "09:00-20:00", "sat": "10:00-18:00"},
		IsActive:     true,
	}
	if err := repos.Branches.Create(ctx, branch); err != nil {
		return fmt.Errorf("failed to create main branch: %w", err)
	}
	lgr.Info().Int64("branchID", branch.ID).Msg("Main branch created")
	return nil
}
