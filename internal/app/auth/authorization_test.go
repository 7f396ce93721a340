package auth

import (
	"context"
	"testing"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssignments struct{ list []*models.LibrarianAssignment }

func (f *fakeAssignments) GetForUserBranch(_ context.Context, userID, branchID int64) (*models.LibrarianAssignment, error) {
	for _, a := range f.list {
		if a.UserID == userID && a.BranchID == branchID {
			return a, nil
		}
	}
	return nil, apperrors.ErrResourceNotFound
}

func (f *fakeAssignments) ListForUser(_ context.Context, userID int64) ([]*models.LibrarianAssignment, error) {
	var out []*models.LibrarianAssignment
	for _, a := range f.list {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestCanManage(t *testing.T) {
	svc := NewAuthorizationService(&fakeAssignments{list: []*models.LibrarianAssignment{
		{UserID: 2, BranchID: 1, CanManageBooks: true, CanManageBookings: false},
		{UserID: 2, BranchID: 3, CanManageBookings: true},
	}})
	branch := func(id int64) *int64 { return &id }
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		role   string
		branch *int64
		perm   models.Permission
		want   bool
	}{
		{"admin bypasses", 1, auth.RoleAdmin, branch(9), models.PermManageUsers, true},
		{"reader refused", 2, auth.RoleReader, branch(1), models.PermManageBooks, false},
		{"granted at branch", 2, auth.RoleLibrarian, branch(1), models.PermManageBooks, true},
		{"flag off at branch", 2, auth.RoleLibrarian, branch(1), models.PermManageBookings, false},
		{"no assignment at branch", 2, auth.RoleLibrarian, branch(5), models.PermManageBooks, false},
		{"any branch", 2, auth.RoleLibrarian, nil, models.PermManageBookings, true},
		{"no branch grants users", 2, auth.RoleLibrarian, nil, models.PermManageUsers, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CanManage(ctx, tt.userID, tt.role, tt.branch, tt.perm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	err := svc.Authorize(ctx, 2, auth.RoleLibrarian, branch(5), models.PermManageBooks)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}
