package services

import (
	"context"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/repositories"
)

type userStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, f repositories.UserFilter) ([]*models.User, repositories.PageInfo, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id int64) error
}

type profileStore interface {
	Create(ctx context.Context, p *models.Profile) error
	GetByID(ctx context.Context, id int64) (*models.Profile, error)
	List(ctx context.Context, f repositories.ProfileFilter) ([]*models.Profile, repositories.PageInfo, error)
	Update(ctx context.Context, p *models.Profile) error
	Delete(ctx context.Context, id int64) error
}

type assignmentStore interface {
	Create(ctx context.Context, a *models.LibrarianAssignment) error
	GetByID(ctx context.Context, id int64) (*models.LibrarianAssignment, error)
	List(ctx context.Context, f repositories.AssignmentFilter) ([]*models.LibrarianAssignment, repositories.PageInfo, error)
	Update(ctx context.Context, a *models.LibrarianAssignment) error
	Delete(ctx context.Context, id int64) error
}

// UserService manages users, their library profiles and librarian assignments
type UserService struct {
	users       userStore
	profiles    profileStore
	assignments assignmentStore
}

// NewUserService creates a new user service instance
func NewUserService(users userStore, profiles profileStore, assignments assignmentStore) *UserService {
	return &UserService{users: users, profiles: profiles, assignments: assignments}
}

func (s *UserService) CreateUser(ctx context.Context, u *models.User) error {
	return s.users.Create(ctx, u)
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, f repositories.UserFilter) ([]*models.User, repositories.PageInfo, error) {
	return s.users.List(ctx, f)
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, u *models.User) error {
	u.ID = id
	return s.users.Update(ctx, u)
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	return s.users.Delete(ctx, id)
}

// CreateProfile normalizes and stores a profile; guests lose their card number
func (s *UserService) CreateProfile(ctx context.Context, p *models.Profile) error {
	p.Normalize()
	return s.profiles.Create(ctx, p)
}

func (s *UserService) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

func (s *UserService) ListProfiles(ctx context.Context, f repositories.ProfileFilter) ([]*models.Profile, repositories.PageInfo, error) {
	return s.profiles.List(ctx, f)
}

// UpdateProfile normalizes and replaces a profile
func (s *UserService) UpdateProfile(ctx context.Context, id int64, p *models.Profile) error {
	p.ID = id
	p.Normalize()
	return s.profiles.Update(ctx, p)
}

func (s *UserService) DeleteProfile(ctx context.Context, id int64) error {
	return s.profiles.Delete(ctx, id)
}

func (s *UserService) CreateAssignment(ctx context.Context, a *models.LibrarianAssignment) error {
	return s.assignments.Create(ctx, a)
}

func (s *UserService) GetAssignment(ctx context.Context, id int64) (*models.LibrarianAssignment, error) {
	return s.assignments.GetByID(ctx, id)
}

func (s *UserService) ListAssignments(ctx context.Context, f repositories.AssignmentFilter) ([]*models.LibrarianAssignment, repositories.PageInfo, error) {
	return s.assignments.List(ctx, f)
}

func (s *UserService) UpdateAssignment(ctx context.Context, id int64, a *models.LibrarianAssignment) error {
	a.ID = id
	return s.assignments.Update(ctx, a)
}

func (s *UserService) DeleteAssignment(ctx context.Context, id int64) error {
	return s.assignments.Delete(ctx, id)
}
