package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/db"
)

const userColumns = "u.id, u.username, u.email, u.first_name, u.last_name, u.is_staff, u.is_active, u.created_at"

// UserRepository handles the mirrored account records
type UserRepository struct {
	db *db.PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(database *db.PostgresDB) *UserRepository {
	return &UserRepository{db: database}
}

// UserFilter narrows user lists
type UserFilter struct {
	ListParams
	IsStaff  *bool
	IsActive *bool
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.IsStaff, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("users").
		Columns("username", "email", "first_name", "last_name", "is_staff", "is_active").
		Values(u.Username, u.Email, u.FirstName, u.LastName, u.IsStaff, u.IsActive).
		Suffix("RETURNING id, created_at"), "user", &u.ID, &u.CreatedAt)
}

// GetByID loads a user
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(userColumns).From("users u").Where(squirrel.Eq{"u.id": id}), "user", scanUser)
}

// GetByUsername loads a user by login name
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(userColumns).From("users u").Where(squirrel.Eq{"u.username": username}), "user", scanUser)
}

// List returns one page of users
func (r *UserRepository) List(ctx context.Context, f UserFilter) ([]*models.User, PageInfo, error) {
	base := sb.Select().From("users u")
	if f.IsStaff != nil {
		base = base.Where(squirrel.Eq{"u.is_staff": *f.IsStaff})
	}
	if f.IsActive != nil {
		base = base.Where(squirrel.Eq{"u.is_active": *f.IsActive})
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "u.username", "u.first_name", "u.last_name", "u.email"))
	}
	order := orderClause(f.ListParams, map[string]string{"username": "u.username", "createdAt": "u.created_at"}, "u.username ASC")
	return fetchPage(ctx, r.db.Pool, base, []string{userColumns}, order, f.ListParams, "user", scanUser)
}

// Update replaces a user's columns
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	return execAffectingOne(ctx, r.db.Pool, sb.Update("users").SetMap(map[string]interface{}{
		"username":   u.Username,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"is_staff":   u.IsStaff,
		"is_active":  u.IsActive,
	}).Where(squirrel.Eq{"id": u.ID}), "user")
}

// Delete removes a user and, through cascades, everything the user owns
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "users", id, "user")
}

const profileColumns = "p.id, p.user_id, p.user_type, p.phone, p.birth_date, p.faculty, p.student_group, p.library_card, p.created_at, p.updated_at, " + userColumns

// ProfileRepository handles library profiles
type ProfileRepository struct {
	db *db.PostgresDB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(database *db.PostgresDB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// ProfileFilter mirrors the admin list filters
type ProfileFilter struct {
	ListParams
	UserType *models.UserType
	Faculty  string
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var u models.User
	err := row.Scan(&p.ID, &p.UserID, &p.UserType, &p.Phone, &p.BirthDate, &p.Faculty, &p.StudentGroup,
		&p.LibraryCard, &p.CreatedAt, &p.UpdatedAt,
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.IsStaff, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.User = &u
	return &p, nil
}

func (r *ProfileRepository) selectQuery() squirrel.SelectBuilder {
	return sb.Select(profileColumns).From("profiles p").Join("users u ON u.id = p.user_id")
}

// Create inserts a profile
func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("profiles").
		Columns("user_id", "user_type", "phone", "birth_date", "faculty", "student_group", "library_card").
		Values(p.UserID, p.UserType, p.Phone, p.BirthDate, p.Faculty, p.StudentGroup, p.LibraryCard).
		Suffix("RETURNING id, created_at, updated_at"), "profile", &p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID loads a profile with its user
func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*models.Profile, error) {
	return fetchOne(ctx, r.db.Pool, r.selectQuery().Where(squirrel.Eq{"p.id": id}), "profile", scanProfile)
}

// GetByUserID loads the profile of a user
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	return fetchOne(ctx, r.db.Pool, r.selectQuery().Where(squirrel.Eq{"p.user_id": userID}), "profile", scanProfile)
}

// List returns one page of profiles
func (r *ProfileRepository) List(ctx context.Context, f ProfileFilter) ([]*models.Profile, PageInfo, error) {
	base := sb.Select().From("profiles p").Join("users u ON u.id = p.user_id")
	if f.UserType != nil {
		base = base.Where(squirrel.Eq{"p.user_type": *f.UserType})
	}
	if f.Faculty != "" {
		base = base.Where(squirrel.Eq{"p.faculty": f.Faculty})
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "u.username", "u.first_name", "u.last_name", "p.phone", "p.faculty"))
	}
	order := orderClause(f.ListParams, map[string]string{"createdAt": "p.created_at", "username": "u.username"}, "p.created_at DESC")
	return fetchPage(ctx, r.db.Pool, base, []string{profileColumns}, order, f.ListParams, "profile", scanProfile)
}

// Update replaces a profile's columns
func (r *ProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	return execAffectingOne(ctx, r.db.Pool, sb.Update("profiles").SetMap(map[string]interface{}{
		"user_id":       p.UserID,
		"user_type":     p.UserType,
		"phone":         p.Phone,
		"birth_date":    p.BirthDate,
		"faculty":       p.Faculty,
		"student_group": p.StudentGroup,
		"library_card":  p.LibraryCard,
		"updated_at":    squirrel.Expr("NOW()"),
	}).Where(squirrel.Eq{"id": p.ID}), "profile")
}

// Delete removes a profile
func (r *ProfileRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "profiles", id, "profile")
}

const assignmentColumns = "la.id, la.user_id, la.branch_id, la.can_manage_books, la.can_manage_users, la.can_manage_bookings, la.created_at"

// LibrarianAssignmentRepository handles branch permissions of librarians
type LibrarianAssignmentRepository struct {
	db *db.PostgresDB
}

// NewLibrarianAssignmentRepository creates a new assignment repository
func NewLibrarianAssignmentRepository(database *db.PostgresDB) *LibrarianAssignmentRepository {
	return &LibrarianAssignmentRepository{db: database}
}

// AssignmentFilter mirrors the admin list filters
type AssignmentFilter struct {
	ListParams
	UserID            *int64
	BranchID          *int64
	CanManageBooks    *bool
	CanManageUsers    *bool
	CanManageBookings *bool
}

func scanAssignment(row rowScanner) (*models.LibrarianAssignment, error) {
	var a models.LibrarianAssignment
	err := row.Scan(&a.ID, &a.UserID, &a.BranchID, &a.CanManageBooks, &a.CanManageUsers, &a.CanManageBookings, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an assignment
func (r *LibrarianAssignmentRepository) Create(ctx context.Context, a *models.LibrarianAssignment) error {
	return insertReturning(ctx, r.db.Pool, sb.Insert("librarian_assignments").
		Columns("user_id", "branch_id", "can_manage_books", "can_manage_users", "can_manage_bookings").
		Values(a.UserID, a.BranchID, a.CanManageBooks, a.CanManageUsers, a.CanManageBookings).
		Suffix("RETURNING id, created_at"), "librarian assignment", &a.ID, &a.CreatedAt)
}

// GetByID loads an assignment
func (r *LibrarianAssignmentRepository) GetByID(ctx context.Context, id int64) (*models.LibrarianAssignment, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(assignmentColumns).From("librarian_assignments la").
		Where(squirrel.Eq{"la.id": id}), "librarian assignment", scanAssignment)
}

// GetForUserBranch loads the assignment of a user in one branch
func (r *LibrarianAssignmentRepository) GetForUserBranch(ctx context.Context, userID, branchID int64) (*models.LibrarianAssignment, error) {
	return fetchOne(ctx, r.db.Pool, sb.Select(assignmentColumns).From("librarian_assignments la").
		Where(squirrel.Eq{"la.user_id": userID, "la.branch_id": branchID}), "librarian assignment", scanAssignment)
}

// ListForUser returns every assignment of a user
func (r *LibrarianAssignmentRepository) ListForUser(ctx context.Context, userID int64) ([]*models.LibrarianAssignment, error) {
	return fetchAll(ctx, r.db.Pool, sb.Select(assignmentColumns).From("librarian_assignments la").
		Where(squirrel.Eq{"la.user_id": userID}).OrderBy("la.branch_id"), "librarian assignment", scanAssignment)
}

// List returns one page of assignments
func (r *LibrarianAssignmentRepository) List(ctx context.Context, f AssignmentFilter) ([]*models.LibrarianAssignment, PageInfo, error) {
	base := sb.Select().From("librarian_assignments la").
		Join("users u ON u.id = la.user_id").
		Join("branches b ON b.id = la.branch_id")
	eq := squirrel.Eq{}
	if f.UserID != nil {
		eq["la.user_id"] = *f.UserID
	}
	if f.BranchID != nil {
		eq["la.branch_id"] = *f.BranchID
	}
	if f.CanManageBooks != nil {
		eq["la.can_manage_books"] = *f.CanManageBooks
	}
	if f.CanManageUsers != nil {
		eq["la.can_manage_users"] = *f.CanManageUsers
	}
	if f.CanManageBookings != nil {
		eq["la.can_manage_bookings"] = *f.CanManageBookings
	}
	if len(eq) > 0 {
		base = base.Where(eq)
	}
	if f.Search != "" {
		base = base.Where(searchAny(f.Search, "u.username", "b.name"))
	}
	order := orderClause(f.ListParams, map[string]string{"createdAt": "la.created_at"}, "la.created_at DESC")
	return fetchPage(ctx, r.db.Pool, base, []string{assignmentColumns}, order, f.ListParams, "librarian assignment", scanAssignment)
}

// Update replaces an assignment's columns
func (r *LibrarianAssignmentRepository) Update(ctx context.Context, a *models.LibrarianAssignment) error {
	return execAffectingOne(ctx, r.db.Pool, sb.Update("librarian_assignments").SetMap(map[string]interface{}{
		"user_id":             a.UserID,
		"branch_id":           a.BranchID,
		"can_manage_books":    a.CanManageBooks,
		"can_manage_users":    a.CanManageUsers,
		"can_manage_bookings": a.CanManageBookings,
	}).Where(squirrel.Eq{"id": a.ID}), "librarian assignment")
}

// Delete removes an assignment
func (r *LibrarianAssignmentRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "librarian_assignments", id, "librarian assignment")
}
