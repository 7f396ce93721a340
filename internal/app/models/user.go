package models

import (
	"strings"
	"time"
)

// User is the account record owned by the external identity provider.
// The backend only keeps the columns other records need to reference.
type User struct {
	ID        int64     `json:"id" db:"id" example:"1"`
	Username  string    `json:"username" db:"username" example:"ivanov"`
	Email     string    `json:"email" db:"email" example:"ivanov@kpfu.ru"`
	FirstName string    `json:"firstName" db:"first_name" example:"Ivan"`
	LastName  string    `json:"lastName" db:"last_name" example:"Ivanov"`
	IsStaff   bool      `json:"isStaff" db:"is_staff"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// FullName returns "First Last", falling back to the username
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Profile carries library-specific metadata for a user
type Profile struct {
	ID           int64      `json:"id" db:"id"`
	UserID       int64      `json:"userId" db:"user_id"`
	UserType     UserType   `json:"userType" db:"user_type" example:"reader"`
	Phone        string     `json:"phone" db:"phone"`
	BirthDate    *time.Time `json:"birthDate,omitempty" db:"birth_date"`
	Faculty      string     `json:"faculty" db:"faculty"`
	StudentGroup string     `json:"studentGroup" db:"student_group"`
	LibraryCard  *string    `json:"libraryCard,omitempty" db:"library_card"` // always nil for guests
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`

	User *User `json:"user,omitempty"`
}

// Normalize applies the save-time rules: guests never hold a library card
// and an empty card number is stored as NULL.
func (p *Profile) Normalize() {
	if p.UserType == "" {
		p.UserType = UserTypeGuest
	}
	if p.LibraryCard != nil && strings.TrimSpace(*p.LibraryCard) == "" {
		p.LibraryCard = nil
	}
	if p.UserType == UserTypeGuest {
		p.LibraryCard = nil
	}
}

// LibrarianAssignment grants a librarian permissions within one branch
type LibrarianAssignment struct {
	ID                int64     `json:"id" db:"id"`
	UserID            int64     `json:"userId" db:"user_id"`
	BranchID          int64     `json:"branchId" db:"branch_id"`
	CanManageBooks    bool      `json:"canManageBooks" db:"can_manage_books"`
	CanManageUsers    bool      `json:"canManageUsers" db:"can_manage_users"`
	CanManageBookings bool      `json:"canManageBookings" db:"can_manage_bookings"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}

// Permission names one of the assignment flags
type Permission string

const (
	PermManageBooks    Permission = "books"
	PermManageUsers    Permission = "users"
	PermManageBookings Permission = "bookings"
)

// Allows reports whether the assignment grants perm
func (a *LibrarianAssignment) Allows(perm Permission) bool {
	switch perm {
	case PermManageBooks:
		return a.CanManageBooks
	case PermManageUsers:
		return a.CanManageUsers
	case PermManageBookings:
		return a.CanManageBookings
	}
	return false
}
