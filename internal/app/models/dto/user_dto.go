package dto

import "github.com/biblioteka/backend/internal/app/models"

// UserRequest mirrors an account from the identity provider
type UserRequest struct {
	Username  string `json:"username" binding:"required,max=150"`
	Email     string `json:"email" binding:"omitempty,email"`
	FirstName string `json:"firstName" binding:"max=150"`
	LastName  string `json:"lastName" binding:"max=150"`
	IsStaff   bool   `json:"isStaff"`
	IsActive  *bool  `json:"isActive"`
}

// ToModel converts the request into a user
func (r *UserRequest) ToModel() *models.User {
	u := &models.User{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		IsStaff:   r.IsStaff,
		IsActive:  true,
	}
	if r.IsActive != nil {
		u.IsActive = *r.IsActive
	}
	return u
}

// ProfileRequest creates or replaces a profile
type ProfileRequest struct {
	UserID       int64           `json:"userId" binding:"required,min=1"`
	UserType     models.UserType `json:"userType" binding:"omitempty,oneof=guest reader librarian admin"`
	Phone        string          `json:"phone" binding:"omitempty,max=20,phone"`
	BirthDate    *string         `json:"birthDate" binding:"omitempty,datetime=2006-01-02" example:"2001-09-01"`
	Faculty      string          `json:"faculty" binding:"max=200"`
	StudentGroup string          `json:"studentGroup" binding:"max=50"`
	LibraryCard  *string         `json:"libraryCard" binding:"omitempty,librarycard"`
}

// ToModel converts the request into a profile; Normalize runs in the service
func (r *ProfileRequest) ToModel() *models.Profile {
	return &models.Profile{
		UserID:       r.UserID,
		UserType:     r.UserType,
		Phone:        r.Phone,
		BirthDate:    parseDate(r.BirthDate),
		Faculty:      r.Faculty,
		StudentGroup: r.StudentGroup,
		LibraryCard:  r.LibraryCard,
	}
}

// LibrarianAssignmentRequest grants a librarian branch permissions
type LibrarianAssignmentRequest struct {
	UserID            int64 `json:"userId" binding:"required,min=1"`
	BranchID          int64 `json:"branchId" binding:"required,min=1"`
	CanManageBooks    *bool `json:"canManageBooks"`
	CanManageUsers    bool  `json:"canManageUsers"`
	CanManageBookings *bool `json:"canManageBookings"`
}

// ToModel converts the request into an assignment
func (r *LibrarianAssignmentRequest) ToModel() *models.LibrarianAssignment {
	a := &models.LibrarianAssignment{
		UserID:            r.UserID,
		BranchID:          r.BranchID,
		CanManageBooks:    true,
		CanManageUsers:    r.CanManageUsers,
		CanManageBookings: true,
	}
	if r.CanManageBooks != nil {
		a.CanManageBooks = *r.CanManageBooks
	}
	if r.CanManageBookings != nil {
		a.CanManageBookings = *r.CanManageBookings
	}
	return a
}
