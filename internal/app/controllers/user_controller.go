package controllers

import (
	"net/http"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/app/services"
	"github.com/biblioteka/backend/internal/middleware"
	"github.com/biblioteka/backend/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
)

// UserController handles users, profiles and librarian assignments
type UserController struct {
	userService *services.UserService
}

// NewUserController creates a new UserController
func NewUserController(userService *services.UserService) *UserController {
	return &UserController{userService: userService}
}

// ListUsers handles listing mirrored accounts
// @Summary List users
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search by username, email or name"
// @Param isStaff query bool false "Filter by staff flag"
// @Param isActive query bool false "Filter by active flag"
// @Param sortBy query string false "Sort field (username, email, createdAt)"
// @Param sortOrder query string false "Sort order (ASC, DESC)"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.User}}
// @Failure 401 {object} dto.ErrorResponse
// @Router /admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	users, page, err := c.userService.ListUsers(ctx.Request.Context(), repositories.UserFilter{
		ListParams: listParams(ctx),
		IsStaff:    helpers.OptionalBoolQuery(ctx, "isStaff"),
		IsActive:   helpers.OptionalBoolQuery(ctx, "isActive"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, users, page)
}

// GetUser handles retrieving one user
// @Summary Get user by ID
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=models.User}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /admin/users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	user, err := c.userService.GetUser(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, user, "")
}

// CreateUser handles mirroring an identity provider account
// @Summary Create user
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.UserRequest true "User"
// @Success 201 {object} dto.APIResponse{data=models.User}
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 409 {object} dto.ErrorResponse "Username already taken"
// @Router /admin/users [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req dto.UserRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	user := req.ToModel()
	if err := c.userService.CreateUser(ctx.Request.Context(), user); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, user, "User created successfully")
}

// UpdateUser handles replacing a user
// @Summary Update user
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body dto.UserRequest true "User"
// @Success 200 {object} dto.APIResponse{data=models.User}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /admin/users/{id} [put]
func (c *UserController) UpdateUser(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.UserRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	user := req.ToModel()
	if err := c.userService.UpdateUser(ctx.Request.Context(), id, user); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, user, "User updated successfully")
}

// DeleteUser handles removing a user
// @Summary Delete user
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /admin/users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.userService.DeleteUser(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// ListProfiles handles listing profiles
// @Summary List profiles
// @Tags profiles
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search by username, phone or library card"
// @Param userType query string false "Filter by user type (guest, reader, librarian, admin)"
// @Param faculty query string false "Filter by faculty"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Profile}}
// @Router /admin/profiles [get]
func (c *UserController) ListProfiles(ctx *gin.Context) {
	profiles, page, err := c.userService.ListProfiles(ctx.Request.Context(), repositories.ProfileFilter{
		ListParams: listParams(ctx),
		UserType:   optionalEnum[models.UserType](ctx, "userType"),
		Faculty:    ctx.Query("faculty"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, profiles, page)
}

// GetProfile handles retrieving one profile
// @Summary Get profile by ID
// @Tags profiles
// @Security BearerAuth
// @Produce json
// @Param id path int true "Profile ID"
// @Success 200 {object} dto.APIResponse{data=models.Profile}
// @Failure 404 {object} dto.ErrorResponse "Profile not found"
// @Router /admin/profiles/{id} [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	profile, err := c.userService.GetProfile(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, profile, "")
}

// CreateProfile handles creating a profile; guests never keep a library card
// @Summary Create profile
// @Tags profiles
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ProfileRequest true "Profile"
// @Success 201 {object} dto.APIResponse{data=models.Profile}
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 409 {object} dto.ErrorResponse "Library card already issued"
// @Router /admin/profiles [post]
func (c *UserController) CreateProfile(ctx *gin.Context) {
	var req dto.ProfileRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	profile := req.ToModel()
	if err := c.userService.CreateProfile(ctx.Request.Context(), profile); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, profile, "Profile created successfully")
}

// UpdateProfile handles replacing a profile
// @Summary Update profile
// @Tags profiles
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Profile ID"
// @Param request body dto.ProfileRequest true "Profile"
// @Success 200 {object} dto.APIResponse{data=models.Profile}
// @Failure 404 {object} dto.ErrorResponse "Profile not found"
// @Router /admin/profiles/{id} [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.ProfileRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	profile := req.ToModel()
	if err := c.userService.UpdateProfile(ctx.Request.Context(), id, profile); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, profile, "Profile updated successfully")
}

// DeleteProfile handles removing a profile
// @Summary Delete profile
// @Tags profiles
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Success 204
// @Router /admin/profiles/{id} [delete]
func (c *UserController) DeleteProfile(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.userService.DeleteProfile(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}

// ListAssignments handles listing librarian assignments
// @Summary List librarian assignments
// @Tags librarian-assignments
// @Security BearerAuth
// @Produce json
// @Param userId query int false "Filter by librarian"
// @Param branchId query int false "Filter by branch"
// @Param canManageBooks query bool false "Filter by book permission"
// @Param canManageUsers query bool false "Filter by user permission"
// @Param canManageBookings query bool false "Filter by booking permission"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.LibrarianAssignment}}
// @Router /admin/librarian-assignments [get]
func (c *UserController) ListAssignments(ctx *gin.Context) {
	items, page, err := c.userService.ListAssignments(ctx.Request.Context(), repositories.AssignmentFilter{
		ListParams:        listParams(ctx),
		UserID:            helpers.OptionalInt64Query(ctx, "userId"),
		BranchID:          helpers.OptionalInt64Query(ctx, "branchId"),
		CanManageBooks:    helpers.OptionalBoolQuery(ctx, "canManageBooks"),
		CanManageUsers:    helpers.OptionalBoolQuery(ctx, "canManageUsers"),
		CanManageBookings: helpers.OptionalBoolQuery(ctx, "canManageBookings"),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondList(ctx, items, page)
}

// GetAssignment handles retrieving one assignment
// @Summary Get librarian assignment by ID
// @Tags librarian-assignments
// @Security BearerAuth
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} dto.APIResponse{data=models.LibrarianAssignment}
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Router /admin/librarian-assignments/{id} [get]
func (c *UserController) GetAssignment(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	a, err := c.userService.GetAssignment(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, a, "")
}

// CreateAssignment handles granting a librarian branch permissions
// @Summary Create librarian assignment
// @Tags librarian-assignments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.LibrarianAssignmentRequest true "Assignment"
// @Success 201 {object} dto.APIResponse{data=models.LibrarianAssignment}
// @Failure 409 {object} dto.ErrorResponse "Librarian already assigned to this branch"
// @Router /admin/librarian-assignments [post]
func (c *UserController) CreateAssignment(ctx *gin.Context) {
	var req dto.LibrarianAssignmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	a := req.ToModel()
	if err := c.userService.CreateAssignment(ctx.Request.Context(), a); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusCreated, a, "Assignment created successfully")
}

// UpdateAssignment handles replacing an assignment
// @Summary Update librarian assignment
// @Tags librarian-assignments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param request body dto.LibrarianAssignmentRequest true "Assignment"
// @Success 200 {object} dto.APIResponse{data=models.LibrarianAssignment}
// @Router /admin/librarian-assignments/{id} [put]
func (c *UserController) UpdateAssignment(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.LibrarianAssignmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	a := req.ToModel()
	if err := c.userService.UpdateAssignment(ctx.Request.Context(), id, a); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, http.StatusOK, a, "Assignment updated successfully")
}

// DeleteAssignment handles revoking an assignment
// @Summary Delete librarian assignment
// @Tags librarian-assignments
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Success 204
// @Router /admin/librarian-assignments/{id} [delete]
func (c *UserController) DeleteAssignment(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.userService.DeleteAssignment(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondDeleted(ctx)
}
