package middleware

import (
	"errors"
	"net/http"
	"slices"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/auth"
	"github.com/gin-gonic/gin"

	appAuth "github.com/biblioteka/backend/internal/app/auth"
)

// Context keys set by JWTAuth
const (
	ContextUserID   = "userID"
	ContextUsername = "username"
	ContextRole     = "role"

	// ContextBranchGuard is set by RequirePermission
	ContextBranchGuard = "branchGuard"
)

// AuthMiddleware validates bearer tokens and enforces roles and permissions
type AuthMiddleware struct {
	jwtService *auth.JWTService
	authz      *appAuth.AuthorizationService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService, authz *appAuth.AuthorizationService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		authz:      authz,
	}
}

func abortUnauthorized(c *gin.Context, code dto.ErrorCode, message, details string) {
	errorDetail := dto.NewErrorDetail(code, message).WithDetails(details)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
}

// JWTAuth middleware for JWT token validation
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		// Browsers cannot set headers on websocket upgrades
		if authHeader == "" {
			authHeader = c.Query("token")
		}

		if authHeader == "" {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authentication required", "Authorization header missing")
			return
		}

		tokenString, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authentication required", "Invalid token format")
			return
		}

		claims, err := m.jwtService.ValidateAndExtractClaims(tokenString)
		if err != nil {
			errorCode := dto.ErrorCodeInvalidToken
			errorDetails := "Invalid token"
			if errors.Is(err, apperrors.ErrTokenExpired) {
				errorCode = dto.ErrorCodeExpiredToken
				errorDetails = "Token has expired"
			}
			abortUnauthorized(c, errorCode, "Authentication failed", errorDetails)
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// RoleRequired middleware to check if user has one of the allowed roles
func (m *AuthMiddleware) RoleRequired(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authentication required", "User role not found")
			return
		}

		roleStr, ok := role.(string)
		if !ok || !slices.Contains(allowed, roleStr) {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied").
				WithDetails("You don't have sufficient permissions for this operation")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}

		c.Next()
	}
}

// BranchGuard checks the permission of the current route at one branch
type BranchGuard func(branchID int64) error

// RequirePermission checks the caller's librarian assignment flag. The route
// is let through when any assignment grants perm; handlers then narrow the
// check to the branches the request touches with AuthorizeBranch.
func (m *AuthMiddleware) RequirePermission(perm models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get(ContextUserID)
		role, _ := c.Get(ContextRole)
		id, _ := userID.(int64)
		roleStr, _ := role.(string)
		reqCtx := c.Request.Context()

		if err := m.authz.Authorize(reqCtx, id, roleStr, nil, perm); err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}

		c.Set(ContextBranchGuard, BranchGuard(func(branchID int64) error {
			return m.authz.Authorize(reqCtx, id, roleStr, &branchID, perm)
		}))
		c.Next()
	}
}

// AuthorizeBranch runs the route's BranchGuard for every branch the request
// reads from or writes to and writes the error response on refusal. Routes
// without RequirePermission are not branch scoped.
func AuthorizeBranch(c *gin.Context, branchIDs ...int64) bool {
	v, ok := c.Get(ContextBranchGuard)
	if !ok {
		return true
	}
	guard, ok := v.(BranchGuard)
	if !ok {
		return true
	}
	for _, branchID := range branchIDs {
		if err := guard(branchID); err != nil {
			HandleAPIError(c, err)
			return false
		}
	}
	return true
}

// BranchScoped reports whether the route carries a BranchGuard
func BranchScoped(c *gin.Context) bool {
	_, ok := c.Get(ContextBranchGuard)
	return ok
}

// CurrentUserID returns the authenticated user's id, if any
func CurrentUserID(c *gin.Context) *int64 {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return nil
	}
	id, ok := v.(int64)
	if !ok {
		return nil
	}
	return &id
}
