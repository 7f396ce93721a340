package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/middleware"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
)

// parseID reads the :id path parameter, writing a 400 when it is not a positive integer
func parseID(ctx *gin.Context) (int64, bool) {
	id, ok := helpers.ParseIDParam(ctx, "id")
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("id", "id must be a positive integer"))
	}
	return id, ok
}

// listParams collects the pagination, search and sort query parameters
func listParams(ctx *gin.Context) repositories.ListParams {
	page, size := helpers.ParsePaginationParams(ctx)
	return repositories.ListParams{
		Page:      page,
		Size:      size,
		Search:    strings.TrimSpace(ctx.Query("search")),
		SortBy:    ctx.Query("sortBy"),
		SortOrder: ctx.Query("sortOrder"),
	}
}

// optionalEnum returns nil for an absent or blank query parameter
func optionalEnum[T ~string](ctx *gin.Context, name string) *T {
	raw := strings.TrimSpace(ctx.Query(name))
	if raw == "" {
		return nil
	}
	v := T(raw)
	return &v
}

func optionalInt(ctx *gin.Context, name string) *int {
	v := helpers.OptionalInt64Query(ctx, name)
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

// optionalDate parses a YYYY-MM-DD query parameter, writing a 400 when malformed
func optionalDate(ctx *gin.Context, name string) (*time.Time, bool) {
	d, err := helpers.ParseDate(ctx.Query(name))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError(name, name+" must be a date in YYYY-MM-DD format"))
		return nil, false
	}
	return d, true
}

func respondOK(ctx *gin.Context, status int, data interface{}, message string) {
	ctx.JSON(status, dto.NewSuccessResponse(data, message))
}

func respondList(ctx *gin.Context, items interface{}, page repositories.PageInfo) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{Items: items, Pagination: page}, ""))
}

func respondDeleted(ctx *gin.Context) {
	ctx.Status(http.StatusNoContent)
}

// authorizeStored checks the route permission at the branch owning a stored
// row. branchOf loads that branch and reports a missing row as not found.
func authorizeStored(ctx *gin.Context, id int64, branchOf func(context.Context, int64) (int64, error)) bool {
	if !middleware.BranchScoped(ctx) {
		return true
	}
	branchID, err := branchOf(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return false
	}
	return middleware.AuthorizeBranch(ctx, branchID)
}

// authorizeOptionalBranch checks a branch that may be absent; entries without
// a branch are covered by the route-level check
func authorizeOptionalBranch(ctx *gin.Context, branchID *int64) bool {
	if branchID == nil {
		return true
	}
	return middleware.AuthorizeBranch(ctx, *branchID)
}
