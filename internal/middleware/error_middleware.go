package middleware

import (
	"errors"
	"net/http"

	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// errorMappings is checked in order; the first sentinel err wraps wins
var errorMappings = []errorMapping{
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrPaymentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Payment not found at gateway"},
	{apperrors.ErrQueueEmpty, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Nobody is waiting for this book"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},
	{apperrors.ErrInvalidTimeWindow, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Start time must be before end time"},
	{apperrors.ErrCategoryCycle, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Category cannot be its own ancestor"},
	{apperrors.ErrReferenceNotFound, http.StatusBadRequest, dto.ErrorCodeResourceInvalid, "Referenced resource does not exist"},
	{apperrors.ErrMissingGatewayPayment, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Fine has no gateway payment id"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrAlreadyInQueue, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "User is already queued for this book"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
	{apperrors.ErrInvalidStatusTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Status transition is not allowed"},
	{apperrors.ErrBookingNotIssuable, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Booking is not ready for issue"},
	{apperrors.ErrLoanAlreadyReturned, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Loan already returned"},
	{apperrors.ErrFineAlreadyPaid, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Fine is already paid"},
	{apperrors.ErrFineNotPayable, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Fine cannot be paid"},
	{apperrors.ErrRoomInactive, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Reading room is not active"},
	{apperrors.ErrRenewalLimitReached, http.StatusUnprocessableEntity, dto.ErrorCodeLimitReached, "Loan renewal limit reached"},
	{apperrors.ErrRoomCapacityExceeded, http.StatusUnprocessableEntity, dto.ErrorCodeCapacityExceeded, "Not enough free seats"},
	{apperrors.ErrPaymentsDisabled, http.StatusServiceUnavailable, dto.ErrorCodeServiceUnavailable, "Payment gateway is not configured"},
	{apperrors.ErrExternalService, http.StatusBadGateway, dto.ErrorCodeExternalServiceError, "Payment gateway error"},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		detail := dto.NewErrorDetail(m.code, m.message)

		var custom *apperrors.CustomError
		if errors.As(err, &custom) {
			if custom.Message != "" {
				detail.Message = custom.Message
			}
			if field, ok := custom.Details["field"].(string); ok {
				detail.WithField(field)
			}
			if len(custom.Details) > 0 {
				detail.WithDetails(custom.Details)
			}
		}
		if m.status >= http.StatusInternalServerError {
			logger.Warn().Err(err).Str("path", c.FullPath()).Msg("Upstream failure")
		}
		c.JSON(m.status, dto.NewErrorResponse(detail))
		return
	}

	logger.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("Unhandled API error")
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
		dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"),
	))
}
