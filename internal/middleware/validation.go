package middleware

import (
	"errors"
	"net/http"

	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the custom binding tags on gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return validation.Register(v)
}

// BindJSON binds and validates the request body, writing a 400 on failure
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

// BindQuery binds and validates query parameters, writing a 400 on failure
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		var fields dto.FieldErrors
		for _, fe := range verrs {
			fields.Add(fe.Field(), formatValidationError(fe))
		}
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed").
			WithDetails(fields.Errors)
		if len(fields.Errors) == 1 {
			errorDetail.WithField(fields.Errors[0].Field)
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	errorDetail := dto.NewErrorDetail(dto.ErrorCodeBadRequest, "Invalid request format").WithDetails(err.Error())
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "email":
		return e.Field() + " must be a valid email address"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "datetime":
		return e.Field() + " must match " + e.Param()
	case "ltefield":
		return e.Field() + " must not exceed " + e.Param()
	case "clocktime":
		return e.Field() + " must be a time of day like 09:30"
	case "isbnlike":
		return e.Field() + " must be an ISBN-10 or ISBN-13"
	case "phone":
		return e.Field() + " must be a phone number"
	case "librarycard":
		return e.Field() + " must be a library card number"
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
