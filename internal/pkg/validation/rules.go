package validation

import (
	"regexp"
	"strings"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	PhonePattern       = `^\+?[0-9][0-9\s\-()]{4,19}$`
	LibraryCardPattern = `^[A-Za-z0-9\-]{1,20}$`
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Phone       *regexp.Regexp
	LibraryCard *regexp.Regexp
}{
	Phone:       regexp.MustCompile(PhonePattern),
	LibraryCard: regexp.MustCompile(LibraryCardPattern),
}

// Register installs the custom binding tags on v
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"phone":       validatePhone,
		"clocktime":   validateClockTime,
		"isbnlike":    validateISBNLike,
		"librarycard": validateLibraryCard,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func validatePhone(fl validator.FieldLevel) bool {
	return CompiledPatterns.Phone.MatchString(fl.Field().String())
}

func validateClockTime(fl validator.FieldLevel) bool {
	_, err := models.ParseClockTime(fl.Field().String())
	return err == nil
}

func validateLibraryCard(fl validator.FieldLevel) bool {
	return CompiledPatterns.LibraryCard.MatchString(fl.Field().String())
}

// validateISBNLike accepts 10 or 13 digit codes with optional hyphens or
// spaces; the last character of a 10 digit code may be X.
func validateISBNLike(fl validator.FieldLevel) bool {
	return IsISBNLike(fl.Field().String())
}

// IsISBNLike reports whether s looks like an ISBN-10 or ISBN-13
func IsISBNLike(s string) bool {
	s = strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s))
	if len(s) != 10 && len(s) != 13 {
		return false
	}
	for i, r := range s {
		if r >= '0' && r <= '9' {
			continue
		}
		if len(s) == 10 && i == 9 && (r == 'X' || r == 'x') {
			continue
		}
		return false
	}
	return true
}
