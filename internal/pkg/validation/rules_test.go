package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Phone string `validate:"omitempty,phone"`
	Start string `validate:"omitempty,clocktime"`
	ISBN  string `validate:"omitempty,isbnlike"`
	Card  string `validate:"omitempty,librarycard"`
}

func newValidator(t *testing.T) *validator.Validate {
	v := validator.New()
	require.NoError(t, Register(v))
	return v
}

func TestRegisteredTags(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name  string
		input sample
		valid bool
	}{
		{"all empty", sample{}, true},
		{"good values", sample{Phone: "+7 (843) 233-71-00", Start: "09:30", ISBN: "978-5-17-090831-8", Card: "KFU-000123"}, true},
		{"bad phone", sample{Phone: "call me"}, false},
		{"bad clock", sample{Start: "25:00"}, false},
		{"short isbn", sample{ISBN: "12345"}, false},
		{"bad card", sample{Card: "card #1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestIsISBNLike(t *testing.T) {
	assert.True(t, IsISBNLike("0-306-40615-X"))
	assert.True(t, IsISBNLike("9785170908318"))
	assert.False(t, IsISBNLike("97851709083X8"))
	assert.False(t, IsISBNLike(""))
}
