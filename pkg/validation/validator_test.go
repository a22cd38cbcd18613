package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/adrata/backend/pkg/errors"
)

func TestIsPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+1 (415) 555-0100", true},
		{"020 7946 0958", false},
		{"44 20 7946 0958", true},
		{"", false},
		{"nan", false},
		{"+12345678901234567", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPhone(tt.phone))
		})
	}
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("jane.doe+crm@acme.co.uk"))
	assert.True(t, IsEmail(" jane@acme.io "))
	assert.False(t, IsEmail("jane@acme"))
	assert.False(t, IsEmail("nan"))
	assert.False(t, IsEmail(""))
}

type contact struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,crmemail"`
	Phone string `json:"phone" validate:"omitempty,phone"`
	Type  string `json:"type" validate:"omitempty,oneof=Person Organization"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(contact{Name: "Jane", Email: "jane@acme.io", Phone: "+1 415 555 0100"}))

	err := Struct(contact{Email: "jane@acme.io"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "name")

	err = Struct(contact{Name: "Jane", Phone: "call me"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phone")
}

func TestFieldErrors(t *testing.T) {
	err := Get().Struct(contact{Email: "broken", Type: "Robot"})
	fields := FieldErrors(err)
	assert.Equal(t, map[string]string{"name": "required", "email": "crmemail", "type": "oneof"}, fields)
	assert.Nil(t, FieldErrors(nil))
}
