package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "error", err: NewValidationError(errors.New("invalid token")), want: "invalid token"},
		{name: "error & fields", err: NewValidationError(errors.New("slug taken"), FieldError{Field: "slug", Error: "taken"}), want: "slug taken"},
		{name: "fields only", err: NewValidationError(nil, FieldError{Field: "email", Error: "required"}), want: "email: required"},
		{name: "empty", err: NewValidationError(nil), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}

func TestIsShutdown(t *testing.T) {
	err := NewShutdownError("session storage is closed")
	assert.True(t, IsShutdown(err))
	assert.True(t, IsShutdown(errors.Wrap(err, "logging out")))
	assert.False(t, IsShutdown(errors.New("session storage is closed")))
	assert.False(t, IsShutdown(nil))
}
