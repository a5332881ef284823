package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NewErrorf(ErrCodeResolve, "reference %s failed", "op://v/i/f")
	assert.Equal(t, "[RESOLVE_ERROR] reference op://v/i/f failed", err.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := NewError(ErrCodeResolve, "cli failed").WithCause(cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsCode(t *testing.T) {
	err := NewError(ErrCodeNotFound, "missing")
	assert.True(t, IsCode(err, ErrCodeNotFound))
	assert.False(t, IsCode(err, ErrCodeValidation))

	wrapped := fmt.Errorf("loading registry: %w", err)
	assert.True(t, IsCode(wrapped, ErrCodeNotFound))

	assert.False(t, IsCode(errors.New("plain"), ErrCodeNotFound))
	assert.False(t, IsCode(nil, ErrCodeNotFound))
}
