package task

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	err := NotFound("toggle", "t1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnavailable)

	wrapped := fmt.Errorf("settle: %w", err)
	assert.ErrorIs(t, wrapped, ErrNotFound)
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "task not found: t1", NotFound("delete", "t1").Error())
	assert.Equal(t, "no active session", Unauthorized("add").Error())

	cause := errors.New("disk full")
	err := Unavailable("create", cause)
	assert.Equal(t, "store unavailable: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, CodeValidation, CodeOf(Validation("add", "empty")))
	assert.Equal(t, CodeUnavailable, CodeOf(errors.New("boom")))
	assert.Equal(t, CodeUnauthorized, CodeOf(fmt.Errorf("load: %w", Unauthorized("load"))))
}
