package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", NotFound("no such tag"), ErrNotFound},
		{"remote request", RemoteRequestf("status %d", 502), ErrRemoteRequest},
		{"registry empty", RegistryEmpty("tags not refreshed"), ErrRegistryEmpty},
		{"validation", Validation("bad input"), ErrValidation},
		{"conflict", Conflictf("document %d busy", 3), ErrConflict},
		{"internal", Internalf("boom"), ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Is(tt.err, tt.sentinel))
			assert.False(t, Is(tt.err, fmt.Errorf("other")))
		})
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrapf(cause, CodeRemoteRequest, "get %s", "tags/")

	assert.True(t, Is(err, ErrRemoteRequest))
	assert.True(t, Is(err, cause))
	assert.Contains(t, err.Error(), "get tags/")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsMatchesAcrossWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFoundf("no %s", "tag"))
	assert.True(t, Is(err, ErrNotFound))
}

func TestAs(t *testing.T) {
	var target *Error
	require.True(t, As(Validation("bad"), &target))
	assert.Equal(t, CodeValidation, target.Code)
}
