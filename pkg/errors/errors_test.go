package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Creation(t *testing.T) {
	cause := errors.New("underlying error")

	err := NewCertificateError("pin mismatch", cause)

	assert.Equal(t, ErrorTypeCertificate, err.Type)
	assert.Equal(t, "pin mismatch", err.Message)
	assert.Equal(t, cause, err.Cause)
	assert.NotNil(t, err.Context)
}

func TestDomainError_WithContext(t *testing.T) {
	err := NewNetworkError("probe failed", nil).
		WithContext("target", "https://example.com/").
		WithContext("attempt", 1)

	assert.Equal(t, "https://example.com/", err.Context["target"])
	assert.Equal(t, 1, err.Context["attempt"])
}

func TestDomainError_ErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		error    *DomainError
		expected string
	}{
		{
			name:     "error without cause",
			error:    NewValidationError("delay is required", nil),
			expected: "validation: delay is required",
		},
		{
			name:     "error with cause",
			error:    NewProcessError("command failed", errors.New("exit status 1")),
			expected: "process: command failed: exit status 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.error.Error())
		})
	}
}

func TestDomainError_TypeChecking(t *testing.T) {
	networkErr := NewNetworkError("connection refused", nil)
	timeoutErr := NewTimeoutError("deadline exceeded", nil)

	assert.True(t, IsNetworkError(networkErr))
	assert.False(t, IsNetworkError(timeoutErr))
	assert.True(t, IsTimeoutError(timeoutErr))
	assert.False(t, IsTimeoutError(networkErr))

	assert.False(t, IsValidationError(errors.New("plain")))
	assert.False(t, IsCertificateError(nil))
}

func TestDomainError_NestedTypes(t *testing.T) {
	pinErr := NewCertificateError("presented certificate does not match pin", nil)
	probeErr := NewNetworkError("TLS handshake failed", pinErr)
	wrapped := fmt.Errorf("cycle: %w", probeErr)

	assert.True(t, IsNetworkError(wrapped))
	assert.True(t, IsCertificateError(wrapped))
	assert.False(t, IsTimeoutError(wrapped))
}

func TestDomainError_Is(t *testing.T) {
	err := NewIOError("read failed", nil)

	assert.True(t, errors.Is(err, &DomainError{Type: ErrorTypeIO}))
	assert.False(t, errors.Is(err, &DomainError{Type: ErrorTypeNetwork}))
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewProcessError("test error", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestErrorCollection(t *testing.T) {
	collection := NewErrorCollection()
	assert.False(t, collection.HasErrors())
	assert.NoError(t, collection.ToError())

	collection.Add(nil)
	assert.False(t, collection.HasErrors())

	collection.Add(NewValidationError("first", nil))
	assert.Equal(t, "validation: first", collection.Error())

	collection.Add(NewValidationError("second", nil))
	assert.True(t, collection.HasErrors())
	assert.Equal(t, "2 errors occurred: validation: first", collection.ToError().Error())
}
