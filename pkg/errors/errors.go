package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a watchdog error
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeIO          ErrorType = "io"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeCertificate ErrorType = "certificate"
	ErrorTypeProcess     ErrorType = "process"
	ErrorTypeCancelled   ErrorType = "cancelled"
	ErrorTypeInternal    ErrorType = "internal"
)

// DomainError represents a structured error with type and context
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewNetworkError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNetwork, message, cause)
}

func NewTimeoutError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeTimeout, message, cause)
}

func NewCertificateError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeCertificate, message, cause)
}

func NewProcessError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeProcess, message, cause)
}

func NewCancelledError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeCancelled, message, cause)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeInternal, message, cause)
}

// Error checking helpers
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

func IsIOError(err error) bool {
	return hasType(err, ErrorTypeIO)
}

func IsNetworkError(err error) bool {
	return hasType(err, ErrorTypeNetwork)
}

func IsTimeoutError(err error) bool {
	return hasType(err, ErrorTypeTimeout)
}

func IsCertificateError(err error) bool {
	return hasType(err, ErrorTypeCertificate)
}

func IsProcessError(err error) bool {
	return hasType(err, ErrorTypeProcess)
}

func IsCancelledError(err error) bool {
	return hasType(err, ErrorTypeCancelled)
}

// hasType walks the whole chain so that a network error wrapping a
// certificate error reports both types.
func hasType(err error, errorType ErrorType) bool {
	for err != nil {
		var domainErr *DomainError
		if !errors.As(err, &domainErr) {
			return false
		}
		if domainErr.Type == errorType {
			return true
		}
		err = domainErr.Cause
	}
	return false
}

// ErrorCollection aggregates errors for bulk validation
type ErrorCollection struct {
	Errors []error
}

func (e *ErrorCollection) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(e.Errors), e.Errors[0])
}

func (e *ErrorCollection) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ErrorCollection) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ErrorCollection) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// NewErrorCollection creates a new error collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors: make([]error, 0),
	}
}
