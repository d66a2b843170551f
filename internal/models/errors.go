// internal/models/errors.go
package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange   = errors.New("INVALID_RANGE")
	ErrInvalidListing = errors.New("INVALID_LISTING")
	ErrInvalidProfile = errors.New("INVALID_PROFILE")
	ErrInvalidSort    = errors.New("INVALID_SORT")
)

// ErrorKind classifies a ValidationError.
type ErrorKind string

const (
	KindInvalidRange   ErrorKind = "InvalidRange"
	KindInvalidListing ErrorKind = "InvalidListing"
	KindInvalidProfile ErrorKind = "InvalidProfile"
	KindInvalidSort    ErrorKind = "InvalidSort"
)

// ValidationError is returned by every Validate method and by the matching
// pipeline. It unwraps to the sentinel for its kind.
type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	switch e.Kind {
	case KindInvalidRange:
		return ErrInvalidRange
	case KindInvalidListing:
		return ErrInvalidListing
	case KindInvalidProfile:
		return ErrInvalidProfile
	case KindInvalidSort:
		return ErrInvalidSort
	}
	return nil
}

func invalidRange(field, format string, args ...interface{}) error {
	return &ValidationError{Kind: KindInvalidRange, Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidListing(field, format string, args ...interface{}) error {
	return &ValidationError{Kind: KindInvalidListing, Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidProfile(field, format string, args ...interface{}) error {
	return &ValidationError{Kind: KindInvalidProfile, Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidSort(field, format string, args ...interface{}) error {
	return &ValidationError{Kind: KindInvalidSort, Field: field, Message: fmt.Sprintf(format, args...)}
}

// AsValidationError extracts a *ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// NewValidationError builds a ValidationError of the given kind.
func NewValidationError(kind ErrorKind, field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}
