// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
)

// Service errors.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrFolderNotFound      = errors.New("folder not found")
	ErrSnippetNotFound     = errors.New("snippet not found")
	ErrScreenshotsDisabled = errors.New("screenshot uploads are disabled")
	ErrUnsupportedImage    = errors.New("screenshot must be an image")
	ErrScreenshotTooLarge  = errors.New("screenshot is too large")
)

// ValidationError describes a rejected input field. It matches
// ErrInvalidInput with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) succeed.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
