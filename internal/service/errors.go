package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Specific errors below wrap one of these so callers can branch
// on the kind with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
)

var (
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrShopNotFound     = fmt.Errorf("shop %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	ErrNotShopOwner    = fmt.Errorf("%w: not the shop owner", ErrForbidden)
	ErrNotProductOwner = fmt.Errorf("%w: not the product owner", ErrForbidden)

	ErrOrderNotCancellable = fmt.Errorf("%w: order can no longer be cancelled", ErrInvalidTransition)
	ErrOrderNotAdvanceable = fmt.Errorf("%w: order has no next status", ErrInvalidTransition)

	ErrUserAlreadyExists = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrShopAlreadyExists = fmt.Errorf("%w: user already owns a shop", ErrConflict)
	ErrRetriesExhausted  = fmt.Errorf("%w: too many concurrent updates, try again", ErrConflict)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrUnauthorized)
)

// ValidationError reports rejected input keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns nil when no field was rejected.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
