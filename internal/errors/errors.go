// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrDuplicateSymbol    = errors.New("symbol is already tracked")
	ErrSymbolNotFound     = errors.New("symbol not found")
	ErrInvalidSymbol      = errors.New("invalid stock symbol")
	ErrPreferencesMissing = errors.New("preferences not initialized")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrStoreClosed        = errors.New("store is closed")
)

// FetchError represents a failed quote provider call. A fetch failure skips
// the symbol for the current cycle only and is never fatal to the process.
type FetchError struct {
	Symbol   string
	Provider string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch error [%s] %s: %v", e.Provider, e.Symbol, e.Err)
	}
	return fmt.Sprintf("fetch error [%s] %s", e.Provider, e.Symbol)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(provider, symbol string, err error) *FetchError {
	return &FetchError{Provider: provider, Symbol: symbol, Err: err}
}

// PersistenceError represents a failed write to a store's backing storage.
// In-memory state stays authoritative; the caller decides whether to retry.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("persistence error [%s] %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("persistence error [%s]: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(op, path string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Path: path, Err: err}
}

// DeliveryError represents a failed notification dispatch.
type DeliveryError struct {
	Channel string
	Symbol  string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery error [%s] %s: %v", e.Channel, e.Symbol, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewDeliveryError creates a new DeliveryError.
func NewDeliveryError(channel, symbol string, err error) *DeliveryError {
	return &DeliveryError{Channel: channel, Symbol: symbol, Err: err}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
