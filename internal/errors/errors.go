// Package errors provides a lightweight structured error type (PlantKeeperError)
// for category-based classification and retry semantics across the service and CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a PlantKeeper error for classification
type ErrorCategory string

const (
	// User-facing input and lookup errors. Ownership violations surface as
	// CategoryNotFound so plant IDs stay unguessable across users.
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "notfound"

	// Watering-schedule errors
	CategoryNotYetDue ErrorCategory = "notyetdue"
	CategorySchedule  ErrorCategory = "schedule"

	// Infrastructure errors
	CategoryNotification ErrorCategory = "notification"
	CategoryStorage      ErrorCategory = "storage"
	CategoryConfig       ErrorCategory = "config"
	CategoryInternal     ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// PlantKeeperError is a structured error with category, retryability, and context
type PlantKeeperError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for PlantKeeperError
type ContextFields map[string]any

// Error implements the error interface
func (e *PlantKeeperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *PlantKeeperError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *PlantKeeperError) WithContext(key string, value any) *PlantKeeperError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new PlantKeeperError
func New(category ErrorCategory, severity ErrorSeverity, message string) *PlantKeeperError {
	return &PlantKeeperError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new PlantKeeperError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *PlantKeeperError {
	return &PlantKeeperError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// WrapRetryable creates a new retryable PlantKeeperError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *PlantKeeperError {
	return &PlantKeeperError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if pke, ok := err.(*PlantKeeperError); ok {
		return pke.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if pke, ok := err.(*PlantKeeperError); ok {
		return pke.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a PlantKeeperError
func GetCategory(err error) ErrorCategory {
	if pke, ok := err.(*PlantKeeperError); ok {
		return pke.Category
	}
	return CategoryInternal
}
