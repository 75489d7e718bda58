// Package validation checks configuration structure and task invocations
package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationLevel represents error severity
type ValidationLevel string

const (
	ValidationLevelError   ValidationLevel = "error"
	ValidationLevelWarning ValidationLevel = "warning"
)

// ValidationError represents one problem found in a task invocation
type ValidationError struct {
	Phase   string
	Task    string
	Option  string
	Message string
	Level   ValidationLevel
	Err     error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "phase %q task %q", e.Phase, e.Task)
	if e.Option != "" {
		fmt.Fprintf(&b, " option %q", e.Option)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// NewValidationResult creates an empty, valid result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// AddError adds an error to the validation result
func (r *ValidationResult) AddError(phase, task, option string, err error, message string) {
	r.add(phase, task, option, err, message, ValidationLevelError)
}

// AddWarning adds a warning that does not make the result invalid
func (r *ValidationResult) AddWarning(phase, task, option string, err error, message string) {
	r.add(phase, task, option, err, message, ValidationLevelWarning)
}

func (r *ValidationResult) add(phase, task, option string, err error, message string, level ValidationLevel) {
	r.Errors = append(r.Errors, ValidationError{
		Phase:   phase,
		Task:    task,
		Option:  option,
		Message: message,
		Level:   level,
		Err:     err,
	})
	if level == ValidationLevelError {
		r.Valid = false
	}
}

// Merge appends the entries of other
func (r *ValidationResult) Merge(other *ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	if !other.Valid {
		r.Valid = false
	}
}

// Warnings returns warning entries
func (r *ValidationResult) Warnings() []ValidationError {
	var warnings []ValidationError
	for _, e := range r.Errors {
		if e.Level == ValidationLevelWarning {
			warnings = append(warnings, e)
		}
	}
	return warnings
}

// Err joins every error entry into one error, or returns nil when valid
func (r *ValidationResult) Err() error {
	var errs []error
	for i := range r.Errors {
		if r.Errors[i].Level == ValidationLevelError {
			errs = append(errs, &r.Errors[i])
		}
	}
	return errors.Join(errs...)
}
