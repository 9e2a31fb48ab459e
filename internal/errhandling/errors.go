// Package errhandling provides error types and classification for report execution.
// This file defines error categories, constructors for the pipeline's failure modes,
// and helpers used by the executor to decide how a section degrades.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory represents the type/category of an error.
// Categories determine how a failing section is reported.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryParse represents a missing or malformed input file.
	// Fatal to the section that requested the file.
	CategoryParse ErrorCategory = "parse"

	// CategorySchema represents a referenced column that does not exist in a table.
	// Fatal to the requesting operation.
	CategorySchema ErrorCategory = "schema"

	// CategoryEmptyGroup represents a reduction that is undefined over zero values
	// (median, quantile, min, max). Callers recover locally by showing "no data".
	CategoryEmptyGroup ErrorCategory = "empty_group"

	// CategoryReference represents a lookup key absent from a reference table,
	// such as a state code with no coordinates. Fatal to the requesting section only.
	CategoryReference ErrorCategory = "reference"

	// CategoryValidation represents invalid report configuration or parameters.
	CategoryValidation ErrorCategory = "validation"

	// CategoryCanceled represents an execution stopped by context cancellation.
	CategoryCanceled ErrorCategory = "canceled"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Message is a human-readable error message.
	Message string

	// Source is the file path or table name the error relates to, if any.
	Source string

	// Column is the column the error relates to, if any.
	Column string

	// Group is the category key of an empty group, if any.
	Group string

	// Line is the 1-based input line for parse errors (0 if unknown).
	Line int

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Category))
	b.WriteString(" error")
	if e.Source != "" {
		b.WriteString(" in ")
		b.WriteString(e.Source)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// NewParseError creates a ClassifiedError for an unreadable or malformed input file.
func NewParseError(source string, line int, message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryParse,
		Message:     message,
		Source:      source,
		Line:        line,
		OriginalErr: originalErr,
	}
}

// NewSchemaError creates a ClassifiedError for a column that is absent from a table.
func NewSchemaError(source, column string) *ClassifiedError {
	return &ClassifiedError{
		Category: CategorySchema,
		Message:  fmt.Sprintf("column %q does not exist", column),
		Source:   source,
		Column:   column,
	}
}

// NewEmptyGroupError creates a ClassifiedError for a reduction over zero values.
// group is empty for whole-table reductions.
func NewEmptyGroupError(op, column, group string) *ClassifiedError {
	msg := fmt.Sprintf("%s of %q is undefined over zero values", op, column)
	if group != "" {
		msg = fmt.Sprintf("%s of %q is undefined over zero values in group %q", op, column, group)
	}
	return &ClassifiedError{
		Category: CategoryEmptyGroup,
		Message:  msg,
		Column:   column,
		Group:    group,
	}
}

// NewReferenceError creates a ClassifiedError for a key missing from the
// reference table at source.
func NewReferenceError(source, key string) *ClassifiedError {
	return &ClassifiedError{
		Category: CategoryReference,
		Message:  fmt.Sprintf("no entry for %q", key),
		Source:   source,
	}
}

// NewValidationError creates a ClassifiedError for invalid configuration or parameters.
func NewValidationError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryValidation,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// ClassifyError classifies any error into a ClassifiedError.
// Already classified errors are returned as-is.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{
			Category: CategoryUnknown,
			Message:  "nil error",
		}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{
			Category:    CategoryCanceled,
			Message:     err.Error(),
			OriginalErr: err,
		}
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// GetErrorCategory returns the error category for a given error.
// Returns CategoryUnknown for nil or unclassified errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	return ClassifyError(err).Category
}

// IsParse reports whether err is a ParseError.
func IsParse(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryParse
}

// IsSchema reports whether err is a SchemaError.
func IsSchema(err error) bool {
	return err != nil && GetErrorCategory(err) == CategorySchema
}

// IsEmptyGroup reports whether err is an EmptyGroupError.
func IsEmptyGroup(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryEmptyGroup
}

// IsReference reports whether err is a ReferenceError.
func IsReference(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryReference
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryValidation
}

// IsRecoverable returns true if the caller can degrade locally instead of failing,
// i.e. the error is an EmptyGroupError.
func IsRecoverable(err error) bool {
	return IsEmptyGroup(err)
}

// IsFatal returns true if the error should abort the whole execution rather than
// a single section. Fatal categories: Validation, Canceled.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch GetErrorCategory(err) {
	case CategoryValidation, CategoryCanceled:
		return true
	default:
		return false
	}
}
