// Package runtime provides error types and classification for report execution.
// This file re-exports error handling utilities from the errhandling package.
package runtime

import (
	"errors"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// ErrorCategory represents the category of an error (re-exported from errhandling).
type ErrorCategory = errhandling.ErrorCategory

// ClassifiedError represents a classified error (re-exported from errhandling).
type ClassifiedError = errhandling.ClassifiedError

// Re-export error category constants
const (
	CategoryParse      = errhandling.CategoryParse
	CategorySchema     = errhandling.CategorySchema
	CategoryEmptyGroup = errhandling.CategoryEmptyGroup
	CategoryReference  = errhandling.CategoryReference
	CategoryValidation = errhandling.CategoryValidation
	CategoryCanceled   = errhandling.CategoryCanceled
	CategoryUnknown    = errhandling.CategoryUnknown
)

// Re-export functions
var (
	ClassifyError      = errhandling.ClassifyError
	IsFatal            = errhandling.IsFatal
	GetErrorCategory   = errhandling.GetErrorCategory
	NewValidationError = errhandling.NewValidationError
	IsValidation       = errhandling.IsValidation
	IsRecoverable      = errhandling.IsRecoverable
)

// ErrUnknownSection is returned by ExecuteSection for a section name the report does not define.
var ErrUnknownSection = errors.New("unknown section")

// ErrNilReport is returned when the report configuration is nil.
var ErrNilReport = errors.New("report configuration is nil")

// buildExecutionError converts err into the wire form attached to results.
func buildExecutionError(module string, err error) *report.ExecutionError {
	cl := errhandling.ClassifyError(err)
	return &report.ExecutionError{
		Category: string(cl.Category),
		Message:  err.Error(),
		Module:   module,
	}
}
