package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Code is the stable, caller-facing identifier of an error kind.
type Code string

const (
	CodeNodeNotFound   Code = "NODE_NOT_FOUND"
	CodeParentNotFound Code = "PARENT_NOT_FOUND"
	CodeTargetNotFound Code = "TARGET_NOT_FOUND"
	CodeInvalidParent  Code = "INVALID_PARENT"
	CodeCycleForbidden Code = "CYCLE_FORBIDDEN"
	CodeCrossTenant    Code = "CROSS_TENANT_FORBIDDEN"
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeConflict       Code = "CONFLICT"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeInternal       Code = "INTERNAL_ERROR"
)

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("already exists")
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidParent  = errors.New("parent is not a group")
	ErrCycleForbidden = errors.New("move would create a cycle")
	ErrCrossTenant    = errors.New("cross-tenant reference")
)

// TreeError is a structural error raised by the tree engine. It carries a
// stable code and wraps the sentinel for its kind.
type TreeError struct {
	Code    Code
	Message string
	Err     error
}

// NewTreeError builds a TreeError whose wrapped sentinel is derived from code.
func NewTreeError(code Code, message string) *TreeError {
	return &TreeError{Code: code, Message: message, Err: sentinelFor(code)}
}

func (e *TreeError) Error() string { return e.Message }

func (e *TreeError) Unwrap() error { return e.Err }

// StatusCode implements HTTPError
func (e *TreeError) StatusCode() int { return statusFor(e.Code) }

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (node, project)
	ResourceID   string // ID of the existing/conflicting resource
}

func (e *ConflictError) Error() string { return e.Message }

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// CodeOf maps any error to its stable code. Errors that are not domain
// errors (storage failures, timeouts) map to CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	var treeErr *TreeError
	if errors.As(err, &treeErr) {
		return treeErr.Code
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNodeNotFound
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrInvalidParent):
		return CodeInvalidParent
	case errors.Is(err, ErrCycleForbidden):
		return CodeCycleForbidden
	case errors.Is(err, ErrCrossTenant):
		return CodeCrossTenant
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}

// StatusCodeOf returns the HTTP status for err.
func StatusCodeOf(err error) int {
	return statusFor(CodeOf(err))
}

func statusFor(code Code) int {
	switch code {
	case CodeNodeNotFound, CodeParentNotFound, CodeTargetNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeInvalidParent:
		return http.StatusUnprocessableEntity
	case CodeCycleForbidden, CodeConflict:
		return http.StatusConflict
	case CodeCrossTenant:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func sentinelFor(code Code) error {
	switch code {
	case CodeNodeNotFound, CodeParentNotFound, CodeTargetNotFound:
		return ErrNotFound
	case CodeInvalidParent:
		return ErrInvalidParent
	case CodeCycleForbidden:
		return ErrCycleForbidden
	case CodeCrossTenant:
		return ErrCrossTenant
	case CodeValidation:
		return ErrValidation
	case CodeConflict:
		return ErrConflict
	case CodeUnauthorized:
		return ErrUnauthorized
	default:
		return nil
	}
}
