package layout

import (
	"errors"
	"fmt"
)

// Engine command errors.  These indicate a caller mistake (unknown id,
// ineligible selection) rather than an invalid layout, which is reported
// as data through Validation.
var (
	ErrTableNotFound = errors.New("table not found")
	ErrZoneNotFound  = errors.New("zone not found")
	ErrNotMergeable  = errors.New("tables are not mergeable")
	ErrNotMerged     = errors.New("table is not a merged table")
	ErrDraftNotFound = errors.New("draft not found")
	ErrFloorNotFound = errors.New("floor not found")
)

// Code names a rejection returned from the persistence boundary.  The
// values double as the "error" field of HTTP error bodies.
type Code string

const (
	CodeStaleVersion      Code = "STALE_VERSION"
	CodeInvalidLayout     Code = "INVALID_LAYOUT"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeDuplicateTableID  Code = "DUPLICATE_TABLE_ID"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
)

// BoundaryError is a named rejection.  Two BoundaryErrors match under
// errors.Is when their codes are equal, so callers compare against the
// Err* values below regardless of Detail.
type BoundaryError struct {
	Code   Code
	Detail string
}

func (e *BoundaryError) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Is implements errors.Is matching on the code.
func (e *BoundaryError) Is(target error) bool {
	var t *BoundaryError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrStaleVersion      = &BoundaryError{Code: CodeStaleVersion, Detail: "layout was modified by another user"}
	ErrInvalidLayout     = &BoundaryError{Code: CodeInvalidLayout, Detail: "layout failed validation"}
	ErrValidation        = &BoundaryError{Code: CodeValidation, Detail: "payload failed validation"}
	ErrDuplicateTableID  = &BoundaryError{Code: CodeDuplicateTableID, Detail: "table ids must be unique"}
	ErrInvalidTransition = &BoundaryError{Code: CodeInvalidTransition, Detail: "status transition not allowed"}
)

// Reject builds a BoundaryError with a formatted detail.
func Reject(code Code, format string, args ...any) *BoundaryError {
	return &BoundaryError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the boundary code from err, or "" when err is not a
// BoundaryError.
func CodeOf(err error) Code {
	var be *BoundaryError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
