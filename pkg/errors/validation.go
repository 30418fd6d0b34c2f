package errors

import (
	"math"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ValidatePath validates a user-supplied file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateTolerance checks a containment tolerance. It must be finite and
// not negative.
func ValidateTolerance(tol float64) error {
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol < 0 {
		return New(ErrCodeInvalidConfig, "tolerance must be a finite non-negative number, got %v", tol)
	}
	return nil
}

// ValidateThreshold checks an IoU suppression threshold. Zero selects the
// default; otherwise it must lie in (0, 1].
func ValidateThreshold(th float64) error {
	if math.IsNaN(th) || th < 0 || th > 1 {
		return New(ErrCodeInvalidConfig, "IoU threshold must be within [0, 1], got %v", th)
	}
	return nil
}

// ValidateLayoutID checks that id is a canonical UUID as issued for stored
// layouts.
func ValidateLayoutID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "layout ID cannot be empty")
	}
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != strings.ToLower(id) {
		return New(ErrCodeInvalidInput, "invalid layout ID: %q", id)
	}
	return nil
}

// ValidateFormat checks that format is one of the allowed names.
func ValidateFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return New(ErrCodeInvalidFormat, "unsupported format %q (want one of %s)", format, strings.Join(allowed, ", "))
}
