package validation

import (
	"fmt"
	"strings"

	apperrors "fill-nodes-go/internal/errors"
)

const (
	MinQuality = 1
	MaxQuality = 100

	defaultMaxSegmentLength = 200
)

// PathValidator checks caller-supplied names that become a single
// component of an output path (job ids, categories).
type PathValidator struct {
	maxLength int
	forbidden string
}

// NewPathValidator creates a validator with default settings
func NewPathValidator() *PathValidator {
	return &PathValidator{
		maxLength: defaultMaxSegmentLength,
		forbidden: `/\` + "\x00",
	}
}

// NewPathValidatorWithOptions creates a validator with a custom length
// limit and extra forbidden characters on top of the path separators.
func NewPathValidatorWithOptions(maxLength int, extraForbidden string) *PathValidator {
	v := NewPathValidator()
	if maxLength > 0 {
		v.maxLength = maxLength
	}
	v.forbidden += extraForbidden
	return v
}

// ValidateSegment rejects values that would escape or alter the directory
// layout when joined into a path: empty names, separators, "." and "..".
func (v *PathValidator) ValidateSegment(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.NewValidationError(fmt.Sprintf("%s cannot be empty", field), nil)
	}
	if value == "." || value == ".." {
		return apperrors.NewValidationError(fmt.Sprintf("%s cannot be %q", field, value), nil)
	}
	if len(value) > v.maxLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s exceeds %d characters", field, v.maxLength), nil)
	}
	if i := strings.IndexAny(value, v.forbidden); i >= 0 {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s contains forbidden character %q", field, value[i]), nil)
	}
	return nil
}

// ValidateQuality checks the encoder quality range shared by jpeg and webp.
func ValidateQuality(quality int) error {
	if quality < MinQuality || quality > MaxQuality {
		return apperrors.NewValidationError(
			fmt.Sprintf("quality must be between %d and %d (got %d)", MinQuality, MaxQuality, quality), nil)
	}
	return nil
}
