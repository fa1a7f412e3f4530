package provision

import (
	"errors"
	"regexp"
	"strings"
)

// StageID uniquely identifies a stage within a provisioning plan.
// Format: area:action (e.g., "env:create").
type StageID struct {
	value string
}

// Errors for StageID validation.
var (
	ErrEmptyStageID   = errors.New("stage ID cannot be empty")
	ErrInvalidStageID = errors.New("stage ID format invalid: must be alphanumeric with colons, hyphens, underscores, or slashes")
)

// stageIDPattern validates stage ID format.
// Allows alphanumeric segments separated by colons; no spaces, no leading
// or trailing colon.
var stageIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_./-]*(?::[a-zA-Z0-9][a-zA-Z0-9_./-]*)*$`)

// NewStageID creates a new StageID from a string.
func NewStageID(value string) (StageID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return StageID{}, ErrEmptyStageID
	}

	if !stageIDPattern.MatchString(trimmed) {
		return StageID{}, ErrInvalidStageID
	}

	return StageID{value: trimmed}, nil
}

// MustNewStageID creates a new StageID from a string, panicking on error.
// Use this for compile-time known values that should never fail validation.
func MustNewStageID(value string) StageID {
	id, err := NewStageID(value)
	if err != nil {
		panic("invalid stage ID: " + value + ": " + err.Error())
	}
	return id
}

// String returns the string representation.
func (id StageID) String() string {
	return id.value
}

// Equals checks equality with another StageID.
func (id StageID) Equals(other StageID) bool {
	return id.value == other.value
}

// Area extracts the area name (first segment).
func (id StageID) Area() string {
	parts := strings.SplitN(id.value, ":", 2)
	return parts[0]
}

// IsZero returns true if this is a zero-value StageID.
func (id StageID) IsZero() bool {
	return id.value == ""
}
