package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrMissingResolutionNote is returned when a report is moved to Resolved
// without a resolution note. The report is left unchanged.
var ErrMissingResolutionNote = errors.New("resolution note is required to resolve a report")

// ValidationError reports the required fields that were missing or invalid
// when creating a report.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid report: %s", strings.Join(e.Fields, ", "))
}

// NotFoundError is returned when a report id is unknown to the store.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("report %s not found", e.ID)
}

// ImmutableFieldError is returned when a patch touches a protected field.
// This is a programmer error and is never silently ignored.
type ImmutableFieldError struct {
	Field string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("field %q is immutable", e.Field)
}

// InvalidStatusError is returned when a transition targets a status outside
// the Open/Scheduled/Resolved enumeration.
type InvalidStatusError struct {
	Status Status
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", e.Status)
}
