package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned (wrapped) by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// FieldError is a single field-level validation message.
type FieldError struct {
	Section string `json:"section"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every invalid field of a request. Sections lets
// callers tell the operator which part of a form (customer, service, inward)
// needs correcting.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s.%s: %s", f.Section, f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (e *ValidationError) Add(section, field, message string) {
	e.Fields = append(e.Fields, FieldError{Section: section, Field: field, Message: message})
}

// Sections returns the distinct failing sections in first-seen order.
func (e *ValidationError) Sections() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range e.Fields {
		if !seen[f.Section] {
			seen[f.Section] = true
			out = append(out, f.Section)
		}
	}
	return out
}

// Summary is the operator-facing rejection message, e.g.
// "Please correct the customer information errors."
func (e *ValidationError) Summary() string {
	sections := e.Sections()
	if len(sections) == 0 {
		return "Please correct the errors below."
	}
	return fmt.Sprintf("Please correct the %s information errors.", strings.Join(sections, ", "))
}

// ByField returns the messages keyed by "section.field", sorted for stable output.
func (e *ValidationError) ByField() map[string][]string {
	out := make(map[string][]string)
	for _, f := range e.Fields {
		key := f.Section + "." + f.Field
		out[key] = append(out[key], f.Message)
	}
	for k := range out {
		sort.Strings(out[k])
	}
	return out
}

// orNil returns e only if it carries at least one field error.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// InvalidStatusError reports a value outside one of the closed enumerations.
type InvalidStatusError struct {
	Field string
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// InvalidAmountError reports a money value that cannot be accepted.
type InvalidAmountError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// UniquenessConflictError is returned when an insert violates a unique
// constraint, e.g. two intakes racing for the same inward number.
type UniquenessConflictError struct {
	Constraint string
	Value      string
}

func (e *UniquenessConflictError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("uniqueness conflict on %s", e.Constraint)
	}
	return fmt.Sprintf("uniqueness conflict on %s: %q already exists", e.Constraint, e.Value)
}

// Retryable reports that the operation may succeed if recomputed.
func (e *UniquenessConflictError) Retryable() bool { return true }

// StoreUnavailableError wraps failures to reach the persistence store.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }
