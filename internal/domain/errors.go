// Package domain holds the sentinel errors shared across nlsearch layers.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrSchema signals an unknown entity type or a bad link attribute.
	ErrSchema = errors.New("schema error")
	// ErrValidation signals a filter referencing invalid or computed fields.
	ErrValidation = errors.New("validation error")
	// ErrParse signals an LLM reply that could not be interpreted.
	ErrParse = errors.New("parse error")
	// ErrLLMAuth signals an authentication failure against the LLM provider.
	ErrLLMAuth = errors.New("llm authentication error")
	// ErrLLMRateLimited signals an exhausted LLM provider rate limit.
	ErrLLMRateLimited = errors.New("llm rate limited")
	// ErrLLMUnavailable signals a network or availability failure of the LLM provider.
	ErrLLMUnavailable = errors.New("llm unavailable")
)

// FieldError wraps ErrValidation or ErrSchema with the offending attribute
// and the stored alternatives the caller may use instead.
type FieldError struct {
	Entity       string
	Field        string
	Computed     bool
	Alternatives []string
	sentinel     error
}

func (e *FieldError) Error() string {
	kind := "does not exist on"
	if e.Computed {
		kind = "is computed, not stored, on"
	}
	msg := fmt.Sprintf("field %q %s entity %q", e.Field, kind, e.Entity)
	if len(e.Alternatives) > 0 {
		msg += "; stored fields: " + strings.Join(e.Alternatives, ", ")
	}
	return msg
}

func (e *FieldError) Unwrap() error { return e.sentinel }

// NewUnknownField creates a validation error for an attribute absent from the schema.
func NewUnknownField(entity, field string, alternatives []string) error {
	return &FieldError{Entity: entity, Field: field, Alternatives: alternatives, sentinel: ErrValidation}
}

// NewComputedField creates a validation error for a computed (non-stored) attribute.
func NewComputedField(entity, field string, alternatives []string) error {
	return &FieldError{Entity: entity, Field: field, Computed: true, Alternatives: alternatives, sentinel: ErrValidation}
}

// NewSchemaField creates a schema error for a bad link attribute on a query spec.
func NewSchemaField(entity, field string, alternatives []string) error {
	return &FieldError{Entity: entity, Field: field, Alternatives: alternatives, sentinel: ErrSchema}
}

// ParseError wraps ErrParse with the raw LLM text for the audit trail.
type ParseError struct {
	RawText string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrParse.Error(), e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// NewParseError creates a parse error carrying the raw reply.
func NewParseError(raw, reason string) error {
	return &ParseError{RawText: raw, Reason: reason}
}
