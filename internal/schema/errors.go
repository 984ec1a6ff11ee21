package schema

import (
	"fmt"
	"strings"
)

// Error types reported in FieldError.Type.
const (
	TypeMissing             = "missing"
	TypeStringType          = "string_type"
	TypeURLType             = "url_type"
	TypeURLParsing          = "url_parsing"
	TypeURLScheme           = "url_scheme"
	TypeURLTooLong          = "url_too_long"
	TypeJSONInvalid         = "json_invalid"
	TypeModelAttributesType = "model_attributes_type"
	TypeIntParsing          = "int_parsing"
	TypeGreaterThan         = "greater_than"
)

// FieldError describes one offending input value.
type FieldError struct {
	Type  string         `json:"type"`
	Loc   []any          `json:"loc"`
	Msg   string         `json:"msg"`
	Input any            `json:"input"`
	Ctx   map[string]any `json:"ctx,omitempty"`
}

// ValidationError is the 422 response body.
type ValidationError struct {
	Detail []FieldError `json:"detail"`
}

// NewValidationError merges the given error lists. It returns nil when all
// lists are empty.
func NewValidationError(lists ...[]FieldError) *ValidationError {
	var all []FieldError
	for _, l := range lists {
		all = append(all, l...)
	}
	if len(all) == 0 {
		return nil
	}
	return &ValidationError{Detail: all}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Detail))
	for _, fe := range e.Detail {
		parts = append(parts, fmt.Sprintf("%s: %s", joinLoc(fe.Loc), fe.Msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func joinLoc(loc []any) string {
	parts := make([]string, 0, len(loc))
	for _, p := range loc {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ".")
}

func missing(loc []any, input any) FieldError {
	return FieldError{Type: TypeMissing, Loc: loc, Msg: "Field required", Input: input}
}
