// Package cerr defines the compile-time error type shared by the lexer,
// parser, and validator (C1-C3). It follows the same typed-sentinel shape
// as the interpreter's runtime errors (see internal/rerr) so that callers
// can pattern-match on Category with errors.As rather than string-matching
// messages.
package cerr

import (
	"fmt"

	"github.com/csml-dev/csml-engine/internal/source"
)

// Category names the kind of compile-time failure. Categories are part of
// the public contract: tooling and tests match on these, not on Message.
type Category string

const (
	CategoryUnexpectedToken     Category = "unexpected_token"
	CategoryUnterminatedString  Category = "unterminated_string"
	CategoryReservedAsIdent     Category = "reserved_as_identifier"
	CategoryMissingStartStep    Category = "missing_start_step"
	CategoryUnresolvedGoto      Category = "unresolved_goto"
	CategoryDuplicateStep       Category = "duplicate_step"
	CategoryImportNotFound      Category = "import_not_found"
	CategoryDuplicateFlow       Category = "duplicate_flow"
	CategoryUnresolvedFlowGoto  Category = "unresolved_flow_goto"
	CategoryEmptyFlow           Category = "empty_flow"
	CategoryCircularDefault     Category = "circular_default_value"
	CategoryInvalidDefaultFlow  Category = "invalid_default_flow"
	CategoryStaticGotoCycle     Category = "static_goto_cycle"
)

// Error is a single compile-time diagnostic produced by the lexer,
// parser, or validator. File is the flow name the diagnostic belongs to,
// empty when the diagnostic is bot-wide (e.g. missing default_flow).
type Error struct {
	File     string
	Interval source.Interval
	Category Category
	Message  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %s", e.Category, e.Message)
	}
	return fmt.Sprintf("%s:%s: %s: %s", e.File, e.Interval, e.Category, e.Message)
}

// New builds a compile-time Error at the given interval.
func New(file string, iv source.Interval, category Category, format string, args ...any) *Error {
	return &Error{
		File:     file,
		Interval: iv,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Warning is structurally identical to Error but never blocks compilation;
// the validator returns warnings in a separate list (spec C3).
type Warning = Error
