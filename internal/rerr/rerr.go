// Package rerr defines the runtime error type raised by the interpreter
// and built-ins (C5/C6): a typed struct implementing error, comparable
// with errors.As, carrying the source interval the failure occurred at.
package rerr

import (
	"fmt"

	"github.com/csml-dev/csml-engine/internal/source"
)

// Category names the kind of runtime failure. See spec §7 for the
// authoritative list.
type Category string

const (
	CategoryDivisionByZero    Category = "division_by_zero"
	CategoryOverflow          Category = "overflow"
	CategoryIllegalOperation  Category = "illegal_operation"
	CategoryUnknownMethod     Category = "unknown_method" // prefixed with "<type>_" at construction
	CategoryBadArgument       Category = "bad_argument"
	CategoryIndexOutOfRange   Category = "index_out_of_range"
	CategoryHTTPFailure       Category = "http_failure"
	CategoryTimeout           Category = "timeout"
	CategoryInfiniteLoop      Category = "infinite_loop"
	CategoryStepLimitExceeded Category = "step_limit_exceeded"
	CategoryPayloadTooLarge   Category = "payload_exceeds_max_size"
)

// Error is a single runtime failure raised while evaluating an expression
// or statement, or while a built-in validates its arguments.
type Error struct {
	Interval source.Interval
	Category Category
	Message  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Category, e.Interval, e.Message)
}

// New builds a runtime Error at the given interval.
func New(iv source.Interval, category Category, format string, args ...any) *Error {
	return &Error{
		Interval: iv,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// UnknownMethod builds the "<type>_unknown_method" category error for a
// method lookup miss on the given variant name (e.g. "string", "array").
func UnknownMethod(iv source.Interval, typeName, method string) *Error {
	return &Error{
		Interval: iv,
		Category: Category(typeName + "_unknown_method"),
		Message:  fmt.Sprintf("%s has no method %q", typeName, method),
	}
}
