// Package source tracks positions and spans within CSML flow source text.
package source

import "fmt"

// Interval locates a span of source text for error reporting and
// round-trip tooling. Lines and columns are 1-indexed; ByteOffset is the
// 0-indexed byte offset of the span's start within the flow's content.
type Interval struct {
	StartLine  int
	StartCol   int
	EndLine    int
	EndCol     int
	ByteOffset int
}

// String renders the interval as "line:col" (start position only), the
// form used in compact error messages.
func (iv Interval) String() string {
	return fmt.Sprintf("%d:%d", iv.StartLine, iv.StartCol)
}

// Span merges two intervals into one covering both, used when a parser
// rule combines several tokens into a single AST node (e.g. a whole
// statement from its first to its last token).
func Span(start, end Interval) Interval {
	return Interval{
		StartLine:  start.StartLine,
		StartCol:   start.StartCol,
		EndLine:    end.EndLine,
		EndCol:     end.EndCol,
		ByteOffset: start.ByteOffset,
	}
}

// Zero is the interval used for synthetic nodes that have no source
// location (built-in defaults, runtime-constructed values).
var Zero = Interval{StartLine: 0, StartCol: 0, EndLine: 0, EndCol: 0, ByteOffset: 0}
