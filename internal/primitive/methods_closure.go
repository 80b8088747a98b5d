package primitive

import "github.com/csml-dev/csml-engine/internal/source"

var closureMethods = table{
	"type_of": {Read, func(r Value, args []Value, iv source.Interval) (Value, error) {
		if len(args) != 0 {
			return nil, wantArity(iv, "type_of", 0, len(args))
		}
		return Str(r.Kind().String()), nil
	}},
}
