package builtins

import (
	"github.com/google/uuid"

	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

func builtinLength(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if err := wantArgs("Length", args, 1, iv); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case primitive.Str:
		return primitive.Int(len([]rune(string(v)))), nil
	case *primitive.Array:
		return primitive.Int(len(v.Items)), nil
	case *primitive.Object:
		return primitive.Int(v.Len()), nil
	default:
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "Length expects a string, array, or object, got %s", v.Kind())
	}
}

// builtinFind searches an array for its first element equal to needle,
// returning its index or -1, mirroring the array method index_of but as a
// bare call taking (array, needle) in that order; a first argument that
// is not an array is a bad_argument error.
func builtinFind(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if err := wantArgs("Find", args, 2, iv); err != nil {
		return nil, err
	}
	arr, ok := args[0].(*primitive.Array)
	if !ok {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "Find expects an array as its first argument, got %s", args[0].Kind())
	}
	for i, item := range arr.Items {
		if primitive.Equal(item, args[1]) {
			return primitive.Int(i), nil
		}
	}
	return primitive.Int(-1), nil
}

// builtinExists reports whether x resolved to anything but null. Field
// access on a missing object key already evaluates to Null rather than
// erroring (see eval.go's getField), so Exists(event.user.nickname) is
// simply a null check on that lenient result rather than a distinct
// path-resolution primitive.
func builtinExists(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if err := wantArgs("Exists", args, 1, iv); err != nil {
		return nil, err
	}
	_, isNull := args[0].(primitive.Null)
	return primitive.Bool(!isNull), nil
}

func builtinUUID(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if err := wantArgs("UUID", args, 0, iv); err != nil {
		return nil, err
	}
	return primitive.Str(uuid.NewString()), nil
}
