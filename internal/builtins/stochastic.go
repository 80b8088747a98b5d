package builtins

import (
	"math/rand"

	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

// builtinOneOf and builtinShuffle are the variadic, call-site sugar over
// the array-level one_of/shuffle methods (primitive/methods_array.go):
// `OneOf(a, b, c)` picks among its arguments directly, without the caller
// first building an array. Both use math/rand.
func builtinOneOf(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if len(args) == 0 {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "OneOf expects at least one argument")
	}
	return args[rand.Intn(len(args))], nil
}

func builtinShuffle(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if len(args) == 0 {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "Shuffle expects at least one argument")
	}
	shuffled := make([]primitive.Value, len(args))
	copy(shuffled, args)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return primitive.NewArray(shuffled...), nil
}
