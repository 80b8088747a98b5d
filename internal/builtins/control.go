package builtins

import (
	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

func builtinTyping(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	ms, err := durationArg("Typing", args, iv)
	if err != nil {
		return nil, err
	}
	return taggedObject("typing", map[string]primitive.Value{"duration": ms}), nil
}

func builtinWait(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	ms, err := durationArg("Wait", args, iv)
	if err != nil {
		return nil, err
	}
	return taggedObject("wait", map[string]primitive.Value{"duration": ms}), nil
}

func durationArg(name string, args []primitive.Value, iv source.Interval) (primitive.Int, error) {
	if err := wantArgs(name, args, 1, iv); err != nil {
		return 0, err
	}
	n, ok := args[0].(primitive.Int)
	if !ok {
		return 0, rerr.New(iv, rerr.CategoryBadArgument, "%s expects an integer millisecond duration, got %s", name, args[0].Kind())
	}
	if n < 0 {
		return 0, rerr.New(iv, rerr.CategoryBadArgument, "%s duration must not be negative", name)
	}
	return n, nil
}
