package builtins

import (
	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

// builtinHTTP, builtinJWT, builtinCrypto, and builtinSMTP construct the
// tagged builder objects that methods_object.go's effect methods
// (set/query/post/put/patch/delete/get/sign/decode/verify/digest/send)
// operate on. The actual I/O and crypto happen behind primitive.EffectHost
// (effects.go), installed by Registry.

func builtinHTTP(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if err := wantArgs("HTTP", args, 1, iv); err != nil {
		return nil, err
	}
	u, ok := args[0].(primitive.Str)
	if !ok {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "HTTP expects a url string, got %s", args[0].Kind())
	}
	return taggedObject("http_request", map[string]primitive.Value{
		"url":     u,
		"headers": primitive.NewObject(),
		"query":   primitive.NewObject(),
	}), nil
}

func builtinJWT(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if err := wantArgs("JWT", args, 1, iv); err != nil {
		return nil, err
	}
	return taggedObject("jwt_builder", map[string]primitive.Value{"value": args[0]}), nil
}

func builtinCrypto(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if err := wantArgs("Crypto", args, 1, iv); err != nil {
		return nil, err
	}
	return taggedObject("crypto_builder", map[string]primitive.Value{"value": args[0]}), nil
}

func builtinSMTP(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if err := wantArgs("SMTP", args, 0, iv); err != nil {
		return nil, err
	}
	return taggedObject("smtp_builder", nil), nil
}
