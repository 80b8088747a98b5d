package builtins

import (
	"github.com/csml-dev/csml-engine/internal/interpreter"
	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

// taggedObject builds the *primitive.Object every component builtin
// returns: a content_type marker plus whatever payload fields the
// component needs, matching how messageFor (C5) routes a say'd value by
// its content_type field.
func taggedObject(contentType string, fields map[string]primitive.Value) *primitive.Object {
	o := primitive.NewObject()
	o.Set("content_type", primitive.Str(contentType))
	for k, v := range fields {
		o.Set(k, v)
	}
	return o
}

func wantArgs(name string, args []primitive.Value, n int, iv source.Interval) error {
	if len(args) != n {
		return rerr.New(iv, rerr.CategoryBadArgument, "%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func builtinText(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if err := wantArgs("Text", args, 1, iv); err != nil {
		return nil, err
	}
	text, ok := args[0].(primitive.Str)
	if !ok {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "Text expects a string argument, got %s", args[0].Kind())
	}
	return taggedObject("text", map[string]primitive.Value{"text": text}), nil
}

// builtinMediaURL builds the factory for Image/Audio/Video/File, which all
// share the same one-string-argument "url" shape.
func builtinMediaURL(kind string) interpreter.BuiltinFunc {
	return func(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
		if err := wantArgs(kind, args, 1, iv); err != nil {
			return nil, err
		}
		u, ok := args[0].(primitive.Str)
		if !ok {
			return nil, rerr.New(iv, rerr.CategoryBadArgument, "%s expects a url string, got %s", kind, args[0].Kind())
		}
		return taggedObject(kind, map[string]primitive.Value{"url": u}), nil
	}
}

func builtinURL(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if err := wantArgs("Url", args, 1, iv); err != nil {
		return nil, err
	}
	u, ok := args[0].(primitive.Str)
	if !ok {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "Url expects a string argument, got %s", args[0].Kind())
	}
	return taggedObject("url", map[string]primitive.Value{"url": u}), nil
}

// resolveGenericArgs checks a generic component's positional args against
// its header (required/type) and applies default_value for any param the
// call omitted, per spec §4.6. Trailing omitted non-required params are
// filled from DefaultValue. add_value is then applied here too: each
// `$_get` op copies the referenced param's resolved value over the param;
// `$_set` ops in add_value are ignored.
func resolveGenericArgs(header *ComponentHeader, name string, args []primitive.Value, iv source.Interval) (map[string]primitive.Value, error) {
	resolved := map[string]primitive.Value{}
	if header == nil {
		return resolved, nil
	}
	for i, p := range header.Params {
		if i < len(args) {
			resolved[p.Name] = args[i]
			continue
		}
		if p.Required {
			return nil, rerr.New(iv, rerr.CategoryBadArgument, "%s: missing required parameter %q", name, p.Name)
		}
		v, err := resolveDefault(p.DefaultValue, resolved, iv)
		if err != nil {
			return nil, rerr.New(iv, rerr.CategoryBadArgument, "%s: %v", name, err)
		}
		resolved[p.Name] = v
	}
	for _, p := range header.Params {
		for _, op := range p.AddValue {
			if op.Get != "" {
				if v, ok := resolved[op.Get]; ok {
					resolved[p.Name] = v
				}
			}
		}
	}
	return resolved, nil
}

func genericObject(contentType string, resolved map[string]primitive.Value) *primitive.Object {
	o := taggedObject(contentType, nil)
	for k, v := range resolved {
		o.Set(k, v)
	}
	return o
}

// builtinButton builds Button(title[, ...]) using the bot's "button"
// component header if one was loaded, falling back to a plain title
// (plus an "options" array of any further arguments) when no header is
// configured.
func builtinButton(headers map[string]*ComponentHeader) interpreter.BuiltinFunc {
	return func(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
		return buildGeneric(headers, "button", args, iv)
	}
}

func builtinCard(headers map[string]*ComponentHeader) interpreter.BuiltinFunc {
	return func(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
		return buildGeneric(headers, "card", args, iv)
	}
}

func builtinQuestion(headers map[string]*ComponentHeader) interpreter.BuiltinFunc {
	return func(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
		return buildGeneric(headers, "question", args, iv)
	}
}

func buildGeneric(headers map[string]*ComponentHeader, name string, args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	header := headers[name]
	if header == nil {
		// No generic header configured: first arg is the display title,
		// remaining args (if any) are passed through as "options".
		if len(args) == 0 {
			return nil, rerr.New(iv, rerr.CategoryBadArgument, "%s expects at least one argument", name)
		}
		fields := map[string]primitive.Value{"title": args[0]}
		if len(args) > 1 {
			fields["options"] = primitive.NewArray(args[1:]...)
		}
		return taggedObject(name, fields), nil
	}
	resolved, err := resolveGenericArgs(header, name, args, iv)
	if err != nil {
		return nil, err
	}
	return genericObject(name, resolved), nil
}

// builtinCarousel has no generic header of its own: it wraps a sequence
// of already-built Card objects, one per call argument.
func builtinCarousel(args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if len(args) == 0 {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "Carousel expects at least one Card argument")
	}
	for i, a := range args {
		o, ok := a.(*primitive.Object)
		if !ok || o.ContentType() != "card" {
			return nil, rerr.New(iv, rerr.CategoryBadArgument, "Carousel argument %d must be a Card, got %s", i, a.Kind())
		}
	}
	return taggedObject("carousel", map[string]primitive.Value{"cards": primitive.NewArray(args...)}), nil
}
