package primitive

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/csml-dev/csml-engine/internal/source"
)

var stringMethods = table{
	"type_of":        {Read, strTypeOf},
	"length":         {Read, strLength},
	"to_uppercase":   {Read, strToUpper},
	"to_lowercase":   {Read, strToLower},
	"capitalize":     {Read, strCapitalize},
	"contains":       {Read, strContains},
	"contains_regex": {Read, strContainsRegex},
	"index_of":       {Read, strIndexOf},
	"slice":          {Read, strSlice},
	"split":          {Read, strSplit},
	"replace":        {Read, strReplace},
	"match":          {Read, strMatch},
	"rm_char_at":     {Write, strRmCharAt},
	"append":         {Write, strAppend},
	"is_number":      {Read, strIsNumber},
	"to_int":         {Read, strToInt},
	"to_float":       {Read, strToFloat},
}

func strTypeOf(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "type_of", 0, len(args))
	}
	return Str(r.Kind().String()), nil
}

func strLength(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "length", 0, len(args))
	}
	return Int(len([]rune(string(r.(Str))))), nil
}

func strToUpper(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "to_uppercase", 0, len(args))
	}
	return Str(strings.ToUpper(string(r.(Str)))), nil
}

func strToLower(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "to_lowercase", 0, len(args))
	}
	return Str(strings.ToLower(string(r.(Str)))), nil
}

func strCapitalize(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "capitalize", 0, len(args))
	}
	runes := []rune(string(r.(Str)))
	if len(runes) == 0 {
		return Str(""), nil
	}
	runes[0] = unicode.ToUpper(runes[0])
	return Str(string(runes)), nil
}

func strArg(iv source.Interval, method string, args []Value, i int) (string, error) {
	if i >= len(args) {
		return "", badArgument(iv, "%s expects a string argument", method)
	}
	s, ok := args[i].(Str)
	if !ok {
		return "", badArgument(iv, "%s expects a string argument, got %s", method, args[i].Kind())
	}
	return string(s), nil
}

func strContains(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "contains", 1, len(args))
	}
	sub, err := strArg(iv, "contains", args, 0)
	if err != nil {
		return nil, err
	}
	return Bool(strings.Contains(string(r.(Str)), sub)), nil
}

func strContainsRegex(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "contains_regex", 1, len(args))
	}
	pat, err := strArg(iv, "contains_regex", args, 0)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, badArgument(iv, "invalid regular expression: %s", err)
	}
	return Bool(re.MatchString(string(r.(Str)))), nil
}

func strIndexOf(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "index_of", 1, len(args))
	}
	sub, err := strArg(iv, "index_of", args, 0)
	if err != nil {
		return nil, err
	}
	s := string(r.(Str))
	byteIdx := strings.Index(s, sub)
	if byteIdx < 0 {
		return Int(-1), nil
	}
	return Int(len([]rune(s[:byteIdx]))), nil
}

func strSlice(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, badArgument(iv, "slice expects 1 or 2 arguments, got %d", len(args))
	}
	runes := []rune(string(r.(Str)))
	start, ok := args[0].(Int)
	if !ok {
		return nil, badArgument(iv, "slice expects an int start argument")
	}
	end := Int(len(runes))
	if len(args) == 2 {
		e, ok := args[1].(Int)
		if !ok {
			return nil, badArgument(iv, "slice expects an int end argument")
		}
		end = e
	}
	if int(start) < 0 || int(end) > len(runes) || int(start) > int(end) {
		return nil, indexOutOfRange(iv, int(start), len(runes))
	}
	return Str(string(runes[start:end])), nil
}

func strSplit(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "split", 1, len(args))
	}
	sep, err := strArg(iv, "split", args, 0)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(string(r.(Str)), sep)
	items := make([]Value, len(parts))
	for i, p := range parts {
		items[i] = Str(p)
	}
	return NewArray(items...), nil
}

func strReplace(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 2 {
		return nil, wantArity(iv, "replace", 2, len(args))
	}
	old, err := strArg(iv, "replace", args, 0)
	if err != nil {
		return nil, err
	}
	new_, err := strArg(iv, "replace", args, 1)
	if err != nil {
		return nil, err
	}
	return Str(strings.ReplaceAll(string(r.(Str)), old, new_)), nil
}

func strMatch(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "match", 1, len(args))
	}
	pat, err := strArg(iv, "match", args, 0)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, badArgument(iv, "invalid regular expression: %s", err)
	}
	groups := re.FindStringSubmatch(string(r.(Str)))
	if groups == nil {
		return Nil, nil
	}
	items := make([]Value, len(groups))
	for i, g := range groups {
		items[i] = Str(g)
	}
	return NewArray(items...), nil
}

func strRmCharAt(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "rm_char_at", 1, len(args))
	}
	idx, ok := args[0].(Int)
	if !ok {
		return nil, badArgument(iv, "rm_char_at expects an int argument")
	}
	runes := []rune(string(r.(Str)))
	if int(idx) < 0 || int(idx) >= len(runes) {
		return nil, indexOutOfRange(iv, int(idx), len(runes))
	}
	out := append(runes[:int(idx):int(idx)], runes[int(idx)+1:]...)
	return Str(string(out)), nil
}

func strAppend(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "append", 1, len(args))
	}
	suffix, err := strArg(iv, "append", args, 0)
	if err != nil {
		return nil, err
	}
	return Str(string(r.(Str)) + suffix), nil
}

func strIsNumber(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "is_number", 0, len(args))
	}
	_, _, _, ok := parseNumericString(string(r.(Str)))
	return Bool(ok), nil
}

func strToInt(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "to_int", 0, len(args))
	}
	isInt, i, f, ok := parseNumericString(string(r.(Str)))
	if !ok {
		return nil, badArgument(iv, "%q is not a number", string(r.(Str)))
	}
	if isInt {
		return Int(i), nil
	}
	return Int(int64(f)), nil
}

func strToFloat(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "to_float", 0, len(args))
	}
	_, _, f, ok := parseNumericString(string(r.(Str)))
	if !ok {
		return nil, badArgument(iv, "%q is not a number", string(r.(Str)))
	}
	return Float(f), nil
}
