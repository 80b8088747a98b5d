package primitive

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// recognizedPrimitiveNames are the Kind.String() values a "content_type"
// field can equal without triggering the envelope rule below — a field
// that happens to be named "content_type" but holds e.g. "int" is just a
// normal field, not a composite message tag.
var recognizedPrimitiveNames = map[string]bool{
	"null": true, "boolean": true, "int": true, "float": true,
	"string": true, "array": true, "object": true, "closure": true,
}

// MarshalJSON implements spec §4.4's JSON shape rule: primitives
// serialize directly as their natural JSON type; arrays serialize
// element-wise. An object whose "content_type" field holds a name other
// than one of the recognized primitive names is a composite message
// (Button, Card, Question, ...) and serializes as the envelope
// {"content_type": <name>, "content": {<other fields>}} so built-in
// message constructors round-trip cleanly; any other object serializes
// flat, in insertion order.
func MarshalJSON(v Value) ([]byte, error) {
	switch t := v.(type) {
	case Null:
		return []byte("null"), nil
	case Bool:
		return json.Marshal(bool(t))
	case Int:
		return json.Marshal(int64(t))
	case Float:
		return json.Marshal(float64(t))
	case Str:
		return json.Marshal(string(t))
	case *Array:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range t.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := MarshalJSON(item)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case *Object:
		ct := t.ContentType()
		if ct != "" && !recognizedPrimitiveNames[ct] {
			content := NewObject()
			for _, k := range t.Keys() {
				if k == "content_type" {
					continue
				}
				v, _ := t.Get(k)
				content.Set(k, v)
			}
			envelope := NewObject()
			envelope.Set("content_type", Str(ct))
			envelope.Set("content", content)
			return marshalObjectFlat(envelope)
		}
		return marshalObjectFlat(t)
	case *Closure:
		return nil, fmt.Errorf("closure value is not JSON-serializable")
	default:
		return nil, fmt.Errorf("unsupported primitive value %T", v)
	}
}

// marshalObjectFlat writes o's fields in insertion order with no envelope
// rewriting — the building block both the flat and enveloped cases above
// reduce to.
func marshalObjectFlat(o *Object) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vv, _ := o.Get(k)
		vb, err := MarshalJSON(vv)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Unmarshal decodes a JSON-decoded Go value (from encoding/json's default
// any-decoding: map[string]any, []any, string, float64/bool/nil) into a
// Value. Object keys follow Go's map iteration order, so the original
// field order is not preserved; callers holding a raw []byte should
// prefer UnmarshalJSON, which keeps it.
func Unmarshal(v any) Value {
	switch t := v.(type) {
	case nil:
		return Nil
	case bool:
		return Bool(t)
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Float(t)
	case string:
		return Str(t)
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = Unmarshal(e)
		}
		return NewArray(items...)
	case map[string]any:
		o := NewObject()
		for k, e := range t {
			o.Set(k, Unmarshal(e))
		}
		return o
	default:
		return Nil
	}
}

// UnmarshalJSON decodes raw JSON bytes into a Value, preserving object
// field order using json.Decoder's token stream rather than Go's
// unordered map[string]any decoding.
func UnmarshalJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Nil, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		if iv, err := t.Int64(); err == nil {
			return Int(iv), nil
		}
		fv, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return Float(fv), nil
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t)), nil
		}
		return Float(t), nil
	case string:
		return Str(t), nil
	case json.Delim:
		switch t {
		case '[':
			arr := NewArray()
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr.Items = append(arr.Items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return arr, nil
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}
