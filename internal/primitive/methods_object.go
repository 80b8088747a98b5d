package primitive

import (
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

var objectMethods = table{
	"type_of":  {Read, objTypeOf},
	"length":   {Read, objLength},
	"contains": {Read, objContains},
	"keys":     {Read, objKeys},
	"values":   {Read, objValues},
	"remove":   {Write, objRemove},
	"insert":   {Write, objInsert},
	"get":      {Read, objGet},

	// Effect-builder methods (spec §4.6): only meaningful on an object
	// whose content_type names an effect builder (http_request,
	// jwt_builder, crypto_builder, smtp_builder); any other receiver gets
	// object_unknown_method. The actual I/O/crypto work is delegated to the
	// EffectHost installed by internal/builtins (see effects.go) so this
	// package never imports net/http, jwt, or crypto packages itself.
	"set":    {Write, objHTTPSet},
	"query":  {Write, objHTTPQuery},
	"post":   {Read, objHTTPPost},
	"put":    {Read, objHTTPPut},
	"patch":  {Read, objHTTPPatch},
	"delete": {Read, objHTTPDelete},
	"send":   {Read, objSend},
	"sign":   {Read, objSign},
	"decode": {Read, objDecode},
	"verify": {Read, objVerify},
	"digest": {Read, objDigest},
}

func objTypeOf(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "type_of", 0, len(args))
	}
	return Str(r.Kind().String()), nil
}

func objLength(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "length", 0, len(args))
	}
	return Int(r.(*Object).Len()), nil
}

func objKeyArg(iv source.Interval, method string, args []Value, i int) (string, error) {
	if i >= len(args) {
		return "", badArgument(iv, "%s expects a string key argument", method)
	}
	k, ok := args[i].(Str)
	if !ok {
		return "", badArgument(iv, "%s expects a string key argument, got %s", method, args[i].Kind())
	}
	return string(k), nil
}

func objContains(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "contains", 1, len(args))
	}
	key, err := objKeyArg(iv, "contains", args, 0)
	if err != nil {
		return nil, err
	}
	_, ok := r.(*Object).Get(key)
	return Bool(ok), nil
}

func objKeys(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "keys", 0, len(args))
	}
	keys := r.(*Object).Keys()
	items := make([]Value, len(keys))
	for i, k := range keys {
		items[i] = Str(k)
	}
	return NewArray(items...), nil
}

func objValues(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "values", 0, len(args))
	}
	o := r.(*Object)
	keys := o.Keys()
	items := make([]Value, len(keys))
	for i, k := range keys {
		v, _ := o.Get(k)
		items[i] = v
	}
	return NewArray(items...), nil
}

func objRemove(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "remove", 1, len(args))
	}
	key, err := objKeyArg(iv, "remove", args, 0)
	if err != nil {
		return nil, err
	}
	o := r.(*Object)
	v, ok := o.Get(key)
	if !ok {
		return nil, badArgument(iv, "object has no field %q", key)
	}
	o.Delete(key)
	return v, nil
}

func objInsert(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 2 {
		return nil, wantArity(iv, "insert", 2, len(args))
	}
	key, err := objKeyArg(iv, "insert", args, 0)
	if err != nil {
		return nil, err
	}
	o := r.(*Object)
	o.Set(key, args[1])
	return o, nil
}

func objGet(r Value, args []Value, iv source.Interval) (Value, error) {
	o := r.(*Object)
	if len(args) == 0 {
		if o.ContentType() != "http_request" {
			return nil, wantArity(iv, "get", 1, len(args))
		}
		return httpSend(o, "GET", Nil, iv)
	}
	if len(args) != 1 {
		return nil, wantArity(iv, "get", 1, len(args))
	}
	key, err := objKeyArg(iv, "get", args, 0)
	if err != nil {
		return nil, err
	}
	v, ok := o.Get(key)
	if !ok {
		return Nil, nil
	}
	return v, nil
}

// requireContentType gates an effect-builder method to receivers tagged
// with the expected content_type, matching how display components are
// already tagged for the messageFor wrapper in C5.
func requireContentType(o *Object, method, want string, iv source.Interval) error {
	if o.ContentType() != want {
		return rerr.UnknownMethod(iv, "object", method)
	}
	return nil
}

func httpSend(o *Object, method string, body Value, iv source.Interval) (Value, error) {
	host, err := requireEffectHost(iv)
	if err != nil {
		return nil, err
	}
	return host.HTTPSend(o, method, body, iv)
}

func objHTTPSet(r Value, args []Value, iv source.Interval) (Value, error) {
	o := r.(*Object)
	if err := requireContentType(o, "set", "http_request", iv); err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, wantArity(iv, "set", 1, len(args))
	}
	headers, ok := args[0].(*Object)
	if !ok {
		return nil, badArgument(iv, "set expects an object of headers, got %s", args[0].Kind())
	}
	existing, _ := o.Get("headers")
	dst, ok := existing.(*Object)
	if !ok {
		dst = NewObject()
	}
	for _, k := range headers.Keys() {
		v, _ := headers.Get(k)
		dst.Set(k, v)
	}
	o.Set("headers", dst)
	return o, nil
}

func objHTTPQuery(r Value, args []Value, iv source.Interval) (Value, error) {
	o := r.(*Object)
	if err := requireContentType(o, "query", "http_request", iv); err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, wantArity(iv, "query", 1, len(args))
	}
	params, ok := args[0].(*Object)
	if !ok {
		return nil, badArgument(iv, "query expects an object of parameters, got %s", args[0].Kind())
	}
	existing, _ := o.Get("query")
	dst, ok := existing.(*Object)
	if !ok {
		dst = NewObject()
	}
	for _, k := range params.Keys() {
		v, _ := params.Get(k)
		dst.Set(k, v)
	}
	o.Set("query", dst)
	return o, nil
}

func objHTTPPost(r Value, args []Value, iv source.Interval) (Value, error) {
	return objHTTPVerbWithBody(r, "post", "POST", args, iv)
}

func objHTTPPut(r Value, args []Value, iv source.Interval) (Value, error) {
	return objHTTPVerbWithBody(r, "put", "PUT", args, iv)
}

func objHTTPPatch(r Value, args []Value, iv source.Interval) (Value, error) {
	return objHTTPVerbWithBody(r, "patch", "PATCH", args, iv)
}

func objHTTPDelete(r Value, args []Value, iv source.Interval) (Value, error) {
	o := r.(*Object)
	if err := requireContentType(o, "delete", "http_request", iv); err != nil {
		return nil, err
	}
	if len(args) != 0 {
		return nil, wantArity(iv, "delete", 0, len(args))
	}
	return httpSend(o, "DELETE", Nil, iv)
}

func objHTTPVerbWithBody(r Value, method, verb string, args []Value, iv source.Interval) (Value, error) {
	o := r.(*Object)
	if err := requireContentType(o, method, "http_request", iv); err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, wantArity(iv, method, 1, len(args))
	}
	return httpSend(o, verb, args[0], iv)
}

func objSend(r Value, args []Value, iv source.Interval) (Value, error) {
	o := r.(*Object)
	if err := requireContentType(o, "send", "smtp_builder", iv); err != nil {
		return nil, err
	}
	if len(args) != 4 {
		return nil, wantArity(iv, "send", 4, len(args))
	}
	from, ok1 := args[0].(Str)
	to, ok2 := args[1].(Str)
	subject, ok3 := args[2].(Str)
	body, ok4 := args[3].(Str)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, badArgument(iv, "send expects four string arguments (from, to, subject, body)")
	}
	host, err := requireEffectHost(iv)
	if err != nil {
		return nil, err
	}
	return host.SMTPSend(string(from), string(to), string(subject), string(body), iv)
}

func objSign(r Value, args []Value, iv source.Interval) (Value, error) {
	o := r.(*Object)
	if err := requireContentType(o, "sign", "jwt_builder", iv); err != nil {
		return nil, err
	}
	if len(args) != 2 {
		return nil, wantArity(iv, "sign", 2, len(args))
	}
	alg, ok1 := args[0].(Str)
	secret, ok2 := args[1].(Str)
	if !ok1 || !ok2 {
		return nil, badArgument(iv, "sign expects (alg, secret) as strings")
	}
	payload, _ := o.Get("value")
	host, err := requireEffectHost(iv)
	if err != nil {
		return nil, err
	}
	return host.JWTSign(payload, string(alg), string(secret), iv)
}

func objDecode(r Value, args []Value, iv source.Interval) (Value, error) {
	o := r.(*Object)
	if err := requireContentType(o, "decode", "jwt_builder", iv); err != nil {
		return nil, err
	}
	if len(args) != 2 {
		return nil, wantArity(iv, "decode", 2, len(args))
	}
	alg, ok1 := args[0].(Str)
	secret, ok2 := args[1].(Str)
	if !ok1 || !ok2 {
		return nil, badArgument(iv, "decode expects (alg, secret) as strings")
	}
	tokenVal, _ := o.Get("value")
	token, ok := tokenVal.(Str)
	if !ok {
		return nil, badArgument(iv, "decode requires JWT(token) to have been constructed from a string")
	}
	host, err := requireEffectHost(iv)
	if err != nil {
		return nil, err
	}
	return host.JWTDecode(string(token), string(alg), string(secret), iv)
}

func objVerify(r Value, args []Value, iv source.Interval) (Value, error) {
	o := r.(*Object)
	if err := requireContentType(o, "verify", "jwt_builder", iv); err != nil {
		return nil, err
	}
	if len(args) != 3 {
		return nil, wantArity(iv, "verify", 3, len(args))
	}
	alg, ok1 := args[1].(Str)
	secret, ok2 := args[2].(Str)
	if !ok1 || !ok2 {
		return nil, badArgument(iv, "verify expects (claims, alg, secret) with alg/secret as strings")
	}
	tokenVal, _ := o.Get("value")
	token, ok := tokenVal.(Str)
	if !ok {
		return nil, badArgument(iv, "verify requires JWT(token) to have been constructed from a string")
	}
	host, err := requireEffectHost(iv)
	if err != nil {
		return nil, err
	}
	return host.JWTVerify(string(token), args[0], string(alg), string(secret), iv)
}

func objDigest(r Value, args []Value, iv source.Interval) (Value, error) {
	o := r.(*Object)
	if err := requireContentType(o, "digest", "crypto_builder", iv); err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, wantArity(iv, "digest", 1, len(args))
	}
	algo, ok := args[0].(Str)
	if !ok {
		return nil, badArgument(iv, "digest expects an algorithm name string")
	}
	inputVal, _ := o.Get("value")
	input, ok := inputVal.(Str)
	if !ok {
		return nil, badArgument(iv, "digest requires Crypto(value) to have been constructed from a string")
	}
	host, err := requireEffectHost(iv)
	if err != nil {
		return nil, err
	}
	return host.CryptoDigest(string(input), string(algo), iv)
}
