package builtins

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/blake2b"

	"github.com/csml-dev/csml-engine/internal/httpkit"
	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

// Mailer hands a fully composed message to an outbound transport (e.g. an
// SMTP relay or a provider API). csml-engine itself never dials an SMTP
// server directly; a host application supplies the Mailer.
type Mailer interface {
	SendMail(ctx context.Context, from string, to []string, msg []byte) error
}

// allowedJWTAlgs is the signing allowlist: HMAC and RSA families only,
// never "none".
var allowedJWTAlgs = map[string]bool{
	"HS256": true, "HS384": true, "HS512": true,
	"RS256": true, "RS384": true, "RS512": true,
}

// effectHost implements primitive.EffectHost on top of Deps, installed
// once per bot load by Registry.
type effectHost struct {
	deps Deps
}

func (h *effectHost) HTTPSend(req *primitive.Object, method string, body primitive.Value, iv source.Interval) (primitive.Value, error) {
	rawURL, _ := req.Get("url")
	urlStr, ok := rawURL.(primitive.Str)
	if !ok || string(urlStr) == "" {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "http request has no url")
	}

	u, err := url.Parse(string(urlStr))
	if err != nil {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "invalid url %q: %v", urlStr, err)
	}
	if rawQuery, ok := req.Get("query"); ok {
		if qo, ok := rawQuery.(*primitive.Object); ok {
			q := u.Query()
			for _, k := range qo.Keys() {
				v, _ := qo.Get(k)
				q.Set(k, valueToQueryString(v))
			}
			u.RawQuery = q.Encode()
		}
	}

	var bodyReader io.Reader
	if body != nil && body != primitive.Nil {
		encoded, err := json.Marshal(valueToJSON(body))
		if err != nil {
			return nil, rerr.New(iv, rerr.CategoryBadArgument, "encode request body: %v", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequest(method, u.String(), bodyReader)
	if err != nil {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "build request: %v", err)
	}
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if rawHeaders, ok := req.Get("headers"); ok {
		if ho, ok := rawHeaders.(*primitive.Object); ok {
			for _, k := range ho.Keys() {
				v, _ := ho.Get(k)
				httpReq.Header.Set(k, valueToQueryString(v))
			}
		}
	}

	client := h.deps.Client
	if client == nil {
		client = httpkit.NewClient()
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if httpReq.Context().Err() != nil {
			return nil, rerr.New(iv, rerr.CategoryTimeout, "http %s %s: %v", method, u.String(), err)
		}
		return nil, rerr.New(iv, rerr.CategoryHTTPFailure, "http %s %s: %v", method, u.String(), err)
	}
	defer httpkit.DrainAndClose(resp.Body, 1<<20)

	if resp.StatusCode >= 400 {
		return nil, rerr.New(iv, rerr.CategoryHTTPFailure, "http %s %s: status %d: %s",
			method, u.String(), resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 4096))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, rerr.New(iv, rerr.CategoryHTTPFailure, "read response: %v", err)
	}
	if len(raw) == 0 {
		return primitive.Nil, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return primitive.Str(string(raw)), nil
	}
	return jsonToValue(decoded), nil
}

func (h *effectHost) JWTSign(payload primitive.Value, alg, secret string, iv source.Interval) (primitive.Value, error) {
	if !allowedJWTAlgs[alg] {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "unsupported jwt algorithm %q", alg)
	}
	claims, ok := valueToJSON(payload).(map[string]any)
	if !ok {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "jwt payload must be an object")
	}
	token := jwt.NewWithClaims(jwt.GetSigningMethod(alg), jwt.MapClaims(claims))
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, rerr.New(iv, rerr.CategoryIllegalOperation, "sign jwt: %v", err)
	}
	return primitive.Str(signed), nil
}

func (h *effectHost) JWTDecode(token, alg, secret string, iv source.Interval) (primitive.Value, error) {
	if !allowedJWTAlgs[alg] {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "unsupported jwt algorithm %q", alg)
	}
	claims := jwt.MapClaims{}
	_, _, err := new(jwt.Parser).ParseUnverified(token, claims)
	if err != nil {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "decode jwt: %v", err)
	}
	return jsonToValue(map[string]any(claims)), nil
}

func (h *effectHost) JWTVerify(token string, claimsArg primitive.Value, alg, secret string, iv source.Interval) (primitive.Value, error) {
	if !allowedJWTAlgs[alg] {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "unsupported jwt algorithm %q", alg)
	}
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != alg {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return primitive.Bool(false), nil
	}
	_ = claimsArg
	return primitive.Bool(true), nil
}

func (h *effectHost) CryptoDigest(input, algo string, iv source.Interval) (primitive.Value, error) {
	switch strings.ToLower(algo) {
	case "md5":
		sum := md5.Sum([]byte(input))
		return primitive.Str(hex.EncodeToString(sum[:])), nil
	case "sha1":
		sum := sha1.Sum([]byte(input))
		return primitive.Str(hex.EncodeToString(sum[:])), nil
	case "sha256":
		sum := sha256.Sum256([]byte(input))
		return primitive.Str(hex.EncodeToString(sum[:])), nil
	case "sha512":
		sum := sha512.Sum512([]byte(input))
		return primitive.Str(hex.EncodeToString(sum[:])), nil
	case "blake2b":
		sum := blake2b.Sum256([]byte(input))
		return primitive.Str(hex.EncodeToString(sum[:])), nil
	default:
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "unsupported digest algorithm %q", algo)
	}
}

func (h *effectHost) SMTPSend(from, to, subject, body string, iv source.Interval) (primitive.Value, error) {
	if h.deps.Mailer == nil {
		return nil, rerr.New(iv, rerr.CategoryIllegalOperation, "no mailer configured for SMTP effect")
	}

	var header mail.Header
	header.SetDate(time.Now())
	header.SetSubject(subject)
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "invalid from address %q: %v", from, err)
	}
	toAddr, err := mail.ParseAddress(to)
	if err != nil {
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "invalid to address %q: %v", to, err)
	}
	header.SetAddressList("From", []*mail.Address{fromAddr})
	header.SetAddressList("To", []*mail.Address{toAddr})

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, header)
	if err != nil {
		return nil, rerr.New(iv, rerr.CategoryIllegalOperation, "compose message: %v", err)
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, rerr.New(iv, rerr.CategoryIllegalOperation, "compose message: %v", err)
	}
	var partHeader mail.InlineHeader
	partHeader.Set("Content-Type", "text/plain; charset=utf-8")
	pw, err := tw.CreatePart(partHeader)
	if err != nil {
		return nil, rerr.New(iv, rerr.CategoryIllegalOperation, "compose message body: %v", err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return nil, rerr.New(iv, rerr.CategoryIllegalOperation, "write message body: %v", err)
	}
	if err := pw.Close(); err != nil {
		return nil, rerr.New(iv, rerr.CategoryIllegalOperation, "close message body: %v", err)
	}
	if err := tw.Close(); err != nil {
		return nil, rerr.New(iv, rerr.CategoryIllegalOperation, "close message: %v", err)
	}
	if err := mw.Close(); err != nil {
		return nil, rerr.New(iv, rerr.CategoryIllegalOperation, "close message: %v", err)
	}

	if err := h.deps.Mailer.SendMail(context.Background(), from, []string{to}, buf.Bytes()); err != nil {
		return nil, rerr.New(iv, rerr.CategoryHTTPFailure, "send mail: %v", err)
	}
	return primitive.Bool(true), nil
}

func valueToQueryString(v primitive.Value) string {
	if s, ok := v.(primitive.Str); ok {
		return string(s)
	}
	return v.Display()
}

func valueToJSON(v primitive.Value) any {
	switch t := v.(type) {
	case nil:
		return nil
	case primitive.Bool:
		return bool(t)
	case primitive.Int:
		return int64(t)
	case primitive.Float:
		return float64(t)
	case primitive.Str:
		return string(t)
	case *primitive.Array:
		out := make([]any, len(t.Items))
		for i, item := range t.Items {
			out[i] = valueToJSON(item)
		}
		return out
	case *primitive.Object:
		out := map[string]any{}
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			out[k] = valueToJSON(val)
		}
		return out
	default:
		return nil
	}
}

func jsonToValue(v any) primitive.Value {
	switch t := v.(type) {
	case nil:
		return primitive.Nil
	case bool:
		return primitive.Bool(t)
	case float64:
		if t == float64(int64(t)) {
			return primitive.Int(int64(t))
		}
		return primitive.Float(t)
	case string:
		return primitive.Str(t)
	case []any:
		items := make([]primitive.Value, len(t))
		for i, e := range t {
			items[i] = jsonToValue(e)
		}
		return primitive.NewArray(items...)
	case map[string]any:
		obj := primitive.NewObject()
		for k, e := range t {
			obj.Set(k, jsonToValue(e))
		}
		return obj
	default:
		return primitive.Nil
	}
}
