package primitive

import (
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

// EffectHost performs the actual I/O or cryptographic work behind an
// effect builder object (content_type "http_request", "jwt_builder",
// "crypto_builder", "smtp_builder") — everything the primitive package
// itself cannot do without importing net/http, jwt, or crypto into what
// is otherwise a pure value system (spec §4.4 scope). internal/builtins
// (C6) implements this interface and installs it once via SetEffectHost
// when a bot is loaded.
type EffectHost interface {
	HTTPSend(req *Object, method string, body Value, iv source.Interval) (Value, error)
	JWTSign(payload Value, alg, secret string, iv source.Interval) (Value, error)
	JWTDecode(token string, alg, secret string, iv source.Interval) (Value, error)
	JWTVerify(token string, claims Value, alg, secret string, iv source.Interval) (Value, error)
	CryptoDigest(input string, algo string, iv source.Interval) (Value, error)
	SMTPSend(from, to, subject, body string, iv source.Interval) (Value, error)
}

var effectHost EffectHost

// SetEffectHost installs the effect implementation. Called once per
// process (or per bot load) by internal/builtins; nil until then, in
// which case every effect method reports illegal_operation.
func SetEffectHost(h EffectHost) { effectHost = h }

func requireEffectHost(iv source.Interval) (EffectHost, error) {
	if effectHost == nil {
		return nil, rerr.New(iv, rerr.CategoryIllegalOperation, "effect host not configured")
	}
	return effectHost, nil
}
