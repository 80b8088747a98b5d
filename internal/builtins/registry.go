// Package builtins implements C6: the registry of bare-call built-ins
// (Text, Button, Question, HTTP, JWT, ...) the interpreter dispatches
// through its BuiltinFunc table, plus the generic-component header loader
// that drives the display-component builders' default/add-value rules
// (spec §4.6).
package builtins

import (
	"net/http"

	"github.com/csml-dev/csml-engine/internal/cerr"
	"github.com/csml-dev/csml-engine/internal/httpkit"
	"github.com/csml-dev/csml-engine/internal/interpreter"
	"github.com/csml-dev/csml-engine/internal/primitive"
)

// Deps are the external collaborators the effect builtins need. Mailer is
// nil-safe: SMTP().send(...) reports a structured error rather than
// panicking if no mailer was configured (spec §1: SMTP transmission is an
// out-of-scope external collaborator).
type Deps struct {
	Client     *http.Client
	Mailer     Mailer
	Components map[string]*ComponentHeader
}

// DefaultDeps builds Deps with the shared httpkit client and no mailer,
// no component headers — suitable for bots with no generic components and
// no outbound mail.
func DefaultDeps() Deps {
	return Deps{Client: httpkit.NewClient(httpkit.WithCookieJar())}
}

// Registry builds the full name -> BuiltinFunc table and installs the
// effect host the primitive package's builder-object methods call through
// (see internal/primitive/effects.go). Call once per loaded bot.
func Registry(deps Deps) map[string]interpreter.BuiltinFunc {
	primitive.SetEffectHost(&effectHost{deps: deps})

	reg := map[string]interpreter.BuiltinFunc{
		"Text":     builtinText,
		"Image":    builtinMediaURL("image"),
		"Audio":    builtinMediaURL("audio"),
		"Video":    builtinMediaURL("video"),
		"File":     builtinMediaURL("file"),
		"Url":      builtinURL,
		"Button":   builtinButton(deps.Components),
		"Card":     builtinCard(deps.Components),
		"Carousel": builtinCarousel,
		"Question": builtinQuestion(deps.Components),

		"Typing": builtinTyping,
		"Wait":   builtinWait,

		"OneOf":   builtinOneOf,
		"Shuffle": builtinShuffle,

		"Length": builtinLength,
		"Find":   builtinFind,
		"Exists": builtinExists,
		"UUID":   builtinUUID,

		"HTTP":   builtinHTTP,
		"JWT":    builtinJWT,
		"Crypto": builtinCrypto,
		"SMTP":   builtinSMTP,
	}
	return reg
}

// LoadComponentHeaders reads every component header file in dir (see
// header.go) and returns both the registry and any circular-default
// diagnostics found while resolving $_get chains.
func LoadComponentHeaders(dir string) (map[string]*ComponentHeader, []*cerr.Error) {
	return loadHeaders(dir)
}
