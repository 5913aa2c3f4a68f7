// Package adapter holds the per-model prompt grammars used to drive a
// text-completion model as a translator.
//
// Every supported model family is one Kind mapped to one fixed Spec. Adding a
// model means adding a Kind constant, a spec constructor, and a case in For.
package adapter

import (
	"errors"
	"regexp"
	"strings"

	"github.com/goosewin/kotoba/internal/lang"
)

var (
	ErrUnknownKind = errors.New("unknown model kind")
	ErrNoStops     = errors.New("adapter requires at least one stop sequence")
	ErrNoTemplate  = errors.New("adapter requires a prompt template")
)

// TemplateFunc renders a prompt from normalized text and language names.
type TemplateFunc func(text, source, target string) string

// Spec is the fixed description of one model family's grammar.
type Spec struct {
	Template TemplateFunc
	// Stops terminate generation, in the order they are passed to the runner.
	Stops []string
	// ControlTokens are removed from output wherever they appear, in addition
	// to Stops.
	ControlTokens []string
	// Preambles are anchored prefix patterns checked in order against cleaned
	// output. The first match and everything before it is dropped.
	Preambles []*regexp.Regexp
	// Normalize overrides NormalizeInput when set.
	Normalize func(string) string
	// Scrub runs alongside control-token removal for model-specific debris.
	Scrub func(string) string
}

// Adapter is a Spec bound to a language pair.
type Adapter struct {
	kind Kind
	pair lang.Pair
	spec Spec
}

// New binds spec to pair. It is exported for callers that need a grammar
// outside the built-in table; most callers want For.
func New(kind Kind, pair lang.Pair, spec Spec) (*Adapter, error) {
	if spec.Template == nil {
		return nil, ErrNoTemplate
	}
	if len(spec.Stops) == 0 {
		return nil, ErrNoStops
	}
	for _, stop := range spec.Stops {
		if stop == "" {
			return nil, errors.New("stop sequence must not be empty")
		}
	}
	spec.Stops = append([]string(nil), spec.Stops...)
	spec.ControlTokens = append([]string(nil), spec.ControlTokens...)
	spec.Preambles = append([]*regexp.Regexp(nil), spec.Preambles...)
	return &Adapter{kind: kind, pair: pair, spec: spec}, nil
}

func (a *Adapter) Kind() Kind {
	return a.kind
}

func (a *Adapter) Pair() lang.Pair {
	return a.pair
}

// BuildPrompt renders the model's template around text.
func (a *Adapter) BuildPrompt(text string, source, target lang.Language) string {
	return a.spec.Template(text, a.pair.Name(source), a.pair.Name(target))
}

// StopSequences returns a copy of the stop list. It is never empty.
func (a *Adapter) StopSequences() []string {
	return append([]string(nil), a.spec.Stops...)
}

// NormalizeInput prepares text for the model.
func (a *Adapter) NormalizeInput(text string) string {
	if a.spec.Normalize != nil {
		return a.spec.Normalize(text)
	}
	return NormalizeInput(text)
}

// CleanOutput strips control tokens, then at most one preamble, then
// surrounding whitespace.
func (a *Adapter) CleanOutput(raw string) string {
	text := stripTokens(raw, a.tokens(), a.spec.Scrub)
	text = strings.TrimSpace(text)
	text = stripPreamble(text, a.spec.Preambles)
	return strings.TrimSpace(text)
}

func (a *Adapter) tokens() []string {
	tokens := make([]string, 0, len(a.spec.Stops)+len(a.spec.ControlTokens))
	tokens = append(tokens, a.spec.Stops...)
	tokens = append(tokens, a.spec.ControlTokens...)
	return tokens
}

// layout returns a TemplateFunc that substitutes {text}, {source} and
// {target} in a single pass, so placeholder-like sequences inside the text
// are left alone.
func layout(template string) TemplateFunc {
	return func(text, source, target string) string {
		return strings.NewReplacer(
			"{text}", text,
			"{source}", source,
			"{target}", target,
		).Replace(template)
	}
}
