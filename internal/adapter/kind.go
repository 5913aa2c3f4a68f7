package adapter

import (
	"fmt"
	"strings"

	"github.com/goosewin/kotoba/internal/lang"
)

// Kind identifies a model family and therefore its adapter.
type Kind string

const (
	KindPlamo Kind = "plamo"
	KindLlama Kind = "llama"
	KindGemma Kind = "gemma"
	KindQwen  Kind = "qwen"
	KindALMA  Kind = "alma"
	KindAya   Kind = "aya"
)

// Kinds lists every supported kind in display order.
func Kinds() []Kind {
	return []Kind{KindPlamo, KindLlama, KindGemma, KindQwen, KindALMA, KindAya}
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind matches value case-insensitively against Kinds.
func ParseKind(value string) (Kind, error) {
	key := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, kind := range Kinds() {
		if kind == key {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
}

// For returns the built-in adapter for kind. There is no fallback: a kind
// without a case here is an error.
func For(kind Kind, pair lang.Pair) (*Adapter, error) {
	var spec Spec
	switch kind {
	case KindPlamo:
		spec = plamoSpec()
	case KindLlama:
		spec = llamaSpec()
	case KindGemma:
		spec = gemmaSpec()
	case KindQwen:
		spec = qwenSpec()
	case KindALMA:
		spec = almaSpec()
	case KindAya:
		spec = ayaSpec()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	return New(kind, pair, spec)
}
