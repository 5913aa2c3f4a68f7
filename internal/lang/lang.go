// Package lang defines the two languages a translator works between and the
// script heuristic used to tell them apart.
package lang

import (
	"fmt"
	"strings"
	"unicode"
)

// Language is one side of the configured language pair.
type Language int

const (
	Local Language = iota
	Foreign
)

func (l Language) String() string {
	switch l {
	case Local:
		return "local"
	case Foreign:
		return "foreign"
	default:
		return fmt.Sprintf("language(%d)", int(l))
	}
}

// Other returns the opposite side of the pair.
func (l Language) Other() Language {
	if l == Local {
		return Foreign
	}
	return Local
}

// Locale names a real language.
type Locale struct {
	Code string
	Name string
}

// Pair binds Local and Foreign to real languages.
type Pair struct {
	Local   Locale
	Foreign Locale
}

var (
	Japanese = Locale{Code: "ja", Name: "Japanese"}
	English  = Locale{Code: "en", Name: "English"}
)

var knownLocales = []Locale{
	Japanese,
	English,
	{Code: "zh", Name: "Chinese"},
	{Code: "ko", Name: "Korean"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "es", Name: "Spanish"},
}

// LookupLocale finds a locale by code or name, case-insensitively.
func LookupLocale(value string) (Locale, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	for _, locale := range knownLocales {
		if key == locale.Code || key == strings.ToLower(locale.Name) {
			return locale, nil
		}
	}
	return Locale{}, fmt.Errorf("unknown language %q", value)
}

// NewPair binds local and foreign by code or name. The two must differ.
func NewPair(local, foreign string) (Pair, error) {
	l, err := LookupLocale(local)
	if err != nil {
		return Pair{}, err
	}
	f, err := LookupLocale(foreign)
	if err != nil {
		return Pair{}, err
	}
	if l == f {
		return Pair{}, fmt.Errorf("local and foreign language are both %s", l.Name)
	}
	return Pair{Local: l, Foreign: f}, nil
}

// DefaultPair is Japanese (local) and English (foreign).
func DefaultPair() Pair {
	return Pair{Local: Japanese, Foreign: English}
}

// Locale returns the real language bound to l.
func (p Pair) Locale(l Language) Locale {
	if l == Local {
		return p.Local
	}
	return p.Foreign
}

// Name returns the display name of the language bound to l.
func (p Pair) Name(l Language) string {
	return p.Locale(l).Name
}

// Parse resolves a user-supplied language reference against the pair. It
// accepts "local"/"foreign", a locale code, or a locale name.
func (p Pair) Parse(value string) (Language, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	switch key {
	case "":
		return Foreign, fmt.Errorf("language is required")
	case "local", strings.ToLower(p.Local.Code), strings.ToLower(p.Local.Name):
		return Local, nil
	case "foreign", strings.ToLower(p.Foreign.Code), strings.ToLower(p.Foreign.Name):
		return Foreign, nil
	}
	return Foreign, fmt.Errorf("unsupported language %q (expected %s or %s)", value, p.Local.Name, p.Foreign.Name)
}

// kanaBlocks is the Hiragana (U+3040-309F) and Katakana (U+30A0-30FF) code
// blocks. It adds the prolonged sound mark and middle dot, which the script
// tables file under Common.
var kanaBlocks = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x3040, Hi: 0x30ff, Stride: 1}},
}

// Detect classifies text as Local when it contains at least one Hiragana,
// Katakana, or Han character and Foreign otherwise.
func Detect(text string) Language {
	for _, r := range text {
		if unicode.In(r, kanaBlocks, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return Local
		}
	}
	return Foreign
}
