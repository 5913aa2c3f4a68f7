package adapter

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goosewin/kotoba/internal/lang"
)

func allAdapters(t *testing.T) []*Adapter {
	t.Helper()
	adapters := make([]*Adapter, 0, len(Kinds()))
	for _, kind := range Kinds() {
		a, err := For(kind, lang.DefaultPair())
		require.NoError(t, err, kind)
		adapters = append(adapters, a)
	}
	return adapters
}

func TestForResolvesEveryKind(t *testing.T) {
	for _, a := range allAdapters(t) {
		assert.NotEmpty(t, a.StopSequences(), a.Kind())
		for _, stop := range a.StopSequences() {
			assert.NotEmpty(t, stop, a.Kind())
		}
	}
}

func TestForRejectsUnknownKind(t *testing.T) {
	_, err := For(Kind("mystery"), lang.DefaultPair())
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" Qwen ")
	require.NoError(t, err)
	assert.Equal(t, KindQwen, kind)

	_, err = ParseKind("gpt")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestNewValidatesSpec(t *testing.T) {
	pair := lang.DefaultPair()
	_, err := New(KindLlama, pair, Spec{Template: layout("{text}")})
	require.ErrorIs(t, err, ErrNoStops)

	_, err = New(KindLlama, pair, Spec{Stops: []string{"x"}})
	require.ErrorIs(t, err, ErrNoTemplate)

	_, err = New(KindLlama, pair, Spec{Template: layout("{text}"), Stops: []string{""}})
	require.Error(t, err)
}

func TestStopSequencesReturnsCopy(t *testing.T) {
	a, err := For(KindQwen, lang.DefaultPair())
	require.NoError(t, err)

	stops := a.StopSequences()
	stops[0] = "mutated"
	assert.Equal(t, "<|im_end|>", a.StopSequences()[0])
	assert.Equal(t, []string{"<|im_end|>", "<|endoftext|>"}, a.StopSequences())
}

func TestBuildPromptEmbedsTextOnceVerbatim(t *testing.T) {
	text := "The {source} tag stays literal.\n\nSecond paragraph with {text} and 東京."
	for _, a := range allAdapters(t) {
		prompt := a.BuildPrompt(text, lang.Foreign, lang.Local)
		assert.Equal(t, 1, strings.Count(prompt, text), "kind %s", a.Kind())
		assert.Contains(t, prompt, "Japanese", "kind %s", a.Kind())
		assert.Contains(t, prompt, "English", "kind %s", a.Kind())
	}
}

// The generation header is everything after the embedded text, minus the
// single marker that closes the input turn. A stop sequence there would end
// generation before the model produced anything.
func TestGenerationHeaderHasNoStopSequence(t *testing.T) {
	text := "Where is the station?"
	for _, a := range allAdapters(t) {
		prompt := a.BuildPrompt(text, lang.Foreign, lang.Local)
		idx := strings.Index(prompt, text)
		require.GreaterOrEqual(t, idx, 0, a.Kind())

		header := strings.TrimLeft(prompt[idx+len(text):], " \n")
		for _, stop := range a.StopSequences() {
			if strings.HasPrefix(header, stop) {
				header = strings.TrimPrefix(header, stop)
				break
			}
		}
		for _, stop := range a.StopSequences() {
			assert.NotContains(t, header, stop, "kind %s", a.Kind())
			assert.False(t, strings.HasSuffix(prompt, stop), "kind %s", a.Kind())
		}
	}
}

func TestPlamoPromptShape(t *testing.T) {
	a, err := For(KindPlamo, lang.DefaultPair())
	require.NoError(t, err)

	prompt := a.BuildPrompt("猫が好きです。", lang.Local, lang.Foreign)
	want := "<|plamo:op|>dataset\ntranslation\n<|plamo:op|>input lang=Japanese\n猫が好きです。\n<|plamo:op|>output lang=English\n"
	assert.Equal(t, want, prompt)
}

func TestALMAPromptShape(t *testing.T) {
	a, err := For(KindALMA, lang.DefaultPair())
	require.NoError(t, err)

	prompt := a.BuildPrompt("Good morning", lang.Foreign, lang.Local)
	assert.Equal(t, "Translate this from English to Japanese:\nEnglish: Good morning\nJapanese:", prompt)
}

func TestQwenPromptSuppressesThinking(t *testing.T) {
	a, err := For(KindQwen, lang.DefaultPair())
	require.NoError(t, err)

	prompt := a.BuildPrompt("hi", lang.Foreign, lang.Local)
	assert.Contains(t, prompt, "/no_think")
	assert.True(t, strings.HasSuffix(prompt, "<|im_start|>assistant\n"))
}

func TestNormalizeInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "single newline kept", in: "a\nb", want: "a\nb"},
		{name: "double newline kept", in: "a\n\nb", want: "a\n\nb"},
		{name: "triple collapsed", in: "a\n\n\nb", want: "a\n\nb"},
		{name: "long run collapsed", in: "a\n\n\n\n\n\nb", want: "a\n\nb"},
		{name: "crlf", in: "a\r\nb", want: "a\nb"},
		{name: "cr", in: "a\rb\rc", want: "a\nb\nc"},
		{name: "crlf run collapsed", in: "a\r\n\r\n\r\nb", want: "a\n\nb"},
		{name: "mixed endings collapsed", in: "a\r\n\r\rb", want: "a\n\nb"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeInput(tc.in))
		})
	}
}

func TestNormalizeInputPerVariant(t *testing.T) {
	pair := lang.DefaultPair()
	input := "line one\r\n\r\n\r\nline two  \n three"

	alma, err := For(KindALMA, pair)
	require.NoError(t, err)
	assert.Equal(t, "line one line two   three", alma.NormalizeInput(input))
	assert.Equal(t, "a b", FlattenLines("a\r\n\r\nb"))

	gemma, err := For(KindGemma, pair)
	require.NoError(t, err)
	assert.Equal(t, "line one\n\nline two  \n three", gemma.NormalizeInput(input))
}

func TestCleanOutput(t *testing.T) {
	pair := lang.DefaultPair()
	cases := []struct {
		kind Kind
		raw  string
		want string
	}{
		{kind: KindPlamo, raw: "I like cats.<|plamo:op|>", want: "I like cats."},
		{kind: KindLlama, raw: "Here is the translation:\nおはようございます<|eot_id|>", want: "おはようございます"},
		{kind: KindGemma, raw: "  翻訳: こんにちは<end_of_turn>\n", want: "こんにちは"},
		{kind: KindGemma, raw: "<end_of<end_of_turn>_turn>Hello", want: "Hello"},
		{kind: KindQwen, raw: "<think>\n\n</think>\n\nこんにちは<|im_end|>", want: "こんにちは"},
		{kind: KindQwen, raw: "</think>Good night<|endoftext|>", want: "Good night"},
		{kind: KindALMA, raw: " Bonjour le monde</s>", want: "Bonjour le monde"},
		{kind: KindAya, raw: "Sure! Here's the translation: Hola<|END_OF_TURN_TOKEN|>", want: "Hola"},
		{kind: KindLlama, raw: "No preamble at all.", want: "No preamble at all."},
	}

	for _, tc := range cases {
		a, err := For(tc.kind, pair)
		require.NoError(t, err)
		assert.Equal(t, tc.want, a.CleanOutput(tc.raw), "kind %s raw %q", tc.kind, tc.raw)
	}
}

func TestCleanOutputPreambleIsFirstMatchOnly(t *testing.T) {
	a, err := New(KindLlama, lang.DefaultPair(), Spec{
		Template: layout("{text}"),
		Stops:    []string{"<EOT>"},
		Preambles: []*regexp.Regexp{
			regexp.MustCompile(`^Translation: `),
			regexp.MustCompile(`^Result: `),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Result: Konnichiwa", a.CleanOutput("Translation: Result: Konnichiwa<EOT>"))
	assert.Equal(t, "Konnichiwa", a.CleanOutput("Result: Konnichiwa<EOT>"))
}

func TestCleanOutputPreambleMustBeAtStart(t *testing.T) {
	a, err := For(KindLlama, lang.DefaultPair())
	require.NoError(t, err)

	raw := "He said: Here is the translation: ok"
	assert.Equal(t, raw, a.CleanOutput(raw))
}

func TestCleanOutputIsIdempotent(t *testing.T) {
	samples := []string{
		"",
		"   ",
		"plain",
		"  Here is the translation:\nHola<|eot_id|>  ",
		"<think>reasoning</think>Sure! Here's the translation:\nBonjour<|im_end|>",
		"<end_of<end_of_turn>_turn>text<eos>",
		"<|plamo:op|>output lang=English\nHello<|plamo:op|>",
		"以下は翻訳です：\n猫<|END_OF_TURN_TOKEN|>",
		"The following is the English text:\n\nCat\n\n",
		"</s></s>done</s>",
	}

	for _, a := range allAdapters(t) {
		for _, raw := range samples {
			once := a.CleanOutput(raw)
			assert.Equal(t, once, a.CleanOutput(once), "kind %s raw %q", a.Kind(), raw)
			assert.Equal(t, strings.TrimSpace(once), once, "kind %s raw %q", a.Kind(), raw)
		}
	}
}
