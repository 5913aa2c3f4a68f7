package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goosewin/kotoba/internal/adapter"
	"github.com/goosewin/kotoba/internal/lang"
	"github.com/goosewin/kotoba/internal/llama"
)

type fakeRunner struct {
	mu          sync.Mutex
	calls       int
	invocations []llama.Invocation
	text        string
	tokens      *int
	err         error
	block       chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, inv llama.Invocation) <-chan llama.Outcome {
	f.mu.Lock()
	f.calls++
	f.invocations = append(f.invocations, inv)
	f.mu.Unlock()

	out := make(chan llama.Outcome, 1)
	go func() {
		if f.block != nil {
			<-f.block
		}
		out <- llama.Outcome{Completion: llama.Completion{Text: f.text, Tokens: f.tokens}, Err: f.err}
	}()
	return out
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRunner) last() llama.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invocations[len(f.invocations)-1]
}

type fixture struct {
	weights    string
	executable string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	weights := filepath.Join(dir, "model.gguf")
	executable := filepath.Join(dir, "llama-cli")
	require.NoError(t, os.WriteFile(weights, []byte("gguf"), 0o644))
	require.NoError(t, os.WriteFile(executable, []byte("#!/bin/sh\n"), 0o755))
	return fixture{weights: weights, executable: executable}
}

func newTranslator(t *testing.T, runner llama.Runner, opts Options) *Translator {
	t.Helper()
	fx := newFixture(t)
	if opts.Kind == "" && opts.Adapter == nil {
		opts.Kind = adapter.KindGemma
	}
	if opts.Weights == "" {
		opts.Weights = fx.weights
	}
	if opts.Candidates == nil {
		opts.Candidates = []string{fx.executable}
	}
	opts.Runner = runner

	translator, err := New(opts)
	require.NoError(t, err)
	return translator
}

func loaded(t *testing.T, runner llama.Runner, opts Options) *Translator {
	t.Helper()
	translator := newTranslator(t, runner, opts)
	require.NoError(t, translator.LoadModel())
	return translator
}

func langPtr(l lang.Language) *lang.Language {
	return &l
}

func TestTranslateNotReady(t *testing.T) {
	runner := &fakeRunner{text: "unused"}
	translator := newTranslator(t, runner, Options{})

	for _, input := range []string{"Hello", "   ", ""} {
		_, err := translator.Translate(context.Background(), input, nil, lang.Local)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotReady))
		assert.True(t, IsConfiguration(err))
	}
	assert.Equal(t, 0, runner.callCount())
}

func TestTranslateEmptyInput(t *testing.T) {
	runner := &fakeRunner{text: "unused"}
	translator := loaded(t, runner, Options{})

	_, err := translator.Translate(context.Background(), "   ", nil, lang.Local)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, 0, runner.callCount())
	assert.True(t, translator.Ready())
}

func TestTranslateInferenceFailure(t *testing.T) {
	runner := &fakeRunner{err: &llama.ExitError{Code: 1, Stderr: "boom"}}
	translator := loaded(t, runner, Options{})

	result, err := translator.Translate(context.Background(), "Hello", nil, lang.Local)
	require.Error(t, err)
	assert.True(t, IsInference(err))
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, Result{}, result)

	var exitErr *llama.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)

	assert.True(t, translator.Ready())
	assert.Equal(t, adapter.KindGemma, translator.Adapter().Kind())
}

func TestTranslateEndToEndWithCustomAdapter(t *testing.T) {
	custom, err := adapter.New(adapter.KindLlama, lang.DefaultPair(), adapter.Spec{
		Template: func(text, source, target string) string {
			return "system: translate " + source + " to " + target + "\nuser: " + text + "\nassistant:"
		},
		Stops:     []string{"<EOT>"},
		Preambles: []*regexp.Regexp{regexp.MustCompile(`^Result: `)},
	})
	require.NoError(t, err)

	runner := &fakeRunner{text: "Result: Konnichiwa<EOT>"}
	translator := loaded(t, runner, Options{Adapter: custom})

	result, err := translator.Translate(context.Background(), "  こんにちは \n", langPtr(lang.Local), lang.Foreign)
	require.NoError(t, err)
	assert.Equal(t, "Konnichiwa", result.TranslatedText)
	assert.Nil(t, result.DetectedSource)
	assert.GreaterOrEqual(t, result.DurationSeconds(), 0.0)

	inv := runner.last()
	assert.Equal(t, []string{"<EOT>"}, inv.Stops)
	assert.Equal(t, "system: translate Japanese to English\nuser: こんにちは\nassistant:", inv.Prompt)
	assert.Equal(t, 1, runner.callCount())
}

func TestTranslateDetectsSource(t *testing.T) {
	tokens := 7
	runner := &fakeRunner{text: "Hello<end_of_turn>", tokens: &tokens}
	translator := loaded(t, runner, Options{})

	result, err := translator.Translate(context.Background(), "こんにちは", nil, lang.Foreign)
	require.NoError(t, err)
	require.NotNil(t, result.DetectedSource)
	assert.Equal(t, lang.Local, *result.DetectedSource)
	assert.Equal(t, "Hello", result.TranslatedText)
	require.NotNil(t, result.TokenCount)
	assert.Equal(t, 7, *result.TokenCount)
	assert.Contains(t, runner.last().Prompt, "Translate from Japanese to English.")

	result, err = translator.Translate(context.Background(), "Hello there", nil, lang.Local)
	require.NoError(t, err)
	require.NotNil(t, result.DetectedSource)
	assert.Equal(t, lang.Foreign, *result.DetectedSource)
}

func TestTranslateNormalizesBeforePrompting(t *testing.T) {
	runner := &fakeRunner{text: "ok"}
	translator := loaded(t, runner, Options{})

	_, err := translator.Translate(context.Background(), "one\r\n\r\n\r\n\r\ntwo", langPtr(lang.Foreign), lang.Local)
	require.NoError(t, err)
	assert.Contains(t, runner.last().Prompt, "one\n\ntwo")
	assert.NotContains(t, runner.last().Prompt, "\r")
}

func TestTranslatePassesInvocationConfig(t *testing.T) {
	fx := newFixture(t)
	runner := &fakeRunner{text: "ok"}
	cfg := llama.Config{ContextSize: 1024, Temperature: 0.3, MaxTokens: 256}
	translator := loaded(t, runner, Options{
		Kind:       adapter.KindQwen,
		Weights:    fx.weights,
		Candidates: []string{fx.executable},
		Config:     cfg,
	})

	_, err := translator.Translate(context.Background(), "hi", nil, lang.Local)
	require.NoError(t, err)

	inv := runner.last()
	assert.Equal(t, fx.weights, inv.Config.Weights)
	assert.Equal(t, fx.executable, inv.Config.Executable)
	assert.Equal(t, 1024, inv.Config.ContextSize)
	assert.Equal(t, 256, inv.Config.MaxTokens)
	assert.InDelta(t, 0.3, inv.Config.Temperature, 1e-9)
	assert.Equal(t, []string{"<|im_end|>", "<|endoftext|>"}, inv.Stops)
}

func TestNewAppliesDefaultSampling(t *testing.T) {
	translator := loaded(t, &fakeRunner{}, Options{})
	assert.Equal(t, llama.DefaultContextSize, translator.cfg.ContextSize)
	assert.Equal(t, llama.DefaultMaxTokens, translator.cfg.MaxTokens)
	assert.InDelta(t, llama.DefaultTemperature, translator.cfg.Temperature, 1e-9)
}

func TestNewFillsPartialSampling(t *testing.T) {
	runner := &fakeRunner{}
	translator := loaded(t, runner, Options{Config: llama.Config{ContextSize: 1024}})
	assert.Equal(t, 1024, translator.cfg.ContextSize)
	assert.Equal(t, llama.DefaultMaxTokens, translator.cfg.MaxTokens)
	assert.Zero(t, translator.cfg.Temperature)

	_, err := translator.Translate(context.Background(), "hello", nil, lang.Local)
	require.NoError(t, err)
	assert.Equal(t, llama.DefaultMaxTokens, runner.last().Config.MaxTokens)
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New(Options{Kind: adapter.Kind("nope")})
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.ErrorIs(t, err, adapter.ErrUnknownKind)
}

func TestLoadModelIsIdempotent(t *testing.T) {
	translator := loaded(t, &fakeRunner{}, Options{})
	require.NoError(t, translator.LoadModel())
	assert.True(t, translator.Ready())
	assert.NotEmpty(t, translator.Executable())
}

func TestLoadModelMissingWeights(t *testing.T) {
	fx := newFixture(t)
	translator := newTranslator(t, &fakeRunner{}, Options{
		Weights:    filepath.Join(t.TempDir(), "missing.gguf"),
		Candidates: []string{fx.executable},
	})

	err := translator.LoadModel()
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.Contains(t, err.Error(), "missing.gguf")
	assert.False(t, translator.Ready())
}

func TestLoadModelMissingExecutable(t *testing.T) {
	translator := newTranslator(t, &fakeRunner{}, Options{
		Candidates: []string{filepath.Join(t.TempDir(), "llama-cli")},
	})

	err := translator.LoadModel()
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.ErrorIs(t, err, llama.ErrExecutableNotFound)
	assert.False(t, translator.Ready())
	assert.Empty(t, translator.Executable())
}

func TestUnloadModel(t *testing.T) {
	runner := &fakeRunner{text: "ok"}
	translator := loaded(t, runner, Options{})

	translator.UnloadModel()
	assert.False(t, translator.Ready())
	translator.UnloadModel()

	_, err := translator.Translate(context.Background(), "Hello", nil, lang.Local)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, 0, runner.callCount())

	require.NoError(t, translator.LoadModel())
	require.NoError(t, translator.Close())
	assert.False(t, translator.Ready())
}

func TestSetModelSwitchesAdapterAndUnloads(t *testing.T) {
	fx := newFixture(t)
	translator := loaded(t, &fakeRunner{}, Options{Candidates: []string{fx.executable}})

	require.NoError(t, translator.SetModel(adapter.KindALMA, fx.weights))
	assert.False(t, translator.Ready())
	assert.Equal(t, adapter.KindALMA, translator.Adapter().Kind())
	assert.Equal(t, fx.weights, translator.Weights())
	require.NoError(t, translator.LoadModel())

	err := translator.SetModel(adapter.Kind("bogus"), fx.weights)
	assert.True(t, IsConfiguration(err))
	assert.Equal(t, adapter.KindALMA, translator.Adapter().Kind())
}

func TestTranslateStopsWaitingOnContext(t *testing.T) {
	runner := &fakeRunner{text: "late", block: make(chan struct{})}
	defer close(runner.block)
	translator := loaded(t, runner, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := translator.Translate(ctx, "Hello", nil, lang.Local)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, runner.callCount())
	assert.True(t, translator.Ready())
}

func TestTranslateConcurrentCallsSpawnOnceEach(t *testing.T) {
	runner := &fakeRunner{text: "ok"}
	translator := loaded(t, runner, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := translator.Translate(context.Background(), strings.Repeat("word ", i+1), nil, lang.Local)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 8, runner.callCount())
}
