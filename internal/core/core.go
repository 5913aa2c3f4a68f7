// Package core turns translation requests into llama.cpp runs through the
// active model adapter.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goosewin/kotoba/internal/adapter"
	"github.com/goosewin/kotoba/internal/lang"
	"github.com/goosewin/kotoba/internal/llama"
)

// Options configures a Translator.
type Options struct {
	Kind adapter.Kind
	// Adapter replaces the built-in adapter for Kind when set.
	Adapter *adapter.Adapter
	Pair    lang.Pair
	Weights string
	// Runner defaults to llama.NewCLI.
	Runner llama.Runner
	// Config supplies sampling settings; zero fields take the llama
	// defaults. Executable, when set, is tried before the default candidate
	// locations.
	Config llama.Config
	// Candidates replaces the executable search list.
	Candidates []string
	Logger     *zap.Logger
}

// Result is the outcome of one successful translation.
type Result struct {
	TranslatedText string
	// DetectedSource is set only when the request had no source language.
	DetectedSource *lang.Language
	Duration       time.Duration
	TokenCount     *int
}

// DurationSeconds reports Duration as fractional seconds.
func (r Result) DurationSeconds() float64 {
	return r.Duration.Seconds()
}

// Translator owns the active adapter and the readiness of one model.
type Translator struct {
	mu         sync.RWMutex
	adapter    *adapter.Adapter
	weights    string
	cfg        llama.Config
	candidates []string
	runner     llama.Runner
	ready      bool
	logger     *zap.Logger
}

// New builds a Translator that is not yet ready; call LoadModel.
func New(opts Options) (*Translator, error) {
	if opts.Pair == (lang.Pair{}) {
		opts.Pair = lang.DefaultPair()
	}
	active := opts.Adapter
	if active == nil {
		var err error
		active, err = adapter.For(opts.Kind, opts.Pair)
		if err != nil {
			return nil, &ConfigurationError{Err: err}
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := opts.Runner
	if runner == nil {
		runner = llama.NewCLI(logger)
	}

	cfg := withSamplingDefaults(opts.Config)

	return &Translator{
		adapter:    active,
		weights:    opts.Weights,
		cfg:        cfg,
		candidates: opts.Candidates,
		runner:     runner,
		logger:     logger,
	}, nil
}

// withSamplingDefaults fills each zero sampling field. A zero Temperature is
// greedy decoding and is kept unless the other sampling fields are zero too.
func withSamplingDefaults(cfg llama.Config) llama.Config {
	if cfg.Temperature == 0 && cfg.ContextSize == 0 && cfg.MaxTokens == 0 {
		cfg.Temperature = llama.DefaultTemperature
	}
	if cfg.ContextSize == 0 {
		cfg.ContextSize = llama.DefaultContextSize
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = llama.DefaultMaxTokens
	}
	return cfg
}

// LoadModel verifies the weights file and resolves the executable. It is a
// no-op when already ready.
func (t *Translator) LoadModel() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ready {
		return nil
	}

	if strings.TrimSpace(t.weights) == "" {
		return &ConfigurationError{Err: errors.New("model weights path is not set")}
	}
	info, err := os.Stat(t.weights)
	if err != nil || !info.Mode().IsRegular() {
		return &ConfigurationError{Err: fmt.Errorf("model weights not found: %s", t.weights)}
	}

	candidates := t.candidates
	if len(candidates) == 0 {
		candidates = llama.DefaultCandidates(t.cfg.Executable)
	}
	executable, err := llama.ResolveExecutable(candidates)
	if err != nil {
		return &ConfigurationError{Err: err}
	}

	cfg := t.cfg
	cfg.Executable = executable
	cfg.Weights = t.weights
	if err := cfg.Validate(); err != nil {
		return &ConfigurationError{Err: err}
	}

	t.cfg = cfg
	t.ready = true
	t.logger.Info("model loaded",
		zap.String("kind", t.adapter.Kind().String()),
		zap.String("weights", t.weights),
		zap.String("executable", executable),
	)
	return nil
}

// UnloadModel clears readiness. It always succeeds.
func (t *Translator) UnloadModel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ready {
		t.logger.Info("model unloaded", zap.String("kind", t.adapter.Kind().String()))
	}
	t.ready = false
}

// Close unloads the model.
func (t *Translator) Close() error {
	t.UnloadModel()
	return nil
}

// SetModel switches to another model and leaves the translator unloaded.
// Callers serialize it with in-flight translations.
func (t *Translator) SetModel(kind adapter.Kind, weights string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, err := adapter.For(kind, t.adapter.Pair())
	if err != nil {
		return &ConfigurationError{Err: err}
	}
	t.adapter = next
	t.weights = weights
	t.ready = false
	return nil
}

func (t *Translator) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

func (t *Translator) Adapter() *adapter.Adapter {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.adapter
}

func (t *Translator) Weights() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.weights
}

// Executable is the resolved llama.cpp path, empty until loaded.
func (t *Translator) Executable() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.ready {
		return ""
	}
	return t.cfg.Executable
}

// Translate runs one translation. A nil source is detected from the text and
// reported back in the result.
func (t *Translator) Translate(ctx context.Context, text string, source *lang.Language, target lang.Language) (Result, error) {
	start := time.Now()

	t.mu.RLock()
	ready, active, cfg := t.ready, t.adapter, t.cfg
	t.mu.RUnlock()

	if !ready {
		return Result{}, &ConfigurationError{Err: ErrNotReady}
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{}, &ValidationError{Err: ErrEmptyInput}
	}

	var detected *lang.Language
	var resolved lang.Language
	if source != nil {
		resolved = *source
	} else {
		resolved = lang.Detect(trimmed)
		detected = &resolved
	}

	requestID := uuid.NewString()
	logger := t.logger.With(
		zap.String("request_id", requestID),
		zap.String("kind", active.Kind().String()),
		zap.Stringer("source", resolved),
		zap.Stringer("target", target),
	)

	normalized := active.NormalizeInput(trimmed)
	prompt := active.BuildPrompt(normalized, resolved, target)

	logger.Debug("running inference", zap.Int("prompt_bytes", len(prompt)))
	var outcome llama.Outcome
	select {
	case outcome = <-t.runner.Run(ctx, llama.Invocation{Prompt: prompt, Stops: active.StopSequences(), Config: cfg}):
	case <-ctx.Done():
		logger.Warn("caller stopped waiting for inference", zap.Error(ctx.Err()))
		return Result{}, ctx.Err()
	}
	if outcome.Err != nil {
		logger.Error("inference failed", zap.Error(outcome.Err))
		return Result{}, &InferenceError{Err: outcome.Err}
	}

	cleaned := active.CleanOutput(outcome.Completion.Text)
	result := Result{
		TranslatedText: cleaned,
		DetectedSource: detected,
		Duration:       time.Since(start),
		TokenCount:     outcome.Completion.Tokens,
	}
	logger.Info("translation complete",
		zap.Duration("duration", result.Duration),
		zap.Int("output_bytes", len(cleaned)),
	)
	return result, nil
}
