// Package llama runs llama.cpp's command-line completion tool as a one-shot
// subprocess.
package llama

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Invocation is everything one completion needs.
type Invocation struct {
	Prompt string
	Stops  []string
	Config Config
}

// Completion is the raw text a run produced.
type Completion struct {
	Text string
	// Tokens is the generated token count when the tool reported one.
	Tokens *int
}

// Outcome is delivered exactly once per Run.
type Outcome struct {
	Completion Completion
	Err        error
}

// Runner starts a completion and returns without waiting for it.
type Runner interface {
	Run(ctx context.Context, inv Invocation) <-chan Outcome
}

// CLI runs the llama.cpp executable named in each Invocation's Config.
type CLI struct {
	logger *zap.Logger
}

var _ Runner = (*CLI)(nil)

func NewCLI(logger *zap.Logger) *CLI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLI{logger: logger}
}

// Run executes the process on its own goroutine. The process is not tied to
// ctx: a caller that stops waiting leaves it to finish on its own.
func (c *CLI) Run(ctx context.Context, inv Invocation) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		completion, err := c.run(inv)
		out <- Outcome{Completion: completion, Err: err}
	}()
	return out
}

// Args assembles the command line for inv, stop sequences last in their
// declared order.
func Args(inv Invocation) []string {
	cfg := inv.Config
	args := []string{
		"-m", cfg.Weights,
		"-p", inv.Prompt,
		"-n", strconv.Itoa(cfg.MaxTokens),
		"-c", strconv.Itoa(cfg.ContextSize),
		"--temp", strconv.FormatFloat(cfg.Temperature, 'f', -1, 64),
		"--no-display-prompt",
		"--no-conversation",
	}
	for _, stop := range inv.Stops {
		args = append(args, "-r", stop)
	}
	return args
}

func (c *CLI) run(inv Invocation) (Completion, error) {
	if err := inv.Config.Validate(); err != nil {
		return Completion{}, &SpawnError{Path: inv.Config.Executable, Err: err}
	}

	cmd := exec.Command(inv.Config.Executable, Args(inv)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Completion{}, &SpawnError{Path: inv.Config.Executable, Err: err}
	}
	// Wait returns only after both pipes are copied into the buffers.
	err := cmd.Wait()
	c.logger.Debug("llama.cpp finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("stdout_bytes", stdout.Len()),
		zap.Int("stderr_bytes", stderr.Len()),
	)

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Completion{}, &ExitError{Code: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
		}
		return Completion{}, &SpawnError{Path: inv.Config.Executable, Err: err}
	}

	if !utf8.Valid(stdout.Bytes()) {
		return Completion{}, &DecodeError{Size: stdout.Len()}
	}

	return Completion{Text: stdout.String(), Tokens: parseTokenCount(stderr.String())}, nil
}

// llama.cpp reports "eval time = X ms / N runs" for generated tokens; the
// prompt line is labelled "prompt eval time" and is skipped.
var evalRuns = regexp.MustCompile(`(?m)(?:^|[^t] )eval time\s*=\s*[0-9.]+\s*ms\s*/\s*(\d+)\s*(?:runs|tokens)`)

func parseTokenCount(stderr string) *int {
	match := evalRuns.FindStringSubmatch(stderr)
	if match == nil {
		return nil
	}
	count, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	return &count
}
