package llama

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultContextSize = 4096
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 2048
)

// Config holds the per-model invocation settings.
type Config struct {
	Executable  string
	Weights     string
	ContextSize int
	Temperature float64
	MaxTokens   int
}

// DefaultConfig returns a Config with the sampling defaults filled in.
func DefaultConfig(executable, weights string) Config {
	return Config{
		Executable:  executable,
		Weights:     weights,
		ContextSize: DefaultContextSize,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// Validate reports the first setting outside its allowed range.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Executable) == "" {
		return errors.New("llama executable path is empty")
	}
	if strings.TrimSpace(c.Weights) == "" {
		return errors.New("model weights path is empty")
	}
	if c.ContextSize <= 0 {
		return fmt.Errorf("context size must be positive, got %d", c.ContextSize)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %g", c.Temperature)
	}
	return nil
}
