package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotReady   = errors.New("translation model is not loaded")
	ErrEmptyInput = errors.New("text to translate is empty")
)

// ConfigurationError means the model or executable cannot be used as
// configured. Not-ready translations report ErrNotReady wrapped in one.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ValidationError rejects a request before anything is run.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InferenceError wraps a failed llama.cpp run.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("translation failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsInference(err error) bool {
	var target *InferenceError
	return errors.As(err, &target)
}
