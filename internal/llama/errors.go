package llama

import (
	"errors"
	"fmt"
)

var ErrExecutableNotFound = errors.New("llama.cpp executable not found")

// SpawnError means the executable could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ExitError carries the exit status and captured stderr of a failed run.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("llama.cpp exited with status %d", e.Code)
	}
	return fmt.Sprintf("llama.cpp exited with status %d: %s", e.Code, e.Stderr)
}

// DecodeError means stdout was not valid UTF-8 text.
type DecodeError struct {
	Size int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("llama.cpp output is not valid UTF-8 (%d bytes)", e.Size)
}
