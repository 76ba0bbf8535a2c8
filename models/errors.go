package models

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrNotFound reports that the result file does not exist yet.
var ErrNotFound = errors.New("scraped data file not found")

// ReadError is returned when the result file exists but cannot be read or
// does not hold valid JSON. It supports error wrapping via Unwrap.
type ReadError struct {
	Path string
	Err  error // wrapped original error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Message is the client-facing description of the failure.
func (e *ReadError) Message() string {
	if e.Err == nil {
		return "failed to read scraped data"
	}
	return e.Err.Error()
}

// NewReadError creates a new ReadError.
func NewReadError(path string, err error) *ReadError {
	return &ReadError{Path: path, Err: err}
}

// InvocationError describes a scraper run that could not be started,
// exited with a non-zero status or was stopped by a signal (ExitCode -1).
type InvocationError struct {
	ExitCode int
	Err      error
}

func (e *InvocationError) Error() string {
	var exitErr *exec.ExitError
	switch {
	case !errors.As(e.Err, &exitErr):
		return fmt.Sprintf("scraper failed to run: %v", e.Err)
	case e.ExitCode < 0:
		return fmt.Sprintf("scraper terminated: %v", e.Err)
	default:
		return fmt.Sprintf("scraper exited with status %d: %v", e.ExitCode, e.Err)
	}
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
