package models

import "time"

// InvocationOutcome records one run of the external scraper.
type InvocationOutcome struct {
	URL       string        `json:"url"`
	ExitCode  int           `json:"exit_code"`
	Stdout    string        `json:"stdout,omitempty"`
	Stderr    string        `json:"stderr,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	// Err is set when the process could not be spawned or exited non-zero.
	Err error `json:"-"`
}

// Succeeded reports whether the scraper exited cleanly.
func (o *InvocationOutcome) Succeeded() bool {
	return o != nil && o.Err == nil
}

// ErrorMessage returns Err as text, or "" on success.
func (o *InvocationOutcome) ErrorMessage() string {
	if o == nil || o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
