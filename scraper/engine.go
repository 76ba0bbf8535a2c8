package scraper

import "context"

// Engine fetches one page.
type Engine interface {
	// Name returns the engine identifier ("browser" or "http").
	Name() string

	// Fetch loads url and returns the rendered page.
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Page is the output of a successful engine fetch.
type Page struct {
	HTML       string
	FinalURL   string
	StatusCode int
}
