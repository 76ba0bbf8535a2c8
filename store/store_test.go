package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/scrapehost/models"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "scraped_data.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))

	doc, err := s.Read(context.Background())

	assert.Nil(t, doc)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReadPassesDocumentThrough(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"object", `{"url":"https://example.com","title":"Example","links":[{"text":"a","href":"#"}]}`},
		{"error object", `{"error":true,"message":"boom"}`},
		{"array", `[1,2,3]`},
		{"string", `"just text"`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewFileStore(writeFile(t, t.TempDir(), tt.body))

			doc, err := s.Read(context.Background())

			require.NoError(t, err)
			assert.JSONEq(t, tt.body, string(doc))
		})
	}
}

func TestReadMalformedJSON(t *testing.T) {
	s := NewFileStore(writeFile(t, t.TempDir(), `{"title": "half`))

	_, err := s.Read(context.Background())

	var readErr *models.ReadError
	require.True(t, errors.As(err, &readErr))
	assert.NotEmpty(t, readErr.Message())
	assert.False(t, errors.Is(err, models.ErrNotFound))
}

func TestReadDirectoryIsReadError(t *testing.T) {
	s := NewFileStore(t.TempDir())

	_, err := s.Read(context.Background())

	var readErr *models.ReadError
	assert.True(t, errors.As(err, &readErr))
}

func TestReadReflectsLatestWrite(t *testing.T) {
	path := writeFile(t, t.TempDir(), `{"v":1}`)
	s := NewFileStore(path)

	first, err := s.Read(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`{"v":2}`), 0o644))
	second, err := s.Read(context.Background())
	require.NoError(t, err)

	assert.JSONEq(t, `{"v":1}`, string(first))
	assert.JSONEq(t, `{"v":2}`, string(second))
}

func TestWriteCreatesDirectoryAndRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "scraped_data.json")
	s := NewFileStore(path)

	require.NoError(t, s.Write(models.FailedScrape{Error: true, Message: "timeout", URL: "https://x.test"}))

	doc, err := s.Read(context.Background())
	require.NoError(t, err)
	failed, msg := Failed(doc)
	assert.True(t, failed)
	assert.Equal(t, "timeout", msg)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestFailed(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    bool
		wantMsg string
	}{
		{"error true", `{"error":true,"message":"X"}`, true, "X"},
		{"error false", `{"error":false,"message":"X"}`, false, ""},
		{"missing message", `{"error":true}`, true, ""},
		{"numeric message", `{"error":true,"message":42}`, true, "42"},
		{"no error field", `{"title":"ok"}`, false, ""},
		{"array", `[{"error":true}]`, false, ""},
		{"error not bool", `{"error":"yes"}`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := Failed(Document(tt.doc))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}
