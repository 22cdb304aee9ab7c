// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/trace"
)

// MockCatalog is a test double for [services.Catalog] that returns Tracks (capped at the requested count)
// or Err, and remembers every request.
type MockCatalog struct {
	Tracks []models.Track
	Err    error

	mu       sync.Mutex
	requests []services.FetchRequest
}

func (m *MockCatalog) Fetch(ctx context.Context, req services.FetchRequest) ([]models.Track, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Track, 0, len(m.Tracks))
	out = append(out, m.Tracks[:min(len(m.Tracks), max(req.Count, 0))]...)
	return out, nil
}

func (m *MockCatalog) Name() string { return "mock" }

// Requests returns a copy of the fetch requests seen so far.
func (m *MockCatalog) Requests() []services.FetchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]services.FetchRequest(nil), m.requests...)
}

// MemoryTracer is a [trace.Tracer] that keeps records in memory, numbered like [trace.Recorder].
type MemoryTracer struct {
	Records []trace.Record
}

func (m *MemoryTracer) Record(agent trace.Agent, tool string, status trace.Status, details trace.Details) {
	m.Records = append(m.Records, trace.Record{
		SpanID:  len(m.Records) + 1,
		Agent:   agent,
		Tool:    tool,
		Status:  status,
		Details: details,
	})
}

// Count returns how many records match tool and status.
func (m *MemoryTracer) Count(tool string, status trace.Status) int {
	n := 0
	for _, r := range m.Records {
		if r.Tool == tool && r.Status == status {
			n++
		}
	}
	return n
}

// Tracks builds n tracks with distinct artists, cycling through genres.
func Tracks(n int, genres ...string) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{
			Title:  fmt.Sprintf("Track %02d", i),
			Artist: fmt.Sprintf("Artist %02d", i),
			Region: models.DefaultRegion,
		}
		if len(genres) > 0 {
			tracks[i].Genre = genres[i%len(genres)]
		}
	}
	return tracks
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
