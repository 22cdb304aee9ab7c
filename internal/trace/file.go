package trace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// FileName derives the trace file name of a run from its parameters.
func FileName(prefix, mood string, seed int64, variant int) string {
	return fmt.Sprintf("%s-run-%s-seed%d-v%d.jsonl", prefix, shared.Slugify(mood), seed, variant)
}

// File is a [Recorder] backed by a freshly truncated trace file.
//
// While open, the file's sibling "<path>.lock" is held so two runs that derive the same name write one
// after the other instead of interleaving.
type File struct {
	*Recorder
	Path string

	f    *os.File
	lock *flock.Flock
}

// OpenFile acquires the lock for path, waiting until ctx is done, then creates or truncates the file.
func OpenFile(ctx context.Context, path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire trace lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire trace lock: %s is held by another run", path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	return &File{Recorder: NewRecorder(f, nil), Path: path, f: f, lock: lock}, nil
}

// Close closes the file and releases the lock. It reports the first write error if there was one.
func (t *File) Close() error {
	closeErr := t.f.Close()
	unlockErr := t.lock.Unlock()

	switch {
	case t.Err() != nil:
		return fmt.Errorf("trace write failed: %w", t.Err())
	case closeErr != nil:
		return fmt.Errorf("failed to close trace file: %w", closeErr)
	case unlockErr != nil:
		return fmt.Errorf("release trace lock: %w", unlockErr)
	}
	return nil
}
