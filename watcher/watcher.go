// Package watcher detects the arrival of a browser download in a watched
// directory. It diffs directory snapshots against a baseline and confirms a
// candidate only once its size is stable across two samples, so a file that
// is still being written is never handed downstream.
package watcher

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"
)

// ErrTimedOut is returned when no stable new file appears within the ceiling.
var ErrTimedOut = errors.New("watcher: timed out waiting for download")

// Snapshot is the set of file names present in the watched directory at one
// point in time. It is never mutated after capture.
type Snapshot map[string]struct{}

// Contains reports whether name was present when the snapshot was taken.
func (s Snapshot) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Candidate is a newly arrived, size-stable file.
type Candidate struct {
	Name string
	Path string
	Size int64
}

// Watcher polls a directory for new downloads.
//
// Diffing is by file name only: a name present in the baseline is never
// reported again, even if its bytes are later rewritten. Browsers write
// repeat downloads under fresh names, and content hashing a file that is
// still being streamed races with the size-stability check.
type Watcher struct {
	dir            string
	pollInterval   time.Duration
	stabilityDelay time.Duration
	ceiling        time.Duration

	// sleep is swappable in tests to avoid real stability delays
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithPollInterval(d time.Duration) Option   { return func(w *Watcher) { w.pollInterval = d } }
func WithStabilityDelay(d time.Duration) Option { return func(w *Watcher) { w.stabilityDelay = d } }
func WithCeiling(d time.Duration) Option        { return func(w *Watcher) { w.ceiling = d } }

// New creates a Watcher over dir with the default 2s poll interval,
// 1s stability delay and 120s ceiling.
func New(dir string, opts ...Option) *Watcher {
	w := &Watcher{
		dir:            dir,
		pollInterval:   2 * time.Second,
		stabilityDelay: time.Second,
		ceiling:        120 * time.Second,
		sleep:          sleepCtx,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// TakeSnapshot captures the current file names in the watched directory.
func (w *Watcher) TakeSnapshot() (Snapshot, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	snap := make(Snapshot, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		snap[e.Name()] = struct{}{}
	}
	return snap, nil
}

// Await blocks until a new file relative to baseline reaches size stability,
// then returns it immediately without waiting for other arrivals. After each
// poll iteration the baseline is advanced to the current snapshot, so files
// appearing between iterations are not mistaken for leftovers — except names
// whose size was still changing, which stay new until a cycle confirms them.
// Returns ErrTimedOut once the ceiling elapses, or ctx.Err() on cancellation.
func (w *Watcher) Await(ctx context.Context, baseline Snapshot) (*Candidate, error) {
	deadline := time.Now().Add(w.ceiling)

	for {
		if time.Now().After(deadline) {
			return nil, ErrTimedOut
		}

		current, err := w.TakeSnapshot()
		if err != nil {
			log.Printf("[watcher] snapshot error: %v", err)
		} else {
			for name := range current {
				if baseline.Contains(name) {
					continue
				}
				cand, err := w.confirmStable(ctx, name)
				if err != nil {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					// size not stable yet, or the file vanished; keep
					// the name out of the advancing baseline so a later
					// cycle re-checks it
					delete(current, name)
					continue
				}
				return cand, nil
			}
			baseline = current
		}

		if err := w.sleep(ctx, w.pollInterval); err != nil {
			return nil, err
		}
	}
}

// confirmStable samples the file size twice, stabilityDelay apart, and
// accepts the file only when the two samples are equal.
func (w *Watcher) confirmStable(ctx context.Context, name string) (*Candidate, error) {
	path := filepath.Join(w.dir, name)

	size1, err := fileSize(path)
	if err != nil {
		return nil, err
	}
	if err := w.sleep(ctx, w.stabilityDelay); err != nil {
		return nil, err
	}
	size2, err := fileSize(path)
	if err != nil {
		return nil, err
	}
	if size1 != size2 {
		return nil, errors.New("watcher: size still changing")
	}
	return &Candidate{Name: name, Path: path, Size: size2}, nil
}

func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
