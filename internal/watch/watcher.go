// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package watch re-runs decompilation when a module file changes on disk.
// A modification-time poller keeps the dependency surface flat; editors
// that replace files atomically still show up as an mtime or size change.
package watch

import (
	"context"
	"os"
	"time"

	"github.com/dotandev/wasmdec/internal/logger"
)

// Event carries one observed change of the watched file.
type Event struct {
	Path    string
	ModTime time.Time
	Size    int64
}

type Watcher struct {
	path     string
	interval time.Duration
}

// NewWatcher polls path every interval; zero means 500ms.
func NewWatcher(path string, interval time.Duration) *Watcher {
	if interval == 0 {
		interval = 500 * time.Millisecond
	}
	return &Watcher{path: path, interval: interval}
}

// Run invokes onChange once for the file's initial state and again after
// every observed modification, until ctx is canceled. A missing file is
// tolerated: the first event fires when it appears. Handler errors are
// logged and do not stop the watch, so a half-written save that fails to
// parse never kills the session.
func (w *Watcher) Run(ctx context.Context, onChange func(Event) error) error {
	var lastMod time.Time
	lastSize := int64(-1)

	check := func() {
		info, err := os.Stat(w.path)
		if err != nil {
			// Not created yet, or vanished mid-save.
			return
		}
		if info.ModTime().Equal(lastMod) && info.Size() == lastSize {
			return
		}
		lastMod = info.ModTime()
		lastSize = info.Size()

		ev := Event{Path: w.path, ModTime: lastMod, Size: lastSize}
		if err := onChange(ev); err != nil {
			logger.Logger.Warn("change handler failed", "path", w.path, "error", err)
		}
	}

	check()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			check()
		}
	}
}
