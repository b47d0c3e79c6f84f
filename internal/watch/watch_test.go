// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func collectEvents(t *testing.T, w *Watcher, handler func(Event) error) (<-chan Event, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 16)
	go func() {
		_ = w.Run(ctx, func(ev Event) error {
			events <- ev
			if handler != nil {
				return handler(ev)
			}
			return nil
		})
	}()
	return events, cancel
}

func TestNewWatcherDefaults(t *testing.T) {
	w := NewWatcher("mod.wasm", 0)
	if w.interval != 500*time.Millisecond {
		t.Errorf("expected default interval 500ms, got %v", w.interval)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mod.wasm")
	w := NewWatcher(path, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(Event) error { return nil }) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatchInitialEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mod.wasm")
	if err := os.WriteFile(path, []byte("aaaa"), 0644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, 10*time.Millisecond)
	events, cancel := collectEvents(t, w, nil)
	defer cancel()

	select {
	case ev := <-events:
		if ev.Path != path {
			t.Errorf("expected path %s, got %s", path, ev.Path)
		}
		if ev.Size != 4 {
			t.Errorf("expected size 4, got %d", ev.Size)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no initial event")
	}
}

func TestWatchDetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mod.wasm")
	if err := os.WriteFile(path, []byte("aaaa"), 0644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, 10*time.Millisecond)
	events, cancel := collectEvents(t, w, nil)
	defer cancel()

	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no initial event")
	}

	// A longer write moves both size and mtime.
	if err := os.WriteFile(path, []byte("aaaaaaaa"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if ev.Size != 8 {
			t.Errorf("expected size 8, got %d", ev.Size)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("change not observed")
	}
}

func TestWatchToleratesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mod.wasm")

	w := NewWatcher(path, 10*time.Millisecond)
	events, cancel := collectEvents(t, w, nil)
	defer cancel()

	select {
	case <-events:
		t.Fatal("unexpected event before the file exists")
	case <-time.After(100 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte("late"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if ev.Size != 4 {
			t.Errorf("expected size 4, got %d", ev.Size)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("file creation not observed")
	}
}

func TestWatchSurvivesHandlerError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mod.wasm")
	if err := os.WriteFile(path, []byte("aaaa"), 0644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, 10*time.Millisecond)
	events, cancel := collectEvents(t, w, func(Event) error {
		return fmt.Errorf("parse failed")
	})
	defer cancel()

	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no initial event")
	}

	if err := os.WriteFile(path, []byte("aaaaaaaa"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("watch stopped after handler error")
	}
}

func TestNewSpinner(t *testing.T) {
	spinner := NewSpinner()

	if spinner == nil {
		t.Fatal("expected non-nil spinner")
		return
	}

	if len(spinner.frames) == 0 {
		t.Error("expected spinner frames")
	}
}

func TestSpinnerStartStop(t *testing.T) {
	spinner := NewSpinner()
	spinner.Start("Testing...")
	time.Sleep(50 * time.Millisecond)
	spinner.Stop()
}

func TestSpinnerMessages(t *testing.T) {
	spinner := NewSpinner()
	spinner.Start("Testing...")
	time.Sleep(50 * time.Millisecond)
	spinner.StopWithMessage("Test completed")

	spinner2 := NewSpinner()
	spinner2.Start("Testing error...")
	time.Sleep(50 * time.Millisecond)
	spinner2.StopWithError("Test failed")
}

func TestSpinnerDoubleStart(t *testing.T) {
	spinner := NewSpinner()
	spinner.Start("Testing...")
	spinner.Start("Testing again...")
	time.Sleep(50 * time.Millisecond)
	spinner.Stop()
}
