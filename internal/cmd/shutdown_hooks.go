// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/dotandev/wasmdec/internal/cache"
	"github.com/dotandev/wasmdec/internal/logger"
	"github.com/dotandev/wasmdec/internal/shutdown"
)

const shutdownTimeout = 3 * time.Second

var shutdownState struct {
	mu          sync.RWMutex
	coordinator *shutdown.Coordinator
}

func setShutdownCoordinator(c *shutdown.Coordinator) {
	shutdownState.mu.Lock()
	defer shutdownState.mu.Unlock()
	shutdownState.coordinator = c
}

func clearShutdownCoordinator() {
	shutdownState.mu.Lock()
	defer shutdownState.mu.Unlock()
	shutdownState.coordinator = nil
}

// registerShutdownHook is a no-op outside Execute; commands driven directly
// (tests) clean up on their own.
func registerShutdownHook(name string, fn shutdown.HookFunc) {
	shutdownState.mu.RLock()
	c := shutdownState.coordinator
	shutdownState.mu.RUnlock()
	if c == nil {
		return
	}
	c.Register(name, fn)
}

func runShutdownHooksWithTimeout(c *shutdown.Coordinator, timeout time.Duration) {
	if c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := c.Run(ctx); err != nil {
		logger.Logger.Warn("shutdown hooks completed with errors", "error", err)
	}
}

// registerStoreCloseHook closes the decompilation cache once the command
// finishes or is interrupted, whichever comes first.
func registerStoreCloseHook(name string, store *cache.Store) {
	if store == nil {
		return
	}

	registerShutdownHook(name, func(context.Context) error {
		return store.Close()
	})
}
