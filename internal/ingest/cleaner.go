// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/mangetsu/internal/content"
	"github.com/taibuivan/mangetsu/internal/platform/constants"
)

// # Background Cleanup

// Cleaner deletes orphaned objects from the content store on a best-effort,
// fire-and-forget basis.
//
// A stale stored object is an acceptable leak; a blocked user-facing edit is
// not. Deletion failures are therefore logged and never retried to
// exhaustion nor surfaced to callers.
type Cleaner struct {
	store   content.Store
	timeout time.Duration
	logger  *slog.Logger

	wg sync.WaitGroup
}

// NewCleaner constructs a [Cleaner] with the platform cleanup timeout.
func NewCleaner(store content.Store, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		store:   store,
		timeout: constants.CleanupTimeout,
		logger:  logger,
	}
}

/*
Schedule queues locators for asynchronous deletion and returns immediately.

Description: The caller's response never waits on cleanup. Deletions run on
a detached context (the originating request may already be gone) with a
bounded per-object timeout.
*/
func (cleaner *Cleaner) Schedule(locators ...string) {
	if len(locators) == 0 {
		return
	}

	cleaner.wg.Add(1)

	go func() {
		defer cleaner.wg.Done()

		for _, locator := range locators {
			cleaner.deleteOne(locator)
		}
	}()
}

// deleteOne removes a single object, swallowing any failure.
func (cleaner *Cleaner) deleteOne(locator string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleaner.timeout)
	defer cancel()

	if err := cleaner.store.Delete(ctx, locator); err != nil {
		// Orphan tolerated: the object stays in the store until a later
		// cleanup pass; the chapter record no longer references it.
		cleaner.logger.Warn("orphan_cleanup_failed",
			slog.String("locator", locator),
			slog.Any("error", err),
		)
		return
	}

	cleaner.logger.Debug("orphan_deleted", slog.String("locator", locator))
}

// Drain blocks until every scheduled deletion has finished or ctx expires.
//
// Used during graceful shutdown and by tests that need determinism.
func (cleaner *Cleaner) Drain(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		cleaner.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
