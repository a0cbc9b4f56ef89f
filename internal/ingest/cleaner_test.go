// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangetsu/internal/ingest"
)

// recordingStore counts deletions and can fail them all.
type recordingStore struct {
	mu         sync.Mutex
	deleted    []string
	failDelete bool
}

func (store *recordingStore) Put(_ context.Context, _ []byte, namespace, name string) (string, error) {
	return "https://cdn.test/" + namespace + "/" + name, nil
}

func (store *recordingStore) Delete(_ context.Context, locator string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.failDelete {
		return errors.New("storage timeout")
	}
	store.deleted = append(store.deleted, locator)
	return nil
}

/*
TestCleaner_DeletesScheduledObjects verifies that scheduled locators are
eventually deleted and Drain observes completion.
*/
func TestCleaner_DeletesScheduledObjects(t *testing.T) {
	store := &recordingStore{}
	cleaner := ingest.NewCleaner(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cleaner.Schedule("loc-1", "loc-2")
	cleaner.Schedule("loc-3")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, cleaner.Drain(ctx))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.ElementsMatch(t, []string{"loc-1", "loc-2", "loc-3"}, store.deleted)
}

/*
TestCleaner_SwallowsFailures verifies that deletion failures never surface;
the orphaned object is simply left behind.
*/
func TestCleaner_SwallowsFailures(t *testing.T) {
	store := &recordingStore{failDelete: true}
	cleaner := ingest.NewCleaner(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cleaner.Schedule("loc-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, cleaner.Drain(ctx))
}

/*
TestCleaner_EmptyScheduleIsNoop verifies a zero-locator call spawns nothing.
*/
func TestCleaner_EmptyScheduleIsNoop(t *testing.T) {
	store := &recordingStore{}
	cleaner := ingest.NewCleaner(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cleaner.Schedule()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, cleaner.Drain(ctx))
	assert.Empty(t, store.deleted)
}
