// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangetsu/internal/ingest"
)

// jitterStore records stored objects and completes Put calls in randomized
// order; it can poison specific payloads to fail every attempt.
type jitterStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	inFlight  int
	peak      int
	poisoned  string
	maxJitter time.Duration
}

func newJitterStore() *jitterStore {
	return &jitterStore{objects: make(map[string][]byte), maxJitter: 3 * time.Millisecond}
}

func (store *jitterStore) Put(_ context.Context, data []byte, namespace, name string) (string, error) {
	store.mu.Lock()
	store.inFlight++
	if store.inFlight > store.peak {
		store.peak = store.inFlight
	}
	jitter := store.maxJitter
	store.mu.Unlock()

	if jitter > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(jitter))))
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.inFlight--

	if store.poisoned != "" && string(data) == store.poisoned {
		return "", errors.New("storage timeout")
	}

	locator := "https://cdn.test/" + namespace + "/" + name
	store.objects[locator] = data
	return locator, nil
}

func (store *jitterStore) Delete(_ context.Context, locator string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.objects, locator)
	return nil
}

func newTestScheduler(store *jitterStore, batchSize int) *ingest.Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := ingest.Config{
		BatchSize:      batchSize,
		MaxAttempts:    2,
		RetryBaseDelay: time.Millisecond,
	}
	return ingest.NewScheduler(ingest.NewUploader(store, cfg, logger), cfg, logger)
}

/*
TestScheduler_OrderingInvariantUnderLatency verifies that page numbers are
assigned by sorted filename position, never by completion order, across
multiple batches.
*/
func TestScheduler_OrderingInvariantUnderLatency(t *testing.T) {
	store := newJitterStore()
	scheduler := newTestScheduler(store, 5)

	const fileCount = 17
	files := make([]ingest.UploadedFile, 0, fileCount)
	for _, index := range rand.Perm(fileCount) {
		name := fmt.Sprintf("page_%02d.jpg", index+1)
		files = append(files, ingest.UploadedFile{Name: name, Data: []byte(name)})
	}

	refs, err := scheduler.UploadPages(context.Background(), files, "chapters/xyz", 1)
	require.NoError(t, err)
	require.Len(t, refs, fileCount)

	for position, ref := range refs {
		assert.Equal(t, position+1, ref.PageNumber)

		store.mu.Lock()
		data := store.objects[ref.Image]
		store.mu.Unlock()
		assert.Equal(t, fmt.Sprintf("page_%02d.jpg", position+1), string(data))
	}
}

/*
TestScheduler_StartIndexOffset verifies the append case: numbering starts at
the caller-supplied index.
*/
func TestScheduler_StartIndexOffset(t *testing.T) {
	store := newJitterStore()
	store.maxJitter = 0
	scheduler := newTestScheduler(store, 15)

	files := []ingest.UploadedFile{
		{Name: "page_02.jpg", Data: []byte("b")},
		{Name: "page_01.jpg", Data: []byte("a")},
	}

	refs, err := scheduler.UploadPages(context.Background(), files, "chapters/xyz", 4)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	assert.Equal(t, 4, refs[0].PageNumber)
	assert.Equal(t, 5, refs[1].PageNumber)
}

/*
TestScheduler_BatchCapsConcurrency verifies that no more uploads run in
flight than the batch size allows.
*/
func TestScheduler_BatchCapsConcurrency(t *testing.T) {
	store := newJitterStore()
	scheduler := newTestScheduler(store, 4)

	files := make([]ingest.UploadedFile, 0, 12)
	for i := 1; i <= 12; i++ {
		name := fmt.Sprintf("page_%02d.jpg", i)
		files = append(files, ingest.UploadedFile{Name: name, Data: []byte(name)})
	}

	_, err := scheduler.UploadPages(context.Background(), files, "chapters/xyz", 1)
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.LessOrEqual(t, store.peak, 4)
}

/*
TestScheduler_FailureAbortsWholeOperation verifies that one exhausted upload
fails the entire call with no partial result.
*/
func TestScheduler_FailureAbortsWholeOperation(t *testing.T) {
	store := newJitterStore()
	store.poisoned = "page_02.jpg"
	scheduler := newTestScheduler(store, 15)

	files := []ingest.UploadedFile{
		{Name: "page_01.jpg", Data: []byte("page_01.jpg")},
		{Name: "page_02.jpg", Data: []byte("page_02.jpg")},
		{Name: "page_03.jpg", Data: []byte("page_03.jpg")},
	}

	refs, err := scheduler.UploadPages(context.Background(), files, "chapters/xyz", 1)
	require.Error(t, err)
	assert.Nil(t, refs)
}

/*
TestScheduler_EmptyInput verifies that zero files is a no-op.
*/
func TestScheduler_EmptyInput(t *testing.T) {
	scheduler := newTestScheduler(newJitterStore(), 15)

	refs, err := scheduler.UploadPages(context.Background(), nil, "chapters/xyz", 1)
	require.NoError(t, err)
	assert.Nil(t, refs)
}
