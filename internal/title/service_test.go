// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package title_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangetsu/internal/platform/apperr"
	"github.com/taibuivan/mangetsu/internal/title"
)

// fakeTitleRepo is an in-memory [title.Repository] for service tests.
type fakeTitleRepo struct {
	mu     sync.Mutex
	titles map[string]*title.Title
	finds  int
}

func newFakeTitleRepo() *fakeTitleRepo {
	return &fakeTitleRepo{titles: make(map[string]*title.Title)}
}

func (repo *fakeTitleRepo) Create(_ context.Context, t *title.Title) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.titles[t.ID] = t
	return nil
}

func (repo *fakeTitleRepo) FindByID(_ context.Context, id string) (*title.Title, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.finds++
	found, ok := repo.titles[id]
	if !ok {
		return nil, apperr.NotFound("Title")
	}
	copied := *found
	return &copied, nil
}

func (repo *fakeTitleRepo) List(_ context.Context, limit, offset int) ([]*title.Title, int, error) {
	return nil, 0, nil
}

func (repo *fakeTitleRepo) AdjustChapterCount(_ context.Context, id string, delta int) (int, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	found, ok := repo.titles[id]
	if !ok {
		return 0, 0, apperr.NotFound("Title")
	}
	found.ChapterCount += delta
	if found.ChapterCount < 0 {
		found.ChapterCount = 0
	}
	return found.ChapterCount, found.RawCount, nil
}

func (repo *fakeTitleRepo) SetProgress(_ context.Context, id string, progress float64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	found, ok := repo.titles[id]
	if !ok {
		return apperr.NotFound("Title")
	}
	found.Progress = progress
	return nil
}

// fakeCache records cache traffic; failGet simulates an unreachable cache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*title.Title
	failGet bool
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*title.Title)}
}

func (cache *fakeCache) Get(_ context.Context, id string) (*title.Title, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failGet {
		return nil, errors.New("connection refused")
	}
	return cache.entries[id], nil
}

func (cache *fakeCache) Set(_ context.Context, t *title.Title) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.sets++
	cache.entries[t.ID] = t
	return nil
}

func (cache *fakeCache) Invalidate(_ context.Context, id string) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.entries, id)
	return nil
}

func newTestService(repo title.Repository, cache title.Cache) *title.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return title.NewService(repo, cache, logger)
}

/*
TestCreateTitle_Validation verifies that empty names and negative raw counts
are rejected before touching storage.
*/
func TestCreateTitle_Validation(t *testing.T) {
	service := newTestService(newFakeTitleRepo(), newFakeCache())

	_, err := service.CreateTitle(context.Background(), "owner-1", "", 5)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"))

	_, err = service.CreateTitle(context.Background(), "owner-1", "Moonlight Run", -1)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"))
}

/*
TestGetTitle_ReadThroughCache verifies that a repository hit populates the
cache and that the second read is served without another repository call.
*/
func TestGetTitle_ReadThroughCache(t *testing.T) {
	repo := newFakeTitleRepo()
	cache := newFakeCache()
	service := newTestService(repo, cache)

	created, err := service.CreateTitle(context.Background(), "owner-1", "Moonlight Run", 10)
	require.NoError(t, err)

	// 1. First read falls through to storage and warms the cache
	_, err = service.GetTitle(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.finds)
	assert.Equal(t, 1, cache.sets)

	// 2. Second read is a cache hit
	_, err = service.GetTitle(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.finds)
}

/*
TestGetTitle_CacheFailureDegrades verifies that a broken cache never blocks
reads from the metadata store.
*/
func TestGetTitle_CacheFailureDegrades(t *testing.T) {
	repo := newFakeTitleRepo()
	cache := newFakeCache()
	cache.failGet = true
	service := newTestService(repo, cache)

	created, err := service.CreateTitle(context.Background(), "owner-1", "Moonlight Run", 10)
	require.NoError(t, err)

	found, err := service.GetTitle(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

/*
TestApplyChapterDelta_ProgressDerivation verifies that counter adjustments
refresh the stored progress percentage.
*/
func TestApplyChapterDelta_ProgressDerivation(t *testing.T) {
	repo := newFakeTitleRepo()
	service := newTestService(repo, newFakeCache())

	created, err := service.CreateTitle(context.Background(), "owner-1", "Moonlight Run", 4)
	require.NoError(t, err)

	require.NoError(t, service.ApplyChapterDelta(context.Background(), created.ID, 1))

	stored := repo.titles[created.ID]
	assert.Equal(t, 1, stored.ChapterCount)
	assert.InDelta(t, 25.0, stored.Progress, 0.0001)
}

/*
TestApplyChapterDelta_FloorAtZero verifies that concurrent decrements on an
empty title never drive the counter negative.
*/
func TestApplyChapterDelta_FloorAtZero(t *testing.T) {
	repo := newFakeTitleRepo()
	service := newTestService(repo, newFakeCache())

	created, err := service.CreateTitle(context.Background(), "owner-1", "Moonlight Run", 4)
	require.NoError(t, err)
	require.NoError(t, service.ApplyChapterDelta(context.Background(), created.ID, 1))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = service.ApplyChapterDelta(context.Background(), created.ID, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, repo.titles[created.ID].ChapterCount)
	assert.Zero(t, repo.titles[created.ID].Progress)
}
