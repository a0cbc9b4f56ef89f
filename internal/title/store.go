// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package title

import "context"

// # Repository Contracts

// Repository is the metadata-store port for titles.
type Repository interface {
	// Create persists a new title.
	Create(ctx context.Context, title *Title) error

	// FindByID returns a live title or apperr.NotFound.
	FindByID(ctx context.Context, id string) (*Title, error)

	// List returns a page of live titles plus the total count.
	List(ctx context.Context, limit, offset int) ([]*Title, int, error)

	// AdjustChapterCount atomically applies delta to the chapter counter,
	// flooring the result at zero, and returns the post-adjustment
	// (chapterCount, rawCount) pair for progress derivation.
	//
	// The adjustment MUST happen inside the database — concurrent
	// create/delete of sibling chapters would race an application-level
	// read-modify-write.
	AdjustChapterCount(ctx context.Context, id string, delta int) (chapterCount, rawCount int, err error)

	// SetProgress writes the derived progress percentage.
	SetProgress(ctx context.Context, id string, progress float64) error
}

// Cache is the volatile read-through store for title records.
type Cache interface {
	// Get returns the cached title or (nil, nil) on a miss.
	Get(ctx context.Context, id string) (*Title, error)

	// Set stores the title with the platform TTL.
	Set(ctx context.Context, title *Title) error

	// Invalidate drops the cached record after any mutation.
	Invalidate(ctx context.Context, id string) error
}
