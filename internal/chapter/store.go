// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"

	"github.com/taibuivan/mangetsu/internal/ingest"
	"github.com/taibuivan/mangetsu/internal/title"
)

// # Repository Contracts

// Repository is the metadata-store port for chapters and their pages.
type Repository interface {
	// Create persists a chapter and its page list in one transaction.
	Create(ctx context.Context, chapter *Chapter) error

	// FindByID returns a chapter with its pages ordered by page number,
	// or apperr.NotFound.
	FindByID(ctx context.Context, id string) (*Chapter, error)

	// ListByTitle returns a page of chapters (without page lists) ordered by
	// chapter number ascending, plus the total count.
	ListByTitle(ctx context.Context, titleID string, limit, offset int) ([]*Chapter, int, error)

	// ExistsByNumber reports whether another chapter under the title already
	// carries the given number. excludeID skips the chapter being edited;
	// pass "" on create.
	//
	// This is a fast-path check only. The unique constraint on
	// (titleid, chapternumber) is the authoritative guard under concurrency.
	ExistsByNumber(ctx context.Context, titleID string, number float64, excludeID string) (bool, error)

	// Update rewrites the chapter row and replaces its page list in one
	// transaction.
	Update(ctx context.Context, chapter *Chapter) error

	// Delete removes the chapter record; pages go with it via the store's
	// referential cascade.
	Delete(ctx context.Context, id string) error
}

// # Collaborator Contracts

// TitleDirectory is the slice of the title service the assembler depends on:
// existence/ownership lookups and the aggregate counter.
type TitleDirectory interface {
	GetTitle(ctx context.Context, id string) (*title.Title, error)
	ApplyChapterDelta(ctx context.Context, id string, delta int) error
}

// PageUploader drives the batched, ordered page upload.
type PageUploader interface {
	UploadPages(ctx context.Context, files []ingest.UploadedFile, namespace string, startIndex int) ([]ingest.PageRef, error)
}

// AssetUploader stores a single optional asset (the thumbnail).
type AssetUploader interface {
	Upload(ctx context.Context, data []byte, namespace, name string) (string, error)
}

// OrphanCleaner schedules best-effort asynchronous object deletion.
type OrphanCleaner interface {
	Schedule(locators ...string)
}
