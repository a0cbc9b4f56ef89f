// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/mangetsu/pkg/uuid"
)

// # Batch Upload Scheduler

// Scheduler drives page uploads in fixed-size parallel batches.
//
// Batches exist strictly to cap peak concurrent outbound connections to the
// content store — ordering never depends on them. A file's destination page
// number is startIndex plus its position in the filename-sorted order,
// regardless of which upload finishes first.
type Scheduler struct {
	uploader  *Uploader
	batchSize int
	logger    *slog.Logger
}

// NewScheduler constructs a [Scheduler] on top of a retrying [Uploader].
func NewScheduler(uploader *Uploader, cfg Config, logger *slog.Logger) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		uploader:  uploader,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

/*
UploadPages stores every file and returns the ordered page references.

Description: Files are first sorted by their filename-derived page number,
then uploaded in sequential batches with full parallelism inside each batch.
Page numbers are assigned by sorted position (startIndex + position), so any
interleaving of uploads yields the same final ordering.

Failure policy: if any single upload exhausts its retries the whole call
fails and nothing is returned; objects already stored in this call are NOT
rolled back. They become orphans, tolerated until best-effort cleanup —
at-least-stored-once beats strict atomicity here.

Parameters:
  - ctx: context.Context
  - files: Page files in any order
  - namespace: Content store key prefix shared by the chapter's objects
  - startIndex: 1-based page number of the first (sorted) file

Returns:
  - []PageRef: Sorted by PageNumber ascending
  - error: The first UPLOAD_FAILED from the failing batch
*/
func (scheduler *Scheduler) UploadPages(ctx context.Context, files []UploadedFile, namespace string, startIndex int) ([]PageRef, error) {
	if len(files) == 0 {
		return nil, nil
	}

	// Recover the intended ordering from filenames; the transport layer does
	// not guarantee submission order.
	sortedFiles := SortByPageNumber(files)
	results := make([]PageRef, len(sortedFiles))

	// Sequential batches, parallel within a batch.
	for batchStart := 0; batchStart < len(sortedFiles); batchStart += scheduler.batchSize {
		batchEnd := min(batchStart+scheduler.batchSize, len(sortedFiles))

		group, groupCtx := errgroup.WithContext(ctx)

		for position := batchStart; position < batchEnd; position++ {
			file := sortedFiles[position]
			pageNumber := startIndex + position

			group.Go(func() error {
				// Unique object name; the original filename only contributes
				// its extension.
				objectName := uuid.New() + filepath.Ext(file.Name)

				locator, err := scheduler.uploader.Upload(groupCtx, file.Data, namespace, objectName)
				if err != nil {
					return err
				}

				// Slot assignment by sorted position — completion order is
				// irrelevant, and distinct goroutines write distinct slots.
				results[position] = PageRef{PageNumber: pageNumber, Image: locator}
				return nil
			})
		}

		// A failed batch aborts the whole operation.
		if err := group.Wait(); err != nil {
			return nil, err
		}

		scheduler.logger.Debug("page_batch_uploaded",
			slog.String("namespace", namespace),
			slog.Int("batch_start", batchStart),
			slog.Int("batch_size", batchEnd-batchStart),
		)
	}

	// Already ordered by construction; keep the explicit sort as the
	// contract of this method rather than an accident of the slot layout.
	sort.Slice(results, func(i, j int) bool {
		return results[i].PageNumber < results[j].PageNumber
	})

	return results, nil
}
