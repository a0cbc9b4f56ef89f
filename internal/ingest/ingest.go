// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ingest implements the chapter asset ingestion pipeline: turning an
unordered batch of uploaded page files into a correctly ordered set of stored
objects in the remote content store.

Components:

  - Uploader: bounded-attempt exponential-backoff wrapper around the content store.
  - Scheduler: filename-ordered, fixed-size-batch parallel page uploads.
  - Cleaner: fire-and-forget best-effort deletion of orphaned objects.

Ordering is determined solely by filename-derived page numbers and index
arithmetic, never by upload completion order.
*/
package ingest

import (
	"time"

	"github.com/taibuivan/mangetsu/internal/platform/constants"
)

// UploadedFile is a request-scoped raw file: bytes plus the original
// filename. It is never persisted — the pipeline consumes it once and
// discards it.
type UploadedFile struct {
	// Name is the original client filename, used only for page-number
	// extraction and diagnostics.
	Name string

	// Data is the complete file content.
	Data []byte
}

// PageRef is one stored page: its final 1-based page number and the content
// store locator of its image.
type PageRef struct {
	PageNumber int
	Image      string
}

// Config carries the pipeline tuning knobs.
//
// It is passed explicitly into the pipeline constructors — never read from
// ambient process state — so the pipeline stays independently testable.
type Config struct {
	// BatchSize is the number of uploads allowed in flight at once.
	BatchSize int

	// MaxAttempts bounds retries per object upload.
	MaxAttempts int

	// RetryBaseDelay is the exponential backoff base: the k-th attempt waits
	// RetryBaseDelay * 2^(k-1) after failing before the next try.
	RetryBaseDelay time.Duration

	// MaxFileBytes is the per-file size ceiling for page images.
	MaxFileBytes int64
}

// withDefaults fills zero-valued fields from the platform defaults.
func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = constants.DefaultUploadBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = constants.DefaultUploadMaxAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = constants.DefaultUploadRetryBaseDelay
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = constants.DefaultMaxFileBytes
	}
	return c
}
