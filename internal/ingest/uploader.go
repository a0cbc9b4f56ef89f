// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/taibuivan/mangetsu/internal/content"
	"github.com/taibuivan/mangetsu/internal/platform/apperr"
)

// # Retrying Uploader

// Uploader wraps the content store with bounded-attempt exponential backoff.
//
// Every failure from the store is treated as retryable — no error
// classification. The failures observed in practice (timeouts, rate limits)
// are transient, and a permanent/transient split would change behavior for
// no operational win today.
type Uploader struct {
	store       content.Store
	maxAttempts uint
	baseDelay   time.Duration
	logger      *slog.Logger
}

// NewUploader constructs an [Uploader] with the given retry tuning.
func NewUploader(store content.Store, cfg Config, logger *slog.Logger) *Uploader {
	cfg = cfg.withDefaults()
	return &Uploader{
		store:       store,
		maxAttempts: uint(cfg.MaxAttempts),
		baseDelay:   cfg.RetryBaseDelay,
		logger:      logger,
	}
}

/*
Upload pushes one object to the content store, retrying on any failure.

Description: Attempt k waits baseDelay * 2^(k-1) after failing before the
next try; there is no wait before the first attempt. Each attempt, retry,
and final failure is logged for operational diagnosis. No other state is
mutated.

Parameters:
  - ctx: context.Context (cancels waiting and in-flight attempts)
  - data: Complete object bytes
  - namespace: Content store key prefix (e.g. the chapter ID)
  - name: Object name within the namespace

Returns:
  - string: Stable locator of the stored object
  - error: apperr UPLOAD_FAILED wrapping the last cause after exhausting attempts
*/
func (uploader *Uploader) Upload(ctx context.Context, data []byte, namespace, name string) (string, error) {

	// Delegate the attempt loop to retry-go: BackOffDelay doubles the base
	// delay per retry, which is exactly the base*2^(k-1) schedule.
	locator, err := retry.DoWithData(
		func() (string, error) {
			return uploader.store.Put(ctx, data, namespace, name)
		},
		retry.Context(ctx),
		retry.Attempts(uploader.maxAttempts),
		retry.Delay(uploader.baseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, attemptErr error) {
			uploader.logger.Warn("upload_attempt_failed",
				slog.String("object", name),
				slog.String("namespace", namespace),
				slog.Uint64("attempt", uint64(attempt+1)),
				slog.Uint64("max_attempts", uint64(uploader.maxAttempts)),
				slog.Any("error", attemptErr),
			)
		}),
	)

	// Exhausted every attempt: surface the last cause as UPLOAD_FAILED.
	if err != nil {
		uploader.logger.Error("upload_failed",
			slog.String("object", name),
			slog.String("namespace", namespace),
			slog.Uint64("attempts", uint64(uploader.maxAttempts)),
			slog.Any("error", err),
		)
		return "", apperr.UploadFailed(name, err)
	}

	uploader.logger.Debug("upload_succeeded",
		slog.String("object", name),
		slog.String("locator", locator),
	)

	return locator, nil
}

// Delete removes one stored object without retrying.
//
// It exists for the strict paths (thumbnail replacement) that must delete
// synchronously; best-effort cleanup goes through [Cleaner] instead.
func (uploader *Uploader) Delete(ctx context.Context, locator string) error {
	return uploader.store.Delete(ctx, locator)
}
