// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package title

import (
	"context"
	"log/slog"

	"github.com/taibuivan/mangetsu/internal/platform/validate"
	"github.com/taibuivan/mangetsu/pkg/slug"
	"github.com/taibuivan/mangetsu/pkg/uuid"
)

// MaxNameLength bounds the title name to keep slugs and listings sane.
const MaxNameLength = 255

// # Service Layer

// Service orchestrates the business logic for titles.
type Service struct {
	titleRepo Repository
	cache     Cache
	logger    *slog.Logger
}

// NewService constructs a new [Service] with its repository and cache.
func NewService(titleRepo Repository, cache Cache, logger *slog.Logger) *Service {
	return &Service{
		titleRepo: titleRepo,
		cache:     cache,
		logger:    logger,
	}
}

// # Title Operations

/*
CreateTitle registers a new serialized work for the acting user.

Parameters:
  - ctx: context.Context
  - ownerID: string (UUID of the acting user)
  - name: string
  - rawCount: int (target chapter count, 0 = unknown)

Returns:
  - *Title: The created aggregate
  - error: Validation or persistence errors
*/
func (service *Service) CreateTitle(ctx context.Context, ownerID, name string, rawCount int) (*Title, error) {

	// Business attribute validation
	validator := &validate.Validator{}
	validator.Required(FieldOwnerID, ownerID)
	validator.Required(FieldName, name)
	validator.MaxLen(FieldName, name, MaxNameLength)
	validator.Custom(FieldRawCount, rawCount < 0, "Raw count cannot be negative")

	if err := validator.Err(); err != nil {
		return nil, err
	}

	title := &Title{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Name:     name,
		Slug:     slug.From(name),
		RawCount: rawCount,
	}

	// Storage persistence
	if err := service.titleRepo.Create(ctx, title); err != nil {
		return nil, err
	}

	service.logger.Info("title_created",
		slog.String("title_id", title.ID),
		slog.String("owner_id", ownerID),
		slog.String("slug", title.Slug),
	)

	return title, nil
}

/*
GetTitle retrieves a title by ID through the read cache.

Description: Cache failures degrade to a metadata store read; a stale or
unreachable cache never blocks the request.

Parameters:
  - ctx: context.Context
  - id: string (UUID)

Returns:
  - *Title: The hydrated aggregate
  - error: apperr.NotFound if absent
*/
func (service *Service) GetTitle(ctx context.Context, id string) (*Title, error) {

	// Cache lookup first
	cached, err := service.cache.Get(ctx, id)
	if err != nil {
		service.logger.Warn("title_cache_read_failed",
			slog.String("title_id", id),
			slog.Any("error", err),
		)
	}
	if cached != nil {
		return cached, nil
	}

	// Fall through to the metadata store
	title, err := service.titleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Populate the cache; failure is non-fatal
	if err := service.cache.Set(ctx, title); err != nil {
		service.logger.Warn("title_cache_write_failed",
			slog.String("title_id", id),
			slog.Any("error", err),
		)
	}

	return title, nil
}

/*
ListTitles returns a page of titles ordered by creation time.

Parameters:
  - ctx: context.Context
  - limit: int
  - offset: int

Returns:
  - []*Title: Matched titles
  - int: Total live title count
  - error: Storage errors
*/
func (service *Service) ListTitles(ctx context.Context, limit, offset int) ([]*Title, int, error) {
	return service.titleRepo.List(ctx, limit, offset)
}

// # Aggregate Maintenance

/*
ApplyChapterDelta adjusts the chapter counter and refreshes progress.

Description: The counter adjustment is the authoritative write and happens
atomically at the metadata store. The progress write and the cache
invalidation that follow are best-effort; both are re-derivable, so their
failures are logged and swallowed rather than unwinding the caller's
already-committed chapter mutation.

Parameters:
  - ctx: context.Context
  - id: string (Title UUID)
  - delta: int (+1 on chapter create, -1 on chapter delete)

Returns:
  - error: apperr.NotFound or storage errors from the counter adjustment only
*/
func (service *Service) ApplyChapterDelta(ctx context.Context, id string, delta int) error {

	chapterCount, rawCount, err := service.titleRepo.AdjustChapterCount(ctx, id, delta)
	if err != nil {
		return err
	}

	progress := DeriveProgress(chapterCount, rawCount)

	if err := service.titleRepo.SetProgress(ctx, id, progress); err != nil {
		service.logger.Error("title_progress_write_failed",
			slog.String("title_id", id),
			slog.Any("error", err),
		)
	}

	if err := service.cache.Invalidate(ctx, id); err != nil {
		service.logger.Warn("title_cache_invalidate_failed",
			slog.String("title_id", id),
			slog.Any("error", err),
		)
	}

	service.logger.Info("title_aggregate_adjusted",
		slog.String("title_id", id),
		slog.Int("delta", delta),
		slog.Int("chapter_count", chapterCount),
		slog.Float64("progress", progress),
	)

	return nil
}
