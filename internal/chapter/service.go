// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/taibuivan/mangetsu/internal/ingest"
	"github.com/taibuivan/mangetsu/internal/platform/apperr"
	"github.com/taibuivan/mangetsu/internal/platform/constants"
	"github.com/taibuivan/mangetsu/internal/platform/validate"
	"github.com/taibuivan/mangetsu/pkg/uuid"
)

// # Service Layer

// Service is the chapter assembler: it orchestrates validation, asset
// uploads, record persistence and the parent title's aggregate update.
type Service struct {
	chapterRepo Repository
	titles      TitleDirectory
	scheduler   PageUploader
	uploader    AssetUploader
	cleaner     OrphanCleaner

	maxFileBytes int64
	logger       *slog.Logger
}

// NewService constructs a new [Service] with its collaborators and the
// ingestion tuning passed explicitly.
func NewService(
	chapterRepo Repository,
	titles TitleDirectory,
	scheduler PageUploader,
	uploader AssetUploader,
	cleaner OrphanCleaner,
	cfg ingest.Config,
	logger *slog.Logger,
) *Service {
	maxFileBytes := cfg.MaxFileBytes
	if maxFileBytes <= 0 {
		maxFileBytes = constants.DefaultMaxFileBytes
	}

	return &Service{
		chapterRepo:  chapterRepo,
		titles:       titles,
		scheduler:    scheduler,
		uploader:     uploader,
		cleaner:      cleaner,
		maxFileBytes: maxFileBytes,
		logger:       logger,
	}
}

// CreateInput carries the caller-supplied chapter attributes.
type CreateInput struct {
	Name string

	// Number must be present; a pointer distinguishes "missing" from 0.
	Number *float64
}

// # Chapter Creation

/*
CreateChapter assembles and persists a new chapter.

Description: Runs the full phase sequence. Validation fails fast with no
side effects. The optional thumbnail upload is non-fatal; a failure degrades
to the first page's locator. The page batch upload is required and fatal on
failure. After the record commits, the title's chapter counter is
incremented and progress refreshed; a failure there is logged as an
inconsistency but never unwinds the already-persisted chapter.

Parameters:
  - ctx: context.Context
  - titleID: string (owning title UUID)
  - input: CreateInput (name and chapter number)
  - pageFiles: Page images in any order; ordering is recovered from filenames
  - thumbnailFile: Optional distinct thumbnail

Returns:
  - *Chapter: The persisted chapter with its final page list
  - error: NOT_FOUND, CONFLICT, VALIDATION_ERROR or UPLOAD_FAILED
*/
func (service *Service) CreateChapter(ctx context.Context, titleID string, input CreateInput, pageFiles []ingest.UploadedFile, thumbnailFile *ingest.UploadedFile) (*Chapter, error) {

	// Phase: validate. No side effects may occur before this passes.
	if err := service.validateCreate(ctx, titleID, input, pageFiles); err != nil {
		return nil, failPhase(phaseValidate, err)
	}

	chapter := &Chapter{
		ID:      uuid.New(),
		TitleID: titleID,
		Number:  *input.Number,
		Name:    input.Name,
	}
	namespace := chapterNamespace(chapter.ID)

	// Phase: thumbnail (optional, non-fatal). A broken thumbnail must not
	// cost the caller a whole chapter upload.
	if thumbnailFile != nil {
		locator, err := service.uploadThumbnail(ctx, namespace, *thumbnailFile)
		if err != nil {
			service.logger.Warn("thumbnail_upload_degraded",
				slog.String("chapter_id", chapter.ID),
				slog.Any("error", err),
			)
		} else {
			chapter.Thumbnail = locator
		}
	}

	// Phase: pages (required, fatal).
	pageRefs, err := service.scheduler.UploadPages(ctx, pageFiles, namespace, 1)
	if err != nil {
		return nil, failPhase(phasePages, err)
	}
	chapter.Pages = toPages(pageRefs)

	// Fall back to the first page as the thumbnail.
	if chapter.Thumbnail == "" {
		chapter.Thumbnail = chapter.Pages[0].Image
	}

	// Phase: persist. Objects are already stored; the record write makes
	// them referenced. On failure they are definite orphans, handed to
	// best-effort cleanup.
	if err := service.chapterRepo.Create(ctx, chapter); err != nil {
		service.cleaner.Schedule(service.uploadedLocators(chapter, thumbnailFile != nil)...)
		return nil, failPhase(phasePersist, err)
	}

	// Phase: aggregate. Logged-only on failure; counters are re-derivable
	// and must not roll back a committed chapter.
	if err := service.titles.ApplyChapterDelta(ctx, titleID, 1); err != nil {
		service.logger.Error("aggregate_update_failed",
			slog.String("title_id", titleID),
			slog.String("chapter_id", chapter.ID),
			slog.Int("delta", 1),
			slog.Any("error", err),
		)
	}

	service.logger.Info("chapter_created",
		slog.String("chapter_id", chapter.ID),
		slog.String("title_id", titleID),
		slog.Float64("number", chapter.Number),
		slog.Int("pages", len(chapter.Pages)),
	)

	return chapter, nil
}

// # Chapter Retrieval

/*
GetChapter retrieves a chapter with its pages by ID.

Returns:
  - *Chapter: The hydrated chapter
  - error: apperr.NotFound if absent
*/
func (service *Service) GetChapter(ctx context.Context, id string) (*Chapter, error) {
	return service.chapterRepo.FindByID(ctx, id)
}

/*
ListChapters returns a page of a title's chapters ordered by number.

Parameters:
  - ctx: context.Context
  - titleID: string
  - limit: int
  - offset: int

Returns:
  - []*Chapter: Matched chapters without page lists
  - int: Total chapter count for the title
  - error: Storage errors
*/
func (service *Service) ListChapters(ctx context.Context, titleID string, limit, offset int) ([]*Chapter, int, error) {
	return service.chapterRepo.ListByTitle(ctx, titleID, limit, offset)
}

// # Internal Helpers

// validateCreate runs every precondition of the create path.
func (service *Service) validateCreate(ctx context.Context, titleID string, input CreateInput, pageFiles []ingest.UploadedFile) error {

	// Business attribute validation
	validator := &validate.Validator{}
	validator.Required(FieldTitleID, titleID)
	validator.Required(FieldName, input.Name)
	validator.MaxLen(FieldName, input.Name, MaxNameLength)
	validator.Custom(FieldNumber, input.Number == nil, "Chapter number is required")
	validator.Custom(FieldNumber, input.Number != nil && *input.Number < 0, "Chapter number cannot be negative")
	validator.Custom(FieldPages, len(pageFiles) == 0, "At least one page file is required")

	if err := validator.Err(); err != nil {
		return err
	}

	if err := service.checkFileSizes(pageFiles); err != nil {
		return err
	}

	// The title must exist before any object is stored
	if _, err := service.titles.GetTitle(ctx, titleID); err != nil {
		return err
	}

	// Fast-path uniqueness check; the store's unique constraint stays the
	// authoritative guard under concurrent creates.
	taken, err := service.chapterRepo.ExistsByNumber(ctx, titleID, *input.Number, "")
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict(fmt.Sprintf("Chapter number %g already exists for this title", *input.Number))
	}

	return nil
}

// checkFileSizes enforces the per-file size ceiling before any upload starts.
func (service *Service) checkFileSizes(files []ingest.UploadedFile) error {
	validator := &validate.Validator{}
	for _, file := range files {
		validator.MaxBytes(file.Name, int64(len(file.Data)), service.maxFileBytes)
	}
	return validator.Err()
}

// uploadThumbnail stores the optional thumbnail under a fresh object name.
func (service *Service) uploadThumbnail(ctx context.Context, namespace string, file ingest.UploadedFile) (string, error) {
	objectName := uuid.New() + filepath.Ext(file.Name)
	return service.uploader.Upload(ctx, file.Data, namespace, objectName)
}

// uploadedLocators collects every locator stored during a failed create.
func (service *Service) uploadedLocators(chapter *Chapter, hadThumbnailFile bool) []string {
	locators := make([]string, 0, len(chapter.Pages)+1)
	for _, page := range chapter.Pages {
		locators = append(locators, page.Image)
	}
	if hadThumbnailFile && chapter.Thumbnail != "" && !referencedByPages(chapter.Pages, chapter.Thumbnail) {
		locators = append(locators, chapter.Thumbnail)
	}
	return locators
}

// referencedByPages reports whether the locator is also a page image.
func referencedByPages(pages []Page, locator string) bool {
	for _, page := range pages {
		if page.Image == locator {
			return true
		}
	}
	return false
}

// toPages converts scheduler results into persisted page entries.
func toPages(refs []ingest.PageRef) []Page {
	pages := make([]Page, len(refs))
	for i, ref := range refs {
		pages[i] = Page{PageNumber: ref.PageNumber, Image: ref.Image}
	}
	return pages
}

// chapterNamespace is the content store key prefix shared by a chapter's
// objects.
func chapterNamespace(chapterID string) string {
	return "chapters/" + chapterID
}
