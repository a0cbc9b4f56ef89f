// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/mangetsu/internal/ingest"
	"github.com/taibuivan/mangetsu/internal/platform/apperr"
	"github.com/taibuivan/mangetsu/internal/platform/validate"
)

// UpdateInput carries the caller-supplied chapter patch. Nil fields are left
// untouched.
type UpdateInput struct {
	Name   *string
	Number *float64

	// RemovePages lists page numbers to drop; remaining pages are renumbered
	// to 1..n preserving relative order.
	RemovePages []int
}

// # Chapter Update

/*
UpdateChapter applies a patch to an existing chapter.

Description: Ownership is re-checked against the supplied actor even though
the caller is expected to have authorized already. Thumbnail replacement
uploads the new object before the old one is touched, so no failure window
leaves the chapter without any thumbnail. Removed page objects are handed to
best-effort cleanup after the record commits; the response never waits on
them. The title aggregate is untouched (page count does not affect the
chapter counter).

Parameters:
  - ctx: context.Context
  - chapterID: string
  - actorID: string (must match the owning title's owner)
  - patch: UpdateInput
  - newPageFiles: Files to append after the surviving pages
  - thumbnailFile: Optional replacement thumbnail

Returns:
  - *Chapter: The updated chapter
  - error: NOT_FOUND, UNAUTHORIZED, CONFLICT, VALIDATION_ERROR or UPLOAD_FAILED
*/
func (service *Service) UpdateChapter(ctx context.Context, chapterID, actorID string, patch UpdateInput, newPageFiles []ingest.UploadedFile, thumbnailFile *ingest.UploadedFile) (*Chapter, error) {

	// Phase: validate.
	chapter, err := service.authorizeChapter(ctx, chapterID, actorID)
	if err != nil {
		return nil, failPhase(phaseValidate, err)
	}

	if err := service.validateUpdate(ctx, chapter, patch, newPageFiles); err != nil {
		return nil, failPhase(phaseValidate, err)
	}

	if patch.Name != nil {
		chapter.Name = *patch.Name
	}
	if patch.Number != nil {
		chapter.Number = *patch.Number
	}

	// Partition the page list into kept and removed, renumbering the kept
	// pages to 1..n in their original relative order.
	keptPages, removedLocators := partitionPages(chapter.Pages, patch.RemovePages)

	namespace := chapterNamespace(chapter.ID)
	oldThumbnail := chapter.Thumbnail

	// A removed page may have doubled as the thumbnail. Its object is about
	// to be cleaned up, so the reference must not survive; the first-page
	// default below picks a live replacement.
	if containsLocator(removedLocators, chapter.Thumbnail) {
		chapter.Thumbnail = ""
	}

	// Objects stored by this edit; they become orphans when a later phase
	// fails, because no committed record will ever reference them.
	var newLocators []string

	// Phase: thumbnail. An explicit replace request that fails must abort;
	// silently keeping stale state is worse than failing the edit. The new
	// object is uploaded before the old one is touched.
	if thumbnailFile != nil {
		locator, err := service.uploadThumbnail(ctx, namespace, *thumbnailFile)
		if err != nil {
			return nil, failPhase(phaseThumbnail, err)
		}
		chapter.Thumbnail = locator
		newLocators = append(newLocators, locator)
	}

	// Phase: pages. New files are appended after the surviving pages.
	if len(newPageFiles) > 0 {
		pageRefs, err := service.scheduler.UploadPages(ctx, newPageFiles, namespace, len(keptPages)+1)
		if err != nil {
			service.cleaner.Schedule(newLocators...)
			return nil, failPhase(phasePages, err)
		}
		appended := toPages(pageRefs)
		for _, page := range appended {
			newLocators = append(newLocators, page.Image)
		}
		keptPages = append(keptPages, appended...)
	}
	chapter.Pages = keptPages

	// Default the thumbnail to the first page when the edits left none.
	if chapter.Thumbnail == "" && len(chapter.Pages) > 0 {
		chapter.Thumbnail = chapter.Pages[0].Image
	}

	// Phase: persist.
	if err := service.chapterRepo.Update(ctx, chapter); err != nil {
		service.cleaner.Schedule(newLocators...)
		return nil, failPhase(phasePersist, err)
	}

	// The record no longer references the removed objects; clean them up in
	// the background. The old thumbnail goes too unless a surviving page
	// still uses it.
	orphans := removedLocators
	if thumbnailFile != nil && oldThumbnail != "" && oldThumbnail != chapter.Thumbnail &&
		!referencedByPages(chapter.Pages, oldThumbnail) && !containsLocator(orphans, oldThumbnail) {
		orphans = append(orphans, oldThumbnail)
	}
	service.cleaner.Schedule(orphans...)

	service.logger.Info("chapter_updated",
		slog.String("chapter_id", chapter.ID),
		slog.String("title_id", chapter.TitleID),
		slog.Int("pages", len(chapter.Pages)),
		slog.Int("removed_pages", len(removedLocators)),
	)

	return chapter, nil
}

// # Chapter Deletion

/*
DeleteChapter removes a chapter and its stored objects.

Description: Every page object, plus the thumbnail when it is not shared
with a page image, is scheduled for best-effort deletion. The record delete
is synchronous; the counter decrement floors at zero and a failure there is
logged as an inconsistency only.

Parameters:
  - ctx: context.Context
  - chapterID: string
  - actorID: string (must match the owning title's owner)

Returns:
  - error: NOT_FOUND or UNAUTHORIZED
*/
func (service *Service) DeleteChapter(ctx context.Context, chapterID, actorID string) error {

	chapter, err := service.authorizeChapter(ctx, chapterID, actorID)
	if err != nil {
		return failPhase(phaseValidate, err)
	}

	// Collect object locators before the record disappears
	orphans := make([]string, 0, len(chapter.Pages)+1)
	for _, page := range chapter.Pages {
		orphans = append(orphans, page.Image)
	}
	if chapter.Thumbnail != "" && !referencedByPages(chapter.Pages, chapter.Thumbnail) {
		orphans = append(orphans, chapter.Thumbnail)
	}

	if err := service.chapterRepo.Delete(ctx, chapterID); err != nil {
		return failPhase(phasePersist, err)
	}

	service.cleaner.Schedule(orphans...)

	if err := service.titles.ApplyChapterDelta(ctx, chapter.TitleID, -1); err != nil {
		service.logger.Error("aggregate_update_failed",
			slog.String("title_id", chapter.TitleID),
			slog.String("chapter_id", chapterID),
			slog.Int("delta", -1),
			slog.Any("error", err),
		)
	}

	service.logger.Info("chapter_deleted",
		slog.String("chapter_id", chapterID),
		slog.String("title_id", chapter.TitleID),
	)

	return nil
}

// # Internal Helpers

// authorizeChapter loads the chapter and verifies the actor owns its title.
func (service *Service) authorizeChapter(ctx context.Context, chapterID, actorID string) (*Chapter, error) {
	chapter, err := service.chapterRepo.FindByID(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	owner, err := service.titles.GetTitle(ctx, chapter.TitleID)
	if err != nil {
		return nil, err
	}

	if owner.OwnerID != actorID {
		return nil, apperr.Unauthorized("You do not own this title")
	}

	return chapter, nil
}

// validateUpdate runs every precondition of the update path.
func (service *Service) validateUpdate(ctx context.Context, chapter *Chapter, patch UpdateInput, newPageFiles []ingest.UploadedFile) error {

	validator := &validate.Validator{}
	validator.Custom(FieldName, patch.Name != nil && *patch.Name == "", "Chapter name cannot be empty")
	validator.Custom(FieldName, patch.Name != nil && len(*patch.Name) > MaxNameLength, "Chapter name is too long")
	validator.Custom(FieldNumber, patch.Number != nil && *patch.Number < 0, "Chapter number cannot be negative")

	if err := validator.Err(); err != nil {
		return err
	}

	// Size ceiling before any upload starts; one oversized file aborts the
	// whole edit with nothing stored.
	if err := service.checkFileSizes(newPageFiles); err != nil {
		return err
	}

	// Renumbering re-checks uniqueness against siblings, excluding self
	if patch.Number != nil && *patch.Number != chapter.Number {
		taken, err := service.chapterRepo.ExistsByNumber(ctx, chapter.TitleID, *patch.Number, chapter.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict(fmt.Sprintf("Chapter number %g already exists for this title", *patch.Number))
		}
	}

	return nil
}

// containsLocator reports whether the locator appears in the slice.
func containsLocator(locators []string, locator string) bool {
	if locator == "" {
		return false
	}
	for _, candidate := range locators {
		if candidate == locator {
			return true
		}
	}
	return false
}

// partitionPages splits pages into kept (renumbered 1..n, order preserved)
// and the locators of removed pages.
func partitionPages(pages []Page, removeNumbers []int) ([]Page, []string) {
	if len(removeNumbers) == 0 {
		return pages, nil
	}

	removeSet := make(map[int]struct{}, len(removeNumbers))
	for _, number := range removeNumbers {
		removeSet[number] = struct{}{}
	}

	kept := make([]Page, 0, len(pages))
	var removed []string

	for _, page := range pages {
		if _, drop := removeSet[page.PageNumber]; drop {
			removed = append(removed, page.Image)
			continue
		}
		kept = append(kept, Page{PageNumber: len(kept) + 1, Image: page.Image})
	}

	return kept, removed
}
