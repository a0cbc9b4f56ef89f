// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/mangetsu/internal/platform/request"
	"github.com/taibuivan/mangetsu/internal/platform/respond"
	"github.com/taibuivan/mangetsu/internal/platform/validate"
	"github.com/taibuivan/mangetsu/pkg/pagination"
	"github.com/taibuivan/mangetsu/pkg/pointer"
)

// Multipart form field names for chapter uploads.
const (
	formFieldName        = "name"
	formFieldNumber      = "number"
	formFieldRemovePages = "remove_pages"
	formFieldPages       = "pages"
	formFieldThumbnail   = "thumbnail"
)

// # Handler Implementation

// Handler implements the HTTP layer for chapter ingestion and retrieval.
type Handler struct {
	service *Service
}

// NewHandler constructs a new chapter [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches chapter endpoints to the root API router.
// Chapter endpoints span both /titles/{id}/... and /chapters/... prefixes.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Get("/titles/{titleID}/chapters", handler.ListChapters)
	api.Post("/titles/{titleID}/chapters", handler.CreateChapter)

	api.Get("/chapters/{id}", handler.GetChapter)
	api.Patch("/chapters/{id}", handler.UpdateChapter)
	api.Delete("/chapters/{id}", handler.DeleteChapter)
}

// # Chapter Creation

/*
POST /api/v1/titles/{titleID}/chapters (multipart/form-data).

Description: Assembles a new chapter from an unordered batch of page files.
Page order is recovered from filenames, not submission order.

Request:
  - titleID: string (UUID)
  - name: string (form value)
  - number: float (form value)
  - pages: file parts (at least one)
  - thumbnail: optional file part

Response:
  - 201: Chapter: The persisted chapter with its ordered page list
  - 400: Validation: Missing fields or oversized files
  - 401: ErrUnauthorized: Authentication required
  - 404: ErrNotFound: Title not found
  - 409: ErrConflict: Duplicate chapter number
  - 502: UploadFailed: Content store exhausted retries on a page
*/
func (handler *Handler) CreateChapter(writer http.ResponseWriter, request *http.Request) {
	titleID := requestutil.ID(request, "titleID")

	if _, err := requestutil.RequiredActorID(request); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := requestutil.ParseMultipart(request); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input := CreateInput{Name: request.FormValue(formFieldName)}

	if raw := request.FormValue(formFieldNumber); raw != "" {
		number, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respond.Error(writer, request, validate.RequiredError(FieldNumber, "Chapter number must be numeric"))
			return
		}
		input.Number = pointer.To(number)
	}

	pageFiles, err := requestutil.Files(request, formFieldPages)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	thumbnailFile, err := requestutil.OptionalFile(request, formFieldThumbnail)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.service.CreateChapter(request.Context(), titleID, input, pageFiles, thumbnailFile)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, created)
}

// # Chapter Update

/*
PATCH /api/v1/chapters/{id} (multipart/form-data).

Description: Applies a partial edit: rename, renumber, remove pages (with
renumbering), append new pages, replace the thumbnail. The acting user must
own the chapter's title.

Request:
  - id: string (Chapter UUID)
  - name: optional form value
  - number: optional form value
  - remove_pages: optional comma-separated page numbers
  - pages: optional file parts to append
  - thumbnail: optional replacement file part

Response:
  - 200: Chapter: The updated chapter
  - 400: Validation: Bad patch or oversized files
  - 401: ErrUnauthorized: Missing identity or owner mismatch
  - 404: ErrNotFound: Chapter not found
  - 409: ErrConflict: Renumbering collision
  - 502: UploadFailed: Content store exhausted retries
*/
func (handler *Handler) UpdateChapter(writer http.ResponseWriter, request *http.Request) {
	chapterID := requestutil.ID(request, "id")

	actorID, err := requestutil.RequiredActorID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := requestutil.ParseMultipart(request); err != nil {
		respond.Error(writer, request, err)
		return
	}

	patch, err := parseUpdatePatch(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	newPageFiles, err := requestutil.Files(request, formFieldPages)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	thumbnailFile, err := requestutil.OptionalFile(request, formFieldThumbnail)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.service.UpdateChapter(request.Context(), chapterID, actorID, patch, newPageFiles, thumbnailFile)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, updated)
}

// # Chapter Deletion

/*
DELETE /api/v1/chapters/{id}.

Response:
  - 204: Chapter and its stored objects scheduled for removal
  - 401: ErrUnauthorized: Missing identity or owner mismatch
  - 404: ErrNotFound: Chapter not found
*/
func (handler *Handler) DeleteChapter(writer http.ResponseWriter, request *http.Request) {
	chapterID := requestutil.ID(request, "id")

	actorID, err := requestutil.RequiredActorID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeleteChapter(request.Context(), chapterID, actorID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Chapter Retrieval

/*
GET /api/v1/chapters/{id}.

Response:
  - 200: Chapter: The chapter with its ordered page list
  - 404: ErrNotFound: Chapter not found
*/
func (handler *Handler) GetChapter(writer http.ResponseWriter, request *http.Request) {
	chapterID := requestutil.ID(request, "id")

	found, err := handler.service.GetChapter(request.Context(), chapterID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, found)
}

/*
GET /api/v1/titles/{titleID}/chapters.

Description: Returns a paginated roster of the title's chapters ordered by
chapter number.

Request:
  - titleID: string (UUID)
  - limit: int
  - page: int

Response:
  - 200: []Chapter: Paginated list (without page lists)
*/
func (handler *Handler) ListChapters(writer http.ResponseWriter, request *http.Request) {
	titleID := requestutil.ID(request, "titleID")

	paginationParams := pagination.FromRequest(request)

	chapters, total, err := handler.service.ListChapters(request.Context(), titleID, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, chapters, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

// # Internal Helpers

// parseUpdatePatch lifts the optional patch fields out of the multipart form.
func parseUpdatePatch(request *http.Request) (UpdateInput, error) {
	var patch UpdateInput

	if values, present := formValues(request, formFieldName); present {
		patch.Name = pointer.To(values[0])
	}

	if values, present := formValues(request, formFieldNumber); present {
		number, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			return patch, validate.RequiredError(FieldNumber, "Chapter number must be numeric")
		}
		patch.Number = pointer.To(number)
	}

	if values, present := formValues(request, formFieldRemovePages); present && values[0] != "" {
		for _, raw := range strings.Split(values[0], ",") {
			pageNumber, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return patch, validate.RequiredError(FieldPages, "Page numbers to remove must be integers")
			}
			patch.RemovePages = append(patch.RemovePages, pageNumber)
		}
	}

	return patch, nil
}

// formValues distinguishes an absent multipart field from an empty one.
func formValues(request *http.Request, field string) ([]string, bool) {
	if request.MultipartForm == nil {
		return nil, false
	}
	values, present := request.MultipartForm.Value[field]
	if !present || len(values) == 0 {
		return nil, false
	}
	return values, true
}
