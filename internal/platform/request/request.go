// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction, multipart form
handling, and common body decoding patterns, ensuring consistent error handling
and type safety.
*/
package requestutil

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mangetsu/internal/ingest"
	"github.com/taibuivan/mangetsu/internal/platform/apperr"
	"github.com/taibuivan/mangetsu/internal/platform/constants"
	"github.com/taibuivan/mangetsu/internal/platform/ctxutil"
	"github.com/taibuivan/mangetsu/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
ID retrieves a named URL parameter (UUID/Slug) from the request.
*/
func ID(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

// # Identity & Access

/*
ActorID extracts the gateway-verified actor identity from the request context.

Returns an empty string for anonymous requests.
*/
func ActorID(request *http.Request) string {
	return ctxutil.GetActorID(request.Context())
}

/*
RequiredActorID ensures the request carries an actor identity.

Returns:
  - string: Actor UUID
  - error: apperr.Unauthorized if the request is anonymous
*/
func RequiredActorID(request *http.Request) (string, error) {

	// Get the actor identity injected by the gateway
	actorID := ctxutil.GetActorID(request.Context())

	// Anonymous requests may not mutate owned resources
	if actorID == "" {
		return "", apperr.Unauthorized("Authentication required")
	}

	return actorID, nil
}

// # Multipart Uploads

/*
ParseMultipart parses the request body as a multipart form.

Description: Bounds in-memory buffering with constants.MaxMultipartMemory;
larger files spill to temporary storage managed by net/http.

Returns:
  - error: validate.ErrInvalidForm if parsing fails
*/
func ParseMultipart(request *http.Request) error {
	if err := request.ParseMultipartForm(constants.MaxMultipartMemory); err != nil {
		return validate.ErrInvalidForm
	}
	return nil
}

/*
Files reads every uploaded file under the given form field into memory.

Description: Uploaded files are request-scoped: the ingestion pipeline
consumes the bytes exactly once and discards them, so fully materializing
them here keeps the rest of the pipeline free of stream lifetimes.

Parameters:
  - request: *http.Request (must have passed ParseMultipart)
  - field: string (form field name, e.g. "pages")

Returns:
  - []ingest.UploadedFile: Raw bytes plus original filenames
  - error: Read failures wrapped as VALIDATION_ERROR
*/
func Files(request *http.Request, field string) ([]ingest.UploadedFile, error) {
	if request.MultipartForm == nil {
		return nil, nil
	}

	headers := request.MultipartForm.File[field]
	files := make([]ingest.UploadedFile, 0, len(headers))

	for _, header := range headers {
		file, err := readFileHeader(header)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, nil
}

/*
OptionalFile reads a single optional uploaded file under the given form field.

Returns:
  - *ingest.UploadedFile: nil when the field is absent
  - error: Read failures wrapped as VALIDATION_ERROR
*/
func OptionalFile(request *http.Request, field string) (*ingest.UploadedFile, error) {
	if request.MultipartForm == nil {
		return nil, nil
	}

	headers := request.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, nil
	}

	file, err := readFileHeader(headers[0])
	if err != nil {
		return nil, err
	}

	return &file, nil
}

// readFileHeader materializes one multipart file part into an [ingest.UploadedFile].
func readFileHeader(header *multipart.FileHeader) (ingest.UploadedFile, error) {
	part, err := header.Open()
	if err != nil {
		return ingest.UploadedFile{}, validate.RequiredError(header.Filename, "Unreadable file part")
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return ingest.UploadedFile{}, validate.RequiredError(header.Filename, "Unreadable file part")
	}

	return ingest.UploadedFile{Name: header.Filename, Data: data}, nil
}
