// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package title

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/mangetsu/internal/platform/request"
	"github.com/taibuivan/mangetsu/internal/platform/respond"
	"github.com/taibuivan/mangetsu/pkg/pagination"
)

// # Handler Implementation

// Handler implements the HTTP layer for title management.
type Handler struct {
	service *Service
}

// NewHandler constructs a new title [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches title endpoints to the root API router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Post("/titles", handler.CreateTitle)
	api.Get("/titles", handler.ListTitles)
	api.Get("/titles/{id}", handler.GetTitle)
}

// # Title Creation

// createTitleRequest defines the inbound JSON schema for title registration.
type createTitleRequest struct {
	Name     string `json:"name"`
	RawCount int    `json:"raw_count"`
}

/*
POST /api/v1/titles.

Description: Registers a new serialized work owned by the acting user.

Request:
  - body: createTitleRequest

Response:
  - 201: Title: Created title object
  - 400: ErrInvalidJSON/Validation: Invalid payload
  - 401: ErrUnauthorized: Authentication required
  - 409: ErrConflict: Duplicate slug
*/
func (handler *Handler) CreateTitle(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredActorID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createTitleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.service.CreateTitle(request.Context(), actorID, input.Name, input.RawCount)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, created)
}

// # Title Retrieval

/*
GET /api/v1/titles/{id}.

Response:
  - 200: Title: The hydrated aggregate
  - 404: ErrNotFound: Title not found
*/
func (handler *Handler) GetTitle(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.ID(request, "id")

	found, err := handler.service.GetTitle(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, found)
}

/*
GET /api/v1/titles.

Description: Returns a paginated roster of live titles, newest first.

Request:
  - limit: int
  - page: int

Response:
  - 200: []Title: Paginated list
*/
func (handler *Handler) ListTitles(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)

	titles, total, err := handler.service.ListTitles(request.Context(), paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, titles, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}
