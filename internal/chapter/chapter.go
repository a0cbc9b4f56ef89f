// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package chapter implements the chapter assembler: the orchestration of
validation, thumbnail handling, batched page uploads, record persistence and
the parent title's aggregate update.

# Assembly Phases

Every chapter operation moves through an explicit phase sequence
(validate, thumbnail, pages, persist, aggregate). Fatal failures are tagged
with the phase they occurred in, so failure-injection tests and production
logs can target each phase independently instead of untangling nested
conditionals.

# Two-Phase Writes

Binary objects always land in the content store before the record that
references them is written, never the reverse. A stored object without a
record is a tolerated orphan; a record pointing at a missing object is a bug.
*/
package chapter

import (
	"fmt"
	"time"
)

// Field names used in validation errors.
const (
	FieldName    = "name"
	FieldNumber  = "number"
	FieldPages   = "pages"
	FieldTitleID = "title_id"
)

// MaxNameLength bounds the chapter display name.
const MaxNameLength = 255

// Page is one stored page of a chapter: its 1-based position and the content
// store locator of its image.
type Page struct {
	PageNumber int    `json:"page_number"`
	Image      string `json:"image"`
}

// Chapter is an ordered sequence of page images under a title.
//
// Page numbers are always exactly 1..len(Pages) with no gaps or duplicates
// after any create, update or delete.
type Chapter struct {
	ID      string `json:"id"`
	TitleID string `json:"title_id"`

	// Number is the chapter's position in the serialization, unique within
	// its title. Fractional numbers (e.g. 10.5 extras) are valid.
	Number float64 `json:"number"`

	Name string `json:"name"`

	// Thumbnail is a locator, possibly shared with a page image.
	Thumbnail string `json:"thumbnail,omitempty"`

	Pages []Page `json:"pages,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// # Assembly Phase Tagging

// assemblyPhase names one stage of a chapter operation.
type assemblyPhase string

const (
	phaseValidate  assemblyPhase = "validate"
	phaseThumbnail assemblyPhase = "thumbnail"
	phasePages     assemblyPhase = "pages"
	phasePersist   assemblyPhase = "persist"
	phaseAggregate assemblyPhase = "aggregate"
)

// assemblyError tags a fatal failure with the phase it occurred in.
//
// The wrapped error stays reachable via errors.As, so apperr codes survive
// the tagging and reach the HTTP layer unchanged.
type assemblyError struct {
	Phase assemblyPhase
	Err   error
}

func (e *assemblyError) Error() string {
	return fmt.Sprintf("chapter assembly failed in %s phase: %v", e.Phase, e.Err)
}

func (e *assemblyError) Unwrap() error { return e.Err }

// failPhase wraps err with its originating phase.
func failPhase(phase assemblyPhase, err error) error {
	return &assemblyError{Phase: phase, Err: err}
}
