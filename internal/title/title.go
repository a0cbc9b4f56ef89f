// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package title manages the parent aggregate of the catalogue: a serialized
work composed of ordered chapters.

Besides plain CRUD, this package owns the derived aggregate fields:

  - ChapterCount: number of live chapters, maintained by atomic
    increment/decrement at the metadata store (never read-modify-write in
    application code).
  - Progress: completion percentage against RawCount, always re-derivable
    from (ChapterCount, RawCount) and therefore safe to rewrite at any time.
*/
package title

import (
	"math"
	"time"
)

// Field names used in validation errors.
const (
	FieldName     = "name"
	FieldRawCount = "raw_count"
	FieldOwnerID  = "owner_id"
)

// Title is a serialized work (the owning side of chapters).
type Title struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`

	// ChapterCount is derived from live chapter records; never negative.
	ChapterCount int `json:"chapter_count"`

	// RawCount is the externally supplied target number of chapters.
	// 0 means unknown.
	RawCount int `json:"raw_count"`

	// Progress is the derived completion percentage, clamped to [0, 100]
	// and rounded to 2 decimals.
	Progress float64 `json:"progress"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// # Aggregate Derivation

// DeriveProgress computes the completion percentage from a chapter count and
// the target raw count.
//
// The result is chapterCount/rawCount*100 rounded to 2 decimals and clamped
// to 100. A zero (unknown) rawCount always yields 0. The function is pure so
// the aggregate can be recomputed from stored counters at any time.
func DeriveProgress(chapterCount, rawCount int) float64 {
	if rawCount <= 0 {
		return 0
	}

	percent := float64(chapterCount) / float64(rawCount) * 100
	percent = math.Round(percent*100) / 100

	return math.Min(percent, 100)
}
