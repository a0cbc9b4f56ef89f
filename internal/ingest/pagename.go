// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"regexp"
	"sort"
	"strconv"
)

// # Filename Ordering

var (
	// pageMarkerPattern matches the first digit run following a "page" marker
	// (e.g. "naruto_ch12_page_03.png" → 3).
	pageMarkerPattern = regexp.MustCompile(`(?i)page[\s_-]*(\d+)`)

	// digitRunPattern matches the first digit run anywhere in the name.
	digitRunPattern = regexp.MustCompile(`\d+`)
)

/*
PageNumberFromName extracts the page number embedded in an uploaded filename.

Description: Transport layers do not guarantee multipart part order, so the
filename is the only reliable ordering signal the client gives us.

Extraction precedence:

 1. First digit run after a "page" marker ("page_03", "page-3", "Page 3").
 2. First digit run anywhere in the name ("007.jpg" → 7).
 3. 0 when the name carries no digits at all.
*/
func PageNumberFromName(name string) int {
	if match := pageMarkerPattern.FindStringSubmatch(name); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil {
			return n
		}
	}

	if run := digitRunPattern.FindString(name); run != "" {
		if n, err := strconv.Atoi(run); err == nil {
			return n
		}
	}

	return 0
}

// SortByPageNumber returns a copy of files ordered by their filename-derived
// page numbers.
//
// The sort is stable: files with equal (or missing) numbers keep their
// submission order.
func SortByPageNumber(files []UploadedFile) []UploadedFile {
	sorted := make([]UploadedFile, len(files))
	copy(sorted, files)

	sort.SliceStable(sorted, func(i, j int) bool {
		return PageNumberFromName(sorted[i].Name) < PageNumberFromName(sorted[j].Name)
	})

	return sorted
}
