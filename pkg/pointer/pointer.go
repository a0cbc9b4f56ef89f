// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pointer provides tiny helpers for working with optional values.
//
// Patch-style API inputs model "field absent" as a nil pointer; these helpers
// keep the call sites readable.
package pointer

// To returns a pointer to the given value.
func To[T any](v T) *T {
	return &v
}

// ValueOr dereferences p, falling back to def when p is nil.
func ValueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
