// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package content defines the interface to the remote object store that holds
page and thumbnail image bytes.

The rest of the system depends only on this interface; the S3-compatible
implementation lives in the s3 subpackage. Every locator handed out by Put is
an opaque, stable URL — the only structure callers may rely on is that the
same locator can later be passed to Delete.
*/
package content

import "context"

// Store uploads and deletes opaque binary objects.
//
// Both operations are fallible and individually retryable; retry policy is
// the caller's concern (see internal/ingest.Uploader).
type Store interface {
	// Put stores data under the given namespace and object name and returns
	// the stable public locator for the stored object.
	Put(ctx context.Context, data []byte, namespace, name string) (string, error)

	// Delete removes the object referenced by a locator previously returned
	// by Put. Deleting an already-removed object is not an error.
	Delete(ctx context.Context, locator string) error
}
