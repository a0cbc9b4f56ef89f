// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Ingestion: Defaults for the chapter asset pipeline.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "mangetsu-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	// Chapter uploads carry tens of megabytes of multipart payload, so this is
	// considerably more generous than a JSON-only API would allow.
	DefaultReadTimeout = 120 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 120 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle,
	// including every content-store round-trip within one chapter operation.
	GlobalRequestTimeout = 120 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Ingestion Pipeline Defaults

const (
	// DefaultUploadBatchSize caps concurrent outbound connections to the
	// content store: uploads within one batch run in parallel, batches run
	// sequentially.
	DefaultUploadBatchSize = 15

	// DefaultUploadMaxAttempts bounds retries per object upload.
	DefaultUploadMaxAttempts = 3

	// DefaultUploadRetryBaseDelay is the backoff base: attempt k waits
	// base * 2^(k-1) before retrying.
	DefaultUploadRetryBaseDelay = 500 * time.Millisecond

	// DefaultMaxFileBytes is the per-file size ceiling for page images (10 MiB).
	DefaultMaxFileBytes = 10 << 20

	// CleanupTimeout bounds each best-effort background object deletion.
	CleanupTimeout = 30 * time.Second

	// MaxMultipartMemory is how much of a multipart body is held in memory
	// before spilling to temp files.
	MaxMultipartMemory = 32 << 20
)

// # Caching

const (
	// TitleCacheTTL is how long a title record may be served from Redis
	// before falling back to PostgreSQL.
	TitleCacheTTL = 5 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXActorID      = "X-Actor-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Fields

const (
	FieldCode  = "code"
	FieldError = "error"
)
