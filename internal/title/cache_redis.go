// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package title

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/mangetsu/internal/platform/constants"
)

// # Redis Cache

// redisCache implements the [Cache] interface over go-redis.
type redisCache struct {
	client *redis.Client
}

// NewCache creates a Redis-backed title cache.
func NewCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

// cacheKey builds the Redis key for a title record.
func cacheKey(id string) string {
	return fmt.Sprintf("title:record:%s", id)
}

/*
Get retrieves a cached title record.

Description: A miss is not an error; callers fall through to the metadata
store. A corrupt payload is treated as a miss and dropped.

Parameters:
  - ctx: context.Context
  - id: string

Returns:
  - *Title: The cached record, or nil on a miss
  - error: Connectivity errors only
*/
func (cache *redisCache) Get(ctx context.Context, id string) (*Title, error) {

	// Fetch the serialized record
	payload, err := cache.client.Get(ctx, cacheKey(id)).Bytes()

	// Handle errors
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis_title_get_failed: %w", err)
	}

	// Decode the record
	var title Title
	if err := json.Unmarshal(payload, &title); err != nil {
		// Stale encoding from an older build; evict and report a miss
		cache.client.Del(ctx, cacheKey(id))
		return nil, nil
	}

	// Return the record
	return &title, nil
}

/*
Set stores the title record with the platform TTL.

Parameters:
  - ctx: context.Context
  - title: *Title

Returns:
  - error: Encoding or storage failures
*/
func (cache *redisCache) Set(ctx context.Context, title *Title) error {

	// Encode the record
	payload, err := json.Marshal(title)
	if err != nil {
		return fmt.Errorf("redis_title_encode_failed: %w", err)
	}

	// Store with TTL
	if err := cache.client.Set(ctx, cacheKey(title.ID), payload, constants.TitleCacheTTL).Err(); err != nil {
		return fmt.Errorf("redis_title_set_failed: %w", err)
	}

	// Return nil on success
	return nil
}

/*
Invalidate drops the cached record after a mutation.

Parameters:
  - ctx: context.Context
  - id: string

Returns:
  - error: Deletion failures
*/
func (cache *redisCache) Invalidate(ctx context.Context, id string) error {

	// Delete the record from Redis
	if err := cache.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("redis_title_invalidate_failed: %w", err)
	}

	// Return nil on success
	return nil
}
