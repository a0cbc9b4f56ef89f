// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package s3 implements the content store against S3-compatible object storage
(Cloudflare R2 in production, MinIO in development).

Locator Design:

  - Object key:  "<namespace>/<name>"  (e.g. "chapters/0192f.../01890....png")
  - Locator:     "<public base URL>/<object key>"

The locator is what chapter records persist; stripping the public base URL
recovers the object key, which is all that is needed for later deletion.
*/
package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config contains the settings needed to reach the object storage service.
type Config struct {
	// Bucket is the bucket holding all page/thumbnail objects.
	Bucket string

	// Region is the bucket region ("auto" for R2).
	Region string

	// Endpoint overrides the AWS endpoint for S3-compatible providers.
	// Empty means real AWS S3.
	Endpoint string

	// AccessKey / SecretKey are static credentials. When both are empty the
	// default AWS credential chain is used instead.
	AccessKey string
	SecretKey string

	// PublicBaseURL is the CDN-facing base URL prepended to object keys to
	// form locators.
	PublicBaseURL string
}

// Store is the S3-backed implementation of [content.Store].
//
// # Thread Safety
//
// The underlying s3.Client is safe for concurrent use; Store carries no
// mutable state of its own.
type Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewStore builds the S3 client and verifies bucket access.
//
// The bucket must already exist — this constructor does not create it.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is required")
	}
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("s3: public base URL is required")
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	// Static credentials for R2/MinIO; otherwise fall back to the ambient chain.
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("s3: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		if cfg.Endpoint != "" {
			options.BaseEndpoint = aws.String(cfg.Endpoint)
			// Compatible providers generally require path-style addressing.
			options.UsePathStyle = true
		}
	})

	// Verify bucket access up front so misconfiguration fails at startup.
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("s3: failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &Store{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

/*
Put stores data under "<namespace>/<name>" and returns the public locator.

Parameters:
  - ctx: context.Context for cancellation and timeouts
  - data: Complete object bytes
  - namespace: Key prefix grouping related objects (e.g. a chapter ID)
  - name: Object name within the namespace

Returns:
  - string: Stable public locator for the stored object
  - error: S3 failures or context cancellation
*/
func (store *Store) Put(ctx context.Context, data []byte, namespace, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := objectKey(namespace, name)

	_, err := store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("s3: failed to put object %q: %w", key, err)
	}

	return store.publicBaseURL + "/" + key, nil
}

/*
Delete removes the object referenced by a locator.

Description: S3 DeleteObject is idempotent — deleting a non-existent key
succeeds, which is exactly what best-effort cleanup wants.

Parameters:
  - ctx: context.Context
  - locator: A locator previously returned by Put

Returns:
  - error: Malformed locator, S3 failures, or context cancellation
*/
func (store *Store) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := store.keyFromLocator(locator)
	if err != nil {
		return err
	}

	_, err = store.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3: failed to delete object %q: %w", key, err)
	}

	return nil
}

// Ping verifies the bucket is still reachable. Used by readiness probes.
func (store *Store) Ping(ctx context.Context) error {
	if _, err := store.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(store.bucket)}); err != nil {
		return fmt.Errorf("s3: failed to access bucket %q: %w", store.bucket, err)
	}
	return nil
}

// keyFromLocator recovers the object key from a public locator.
func (store *Store) keyFromLocator(locator string) (string, error) {
	key, found := strings.CutPrefix(locator, store.publicBaseURL+"/")
	if !found || key == "" {
		return "", fmt.Errorf("s3: locator %q does not belong to this store", locator)
	}
	return key, nil
}

// objectKey joins namespace and name into the canonical key layout.
func objectKey(namespace, name string) string {
	return strings.Trim(namespace, "/") + "/" + strings.TrimPrefix(name, "/")
}
