package supabase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Storage returns a storage client.
func (c *Client) Storage() *StorageClient {
	return &StorageClient{client: c}
}

// StorageClient handles storage operations.
type StorageClient struct {
	client *Client
}

// From returns a bucket client.
func (s *StorageClient) From(bucket string) *BucketClient {
	return &BucketClient{client: s.client, bucket: bucket}
}

// BucketClient handles bucket operations.
type BucketClient struct {
	client *Client
	bucket string
}

// Upload stores data at path. With upsert an existing object is replaced.
func (b *BucketClient) Upload(ctx context.Context, path string, data []byte, contentType string, upsert bool) (*Response, error) {
	reqURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", b.client.baseURL, b.bucket, strings.TrimPrefix(path, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	b.client.setHeaders(req)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	if upsert {
		req.Header.Set("x-upsert", "true")
	}
	return b.client.do(req)
}

// Exists reports whether the bucket is reachable with the configured key.
func (b *BucketClient) Exists(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/storage/v1/bucket/%s", b.client.baseURL, b.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	b.client.setHeaders(req)
	_, err = b.client.do(req)
	return err
}
