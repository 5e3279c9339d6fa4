package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	storage_go "github.com/supabase-community/storage-go"
)

const (
	// DefaultBucket holds uploaded recordings
	DefaultBucket = "audio-recordings"

	defaultCacheControl = "3600"
)

// ObjectClient is the subset of the storage-go client used here.
type ObjectClient interface {
	UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketId string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse
	RemoveFile(bucketId string, paths []string) ([]storage_go.FileUploadResponse, error)
}

// SupabaseStore keeps blobs in a public Supabase Storage bucket.
type SupabaseStore struct {
	client       ObjectClient
	bucket       string
	cacheControl string
}

// NewSupabaseStore creates a store for bucket
func NewSupabaseStore(client ObjectClient, bucket, cacheControl string) (*SupabaseStore, error) {
	if client == nil {
		return nil, errors.New("supabase storage client is nil")
	}
	if bucket == "" {
		bucket = DefaultBucket
	}
	if cacheControl == "" {
		cacheControl = defaultCacheControl
	}
	return &SupabaseStore{client: client, bucket: bucket, cacheControl: cacheControl}, nil
}

// Upload stores data without upsert and returns the public URL
func (s *SupabaseStore) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	upsert := false
	_, err := s.client.UploadFile(s.bucket, name, bytes.NewReader(data), storage_go.FileOptions{
		ContentType:  &contentType,
		CacheControl: &s.cacheControl,
		Upsert:       &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s to bucket %s: %w", name, s.bucket, err)
	}

	public := s.client.GetPublicUrl(s.bucket, name)
	if public.SignedURL == "" {
		return "", fmt.Errorf("no public url for %s", name)
	}

	log.Printf("[DEBUG] Uploaded %s to bucket %s", name, s.bucket)
	return public.SignedURL, nil
}

// Delete removes the object named by the last segment of fileURL
func (s *SupabaseStore) Delete(ctx context.Context, fileURL string) error {
	name := ObjectNameFromURL(fileURL)
	if _, err := s.client.RemoveFile(s.bucket, []string{name}); err != nil {
		return fmt.Errorf("removing %s from bucket %s: %w", name, s.bucket, err)
	}
	return nil
}
