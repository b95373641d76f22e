package supabase

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// StorageClient uploads generation inputs to a Supabase Storage bucket.
type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

// NewStorageClient reuses the storage client already configured on the
// supabase-go client.
func NewStorageClient(c *Client, bucket string) *StorageClient {
	return newStorageClient(c.Supabase.Storage, c.Config.SupabaseURL, bucket)
}

// NewStandaloneStorageClient talks to the storage API directly, for callers
// that have no supabase-go client.
func NewStandaloneStorageClient(supabaseURL, key, bucket string) *StorageClient {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	return newStorageClient(storage.NewClient(baseURL+"/storage/v1", key, nil), baseURL, bucket)
}

func newStorageClient(client *storage.Client, supabaseURL, bucket string) *StorageClient {
	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(supabaseURL, "/"),
	}
}

// Upload stores data at objectPath and returns the object's public URL. Each
// attempt writes a fresh timestamped path, so upsert is off.
func (s *StorageClient) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	upsert := false
	_, err := s.client.UploadFile(s.bucket, objectPath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return s.GetPublicURL(objectPath), nil
}

func (s *StorageClient) GetPublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		s.baseURL, s.bucket, objectPath)
}

func (s *StorageClient) ObjectPathFromURL(url string) (string, bool) {
	prefix := s.GetPublicURL("")
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func (s *StorageClient) Remove(ctx context.Context, objectPaths []string) error {
	if len(objectPaths) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(s.bucket, objectPaths); err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}
	return nil
}
