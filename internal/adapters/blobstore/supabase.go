package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	storage "github.com/supabase-community/storage-go"

	apperrors "github.com/linkforge/linkforge-api/internal/errors"
)

// SupabaseOptions configures the Supabase-backed store.
type SupabaseOptions struct {
	// URL is the storage API base, e.g. https://<project>.supabase.co/storage/v1.
	URL string
	// ServiceKey authenticates uploads. Must be a service-role key so uploads
	// bypass row-level security.
	ServiceKey string
	// Bucket is the target bucket name.
	Bucket string
}

// SupabaseStore uploads snapshots to a Supabase storage bucket.
type SupabaseStore struct {
	client *storage.Client
	bucket string
}

// NewSupabaseStore creates a Supabase-backed Store.
func NewSupabaseStore(opts SupabaseOptions) (*SupabaseStore, error) {
	if opts.URL == "" {
		return nil, errors.New("storage URL is required")
	}
	if opts.ServiceKey == "" {
		return nil, errors.New("storage service key is required")
	}
	if opts.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	return &SupabaseStore{
		client: storage.NewClient(opts.URL, opts.ServiceKey, nil),
		bucket: opts.Bucket,
	}, nil
}

// Put uploads the blob and returns its public URL. Duplicate paths fail
// rather than overwrite, so a replayed callback cannot clobber an earlier
// snapshot.
func (s *SupabaseStore) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	upsert := false
	_, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeStorage,
			fmt.Sprintf("upload %s to bucket %s", path, s.bucket))
	}

	resp := s.client.GetPublicUrl(s.bucket, path)
	return resp.SignedURL, nil
}
