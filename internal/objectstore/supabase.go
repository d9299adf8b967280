package objectstore

import (
	"context"
	"fmt"

	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/supabase"
)

// SupabaseUploader stores objects in a Supabase storage bucket.
type SupabaseUploader struct {
	client *supabase.Client
	bucket string
}

var _ Uploader = (*SupabaseUploader)(nil)

// NewSupabaseUploader stores into bucket through client.
func NewSupabaseUploader(client *supabase.Client, bucket string) *SupabaseUploader {
	return &SupabaseUploader{client: client, bucket: bucket}
}

func (u *SupabaseUploader) Ready() error {
	if u.client == nil || u.bucket == "" {
		return svcerrors.Config("Storage configuration missing: SUPABASE_URL, SUPABASE_SERVICE_KEY and SUPABASE_STORAGE_BUCKET are required.")
	}
	return nil
}

func (u *SupabaseUploader) Target() string {
	return u.bucket
}

func (u *SupabaseUploader) Put(ctx context.Context, key string, f File) error {
	if _, err := u.client.Storage().From(u.bucket).Upload(ctx, key, f.Data, f.ContentType, true); err != nil {
		return svcerrors.Upstream(storageMessage(err, u.bucket), err)
	}
	return nil
}

func (u *SupabaseUploader) Check(ctx context.Context) error {
	if err := u.client.Storage().From(u.bucket).Exists(ctx); err != nil {
		return svcerrors.Upstream(storageMessage(err, u.bucket), err)
	}
	return nil
}

func storageMessage(err error, bucket string) string {
	e, ok := supabase.AsError(err)
	if !ok {
		return "Network error. Check your storage configuration."
	}
	switch e.StatusCode {
	case 401, 403:
		return "Access Denied. Please check the storage service key."
	case 404:
		return fmt.Sprintf("Storage bucket %q does not exist. Please create it first.", bucket)
	}
	return e.Message
}
