package dataaccess

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	BucketRestaurantImages = "restaurant-images"
	BucketMenuImages       = "menu-images"
	BucketVendorLogos      = "vendor-logos"
)

// ImageStore is the object storage contract; *objectstore.Store implements it
type ImageStore interface {
	Upload(ctx context.Context, bucket, path string, data []byte) (string, error)
	PublicURL(bucket, path string) string
	PathFromURL(bucket, publicURL string) (string, bool)
	Remove(ctx context.Context, bucket string, paths []string) error
}

// Image is a binary supplied alongside a mutation
type Image struct {
	Filename string
	Data     []byte
}

// uploadImage stores img under namespace/ and returns its public URL
func uploadImage(ctx context.Context, images ImageStore, bucket, namespace string, img *Image) (string, error) {
	path := namespace + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(img.Filename))
	stored, err := images.Upload(ctx, bucket, path, img.Data)
	if err != nil {
		return "", err
	}
	return images.PublicURL(bucket, stored), nil
}

// removeImage deletes the object behind publicURL if it lives in bucket. Failures are only logged.
func removeImage(ctx context.Context, images ImageStore, log *slog.Logger, bucket string, publicURL *string) {
	if publicURL == nil || *publicURL == "" {
		return
	}
	path, ok := images.PathFromURL(bucket, *publicURL)
	if !ok {
		return
	}
	if err := images.Remove(ctx, bucket, []string{path}); err != nil {
		log.Warn("failed to remove stored image", "bucket", bucket, "path", path, "error", err)
	}
}
