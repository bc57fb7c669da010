package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const publicPrefix = "/storage/v1/object/public/"

var (
	ErrNotFound        = errors.New("object not found")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrTooLarge        = errors.New("object exceeds upload limit")
	ErrInvalidPath     = errors.New("invalid object path")
)

// Object is one stored blob, addressed by bucket and path
type Object struct {
	Bucket      string    `gorm:"primaryKey;type:text"`
	Path        string    `gorm:"primaryKey;type:text"`
	ContentType string    `gorm:"not null"`
	Size        int64     `gorm:"not null"`
	Data        []byte    `gorm:"not null"`
	CreatedAt   time.Time
}

func (Object) TableName() string { return "storage_objects" }

// Store keeps image uploads in the relational database and serves them by public URL
type Store struct {
	db       *gorm.DB
	baseURL  string
	maxBytes int64
}

func New(db *gorm.DB, publicBaseURL string, maxBytes int64) *Store {
	return &Store{db: db, baseURL: strings.TrimRight(publicBaseURL, "/"), maxBytes: maxBytes}
}

// Upload stores data at bucket/path, replacing any previous object, and returns the path
func (s *Store) Upload(ctx context.Context, bucket, path string, data []byte) (string, error) {
	if err := validatePath(bucket, path); err != nil {
		return "", err
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	obj := Object{
		Bucket:      bucket,
		Path:        path,
		ContentType: mt.String(),
		Size:        int64(len(data)),
		Data:        data,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&obj).Error
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, path, err)
	}
	return path, nil
}

// PublicURL is where GET /storage/v1/object/public/:bucket/*path serves the object
func (s *Store) PublicURL(bucket, path string) string {
	return s.baseURL + publicPrefix + bucket + "/" + (&url.URL{Path: path}).EscapedPath()
}

// PathFromURL recovers the object path from a public URL in bucket
func (s *Store) PathFromURL(bucket, publicURL string) (string, bool) {
	prefix := s.baseURL + publicPrefix + bucket + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	p, err := url.PathUnescape(strings.TrimPrefix(publicURL, prefix))
	if err != nil || p == "" {
		return "", false
	}
	return p, true
}

func (s *Store) Get(ctx context.Context, bucket, path string) (*Object, error) {
	var obj Object
	err := s.db.WithContext(ctx).Where("bucket = ? AND path = ?", bucket, path).First(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, path, err)
	}
	return &obj, nil
}

// Remove deletes every listed path; missing objects are not an error
func (s *Store) Remove(ctx context.Context, bucket string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Where("bucket = ? AND path IN ?", bucket, paths).Delete(&Object{}).Error
	if err != nil {
		return fmt.Errorf("remove from %s: %w", bucket, err)
	}
	return nil
}

func validatePath(bucket, path string) error {
	if bucket == "" || path == "" || strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, bucket+"/"+path)
	}
	return nil
}
