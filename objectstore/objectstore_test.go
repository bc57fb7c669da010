package objectstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// smallest valid PNG header plus IHDR chunk is enough for content sniffing
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func newTestStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "objects.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Object{}))
	return New(db, "http://localhost:8080/", maxBytes)
}

func TestUploadGetRemove(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	path, err := s.Upload(ctx, "menu-images", "r1/burger.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "r1/burger.png", path)

	obj, err := s.Get(ctx, "menu-images", "r1/burger.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, int64(len(pngBytes)), obj.Size)

	require.NoError(t, s.Remove(ctx, "menu-images", []string{"r1/burger.png", "r1/missing.png"}))

	_, err = s.Get(ctx, "menu-images", "r1/burger.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadReplacesExisting(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	_, err := s.Upload(ctx, "logos", "v1/logo.png", pngBytes)
	require.NoError(t, err)
	bigger := append(append([]byte{}, pngBytes...), 0, 0, 0, 0)
	_, err = s.Upload(ctx, "logos", "v1/logo.png", bigger)
	require.NoError(t, err)

	obj, err := s.Get(ctx, "logos", "v1/logo.png")
	require.NoError(t, err)
	assert.Equal(t, int64(len(bigger)), obj.Size)
}

func TestUploadRejections(t *testing.T) {
	s := newTestStore(t, 16)
	ctx := context.Background()

	_, err := s.Upload(ctx, "menu-images", "r1/notes.txt", []byte("plain"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.Upload(ctx, "menu-images", "r1/big.png", pngBytes)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Upload(ctx, "menu-images", "../escape.png", pngBytes[:8])
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestPublicURLRoundTrip(t *testing.T) {
	s := newTestStore(t, 0)

	u := s.PublicURL("menu-images", "r1/chicken burger.png")
	assert.Equal(t, "http://localhost:8080/storage/v1/object/public/menu-images/r1/chicken%20burger.png", u)

	p, ok := s.PathFromURL("menu-images", u)
	require.True(t, ok)
	assert.Equal(t, "r1/chicken burger.png", p)

	_, ok = s.PathFromURL("menu-images", "https://images.example.com/burger.png")
	assert.False(t, ok)
	_, ok = s.PathFromURL("restaurant-images", u)
	assert.False(t, ok)
}
