package session

import (
	"context"
	"testing"
	"time"

	"foodconnect/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCacheRoundTrip(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	empty, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, c.Save(ctx, &models.Session{
		User:        &models.User{ID: "v1", Email: "vendor@example.com", Role: models.RoleVendor},
		AccessToken: "abc",
		ExpiresAt:   expires,
	}))
	require.NoError(t, c.Save(ctx, &models.Session{
		User:        &models.User{ID: "v2", Role: models.RoleVendor},
		AccessToken: "def",
		ExpiresAt:   expires,
	}))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v2", got.User.ID)
	assert.Equal(t, "def", got.AccessToken)
	assert.True(t, expires.Equal(got.ExpiresAt))

	require.NoError(t, c.Clear(ctx))
	got, err = c.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLocalCacheCorruptValueIsAbsent(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.db.Save(&localSession{Key: SessionKey, Value: "{not json"}).Error)

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
