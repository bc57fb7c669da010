package authsvc

import (
	"context"
	"testing"
	"time"

	"foodconnect/logger"
	"foodconnect/models"
	"foodconnect/store"
	"foodconnect/store/storetest"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	svc := New(store.New(storetest.NewDB(t)), rdb, []byte("test-secret"), time.Hour, logger.Discard())
	return svc, mr
}

func TestSignUpThenSignIn(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, SignUpInput{Name: "Thandi", Email: "Thandi@Example.com ", Password: "secret1", Role: models.RoleVendor})
	require.NoError(t, err)
	assert.Equal(t, "thandi@example.com", sess.User.Email)
	assert.Equal(t, models.RoleVendor, sess.User.Role)
	assert.NotEmpty(t, sess.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)

	signedIn, err := svc.SignIn(ctx, "thandi@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, signedIn.User.ID)

	claims, err := svc.Verify(ctx, signedIn.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleVendor, claims.Role)
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "secret1", Role: "chef"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "123"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	sess, err := svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, sess.User.Role)

	_, err = svc.SignUp(ctx, SignUpInput{Name: "B", Email: "a@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOutRevokesToken(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Session(ctx, sess.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, sess.AccessToken))
	assert.Len(t, mr.Keys(), 1)

	_, err = svc.Verify(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.Session(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Verify(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	svc, _ := newTestService(t)
	other, _ := newTestService(t)
	other.secret = []byte("another-secret")
	ctx := context.Background()

	sess, err := other.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsDeletedAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, SignUpInput{Name: "V", Email: "v@example.com", Password: "secret1", Role: models.RoleVendor})
	require.NoError(t, err)
	_, err = svc.Verify(ctx, sess.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.store.DeleteUser(ctx, sess.User.ID))

	_, err = svc.Verify(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.Session(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
