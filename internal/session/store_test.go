package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	signer := NewSigner([]byte("0123456789abcdef0123456789abcdef"))
	return NewStore(client, signer, time.Hour), mr
}

func TestStore_CreateAndAuthenticate(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)

	_, found, err := store.UserID(ctx, id)
	require.NoError(t, err)
	assert.False(t, found, "fresh session should be anonymous")

	adminID := uuid.New()
	require.NoError(t, store.SetUserID(ctx, id, adminID))

	got, found, err := store.UserID(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, adminID, got)
}

func TestStore_RenewRotatesIDKeepsState(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)
	adminID := uuid.New()
	require.NoError(t, store.SetUserID(ctx, id, adminID))

	newID, err := store.Renew(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, id, newID, "renew must rotate the session id")

	got, found, err := store.UserID(ctx, newID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, adminID, got)

	// the old id no longer names a session
	require.Error(t, store.SetUserID(ctx, id, adminID))
}

func TestStore_FlashIsPoppedExactlyOnce(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SetFlash(ctx, id, "Authentication failed"))

	msg, err := store.PopFlash(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Authentication failed", msg)

	msg, err = store.PopFlash(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, msg, "flash must be cleared after the first read")
}

func TestStore_Delete(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SetUserID(ctx, id, uuid.New()))
	require.NoError(t, store.Delete(ctx, id))

	_, found, err := store.UserID(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_SessionExpires(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, found, err := store.UserID(ctx, id)
	require.NoError(t, err)
	assert.False(t, found, "expired session should be gone")
}

func TestStore_CookieValueRoundTrip(t *testing.T) {
	store, _ := setupStore(t)

	id := "some-session-id"
	value := store.CookieValue(id)

	got, err := store.ParseCookieValue(value)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestStore_TamperedCookieRejected(t *testing.T) {
	store, _ := setupStore(t)

	value := store.CookieValue("some-session-id")

	_, err := store.ParseCookieValue("other-session-id." + value[len("some-session-id.")+0:])
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = store.ParseCookieValue("no-separator-at-all")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = store.ParseCookieValue(value + "00")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
