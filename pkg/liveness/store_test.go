package liveness

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, 120*time.Second), mr
}

func TestSetAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "vcenter-a", StatusAlive, false))

	status, err := store.Get(ctx, "vcenter-a")
	require.NoError(t, err)
	assert.Equal(t, StatusAlive, status)
}

func TestGetMissingIsUnknown(t *testing.T) {
	store, _ := newTestStore(t)

	status, err := store.Get(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, status)
}

func TestSetOnlyIfAbsent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "vcenter-a", StatusDead, false))

	// NX write must not clobber the existing record.
	require.NoError(t, store.Set(ctx, "vcenter-a", StatusAlive, true))
	status, err := store.Get(ctx, "vcenter-a")
	require.NoError(t, err)
	assert.Equal(t, StatusDead, status)

	// NX write on a fresh key succeeds.
	require.NoError(t, store.Set(ctx, "vcenter-b", StatusAlive, true))
	status, err = store.Get(ctx, "vcenter-b")
	require.NoError(t, err)
	assert.Equal(t, StatusAlive, status)
}

func TestRecordExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "vcenter-a", StatusDead, false))

	mr.FastForward(121 * time.Second)

	status, err := store.Get(ctx, "vcenter-a")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, status, "expired dead-mark must read as unknown")
}

func TestIsDead(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	dead, err := store.IsDead(ctx, "vcenter-a")
	require.NoError(t, err)
	assert.False(t, dead)

	require.NoError(t, store.Set(ctx, "vcenter-a", StatusDead, false))
	dead, err = store.IsDead(ctx, "vcenter-a")
	require.NoError(t, err)
	assert.True(t, dead)

	require.NoError(t, store.Set(ctx, "vcenter-a", StatusAlive, false))
	dead, err = store.IsDead(ctx, "vcenter-a")
	require.NoError(t, err)
	assert.False(t, dead)
}

func TestGetAll(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "vcenter-a", StatusAlive, false))
	require.NoError(t, store.Set(ctx, "vcenter-b", StatusDead, false))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]Status{
		"vcenter-a": StatusAlive,
		"vcenter-b": StatusDead,
	}, all)
}

func TestRemoveAll(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "vcenter-a", StatusDead, false))
	require.NoError(t, store.Set(ctx, "vcenter-b", StatusDead, false))

	require.NoError(t, store.RemoveAll(ctx))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInvalidNameRejected(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"", "bad name", "semi;colon", "slash/y", "colon:y"} {
		err := store.Set(ctx, name, StatusAlive, false)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)

		_, err = store.Get(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestStoreOutageIsDistinctError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := New(client, time.Minute)

	mr.Close()

	err := store.Set(context.Background(), "vcenter-a", StatusAlive, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidName)

	_, err = store.Get(context.Background(), "vcenter-a")
	assert.ErrorIs(t, err, ErrUnavailable)
}
