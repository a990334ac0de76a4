package twofactor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard_ClaimExpires(t *testing.T) {
	g := NewMemoryGuard()
	now := time.Unix(1_700_000_000, 0)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := g.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = g.Claim(ctx, "k", time.Minute)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, _ = g.Claim(ctx, "k", time.Minute)
	assert.True(t, ok, "claim is released once ttl elapses")
}

type fakeRedis struct {
	key     string
	ttl     time.Duration
	res     *redis.BoolCmd
	deleted []string
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ any, expiration time.Duration) *redis.BoolCmd {
	f.key, f.ttl = key, expiration
	return f.res
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.deleted = append(f.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestMemoryGuard_Release(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	ok, _ := g.Claim(ctx, "k", time.Minute)
	require.True(t, ok)
	require.NoError(t, g.Release(ctx, "k"))

	ok, _ = g.Claim(ctx, "k", time.Minute)
	assert.True(t, ok)
	assert.NoError(t, g.Release(ctx, "unknown"))
}

func TestRedisGuard_Release(t *testing.T) {
	f := &fakeRedis{}
	g := NewRedisGuard(f)

	require.NoError(t, g.Release(context.Background(), "acct-1:42"))
	assert.Equal(t, []string{"any2json:totp:acct-1:42"}, f.deleted)
}

func TestRedisGuard_Claim(t *testing.T) {
	f := &fakeRedis{res: redis.NewBoolResult(true, nil)}
	g := NewRedisGuard(f)

	ok, err := g.Claim(context.Background(), "acct-1:42", 90*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "any2json:totp:acct-1:42", f.key)
	assert.Equal(t, 90*time.Second, f.ttl)

	f.res = redis.NewBoolResult(false, nil)
	ok, err = g.Claim(context.Background(), "acct-1:42", 90*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	f.res = redis.NewBoolResult(false, errors.New("conn refused"))
	_, err = g.Claim(context.Background(), "acct-1:42", 90*time.Second)
	assert.Error(t, err)
}
