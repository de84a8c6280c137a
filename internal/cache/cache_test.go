package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

func newRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedis(context.Background(), "redis://"+mr.Addr()+"/0", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisRoundTrip(t *testing.T) {
	c, _ := newRedis(t)
	ctx := context.Background()

	var got payload
	hit, err := c.Get(ctx, "series:daily", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := payload{Labels: []string{"2024-01-01"}, Values: []float64{5}}
	require.NoError(t, c.Set(ctx, "series:daily", want))

	hit, err = c.Get(ctx, "series:daily", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)
}

func TestRedisTTL(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", payload{}))

	assert.Equal(t, time.Minute, mr.TTL("campaign-analyzer:k"))
	mr.FastForward(2 * time.Minute)

	hit, err := c.Get(ctx, "k", &payload{})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCorruptValue(t *testing.T) {
	c, mr := newRedis(t)
	require.NoError(t, mr.Set("campaign-analyzer:bad", "{not json"))

	hit, err := c.Get(context.Background(), "bad", &payload{})
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestNewRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), "redis://"+addr, time.Minute)
	assert.Error(t, err)

	_, err = NewRedis(context.Background(), "://bad", time.Minute)
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	require.NoError(t, c.Set(context.Background(), "k", 1))
	hit, err := c.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
}
