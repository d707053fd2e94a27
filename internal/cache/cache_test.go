package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryKey(t *testing.T) {
	assert.Equal(t, "storystats:stats:3:days=7", entryKey(3, "days=7"))
	assert.Equal(t, "storystats:stats:0:", entryKey(0, ""))
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()
	c.Set(ctx, "k", 0, []byte("v"))
	_, _, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx))
	assert.NoError(t, c.Close())
}

func TestConnectUnreachable(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	start := time.Now()
	_, err := Connect(context.Background(), "redis://127.0.0.1:1/0", Options{
		MaxElapsed: 300 * time.Millisecond,
		Log:        logrus.NewEntry(log),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestConnectHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	_, err := Connect(ctx, "127.0.0.1:1", Options{Log: logrus.NewEntry(log)})
	assert.Error(t, err)
}

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	r, err := Connect(context.Background(), "redis://"+mr.Addr(), Options{
		TTL: time.Minute,
		Log: logrus.NewEntry(log),
	})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, mr
}

func TestRedisRoundTrip(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	_, gen, ok := r.Get(ctx, "days=7")
	require.False(t, ok)
	assert.Zero(t, gen)

	r.Set(ctx, "days=7", gen, []byte(`{"total_count":3}`))
	got, _, ok := r.Get(ctx, "days=7")
	require.True(t, ok)
	assert.JSONEq(t, `{"total_count":3}`, string(got))
	assert.Equal(t, time.Minute, mr.TTL(entryKey(0, "days=7")))
}

func TestRedisInvalidate(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx := context.Background()

	r.Set(ctx, "k", 0, []byte("v"))
	require.NoError(t, r.Invalidate(ctx))

	_, gen, ok := r.Get(ctx, "k")
	assert.False(t, ok)
	assert.EqualValues(t, 1, gen)
}

func TestRedisSetAfterInvalidateIsUnreachable(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx := context.Background()

	_, gen, ok := r.Get(ctx, "days=30")
	require.False(t, ok)

	// A write lands while the payload for gen is being computed.
	require.NoError(t, r.Invalidate(ctx))
	r.Set(ctx, "days=30", gen, []byte("stale"))

	_, _, ok = r.Get(ctx, "days=30")
	assert.False(t, ok)
}

func TestRedisUnavailableIsAMiss(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	mr.Close()

	_, gen, ok := r.Get(ctx, "k")
	assert.False(t, ok)
	assert.EqualValues(t, -1, gen)
	r.Set(ctx, "k", gen, []byte("v"))
}
