package cache

import (
	"context"
	"testing"

	"vista/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	tests := []struct {
		in       string
		wantAddr string
		wantPass string
		wantDB   int
		wantTLS  bool
	}{
		{"redis://:mypassword@redis:6379/1", "redis:6379", "mypassword", 1, false},
		{"rediss://:s3cret@redis.example.com:6380/2", "redis.example.com:6380", "s3cret", 2, true},
		{"redis:6379", "redis:6379", "", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			opts, err := Options(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAddr, opts.Addr)
			assert.Equal(t, tc.wantPass, opts.Password)
			assert.Equal(t, tc.wantDB, opts.DB)
			assert.Equal(t, tc.wantTLS, opts.TLSConfig != nil)
		})
	}

	_, err := Options("")
	assert.Error(t, err)
	_, err = Options("redis://host:port:bad/x")
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	log := observability.NopLogger()
	ctx := context.Background()

	assert.Nil(t, Connect(ctx, "", log))

	mr := miniredis.RunT(t)
	client := Connect(ctx, "redis://"+mr.Addr()+"/0", log)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, Connect(ctx, addr, log))
}

func TestMetricsHookCountsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	before := testutil.ToFloat64(observability.RedisErrors.WithLabelValues("incr"))

	require.ErrorIs(t, client.Get(ctx, "missing").Err(), redis.Nil)
	require.NoError(t, client.Set(ctx, "text", "abc", 0).Err())
	assert.Error(t, client.Incr(ctx, "text").Err())

	assert.Equal(t, before+1, testutil.ToFloat64(observability.RedisErrors.WithLabelValues("incr")))
}
