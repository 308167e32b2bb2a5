package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis(t *testing.T) {
	t.Run("Should connect and round-trip a value", func(t *testing.T) {
		mr := miniredis.RunT(t)
		ctx := context.Background()

		r, err := NewRedis(ctx, &Config{URL: "redis://" + mr.Addr()})
		require.NoError(t, err)
		defer r.Close()

		require.NoError(t, r.Set(ctx, "greeting", "hello", time.Minute).Err())
		got, err := r.Get(ctx, "greeting").Result()
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
	})

	t.Run("Should reject a missing config", func(t *testing.T) {
		_, err := NewRedis(context.Background(), nil)
		assert.Error(t, err)
	})

	t.Run("Should reject a malformed URL", func(t *testing.T) {
		_, err := NewRedis(context.Background(), &Config{URL: "not-a-url"})
		assert.Error(t, err)
	})

	t.Run("Should close idempotently", func(t *testing.T) {
		mr := miniredis.RunT(t)

		r, err := NewRedis(context.Background(), &Config{URL: "redis://" + mr.Addr()})
		require.NoError(t, err)

		assert.NoError(t, r.Close())
		assert.NoError(t, r.Close())
	})
}
