package redis_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/forum/database"
	"github.com/nasermirzaei89/forum/database/redis"
	"github.com/stretchr/testify/require"
)

func TestObjectStore(t *testing.T) {
	connURL := os.Getenv("TEST_REDIS_URL")
	if connURL == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}

	ctx := context.Background()

	client, err := redis.Open(ctx, connURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	store := redis.NewObjectStore(client, "test:"+uuid.NewString()+":")

	t.Run("missing field", func(t *testing.T) {
		_, err := store.GetObjectField(ctx, "blog-comments", "missing")

		notFoundErr := &database.FieldNotFoundError{}
		require.ErrorAs(t, err, &notFoundErr)
	})

	t.Run("set and get", func(t *testing.T) {
		err := store.SetObjectField(ctx, "blog-comments", "article-1", "42")
		require.NoError(t, err)

		value, err := store.GetObjectField(ctx, "blog-comments", "article-1")
		require.NoError(t, err)
		require.Equal(t, "42", value)
	})

	t.Run("whole object", func(t *testing.T) {
		err := store.SetObject(ctx, "config", map[string]string{"a": "1", "b": "2"})
		require.NoError(t, err)

		err = store.DeleteObjectField(ctx, "config", "a")
		require.NoError(t, err)

		fields, err := store.GetObject(ctx, "config")
		require.NoError(t, err)
		require.Equal(t, map[string]string{"b": "2"}, fields)
	})
}
