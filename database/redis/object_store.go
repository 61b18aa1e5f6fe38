// Package redis stores forum objects as Redis hashes, the layout the forum
// uses when it shares its key space with other services.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nasermirzaei89/forum/database"
	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "forum:"

type ObjectStore struct {
	client redis.UniversalClient
	prefix string
}

var _ database.ObjectStore = (*ObjectStore)(nil)

func NewObjectStore(client redis.UniversalClient, prefix string) *ObjectStore {
	return &ObjectStore{client: client, prefix: prefix}
}

// Open parses a redis:// URL, connects and pings the server.
func Open(ctx context.Context, connURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		closeErr := client.Close()
		if closeErr != nil {
			slog.ErrorContext(ctx, "failed to close redis client", "error", closeErr)
		}

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func (store *ObjectStore) key(key string) string {
	return store.prefix + key
}

func (store *ObjectStore) GetObject(ctx context.Context, key string) (map[string]string, error) {
	fields, err := store.client.HGetAll(ctx, store.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get hash: %w", err)
	}

	return fields, nil
}

func (store *ObjectStore) GetObjectField(ctx context.Context, key, field string) (string, error) {
	value, err := store.client.HGet(ctx, store.key(key), field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", &database.FieldNotFoundError{Key: key, Field: field}
		}

		return "", fmt.Errorf("failed to get hash field: %w", err)
	}

	return value, nil
}

func (store *ObjectStore) SetObject(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	values := make(map[string]any, len(fields))
	for field, value := range fields {
		values[field] = value
	}

	err := store.client.HSet(ctx, store.key(key), values).Err()
	if err != nil {
		return fmt.Errorf("failed to set hash fields: %w", err)
	}

	return nil
}

func (store *ObjectStore) SetObjectField(ctx context.Context, key, field, value string) error {
	err := store.client.HSet(ctx, store.key(key), field, value).Err()
	if err != nil {
		return fmt.Errorf("failed to set hash field: %w", err)
	}

	return nil
}

func (store *ObjectStore) DeleteObjectField(ctx context.Context, key, field string) error {
	err := store.client.HDel(ctx, store.key(key), field).Err()
	if err != nil {
		return fmt.Errorf("failed to delete hash field: %w", err)
	}

	return nil
}
