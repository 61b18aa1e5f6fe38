// Package meta stores the global forum configuration, the settings that
// administrators change at runtime and plugins read on every request.
package meta

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/nasermirzaei89/forum/database"
)

const objectKey = "config"

type Config struct {
	objects database.ObjectStore
}

func NewConfig(objects database.ObjectStore) *Config {
	return &Config{objects: objects}
}

// Get returns the value of key, or an empty string when it is not set.
func (c *Config) Get(ctx context.Context, key string) (string, error) {
	value, err := c.objects.GetObjectField(ctx, objectKey, key)
	if err != nil {
		var notFoundErr *database.FieldNotFoundError
		if errors.As(err, &notFoundErr) {
			return "", nil
		}

		return "", fmt.Errorf("failed to get config field: %w", err)
	}

	return value, nil
}

// GetInt returns the integer value of key. Missing or malformed values yield
// defaultValue.
func (c *Config) GetInt(ctx context.Context, key string, defaultValue int) (int, error) {
	value, err := c.Get(ctx, key)
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, nil
	}

	return n, nil
}

func (c *Config) Set(ctx context.Context, key, value string) error {
	err := c.objects.SetObjectField(ctx, objectKey, key, value)
	if err != nil {
		return fmt.Errorf("failed to set config field: %w", err)
	}

	return nil
}

func (c *Config) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	err := c.objects.SetObject(ctx, objectKey, values)
	if err != nil {
		return fmt.Errorf("failed to set config fields: %w", err)
	}

	return nil
}

func (c *Config) All(ctx context.Context) (map[string]string, error) {
	values, err := c.objects.GetObject(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return values, nil
}
