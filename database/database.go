// Package database holds the storage contracts shared by every backend.
package database

import (
	"context"
	"fmt"
)

// ObjectStore is a hash-style store: each key holds a set of field/value
// pairs. Plugins and the forum settings use it for small records that do not
// deserve their own table.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) (map[string]string, error)
	GetObjectField(ctx context.Context, key, field string) (string, error)
	SetObject(ctx context.Context, key string, fields map[string]string) error
	SetObjectField(ctx context.Context, key, field, value string) error
	DeleteObjectField(ctx context.Context, key, field string) error
}

type FieldNotFoundError struct {
	Key   string
	Field string
}

func (err FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q of object %q not found", err.Field, err.Key)
}
