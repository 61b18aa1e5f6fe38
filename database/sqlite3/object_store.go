package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/forum/database"
)

const tableObjects = "objects"

const (
	objectFieldKey   = "object_key"
	objectFieldName  = "field_name"
	objectFieldValue = "field_value"
)

const upsertObjectFieldSuffix = "ON CONFLICT (" + objectFieldKey + ", " + objectFieldName + ") " +
	"DO UPDATE SET " + objectFieldValue + " = excluded." + objectFieldValue

type ObjectStore struct {
	db *sql.DB
}

var _ database.ObjectStore = (*ObjectStore)(nil)

func NewObjectStore(db *sql.DB) *ObjectStore {
	return &ObjectStore{db: db}
}

func (store *ObjectStore) GetObject(ctx context.Context, key string) (map[string]string, error) {
	q := sq.Select(objectFieldName, objectFieldValue).
		From(tableObjects).
		Where(sq.Eq{objectFieldKey: key})

	q = q.RunWith(store.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	fields := make(map[string]string)

	for rows.Next() {
		var name, value string

		err = rows.Scan(&name, &value)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		fields[name] = value
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return fields, nil
}

func (store *ObjectStore) GetObjectField(ctx context.Context, key, field string) (string, error) {
	q := sq.Select(objectFieldValue).
		From(tableObjects).
		Where(sq.Eq{objectFieldKey: key, objectFieldName: field})

	q = q.RunWith(store.db)

	var value string

	err := q.QueryRowContext(ctx).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", &database.FieldNotFoundError{Key: key, Field: field}
		}

		return "", fmt.Errorf("failed to scan object field: %w", err)
	}

	return value, nil
}

func (store *ObjectStore) SetObjectField(ctx context.Context, key, field, value string) error {
	return setObjectField(ctx, store.db, key, field, value)
}

func (store *ObjectStore) SetObject(ctx context.Context, key string, fields map[string]string) (err error) {
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}

		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			slog.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
		}
	}()

	for field, value := range fields {
		err = setObjectField(ctx, tx, key, field, value)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (store *ObjectStore) DeleteObjectField(ctx context.Context, key, field string) error {
	q := sq.Delete(tableObjects).
		Where(sq.Eq{objectFieldKey: key, objectFieldName: field})

	q = q.RunWith(store.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec delete: %w", err)
	}

	return nil
}

func setObjectField(ctx context.Context, runner sq.BaseRunner, key, field, value string) error {
	q := sq.Insert(tableObjects).
		Columns(objectFieldKey, objectFieldName, objectFieldValue).
		Values(key, field, value).
		Suffix(upsertObjectFieldSuffix)

	q = q.RunWith(runner)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec upsert: %w", err)
	}

	return nil
}
