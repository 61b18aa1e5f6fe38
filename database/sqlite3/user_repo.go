package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/forum/authentication"
)

const tableUsers = "users"

type UserRepository struct {
	db *sql.DB
}

var _ authentication.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const (
	userFieldID           = "id"
	userFieldUsername     = "username"
	userFieldPasswordHash = "password_hash"
	userFieldRegisteredAt = "registered_at"
)

func userColumns() []string {
	return []string{
		userFieldID,
		userFieldUsername,
		userFieldPasswordHash,
		userFieldRegisteredAt,
	}
}

func scanUser(row sq.RowScanner) (*authentication.User, error) {
	var user authentication.User

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.RegisteredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &user, nil
}

func (repo *UserRepository) Insert(ctx context.Context, user *authentication.User) error {
	q := sq.Insert(tableUsers).
		Columns(userFieldUsername, userFieldPasswordHash, userFieldRegisteredAt).
		Values(user.Username, user.PasswordHash, user.RegisteredAt)

	q = q.RunWith(repo.db)

	res, err := q.ExecContext(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
			return &authentication.UserAlreadyExistsError{Username: user.Username}
		}

		return fmt.Errorf("failed to exec insert: %w", err)
	}

	user.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	return nil
}

func (repo *UserRepository) Find(ctx context.Context, userID int64) (*authentication.User, error) {
	q := sq.Select(userColumns()...).
		From(tableUsers).
		Where(sq.Eq{userFieldID: userID})

	q = q.RunWith(repo.db)

	row := q.QueryRowContext(ctx)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &authentication.UserNotFoundError{ID: userID}
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

func (repo *UserRepository) FindByUsername(ctx context.Context, username string) (*authentication.User, error) {
	q := sq.Select(userColumns()...).
		From(tableUsers).
		Where(sq.Eq{userFieldUsername: username})

	q = q.RunWith(repo.db)

	row := q.QueryRowContext(ctx)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &authentication.UserByUsernameNotFoundError{Username: username}
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}
