package authentication

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	RegisteredAt time.Time
}

// UserData is the public projection of a user handed to templates, plugins
// and JSON responses.
type UserData struct {
	UID          int64     `json:"uid"`
	Username     string    `json:"username"`
	UserSlug     string    `json:"userslug"`
	Picture      string    `json:"picture"`
	IconText     string    `json:"icon:text"`
	RegisteredAt time.Time `json:"joindate"`
}

type UserRepository interface {
	Insert(ctx context.Context, user *User) (err error)
	Find(ctx context.Context, userID int64) (user *User, err error)
	FindByUsername(ctx context.Context, username string) (user *User, err error)
}

type UserNotFoundError struct {
	ID int64
}

func (err UserNotFoundError) Error() string {
	return fmt.Sprintf("user with id %d not found", err.ID)
}

type UserByUsernameNotFoundError struct {
	Username string
}

func (err UserByUsernameNotFoundError) Error() string {
	return fmt.Sprintf("user with username %q not found", err.Username)
}

type UserAlreadyExistsError struct {
	Username string
}

func (err UserAlreadyExistsError) Error() string {
	return fmt.Sprintf("user with username %q already exists", err.Username)
}

type InvalidUsernameError struct {
	Username string
}

func (err InvalidUsernameError) Error() string {
	return fmt.Sprintf("username %q must be 2 to 24 characters long", err.Username)
}

var (
	ErrCurrentUserNotFound = errors.New("current user not found")
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters long")
)
