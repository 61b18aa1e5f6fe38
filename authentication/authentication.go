package authentication

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	authcontext "github.com/nasermirzaei89/forum/authentication/context"
	"github.com/nasermirzaei89/forum/authorization"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLength = 2
	maxUsernameLength = 24
	minPasswordLength = 6
)

type Service struct {
	userRepo    UserRepository
	sessionRepo SessionRepository
	authzClient *authorization.Client
}

func NewService(userRepo UserRepository, sessionRepo SessionRepository, authzClient *authorization.Client) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		authzClient: authzClient,
	}
}

func HashPassword(password string) (string, error) {
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(bcryptHash), nil
}

func (svc *Service) Register(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)

	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return nil, &InvalidUsernameError{Username: username}
	}

	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Username:     username,
		PasswordHash: passwordHash,
		RegisteredAt: time.Now(),
	}

	err = svc.userRepo.Insert(ctx, user)
	if err != nil {
		var alreadyExistsErr *UserAlreadyExistsError
		if errors.As(err, &alreadyExistsErr) {
			return nil, alreadyExistsErr
		}

		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	err = svc.authzClient.AddToGroup(ctx, authcontext.Subject(user.ID), authcontext.Authenticated)
	if err != nil {
		return nil, fmt.Errorf("failed to add user to authenticated group: %w", err)
	}

	return user, nil
}

// EnsureAdministrator makes sure the named user exists and belongs to the
// administrators group. It is used to bootstrap a fresh forum.
func (svc *Service) EnsureAdministrator(ctx context.Context, username, password string) error {
	user, err := svc.userRepo.FindByUsername(ctx, username)
	if err != nil {
		var notFoundErr *UserByUsernameNotFoundError
		if !errors.As(err, &notFoundErr) {
			return fmt.Errorf("failed to find user by username: %w", err)
		}

		user, err = svc.Register(ctx, username, password)
		if err != nil {
			return fmt.Errorf("failed to register administrator: %w", err)
		}
	}

	err = svc.authzClient.AddToGroup(ctx, authcontext.Subject(user.ID), authcontext.Administrators)
	if err != nil {
		return fmt.Errorf("failed to add user to administrators group: %w", err)
	}

	return nil
}

var ErrInvalidCredentials = errors.New("invalid credentials")

const defaultSessionDuration = 30 * 24 * time.Hour

func (svc *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := svc.userRepo.FindByUsername(ctx, username)
	if err != nil {
		var notFoundErr *UserByUsernameNotFoundError
		if errors.As(err, &notFoundErr) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	timeNow := time.Now()

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: timeNow,
		ExpiresAt: timeNow.Add(defaultSessionDuration),
	}

	err = svc.sessionRepo.Insert(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (svc *Service) Logout(ctx context.Context, sessionID string) error {
	err := svc.sessionRepo.Delete(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (svc *Service) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := svc.sessionRepo.Find(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if session.ExpiresAt.Before(time.Now()) {
		err = svc.sessionRepo.Delete(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}

		return nil, &SessionExpiredError{ID: sessionID}
	}

	return session, nil
}

// PurgeExpiredSessions removes sessions that can no longer be used.
func (svc *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	deleted, err := svc.sessionRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return deleted, nil
}

func (svc *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	user, err := svc.userRepo.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}

	user.PasswordHash = "" // clear password hash before returning user

	return user, nil
}

func (svc *Service) GetCurrentUser(ctx context.Context) (*User, error) {
	uid := authcontext.GetUID(ctx)
	if uid == authcontext.Guest {
		return nil, ErrCurrentUserNotFound
	}

	user, err := svc.GetUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return user, nil
}

// GetUserData returns the public data of a user. The guest uid yields a
// placeholder record instead of an error.
func (svc *Service) GetUserData(ctx context.Context, uid int64) (*UserData, error) {
	if uid == authcontext.Guest {
		return guestUserData(), nil
	}

	user, err := svc.GetUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return newUserData(user), nil
}

func (svc *Service) IsAdministrator(ctx context.Context, uid int64) (bool, error) {
	if uid == authcontext.Guest {
		return false, nil
	}

	isAdmin, err := svc.authzClient.InGroup(ctx, authcontext.Subject(uid), authcontext.Administrators)
	if err != nil {
		return false, fmt.Errorf("failed to check administrators group: %w", err)
	}

	return isAdmin, nil
}

func guestUserData() *UserData {
	return &UserData{
		UID:      authcontext.Guest,
		Username: "Guest",
		UserSlug: "",
		IconText: "?",
	}
}

func newUserData(user *User) *UserData {
	data := &UserData{
		UID:          user.ID,
		Username:     user.Username,
		UserSlug:     slugify(user.Username),
		RegisteredAt: user.RegisteredAt,
	}

	if r, _ := utf8.DecodeRuneInString(user.Username); r != utf8.RuneError {
		data.IconText = strings.ToUpper(string(r))
	}

	return data
}

func slugify(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
