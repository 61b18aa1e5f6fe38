package authentication_test

import (
	"context"
	"testing"
	"time"

	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"github.com/google/uuid"
	"github.com/nasermirzaei89/forum/authentication"
	authcontext "github.com/nasermirzaei89/forum/authentication/context"
	"github.com/nasermirzaei89/forum/authorization"
	"github.com/nasermirzaei89/forum/authorization/casbin"
	"github.com/nasermirzaei89/forum/database/sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc         *authentication.Service
	sessionRepo *sqlite3.SessionRepository
	authzClient *authorization.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite3.NewDB(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, sqlite3.MigrateUp(ctx, db))

	provider, err := casbin.NewAuthorizationProvider(stringadapter.NewAdapter("p, administrators, github.com/nasermirzaei89/forum/topics, *, read"))
	require.NoError(t, err)

	authzSvc, err := authorization.NewService(provider)
	require.NoError(t, err)

	authzClient := authorization.NewClient(authzSvc)
	sessionRepo := sqlite3.NewSessionRepository(db)

	return &fixture{
		svc:         authentication.NewService(sqlite3.NewUserRepository(db), sessionRepo, authzClient),
		sessionRepo: sessionRepo,
		authzClient: authzClient,
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("invalid username", func(t *testing.T) {
		_, err := f.svc.Register(ctx, "a", "secret-password")

		invalidErr := &authentication.InvalidUsernameError{}
		require.ErrorAs(t, err, &invalidErr)
	})

	t.Run("short password", func(t *testing.T) {
		_, err := f.svc.Register(ctx, "alice", "123")
		require.ErrorIs(t, err, authentication.ErrPasswordTooShort)
	})

	t.Run("success", func(t *testing.T) {
		user, err := f.svc.Register(ctx, "  alice  ", "secret-password")
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
		assert.Equal(t, "alice", user.Username)

		inGroup, err := f.authzClient.InGroup(ctx, authcontext.Subject(user.ID), authcontext.Authenticated)
		require.NoError(t, err)
		assert.True(t, inGroup)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := f.svc.Register(ctx, "alice", "secret-password")

		existsErr := &authentication.UserAlreadyExistsError{}
		require.ErrorAs(t, err, &existsErr)
	})
}

func TestLoginAndSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.svc.Register(ctx, "bob", "secret-password")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "bob", "wrong-password")
	require.ErrorIs(t, err, authentication.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody", "secret-password")
	require.ErrorIs(t, err, authentication.ErrInvalidCredentials)

	session, err := f.svc.Login(ctx, "bob", "secret-password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	found, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, found.ID)

	require.NoError(t, f.svc.Logout(ctx, session.ID))

	_, err = f.svc.GetSession(ctx, session.ID)

	notFoundErr := &authentication.SessionNotFoundError{}
	require.ErrorAs(t, err, &notFoundErr)

	t.Run("expired session", func(t *testing.T) {
		expired := &authentication.Session{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			CreatedAt: time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(-time.Hour),
		}
		require.NoError(t, f.sessionRepo.Insert(ctx, expired))

		_, err := f.svc.GetSession(ctx, expired.ID)

		expiredErr := &authentication.SessionExpiredError{}
		require.ErrorAs(t, err, &expiredErr)

		_, err = f.sessionRepo.Find(ctx, expired.ID)
		require.ErrorAs(t, err, &notFoundErr)
	})

	t.Run("purge", func(t *testing.T) {
		expired := &authentication.Session{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			CreatedAt: time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(-time.Hour),
		}
		require.NoError(t, f.sessionRepo.Insert(ctx, expired))

		purged, err := f.svc.PurgeExpiredSessions(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), purged)
	})
}

func TestUserData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	guest, err := f.svc.GetUserData(ctx, authcontext.Guest)
	require.NoError(t, err)
	assert.Equal(t, authcontext.Guest, guest.UID)
	assert.Equal(t, "Guest", guest.Username)

	user, err := f.svc.Register(ctx, "Jane Doe", "secret-password")
	require.NoError(t, err)

	data, err := f.svc.GetUserData(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, data.UID)
	assert.Equal(t, "jane-doe", data.UserSlug)
	assert.Equal(t, "J", data.IconText)

	_, err = f.svc.GetUserData(ctx, user.ID+100)

	notFoundErr := &authentication.UserNotFoundError{}
	require.ErrorAs(t, err, &notFoundErr)
}

func TestIsAdministrator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	isAdmin, err := f.svc.IsAdministrator(ctx, authcontext.Guest)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	user, err := f.svc.Register(ctx, "carol", "secret-password")
	require.NoError(t, err)

	isAdmin, err = f.svc.IsAdministrator(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	require.NoError(t, f.svc.EnsureAdministrator(ctx, "carol", "ignored-password"))

	isAdmin, err = f.svc.IsAdministrator(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	require.NoError(t, f.svc.EnsureAdministrator(ctx, "root", "secret-password"))

	session, err := f.svc.Login(ctx, "root", "secret-password")
	require.NoError(t, err)

	isAdmin, err = f.svc.IsAdministrator(ctx, session.UserID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestGetCurrentUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.GetCurrentUser(ctx)
	require.ErrorIs(t, err, authentication.ErrCurrentUserNotFound)

	user, err := f.svc.Register(ctx, "dave", "secret-password")
	require.NoError(t, err)

	current, err := f.svc.GetCurrentUser(authcontext.WithUID(ctx, user.ID))
	require.NoError(t, err)
	assert.Equal(t, "dave", current.Username)
	assert.Empty(t, current.PasswordHash)
}
