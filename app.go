// Package forum wires the forum services, the plugins and the HTTP server
// together from the environment.
package forum

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nasermirzaei89/env"
	"github.com/nasermirzaei89/forum/authentication"
	"github.com/nasermirzaei89/forum/authorization"
	"github.com/nasermirzaei89/forum/authorization/casbin"
	"github.com/nasermirzaei89/forum/database"
	"github.com/nasermirzaei89/forum/database/redis"
	"github.com/nasermirzaei89/forum/database/sqlite3"
	"github.com/nasermirzaei89/forum/meta"
	"github.com/nasermirzaei89/forum/plugins"
	"github.com/nasermirzaei89/forum/plugins/blogcomments"
	"github.com/nasermirzaei89/forum/posts"
	"github.com/nasermirzaei89/forum/random"
	"github.com/nasermirzaei89/forum/server"
	"github.com/nasermirzaei89/forum/topics"
	"github.com/nasermirzaei89/forum/web"
)

const (
	objectStoreSQLite = "sqlite"
	objectStoreRedis  = "redis"
)

type App struct {
	server  *server.Server
	handler *web.Handler
	authSvc *authentication.Service
	db      *sql.DB
	closers []func() error
}

//go:embed policy.csv
var defaultAuthorizationPolicyContent string

// LoadEnv reads a .env file from the working directory when there is one.
func LoadEnv() {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}
}

func NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: GetLogLevelFromEnv()}

	if env.GetString("LOG_FORMAT", "text") == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func NewApp(ctx context.Context) (*App, error) {
	app := &App{
		server: newServer(),
	}

	db, err := sqlite3.NewDB(ctx, env.GetString("DB_DSN", "file::memory:?cache=shared"))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	app.db = db

	err = sqlite3.MigrateUp(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	objects, err := app.newObjectStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}

	userRepo := sqlite3.NewUserRepository(db)
	sessionRepo := sqlite3.NewSessionRepository(db)
	topicRepo := sqlite3.NewTopicRepository(db)
	postRepo := sqlite3.NewPostRepository(db)

	authzProvider, err := newAuthorizationProvider(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization provider: %w", err)
	}

	authzSvc, err := authorization.NewService(authzProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization service: %w", err)
	}

	authzClient := authorization.NewClient(authzSvc)
	authSvc := authentication.NewService(userRepo, sessionRepo, authzClient)
	app.authSvc = authSvc

	settings := meta.NewConfig(objects)
	postsSvc := posts.NewService(postRepo, objects, authSvc)

	var topicsSvc topics.Service
	topicsSvc = topics.NewService(topicRepo, postsSvc, settings)
	topicsSvc = topics.NewAuthorizationMiddleware(authzClient, topicsSvc)

	pluginManager := plugins.NewManager()

	blogCommentsPlugin, err := blogcomments.New(blogcomments.Deps{
		Objects:  objects,
		Topics:   topicsSvc,
		Posts:    postsSvc,
		Users:    authSvc,
		Settings: settings,
	}, blogCommentsFS())
	if err != nil {
		return nil, fmt.Errorf("failed to create blog comments plugin: %w", err)
	}

	err = pluginManager.Register(blogCommentsPlugin)
	if err != nil {
		return nil, fmt.Errorf("failed to register blog comments plugin: %w", err)
	}

	postsSvc.AddProfileFilter(pluginManager)

	adminUsername := env.GetString("ADMIN_USERNAME", "")
	if adminUsername != "" {
		err = authSvc.EnsureAdministrator(ctx, adminUsername, env.GetString("ADMIN_PASSWORD", ""))
		if err != nil {
			return nil, fmt.Errorf("failed to ensure administrator: %w", err)
		}
	}

	sessionName := env.GetString("SESSION_NAME", "forum-"+random.String(4))
	sessionKey := env.GetString("SESSION_KEY", random.String(32))
	cookieStore := web.NewCookieStore([]byte(sessionKey), app.server.TLS.Enabled)

	csrfAuthKeys := []byte(env.GetString("CSRF_AUTH_KEY", random.String(32)))
	csrfTrustedOrigins := env.GetStringSlice("CSRF_TRUSTED_ORIGINS", []string{})

	httpHandler, err := web.NewHandler(
		ctx,
		authSvc,
		topicsSvc,
		settings,
		pluginManager,
		cookieStore,
		sessionName,
		csrfAuthKeys,
		csrfTrustedOrigins,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	app.handler = httpHandler

	return app, nil
}

func (app *App) Run(ctx context.Context) error {
	// Handle SIGINT (CTRL+C) and SIGTERM gracefully.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer app.Close(ctx)

	purged, err := app.authSvc.PurgeExpiredSessions(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to purge expired sessions", "error", err)
	} else if purged > 0 {
		slog.InfoContext(ctx, "purged expired sessions", "count", purged)
	}

	err = app.server.Run(ctx, app.handler)
	if err != nil {
		return fmt.Errorf("failed to run server: %w", err)
	}

	return nil
}

// Close releases the connections held by the app.
func (app *App) Close(ctx context.Context) {
	for _, closeFn := range app.closers {
		err := closeFn()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close connection", "error", err)
		}
	}

	if app.db != nil {
		err := app.db.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close database", "error", err)
		}
	}
}

func (app *App) newObjectStore(ctx context.Context, db *sql.DB) (database.ObjectStore, error) {
	kind := env.GetString("DB_OBJECT_STORE", objectStoreSQLite)

	switch kind {
	case objectStoreSQLite:
		return sqlite3.NewObjectStore(db), nil
	case objectStoreRedis:
		client, err := redis.Open(ctx, env.GetString("REDIS_URL", "redis://localhost:6379/0"))
		if err != nil {
			return nil, fmt.Errorf("failed to open redis: %w", err)
		}

		app.closers = append(app.closers, client.Close)

		return redis.NewObjectStore(client, env.GetString("REDIS_KEY_PREFIX", redis.DefaultKeyPrefix)), nil
	default:
		return nil, fmt.Errorf("unknown object store %q", kind)
	}
}

func blogCommentsFS() fs.FS {
	dir := env.GetString("BLOG_COMMENTS_DIR", "")
	if dir == "" {
		return blogcomments.Embedded()
	}

	return os.DirFS(dir)
}

func newServer() *server.Server {
	server := &server.Server{
		Port: env.GetString("PORT", server.DefaultPort),
		Host: env.GetString("HOST", ""),
		TLS: server.ServerTLS{
			Enabled: env.GetBool("TLS_ENABLED", false),
			Mode:    env.GetString("TLS_MODE", server.DefaultTLSMode),
			AutoCert: &server.ServerTLSAutoCert{
				CacheDir: env.GetString("TLS_AUTOCERT_CACHE_DIR", "./cert-cache"),
				Domains:  env.GetStringSlice("TLS_AUTOCERT_DOMAINS", []string{}),
				Email:    env.GetString("TLS_AUTOCERT_EMAIL", ""),
			},
			CertFile: env.GetString("TLS_CERT_FILE", ""),
			KeyFile:  env.GetString("TLS_KEY_FILE", ""),
		},
	}

	return server
}

func GetLogLevelFromEnv() slog.Level {
	levelStr := env.GetString("LOG_LEVEL", "info")
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)

		return slog.LevelInfo
	}
}

func newAuthorizationProvider(ctx context.Context, db *sql.DB) (*casbin.AuthorizationProvider, error) {
	adapter, err := casbin.NewSQLAdapter(db, "sqlite3", "casbin_rule")
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization adapter: %w", err)
	}

	provider, err := casbin.NewAuthorizationProvider(adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization provider: %w", err)
	}

	policyContent, err := loadPolicyContent()
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization policy content: %w", err)
	}

	err = provider.AddPolicyFromCSV(ctx, policyContent)
	if err != nil {
		return nil, fmt.Errorf("failed to add authorization policy from csv: %w", err)
	}

	return provider, nil
}

func loadPolicyContent() (string, error) {
	policyFilePath := env.GetString("AUTHORIZATION_POLICY_FILE", "")

	if policyFilePath == "" {
		return defaultAuthorizationPolicyContent, nil
	}

	content, err := os.ReadFile(policyFilePath) // nolint:gosec
	if err != nil {
		return "", fmt.Errorf("failed to read policy file %q: %w", policyFilePath, err)
	}

	return string(content), nil
}
