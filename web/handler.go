package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"maps"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/forum/authentication"
	authcontext "github.com/nasermirzaei89/forum/authentication/context"
	"github.com/nasermirzaei89/forum/authorization"
	"github.com/nasermirzaei89/forum/meta"
	"github.com/nasermirzaei89/forum/plugins"
	"github.com/nasermirzaei89/forum/topics"
)

var (
	//go:embed templates/*
	templatesFS embed.FS

	//go:embed static/*
	staticFS embed.FS
)

const (
	defaultSiteTitle    = "Forum"
	recentTopicsLimit   = 20
	csrfFieldName       = "_csrf"
	forwardedProtoHTTPS = "https"
)

type Handler struct {
	mux         *http.ServeMux
	handler     http.Handler
	tpl         *template.Template
	static      fs.FS
	authSvc     *authentication.Service
	topicsSvc   topics.Service
	settings    *meta.Config
	plugins     *plugins.Manager
	cookieStore *sessions.CookieStore
	sessionName string
	scripts     []string
	adminHeader *plugins.AdminHeader
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(
	ctx context.Context,
	authSvc *authentication.Service,
	topicsSvc topics.Service,
	settings *meta.Config,
	pluginManager *plugins.Manager,
	cookieStore *sessions.CookieStore,
	sessionName string,
	csrfAuthKeys []byte,
	csrfTrustedOrigins []string,
) (*Handler, error) {
	h := &Handler{
		mux:         nil,
		handler:     nil,
		tpl:         nil,
		authSvc:     authSvc,
		topicsSvc:   topicsSvc,
		settings:    settings,
		plugins:     pluginManager,
		cookieStore: cookieStore,
		sessionName: sessionName,
		scripts:     nil,
		adminHeader: nil,
	}

	{
		tpl, err := template.New("").Funcs(h.funcs()).ParseFS(templatesFS, "templates/*.gohtml")
		if err != nil {
			return nil, fmt.Errorf("failed to parse templates: %w", err)
		}

		h.tpl = tpl
	}

	{
		static, err := fs.Sub(staticFS, "static")
		if err != nil {
			return nil, fmt.Errorf("failed to sub static fs: %w", err)
		}

		h.static = static
	}

	{
		h.scripts = h.plugins.Scripts([]string{"forum.js"})
		h.adminHeader = h.plugins.BuildAdminHeader()
	}

	{
		h.mux = &http.ServeMux{}
		h.handler = h.mux

		h.registerRoutes()

		err := h.registerPluginRoutes(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to register plugin routes: %w", err)
		}
	}

	{
		h.handler = h.authMiddleware(h.handler)

		{
			csrfMiddleware := csrf.Protect(
				csrfAuthKeys,
				csrf.TrustedOrigins(csrfTrustedOrigins),
				csrf.FieldName(csrfFieldName),
				csrf.Path("/"),
			)

			h.handler = csrfMiddleware(h.handler)
		}

		h.handler = plaintextMiddleware(h.handler)
		h.handler = recoverMiddleware(h.handler)
	}

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("/", h.HandleIndex)

	h.mux.Handle("GET /register", h.HandleRegisterPage())
	h.mux.Handle("POST /register", h.HandleRegister())
	h.mux.Handle("GET /login", h.HandleLoginPage())
	h.mux.Handle("POST /login", h.HandleLogin())
	h.mux.Handle("GET /logout", h.HandleLogoutPage())
	h.mux.Handle("POST /logout", h.HandleLogout())

	h.mux.Handle("GET /create-topic", h.HandleCreateTopicPage())
	h.mux.Handle("POST /create-topic", h.HandleCreateTopic())
	h.mux.Handle("GET /topic/{tid}", h.HandleTopicPage())
	h.mux.Handle("POST /topic/{tid}/reply", h.HandleReply())

	h.mux.Handle("GET /admin", h.AdminOnly(h.HandleAdminPage()))
	h.mux.Handle("POST /admin/settings", h.AdminOnly(h.HandleSaveSettings()))
}

func (h *Handler) funcs() template.FuncMap {
	return template.FuncMap{
		"scripts": func() []string {
			return h.scripts
		},
		"adminNav": func() []plugins.AdminNavItem {
			return h.adminHeader.Plugins
		},
	}
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if err := recover(); err != nil {
				slog.ErrorContext(
					ctx,
					"recovered from panic",
					"error",
					err,
					"stack",
					string(debug.Stack()),
				)

				http.Error(w, "internal error occurred", http.StatusInternalServerError)
			}
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}

// plaintextMiddleware marks requests that did not arrive over TLS, so the
// CSRF origin check compares against the http scheme.
func plaintextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != forwardedProtoHTTPS {
			r = csrf.PlaintextHTTPRequest(r)
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, name string, extraData map[string]any,
) {
	var currentUser *authentication.User

	if isAuthenticated(r) {
		var err error

		currentUser, err = h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to get current user", "error", err)
			http.Error(w, "Failed to get current user", http.StatusInternalServerError)

			return
		}
	}

	isAdmin, err := h.authSvc.IsAdministrator(r.Context(), authcontext.GetUID(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to check administrator", "error", err)
	}

	data := map[string]any{
		"CurrentPath":     r.URL.Path,
		"Lang":            "en",
		"Dir":             "ltr",
		"IsAuthenticated": isAuthenticated(r),
		"IsAdmin":         isAdmin,
		"CurrentUser":     currentUser,
		csrf.TemplateTag:  csrf.TemplateField(r),
	}

	maps.Copy(data, extraData)

	data["SiteTitle"] = defaultSiteTitle

	if extraData["SiteTitle"] != nil {
		data["SiteTitle"] = fmt.Sprintf("%s | %s", extraData["SiteTitle"], data["SiteTitle"])
	}

	err = h.tpl.ExecuteTemplate(w, name, data)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to render template", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}
}

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		h.HandleHomePage(w, r)

		return
	}

	h.HandleStatic(w, r)
}

// HandleStatic serves static files.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	http.FileServer(http.FS(h.static)).ServeHTTP(w, r)
}

func (h *Handler) HandleHomePage(w http.ResponseWriter, r *http.Request) {
	recentTopics, err := h.topicsSvc.ListRecentTopics(r.Context(), recentTopicsLimit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list topics", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	data := map[string]any{
		"Topics": recentTopics,
	}

	h.renderTemplate(w, r, "home-page.gohtml", data)
}

func (h *Handler) HandleRegisterPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"SiteTitle": "Register",
		}

		h.renderTemplate(w, r, "register-page.gohtml", data)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleRegister() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		username := r.FormValue("username")
		password := r.FormValue("password")

		_, err = h.authSvc.Register(r.Context(), username, password)
		if err != nil {
			var (
				userAlreadyExistsErr *authentication.UserAlreadyExistsError
				invalidUsernameErr   *authentication.InvalidUsernameError
			)

			switch {
			case errors.As(err, &userAlreadyExistsErr):
				http.Error(w, "Username already exists", http.StatusConflict)
			case errors.As(err, &invalidUsernameErr):
				http.Error(w, "Invalid username", http.StatusBadRequest)
			case errors.Is(err, authentication.ErrPasswordTooShort):
				http.Error(w, "Password is too short", http.StatusBadRequest)
			default:
				slog.ErrorContext(r.Context(), "failed to register user", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}

			return
		}

		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleLoginPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"SiteTitle": "Login",
		}

		h.renderTemplate(w, r, "login-page.gohtml", data)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleLogin() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		username := r.FormValue("username")
		password := r.FormValue("password")

		session, err := h.authSvc.Login(r.Context(), username, password)
		if err != nil {
			switch {
			case errors.Is(err, authentication.ErrInvalidCredentials):
				http.Error(w, "Invalid username or password", http.StatusUnauthorized)
			default:
				slog.ErrorContext(r.Context(), "failed to login user", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}

			return
		}

		err = h.setSessionValue(w, r, sessionIDKey, session.ID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to set session ID", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		http.Redirect(w, r, sanitizeReturnToPath(r.FormValue("return_to")), http.StatusSeeOther)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleLogoutPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"SiteTitle": "Logout",
		}

		h.renderTemplate(w, r, "logout-page.gohtml", data)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleLogout() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := authcontext.SessionIDFromContext(r.Context())
		if ok {
			err := h.authSvc.Logout(r.Context(), sessionID)
			if err != nil {
				slog.ErrorContext(r.Context(), "error on logout", "sessionId", sessionID, "error", err)
				http.Error(w, "error on logout", http.StatusInternalServerError)

				return
			}
		}

		err := h.deleteSessionValue(w, r, sessionIDKey)
		if err != nil {
			slog.ErrorContext(
				r.Context(),
				"error on deleting session value",
				"key",
				sessionIDKey,
				"error",
				err,
			)
			http.Error(w, "error on deleting session value", http.StatusInternalServerError)

			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleCreateTopicPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"SiteTitle": "Create Topic",
		}

		h.renderTemplate(w, r, "create-topic-page.gohtml", data)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleCreateTopic() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		cid, err := strconv.ParseInt(r.FormValue("cid"), 10, 64)
		if err != nil {
			cid = 1
		}

		result, err := h.topicsSvc.Post(r.Context(), topics.PostRequest{
			UID:        authcontext.GetUID(r.Context()),
			Title:      r.FormValue("title"),
			Content:    r.FormValue("content"),
			CategoryID: cid,
		})
		if err != nil {
			writeTopicError(w, r, err)

			return
		}

		http.Redirect(w, r, "/topic/"+strconv.FormatInt(result.Topic.ID, 10), http.StatusSeeOther)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleTopicPage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := authcontext.GetUID(r.Context())

		tid, err := strconv.ParseInt(r.PathValue("tid"), 10, 64)
		if err != nil {
			http.Error(w, "Topic not found", http.StatusNotFound)

			return
		}

		topic, err := h.topicsSvc.GetTopic(r.Context(), tid)
		if err != nil {
			writeTopicError(w, r, err)

			return
		}

		topicPosts, err := h.topicsSvc.GetTopicPosts(r.Context(), tid, 0, topic.PostCount-1, uid, false)
		if err != nil {
			writeTopicError(w, r, err)

			return
		}

		data := map[string]any{
			"SiteTitle": topic.Title,
			"Topic":     topic,
			"Posts":     topicPosts,
		}

		h.renderTemplate(w, r, "topic-page.gohtml", data)
	})
}

func (h *Handler) HandleReply() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid, err := strconv.ParseInt(r.PathValue("tid"), 10, 64)
		if err != nil {
			http.Error(w, "Topic not found", http.StatusNotFound)

			return
		}

		err = r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		_, err = h.topicsSvc.Reply(r.Context(), topics.ReplyRequest{
			TopicID: tid,
			UID:     authcontext.GetUID(r.Context()),
			Content: r.FormValue("content"),
		})
		if err != nil {
			writeTopicError(w, r, err)

			return
		}

		http.Redirect(w, r, "/topic/"+strconv.FormatInt(tid, 10), http.StatusSeeOther)
	})

	return h.AuthenticatedOnly(hf)
}

func writeTopicError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		topicNotFoundErr *topics.TopicNotFoundError
		contentErr       *topics.ContentTooShortError
		titleErr         *topics.TitleLengthError
		accessDeniedErr  *authorization.AccessDeniedError
	)

	switch {
	case errors.As(err, &topicNotFoundErr):
		http.Error(w, "Topic not found", http.StatusNotFound)
	case errors.As(err, &contentErr):
		http.Error(w, contentErr.Error(), http.StatusBadRequest)
	case errors.As(err, &titleErr):
		http.Error(w, titleErr.Error(), http.StatusBadRequest)
	case errors.As(err, &accessDeniedErr):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		slog.ErrorContext(r.Context(), "failed to handle topic request", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
