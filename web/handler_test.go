package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/forum/authentication"
	"github.com/nasermirzaei89/forum/authorization"
	"github.com/nasermirzaei89/forum/authorization/casbin"
	"github.com/nasermirzaei89/forum/database/sqlite3"
	"github.com/nasermirzaei89/forum/meta"
	"github.com/nasermirzaei89/forum/plugins"
	"github.com/nasermirzaei89/forum/plugins/blogcomments"
	"github.com/nasermirzaei89/forum/posts"
	"github.com/nasermirzaei89/forum/topics"
	"github.com/nasermirzaei89/forum/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSessionName = "forum-test"
	testPolicy      = `p, system:anonymous, github.com/nasermirzaei89/forum/topics, *, read
p, system:authenticated, github.com/nasermirzaei89/forum/topics, *, read
p, system:authenticated, github.com/nasermirzaei89/forum/topics, *, reply
p, system:authenticated, github.com/nasermirzaei89/forum/topics, *, create
`
)

type testForum struct {
	handler     http.Handler
	authSvc     *authentication.Service
	topicsSvc   topics.Service
	postsSvc    *posts.Service
	settings    *meta.Config
	cookieStore *sessions.CookieStore
}

func newTestForum(t *testing.T) *testForum {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite3.NewDB(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, sqlite3.MigrateUp(ctx, db))

	authzProvider, err := casbin.NewAuthorizationProvider(stringadapter.NewAdapter(testPolicy))
	require.NoError(t, err)

	authzSvc, err := authorization.NewService(authzProvider)
	require.NoError(t, err)

	authzClient := authorization.NewClient(authzSvc)
	objects := sqlite3.NewObjectStore(db)
	authSvc := authentication.NewService(sqlite3.NewUserRepository(db), sqlite3.NewSessionRepository(db), authzClient)
	settings := meta.NewConfig(objects)
	postsSvc := posts.NewService(sqlite3.NewPostRepository(db), objects, authSvc)

	var topicsSvc topics.Service
	topicsSvc = topics.NewService(sqlite3.NewTopicRepository(db), postsSvc, settings)
	topicsSvc = topics.NewAuthorizationMiddleware(authzClient, topicsSvc)

	plugin, err := blogcomments.New(blogcomments.Deps{
		Objects:  objects,
		Topics:   topicsSvc,
		Posts:    postsSvc,
		Users:    authSvc,
		Settings: settings,
	}, nil)
	require.NoError(t, err)

	manager := plugins.NewManager()
	require.NoError(t, manager.Register(plugin))
	postsSvc.AddProfileFilter(manager)

	cookieStore := web.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), false)

	handler, err := web.NewHandler(
		ctx,
		authSvc,
		topicsSvc,
		settings,
		manager,
		cookieStore,
		testSessionName,
		[]byte("abcdef0123456789abcdef0123456789"),
		nil,
	)
	require.NoError(t, err)

	return &testForum{
		handler:     handler,
		authSvc:     authSvc,
		topicsSvc:   topicsSvc,
		postsSvc:    postsSvc,
		settings:    settings,
		cookieStore: cookieStore,
	}
}

// login registers a user, opens a session for it and returns the session
// cookie.
func (f *testForum) login(t *testing.T, username string, admin bool) (*authentication.User, *http.Cookie) {
	t.Helper()

	ctx := context.Background()

	if admin {
		require.NoError(t, f.authSvc.EnsureAdministrator(ctx, username, "secret-password"))
	} else {
		_, err := f.authSvc.Register(ctx, username, "secret-password")
		require.NoError(t, err)
	}

	session, err := f.authSvc.Login(ctx, username, "secret-password")
	require.NoError(t, err)

	user, err := f.authSvc.GetUser(ctx, session.UserID)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	cookieSession, err := f.cookieStore.Get(r, testSessionName)
	require.NoError(t, err)

	cookieSession.Values["sessionId"] = session.ID
	require.NoError(t, cookieSession.Save(r, rec))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	return user, cookies[0]
}

func (f *testForum) get(target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != nil {
		r.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)

	return rec
}

func TestHomePage(t *testing.T) {
	f := newTestForum(t)

	rec := f.get("/", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `<script src="/forum.js"></script>`)
	assert.Contains(t, body, `<script src="/plugins/nodebb-plugin-blog-comments/lib/main.js"></script>`)
	assert.Contains(t, body, "No topics yet.")
}

func TestStaticFiles(t *testing.T) {
	f := newTestForum(t)

	rec := f.get("/plugins/nodebb-plugin-blog-comments/lib/main.js", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nodebb/comments")

	rec = f.get("/style.css", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminArea(t *testing.T) {
	f := newTestForum(t)

	t.Run("guest is sent to login", func(t *testing.T) {
		rec := f.get("/admin", nil)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("regular user is forbidden", func(t *testing.T) {
		_, cookie := f.login(t, "alice", false)

		rec := f.get("/admin/plugins/blog-comments", cookie)

		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("administrator", func(t *testing.T) {
		_, cookie := f.login(t, "root", true)

		rec := f.get("/admin", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `href="/admin/plugins/blog-comments"`)

		require.NoError(t, f.settings.Set(context.Background(), blogcomments.SettingName, "My Blog"))

		rec = f.get("/admin/plugins/blog-comments", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="My Blog"`)
		assert.Contains(t, rec.Body.String(), `name="_csrf"`)
	})
}

func TestPostWithoutCSRFToken(t *testing.T) {
	f := newTestForum(t)

	r := httptest.NewRequest(http.MethodPost, "/comments/reply", strings.NewReader(url.Values{
		"content": {"a long enough reply"},
		"tid":     {"1"},
		"url":     {"https://blog.example.com/post"},
	}.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBlogComments(t *testing.T) {
	ctx := context.Background()
	f := newTestForum(t)

	admin, cookie := f.login(t, "root", true)

	require.NoError(t, f.settings.SetMany(ctx, map[string]string{
		blogcomments.SettingURL:  "https://blog.example.com",
		blogcomments.SettingName: "My Blog",
	}))

	t.Run("unpublished article", func(t *testing.T) {
		rec := f.get("/comments/get/article-1", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://blog.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

		var data map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&data))
		assert.Nil(t, data["tid"])
		assert.Equal(t, false, data["isLoggedIn"])
	})

	result, err := f.topicsSvc.Post(ctx, topics.PostRequest{
		UID:        admin.ID,
		Title:      "Article",
		Content:    "The body of the article",
		CategoryID: 1,
	})
	require.NoError(t, err)

	require.NoError(t, f.postsSvc.SetPostField(ctx, result.MainPost.ID, blogcomments.PostFieldURL, "https://blog.example.com/article"))

	_, err = f.topicsSvc.Reply(ctx, topics.ReplyRequest{TopicID: result.Topic.ID, UID: admin.ID, Content: "first comment here"})
	require.NoError(t, err)

	t.Run("topic page shows the linkback", func(t *testing.T) {
		rec := f.get("/topic/"+strconv.FormatInt(result.Topic.ID, 10), cookie)

		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, "first comment here")
		assert.Contains(t, body, `Posted from <strong><a href="https://blog.example.com/article" target="blank">My Blog</a></strong>`)
	})
}
