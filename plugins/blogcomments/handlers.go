package blogcomments

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/nasermirzaei89/forum/authentication"
	authcontext "github.com/nasermirzaei89/forum/authentication/context"
	"github.com/nasermirzaei89/forum/database"
	"github.com/nasermirzaei89/forum/plugins"
	"github.com/nasermirzaei89/forum/posts"
	"github.com/nasermirzaei89/forum/topics"
	"golang.org/x/sync/errgroup"
)

const (
	postsPerPage    = 10
	lastPostPerPage = 9

	errOnlyAdministrators = "Only Administrators can publish articles"
	errUnableToPost       = "Unable to post topic"
)

type commentData struct {
	Posts      []*posts.Summary         `json:"posts"`
	PostCount  *int                     `json:"postCount"`
	User       *authentication.UserData `json:"user"`
	Template   string                   `json:"template"`
	Token      string                   `json:"token"`
	IsAdmin    *bool                    `json:"isAdmin"`
	IsLoggedIn bool                     `json:"isLoggedIn"`
	TID        *int64                   `json:"tid"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// pageRange returns the inclusive post index range of a comments page.
func pageRange(pagination int) (start, stop int) {
	return pagination * postsPerPage, lastPostPerPage + pagination*lastPostPerPage
}

// topicID resolves the topic that holds the comments of commentID.
func (p *Plugin) topicID(r *http.Request, commentID string) (int64, bool) {
	value, err := p.deps.Objects.GetObjectField(r.Context(), objectKey, commentID)
	if err != nil {
		var notFoundErr *database.FieldNotFoundError
		if !errors.As(err, &notFoundErr) {
			slog.ErrorContext(r.Context(), "failed to get topic id by comment id", "commentId", commentID, "error", err)
		}

		return 0, false
	}

	tid, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to parse topic id", "commentId", commentID, "value", value, "error", err)

		return 0, false
	}

	return tid, true
}

func (p *Plugin) HandleGetCommentData() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		commentID := r.PathValue("id")
		uid := authcontext.GetUID(ctx)

		pagination, err := strconv.Atoi(r.PathValue("pagination"))
		if err != nil || pagination < 0 {
			pagination = 0
		}

		tid, found := p.topicID(r, commentID)

		data := commentData{
			Template:   p.commentsTemplate,
			Token:      csrf.Token(r),
			IsLoggedIn: uid != authcontext.Guest,
		}

		if found {
			data.TID = &tid
		}

		start, stop := pageRange(pagination)

		var g errgroup.Group

		g.Go(func() error {
			topicPosts, err := p.deps.Topics.GetTopicPosts(ctx, tid, start, stop, uid, true)
			if err != nil {
				return err
			}

			data.Posts = topicPosts

			return nil
		})

		g.Go(func() error {
			value, err := p.deps.Topics.GetTopicField(ctx, tid, "postcount")
			if err != nil {
				return err
			}

			postCount, err := strconv.Atoi(value)
			if err != nil {
				return err
			}

			data.PostCount = &postCount

			return nil
		})

		g.Go(func() error {
			user, err := p.deps.Users.GetUserData(ctx, uid)
			if err != nil {
				return err
			}

			data.User = user

			return nil
		})

		g.Go(func() error {
			isAdmin, err := p.deps.Users.IsAdministrator(ctx, uid)
			if err != nil {
				return err
			}

			data.IsAdmin = &isAdmin

			return nil
		})

		err = g.Wait()
		if err != nil {
			if found {
				slog.ErrorContext(ctx, "failed to get comment data", "commentId", commentID, "tid", tid, "error", err)
			} else {
				slog.DebugContext(ctx, "comment thread has no topic yet", "commentId", commentID, "error", err)
			}
		}

		origin, err := p.deps.Settings.Get(ctx, SettingURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to get blog url", "error", err)
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, X-HTTP-Method-Override, Content-Type, Accept")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		writeJSON(w, r, http.StatusOK, data)
	})
}

func (p *Plugin) HandleReplyToComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		articleURL := r.PostFormValue("url")

		tid, err := strconv.ParseInt(r.PostFormValue("tid"), 10, 64)
		if err != nil {
			http.Redirect(w, r, articleURL+"?error="+url.QueryEscape("Invalid topic id")+commentsAnchor, http.StatusSeeOther)

			return
		}

		_, err = p.deps.Topics.Reply(ctx, topics.ReplyRequest{
			TopicID: tid,
			UID:     authcontext.GetUID(ctx),
			Content: r.PostFormValue("content"),
		})
		if err != nil {
			message := errorMessage(ctx, err)

			http.Redirect(w, r, articleURL+"?error="+url.QueryEscape(message)+commentsAnchor, http.StatusSeeOther)

			return
		}

		http.Redirect(w, r, articleURL+commentsAnchor, http.StatusSeeOther)
	})
}

func (p *Plugin) HandlePublishArticle() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		uid := authcontext.GetUID(ctx)

		isAdmin, err := p.deps.Users.IsAdministrator(ctx, uid)
		if err != nil {
			slog.ErrorContext(ctx, "failed to check administrator", "uid", uid, "error", err)
		}

		if !isAdmin {
			writeJSON(w, r, http.StatusForbidden, errorResponse{Error: errOnlyAdministrators})

			return
		}

		cid, err := p.deps.Settings.GetInt(ctx, SettingCID, defaultCID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to get blog category", "error", err)

			cid = defaultCID
		}

		articleURL := r.PostFormValue("url")
		commentID := r.PostFormValue("id")

		result, err := p.deps.Topics.Post(ctx, topics.PostRequest{
			UID:        uid,
			Title:      r.PostFormValue("title"),
			Content:    r.PostFormValue("markdown"),
			CategoryID: int64(cid),
		})
		if err != nil {
			writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: errorMessage(ctx, err)})

			return
		}

		if result == nil || result.Topic == nil || result.MainPost == nil || result.Topic.ID == 0 {
			writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: errUnableToPost})

			return
		}

		err = p.deps.Posts.SetPostField(ctx, result.MainPost.ID, PostFieldURL, articleURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to set article url of post", "pid", result.MainPost.ID, "error", err)
			writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: errUnableToPost})

			return
		}

		err = p.deps.Objects.SetObjectField(ctx, objectKey, commentID, strconv.FormatInt(result.Topic.ID, 10))
		if err != nil {
			slog.ErrorContext(ctx, "failed to map comment id to topic", "commentId", commentID, "tid", result.Topic.ID, "error", err)
			writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: errUnableToPost})

			return
		}

		referer := r.Referer()
		if referer == "" {
			referer = "/"
		}

		http.Redirect(w, r, referer+commentsAnchor, http.StatusSeeOther)
	})
}

// RenderAdminPage renders the settings form of the plugin for the admin area.
func (p *Plugin) RenderAdminPage(r *http.Request) (*plugins.AdminPage, error) {
	ctx := r.Context()

	settings := make(map[string]string, 3)

	for _, key := range []string{SettingURL, SettingName, SettingCID} {
		value, err := p.deps.Settings.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		settings[key] = value
	}

	var buf bytes.Buffer

	err := p.adminTemplate.Execute(&buf, map[string]any{
		"Settings":  settings,
		"CSRFField": csrf.TemplateField(r),
		"PluginID":  p.manifest.ID,
	})
	if err != nil {
		return nil, err
	}

	return &plugins.AdminPage{
		Route:   adminRoute,
		Name:    adminName,
		Content: template.HTML(buf.String()), // nolint:gosec
	}, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
