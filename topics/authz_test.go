package topics_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	authcontext "github.com/nasermirzaei89/forum/authentication/context"
	"github.com/nasermirzaei89/forum/authorization"
	"github.com/nasermirzaei89/forum/authorization/casbin"
	"github.com/nasermirzaei89/forum/posts"
	"github.com/nasermirzaei89/forum/topics"
	"github.com/stretchr/testify/require"
)

type stubService struct{}

func (s *stubService) Post(_ context.Context, req topics.PostRequest) (*topics.PostResult, error) {
	return &topics.PostResult{
		Topic:    &topics.Topic{ID: 1, CategoryID: req.CategoryID, AuthorID: req.UID, Title: req.Title},
		MainPost: &posts.Post{ID: 1, TopicID: 1, AuthorID: req.UID, Content: req.Content},
	}, nil
}

func (s *stubService) Reply(_ context.Context, req topics.ReplyRequest) (*posts.Post, error) {
	return &posts.Post{ID: 2, TopicID: req.TopicID, AuthorID: req.UID, Content: req.Content}, nil
}

func (s *stubService) GetTopic(_ context.Context, tid int64) (*topics.Topic, error) {
	return &topics.Topic{ID: tid}, nil
}

func (s *stubService) ListRecentTopics(_ context.Context, _ int) ([]*topics.Topic, error) {
	return []*topics.Topic{}, nil
}

func (s *stubService) GetTopicPosts(_ context.Context, _ int64, _, _ int, _ int64, _ bool) ([]*posts.Summary, error) {
	return []*posts.Summary{}, nil
}

func (s *stubService) GetTopicField(_ context.Context, _ int64, _ string) (string, error) {
	return "1", nil
}

func TestAuthorizationMiddleware(t *testing.T) {
	ctx := context.Background()

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "policy.csv")
	content := []byte(`p, system:authenticated, github.com/nasermirzaei89/forum/topics, *, create
p, system:authenticated, github.com/nasermirzaei89/forum/topics, *, reply
p, system:authenticated, github.com/nasermirzaei89/forum/topics, *, read
p, system:anonymous, github.com/nasermirzaei89/forum/topics, *, read
`)

	err := os.WriteFile(tmpFile, content, 0o600)
	require.NoError(t, err)

	adapter := fileadapter.NewAdapter(tmpFile)

	provider, err := casbin.NewAuthorizationProvider(adapter)
	require.NoError(t, err)

	authzSvc, err := authorization.NewService(provider)
	require.NoError(t, err)

	client := authorization.NewClient(authzSvc)
	svc := topics.NewAuthorizationMiddleware(client, &stubService{})

	var userID int64 = 7

	err = client.AddToGroup(ctx, authcontext.Subject(userID), authcontext.Authenticated)
	require.NoError(t, err)

	t.Run("anonymous", func(t *testing.T) {
		_, err := svc.Post(ctx, topics.PostRequest{UID: authcontext.Guest, Title: "title", Content: "content", CategoryID: 1})
		require.Error(t, err)

		accessDeniedErr := &authorization.AccessDeniedError{}
		require.ErrorAs(t, err, &accessDeniedErr)
		require.Equal(t, topics.ActionCreateTopic, accessDeniedErr.Action)

		_, err = svc.Reply(ctx, topics.ReplyRequest{TopicID: 1, UID: authcontext.Guest, Content: "reply"})
		require.ErrorAs(t, err, &accessDeniedErr)

		_, err = svc.GetTopicPosts(ctx, 1, 0, 9, authcontext.Guest, true)
		require.NoError(t, err)

		_, err = svc.GetTopicField(ctx, 1, "postcount")
		require.NoError(t, err)
	})

	t.Run("authenticated", func(t *testing.T) {
		_, err := svc.Post(ctx, topics.PostRequest{UID: userID, Title: "title", Content: "content", CategoryID: 1})
		require.NoError(t, err)

		_, err = svc.Reply(ctx, topics.ReplyRequest{TopicID: 1, UID: userID, Content: "reply"})
		require.NoError(t, err)

		_, err = svc.GetTopicPosts(ctx, 1, 0, 9, userID, true)
		require.NoError(t, err)
	})

	t.Run("uid argument wins over the request context", func(t *testing.T) {
		_, err := svc.Reply(authcontext.WithUID(ctx, userID), topics.ReplyRequest{TopicID: 1, UID: authcontext.Guest, Content: "reply"})

		accessDeniedErr := &authorization.AccessDeniedError{}
		require.ErrorAs(t, err, &accessDeniedErr)
	})
}
