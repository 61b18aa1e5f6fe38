package topics_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/forum/authentication"
	"github.com/nasermirzaei89/forum/database/sqlite3"
	"github.com/nasermirzaei89/forum/meta"
	"github.com/nasermirzaei89/forum/posts"
	"github.com/nasermirzaei89/forum/topics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type usersStub struct{}

func (usersStub) GetUserData(_ context.Context, uid int64) (*authentication.UserData, error) {
	return &authentication.UserData{UID: uid, Username: "user"}, nil
}

func newTestService(t *testing.T) (*topics.BaseService, *meta.Config) {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite3.NewDB(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, sqlite3.MigrateUp(ctx, db))

	objects := sqlite3.NewObjectStore(db)
	settings := meta.NewConfig(objects)
	postsSvc := posts.NewService(sqlite3.NewPostRepository(db), objects, usersStub{})

	return topics.NewService(sqlite3.NewTopicRepository(db), postsSvc, settings), settings
}

func TestPost(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Post(ctx, topics.PostRequest{UID: 1, Title: "ab", Content: "long enough content", CategoryID: 1})

		titleErr := &topics.TitleLengthError{}
		require.ErrorAs(t, err, &titleErr)

		_, err = svc.Post(ctx, topics.PostRequest{UID: 1, Title: strings.Repeat("a", 256), Content: "long enough content", CategoryID: 1})
		require.ErrorAs(t, err, &titleErr)

		_, err = svc.Post(ctx, topics.PostRequest{UID: 1, Title: "Title", Content: "short", CategoryID: 1})

		contentErr := &topics.ContentTooShortError{}
		require.ErrorAs(t, err, &contentErr)
		assert.Equal(t, 8, contentErr.Min)
	})

	t.Run("configured minimum post length", func(t *testing.T) {
		svc, settings := newTestService(t)
		require.NoError(t, settings.Set(ctx, topics.SettingMinimumPostLength, "3"))

		_, err := svc.Post(ctx, topics.PostRequest{UID: 1, Title: "Title", Content: "short", CategoryID: 1})
		require.NoError(t, err)
	})

	t.Run("creates the topic with its main post", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.Post(ctx, topics.PostRequest{UID: 1, Title: "  Title  ", Content: "long enough content", CategoryID: 4})
		require.NoError(t, err)
		require.NotNil(t, result.MainPost)
		assert.Equal(t, "Title", result.Topic.Title)
		assert.Equal(t, result.MainPost.ID, result.Topic.MainPostID)
		assert.Equal(t, 1, result.Topic.PostCount)

		topic, err := svc.GetTopic(ctx, result.Topic.ID)
		require.NoError(t, err)
		assert.Equal(t, result.MainPost.ID, topic.MainPostID)
		assert.Equal(t, 1, topic.PostCount)
		assert.Equal(t, int64(4), topic.CategoryID)
	})
}

func TestReply(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	result, err := svc.Post(ctx, topics.PostRequest{UID: 1, Title: "Title", Content: "long enough content", CategoryID: 1})
	require.NoError(t, err)

	_, err = svc.Reply(ctx, topics.ReplyRequest{TopicID: result.Topic.ID + 1, UID: 2, Content: "a valid reply"})

	notFoundErr := &topics.TopicNotFoundError{}
	require.ErrorAs(t, err, &notFoundErr)

	_, err = svc.Reply(ctx, topics.ReplyRequest{TopicID: result.Topic.ID, UID: 2, Content: "no"})

	contentErr := &topics.ContentTooShortError{}
	require.ErrorAs(t, err, &contentErr)

	reply, err := svc.Reply(ctx, topics.ReplyRequest{TopicID: result.Topic.ID, UID: 2, Content: "a valid reply"})
	require.NoError(t, err)
	assert.Equal(t, result.Topic.ID, reply.TopicID)

	postCount, err := svc.GetTopicField(ctx, result.Topic.ID, "postcount")
	require.NoError(t, err)
	assert.Equal(t, "2", postCount)
}

func TestGetTopicPosts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	result, err := svc.Post(ctx, topics.PostRequest{UID: 1, Title: "Title", Content: "main post content", CategoryID: 1})
	require.NoError(t, err)

	tid := result.Topic.ID

	for _, content := range []string{"first reply", "second reply", "third reply"} {
		_, err := svc.Reply(ctx, topics.ReplyRequest{TopicID: tid, UID: 2, Content: content})
		require.NoError(t, err)
	}

	t.Run("oldest first", func(t *testing.T) {
		summaries, err := svc.GetTopicPosts(ctx, tid, 0, 1, 0, false)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, result.MainPost.ID, summaries[0].PID)
		assert.Contains(t, string(summaries[1].Content), "first reply")
		assert.Equal(t, "user", summaries[1].User.Username)
	})

	t.Run("newest first", func(t *testing.T) {
		summaries, err := svc.GetTopicPosts(ctx, tid, 0, 9, 0, true)
		require.NoError(t, err)
		require.Len(t, summaries, 4)
		assert.Contains(t, string(summaries[0].Content), "third reply")
		assert.Equal(t, result.MainPost.ID, summaries[3].PID)
	})

	t.Run("empty range", func(t *testing.T) {
		summaries, err := svc.GetTopicPosts(ctx, tid, 20, 27, 0, true)
		require.NoError(t, err)
		assert.Empty(t, summaries)

		summaries, err = svc.GetTopicPosts(ctx, tid, 5, 4, 0, true)
		require.NoError(t, err)
		assert.Empty(t, summaries)
	})

	t.Run("missing topic", func(t *testing.T) {
		_, err := svc.GetTopicPosts(ctx, 0, 0, 9, 0, true)

		notFoundErr := &topics.TopicNotFoundError{}
		require.ErrorAs(t, err, &notFoundErr)
	})
}

func TestGetTopicField(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	result, err := svc.Post(ctx, topics.PostRequest{UID: 3, Title: "Title", Content: "long enough content", CategoryID: 5})
	require.NoError(t, err)

	tid := result.Topic.ID

	tests := []struct {
		field    string
		expected string
	}{
		{field: "cid", expected: "5"},
		{field: "uid", expected: "3"},
		{field: "title", expected: "Title"},
		{field: "postcount", expected: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			value, err := svc.GetTopicField(ctx, tid, tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}

	_, err = svc.GetTopicField(ctx, tid, "unknown")

	unknownErr := &topics.UnknownTopicFieldError{}
	require.ErrorAs(t, err, &unknownErr)
}
