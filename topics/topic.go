package topics

import (
	"context"
	"fmt"
	"time"

	"github.com/nasermirzaei89/forum/posts"
)

type Topic struct {
	ID         int64
	CategoryID int64
	AuthorID   int64
	Title      string
	MainPostID int64
	PostCount  int
	CreatedAt  time.Time
}

type TopicRepository interface {
	Insert(ctx context.Context, topic *Topic) (err error)
	Find(ctx context.Context, topicID int64) (topic *Topic, err error)
	List(ctx context.Context, params *ListTopicsParams) (topics []*Topic, err error)
	SetMainPost(ctx context.Context, topicID, postID int64) (err error)
	IncrementPostCount(ctx context.Context, topicID int64, delta int) (err error)
}

type ListTopicsParams struct {
	Limit int
}

type PostRequest struct {
	UID        int64
	Title      string
	Content    string
	CategoryID int64
}

// PostResult is the outcome of creating a topic together with its first post.
type PostResult struct {
	Topic    *Topic
	MainPost *posts.Post
}

type ReplyRequest struct {
	TopicID int64
	UID     int64
	Content string
}

// Service is the topic API used by the web layer and by plugins.
type Service interface {
	Post(ctx context.Context, req PostRequest) (*PostResult, error)
	Reply(ctx context.Context, req ReplyRequest) (*posts.Post, error)
	GetTopic(ctx context.Context, tid int64) (*Topic, error)
	ListRecentTopics(ctx context.Context, limit int) ([]*Topic, error)
	GetTopicPosts(ctx context.Context, tid int64, start, stop int, uid int64, reverse bool) ([]*posts.Summary, error)
	GetTopicField(ctx context.Context, tid int64, field string) (string, error)
}

type TopicNotFoundError struct {
	ID int64
}

func (err TopicNotFoundError) Error() string {
	return fmt.Sprintf("topic with id %d not found", err.ID)
}

type UnknownTopicFieldError struct {
	Field string
}

func (err UnknownTopicFieldError) Error() string {
	return fmt.Sprintf("unknown topic field %q", err.Field)
}

type ContentTooShortError struct {
	Min int
}

func (err ContentTooShortError) Error() string {
	return fmt.Sprintf("Please enter a longer post. Posts should contain at least %d character(s).", err.Min)
}

type TitleLengthError struct {
	Min int
	Max int
}

func (err TitleLengthError) Error() string {
	return fmt.Sprintf("Please enter a title between %d and %d character(s).", err.Min, err.Max)
}
