package topics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nasermirzaei89/forum/posts"
)

const (
	minTitleLength           = 3
	maxTitleLength           = 255
	defaultMinimumPostLength = 8
	defaultRecentTopicsLimit = 20

	SettingMinimumPostLength = "minimumPostLength"
)

type SettingsReader interface {
	GetInt(ctx context.Context, key string, defaultValue int) (int, error)
}

type BaseService struct {
	topicRepo TopicRepository
	postsSvc  *posts.Service
	settings  SettingsReader
}

var _ Service = (*BaseService)(nil)

func NewService(topicRepo TopicRepository, postsSvc *posts.Service, settings SettingsReader) *BaseService {
	return &BaseService{
		topicRepo: topicRepo,
		postsSvc:  postsSvc,
		settings:  settings,
	}
}

func (svc *BaseService) Post(ctx context.Context, req PostRequest) (*PostResult, error) {
	title := strings.TrimSpace(req.Title)

	if n := utf8.RuneCountInString(title); n < minTitleLength || n > maxTitleLength {
		return nil, &TitleLengthError{Min: minTitleLength, Max: maxTitleLength}
	}

	err := svc.checkContent(ctx, req.Content)
	if err != nil {
		return nil, err
	}

	topic := &Topic{
		CategoryID: req.CategoryID,
		AuthorID:   req.UID,
		Title:      title,
	}

	err = svc.topicRepo.Insert(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to insert topic: %w", err)
	}

	mainPost, err := svc.addPost(ctx, topic.ID, req.UID, req.Content)
	if err != nil {
		return nil, err
	}

	err = svc.topicRepo.SetMainPost(ctx, topic.ID, mainPost.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to set main post: %w", err)
	}

	topic.MainPostID = mainPost.ID
	topic.PostCount = 1
	topic.CreatedAt = mainPost.CreatedAt

	return &PostResult{Topic: topic, MainPost: mainPost}, nil
}

func (svc *BaseService) Reply(ctx context.Context, req ReplyRequest) (*posts.Post, error) {
	_, err := svc.GetTopic(ctx, req.TopicID)
	if err != nil {
		return nil, err
	}

	err = svc.checkContent(ctx, req.Content)
	if err != nil {
		return nil, err
	}

	return svc.addPost(ctx, req.TopicID, req.UID, req.Content)
}

func (svc *BaseService) addPost(ctx context.Context, tid, uid int64, content string) (*posts.Post, error) {
	post, err := svc.postsSvc.CreatePost(ctx, posts.CreatePostRequest{
		TopicID:  tid,
		AuthorID: uid,
		Content:  content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	err = svc.topicRepo.IncrementPostCount(ctx, tid, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to increment post count: %w", err)
	}

	return post, nil
}

func (svc *BaseService) checkContent(ctx context.Context, content string) error {
	minLength, err := svc.settings.GetInt(ctx, SettingMinimumPostLength, defaultMinimumPostLength)
	if err != nil {
		return fmt.Errorf("failed to get minimum post length: %w", err)
	}

	if utf8.RuneCountInString(strings.TrimSpace(content)) < minLength {
		return &ContentTooShortError{Min: minLength}
	}

	return nil
}

func (svc *BaseService) GetTopic(ctx context.Context, tid int64) (*Topic, error) {
	topic, err := svc.topicRepo.Find(ctx, tid)
	if err != nil {
		return nil, fmt.Errorf("failed to find topic: %w", err)
	}

	return topic, nil
}

func (svc *BaseService) ListRecentTopics(ctx context.Context, limit int) ([]*Topic, error) {
	if limit <= 0 {
		limit = defaultRecentTopicsLimit
	}

	topics, err := svc.topicRepo.List(ctx, &ListTopicsParams{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}

	return topics, nil
}

// GetTopicPosts returns the display summaries of the posts of a topic within
// the inclusive index range [start, stop].
func (svc *BaseService) GetTopicPosts(
	ctx context.Context,
	tid int64,
	start, stop int,
	_ int64,
	reverse bool,
) ([]*posts.Summary, error) {
	_, err := svc.GetTopic(ctx, tid)
	if err != nil {
		return nil, err
	}

	list, err := svc.postsSvc.ListTopicPosts(ctx, tid, start, stop, reverse)
	if err != nil {
		return nil, fmt.Errorf("failed to list topic posts: %w", err)
	}

	summaries, err := svc.postsSvc.Summarize(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize topic posts: %w", err)
	}

	return summaries, nil
}

// GetTopicField returns a single topic attribute in its stored text form.
func (svc *BaseService) GetTopicField(ctx context.Context, tid int64, field string) (string, error) {
	topic, err := svc.GetTopic(ctx, tid)
	if err != nil {
		return "", err
	}

	switch field {
	case "tid":
		return strconv.FormatInt(topic.ID, 10), nil
	case "cid":
		return strconv.FormatInt(topic.CategoryID, 10), nil
	case "uid":
		return strconv.FormatInt(topic.AuthorID, 10), nil
	case "title":
		return topic.Title, nil
	case "mainPid":
		return strconv.FormatInt(topic.MainPostID, 10), nil
	case "postcount":
		return strconv.Itoa(topic.PostCount), nil
	case "timestamp":
		return strconv.FormatInt(topic.CreatedAt.UnixMilli(), 10), nil
	default:
		return "", &UnknownTopicFieldError{Field: field}
	}
}
