package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/nasermirzaei89/forum/authentication"
	"github.com/nasermirzaei89/forum/database"
)

type UserDataGetter interface {
	GetUserData(ctx context.Context, uid int64) (*authentication.UserData, error)
}

type Service struct {
	postRepo PostRepository
	objects  database.ObjectStore
	users    UserDataGetter
	renderer *Renderer

	mu      sync.RWMutex
	filters []ProfileFilter
}

func NewService(postRepo PostRepository, objects database.ObjectStore, users UserDataGetter) *Service {
	return &Service{
		postRepo: postRepo,
		objects:  objects,
		users:    users,
		renderer: NewRenderer(),
	}
}

// AddProfileFilter registers a filter that runs on every summarized post.
func (svc *Service) AddProfileFilter(filter ProfileFilter) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.filters = append(svc.filters, filter)
}

type CreatePostRequest struct {
	TopicID  int64
	AuthorID int64
	Content  string
}

func (svc *Service) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	post := &Post{
		TopicID:   req.TopicID,
		AuthorID:  req.AuthorID,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}

	err := svc.postRepo.Insert(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	return post, nil
}

func (svc *Service) GetPost(ctx context.Context, pid int64) (*Post, error) {
	post, err := svc.postRepo.Find(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return post, nil
}

// ListTopicPosts returns the posts of a topic within the inclusive index
// range [start, stop]. Reverse lists the newest post first.
func (svc *Service) ListTopicPosts(ctx context.Context, tid int64, start, stop int, reverse bool) ([]*Post, error) {
	if start < 0 {
		start = 0
	}

	if stop < start {
		return []*Post{}, nil
	}

	posts, err := svc.postRepo.List(ctx, &ListPostsParams{
		TopicID: tid,
		Offset:  start,
		Limit:   stop - start + 1,
		Reverse: reverse,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

func postObjectKey(pid int64) string {
	return "post:" + strconv.FormatInt(pid, 10)
}

// GetPostField returns a custom field of a post, or an empty string when the
// field was never set.
func (svc *Service) GetPostField(ctx context.Context, pid int64, field string) (string, error) {
	value, err := svc.objects.GetObjectField(ctx, postObjectKey(pid), field)
	if err != nil {
		var notFoundErr *database.FieldNotFoundError
		if errors.As(err, &notFoundErr) {
			return "", nil
		}

		return "", fmt.Errorf("failed to get post field: %w", err)
	}

	return value, nil
}

func (svc *Service) SetPostField(ctx context.Context, pid int64, field, value string) error {
	err := svc.objects.SetObjectField(ctx, postObjectKey(pid), field, value)
	if err != nil {
		return fmt.Errorf("failed to set post field: %w", err)
	}

	return nil
}

// Summarize prepares posts for display. A failing profile filter is logged
// and does not hide the post.
func (svc *Service) Summarize(ctx context.Context, posts []*Post) ([]*Summary, error) {
	svc.mu.RLock()
	filters := append([]ProfileFilter(nil), svc.filters...)
	svc.mu.RUnlock()

	users := make(map[int64]*authentication.UserData)
	result := make([]*Summary, 0, len(posts))

	for _, post := range posts {
		user, ok := users[post.AuthorID]
		if !ok {
			var err error

			user, err = svc.users.GetUserData(ctx, post.AuthorID)
			if err != nil {
				return nil, fmt.Errorf("failed to get author data: %w", err)
			}

			users[post.AuthorID] = user
		}

		content, err := svc.renderer.Render(post.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to render post %d: %w", post.ID, err)
		}

		summary := &Summary{
			PID:          post.ID,
			TID:          post.TopicID,
			UID:          post.AuthorID,
			Content:      content,
			Timestamp:    post.CreatedAt.UnixMilli(),
			TimestampISO: post.CreatedAt.UTC().Format(time.RFC3339),
			User:         user,
			Profile:      []ProfileEntry{},
		}

		for _, filter := range filters {
			err = filter.FilterProfile(ctx, summary)
			if err != nil {
				slog.ErrorContext(ctx, "failed to filter post profile", "pid", post.ID, "error", err)
			}
		}

		result = append(result, summary)
	}

	return result, nil
}
