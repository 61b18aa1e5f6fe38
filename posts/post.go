package posts

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/nasermirzaei89/forum/authentication"
)

type Post struct {
	ID        int64
	TopicID   int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
}

type PostRepository interface {
	Insert(ctx context.Context, post *Post) (err error)
	Find(ctx context.Context, postID int64) (post *Post, err error)
	List(ctx context.Context, params *ListPostsParams) (posts []*Post, err error)
}

type ListPostsParams struct {
	TopicID int64
	Offset  int
	Limit   int
	Reverse bool
}

// ProfileEntry is a line of extra information shown next to the author of a
// post. Content is trusted HTML produced by the forum or one of its plugins.
type ProfileEntry struct {
	Content template.HTML `json:"content"`
}

// Summary is a post prepared for display: rendered content, author data and
// the profile entries contributed by filters.
type Summary struct {
	PID          int64                    `json:"pid"`
	TID          int64                    `json:"tid"`
	UID          int64                    `json:"uid"`
	Content      template.HTML            `json:"content"`
	Timestamp    int64                    `json:"timestamp"`
	TimestampISO string                   `json:"timestampISO"`
	User         *authentication.UserData `json:"user"`
	Profile      []ProfileEntry           `json:"profile"`
}

// ProfileFilter decorates a post summary before it is displayed.
type ProfileFilter interface {
	FilterProfile(ctx context.Context, post *Summary) error
}

type PostNotFoundError struct {
	ID int64
}

func (err PostNotFoundError) Error() string {
	return fmt.Sprintf("post with id %d not found", err.ID)
}
