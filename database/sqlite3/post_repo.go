package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/forum/posts"
)

const tablePosts = "posts"

type PostRepository struct {
	db *sql.DB
}

var _ posts.PostRepository = (*PostRepository)(nil)

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

const (
	postFieldID        = "id"
	postFieldTopicID   = "topic_id"
	postFieldAuthorID  = "author_id"
	postFieldContent   = "content"
	postFieldCreatedAt = "created_at"
)

func postColumns() []string {
	return []string{
		postFieldID,
		postFieldTopicID,
		postFieldAuthorID,
		postFieldContent,
		postFieldCreatedAt,
	}
}

func scanPost(row sq.RowScanner) (*posts.Post, error) {
	var post posts.Post

	err := row.Scan(
		&post.ID,
		&post.TopicID,
		&post.AuthorID,
		&post.Content,
		&post.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &post, nil
}

func (repo *PostRepository) Insert(ctx context.Context, post *posts.Post) error {
	q := sq.Insert(tablePosts).
		Columns(postFieldTopicID, postFieldAuthorID, postFieldContent, postFieldCreatedAt).
		Values(post.TopicID, post.AuthorID, post.Content, post.CreatedAt)

	q = q.RunWith(repo.db)

	res, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	post.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	return nil
}

func (repo *PostRepository) Find(ctx context.Context, postID int64) (*posts.Post, error) {
	q := sq.Select(postColumns()...).
		From(tablePosts).
		Where(sq.Eq{postFieldID: postID})

	q = q.RunWith(repo.db)

	row := q.QueryRowContext(ctx)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &posts.PostNotFoundError{ID: postID}
		}

		return nil, fmt.Errorf("failed to scan post: %w", err)
	}

	return post, nil
}

func (repo *PostRepository) List(ctx context.Context, params *posts.ListPostsParams) ([]*posts.Post, error) {
	order := " ASC"
	if params.Reverse {
		order = " DESC"
	}

	q := sq.Select(postColumns()...).
		From(tablePosts).
		OrderBy(postFieldCreatedAt+order, postFieldID+order)

	if params.TopicID != 0 {
		q = q.Where(sq.Eq{postFieldTopicID: params.TopicID})
	}

	if params.Limit > 0 {
		q = q.Limit(uint64(params.Limit)).Offset(uint64(params.Offset))
	}

	q = q.RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	result := make([]*posts.Post, 0)

	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}

		result = append(result, post)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return result, nil
}
