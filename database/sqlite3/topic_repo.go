package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/forum/topics"
)

const tableTopics = "topics"

type TopicRepository struct {
	db *sql.DB
}

var _ topics.TopicRepository = (*TopicRepository)(nil)

func NewTopicRepository(db *sql.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

const (
	topicFieldID         = "id"
	topicFieldCategoryID = "category_id"
	topicFieldAuthorID   = "author_id"
	topicFieldTitle      = "title"
	topicFieldMainPostID = "main_post_id"
	topicFieldPostCount  = "post_count"
	topicFieldCreatedAt  = "created_at"
)

func topicColumns() []string {
	return []string{
		topicFieldID,
		topicFieldCategoryID,
		topicFieldAuthorID,
		topicFieldTitle,
		topicFieldMainPostID,
		topicFieldPostCount,
		topicFieldCreatedAt,
	}
}

func scanTopic(row sq.RowScanner) (*topics.Topic, error) {
	var topic topics.Topic

	err := row.Scan(
		&topic.ID,
		&topic.CategoryID,
		&topic.AuthorID,
		&topic.Title,
		&topic.MainPostID,
		&topic.PostCount,
		&topic.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &topic, nil
}

func (repo *TopicRepository) Insert(ctx context.Context, topic *topics.Topic) error {
	q := sq.Insert(tableTopics).
		Columns(
			topicFieldCategoryID,
			topicFieldAuthorID,
			topicFieldTitle,
			topicFieldMainPostID,
			topicFieldPostCount,
			topicFieldCreatedAt,
		).
		Values(
			topic.CategoryID,
			topic.AuthorID,
			topic.Title,
			topic.MainPostID,
			topic.PostCount,
			topic.CreatedAt,
		)

	q = q.RunWith(repo.db)

	res, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	topic.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	return nil
}

func (repo *TopicRepository) Find(ctx context.Context, topicID int64) (*topics.Topic, error) {
	q := sq.Select(topicColumns()...).
		From(tableTopics).
		Where(sq.Eq{topicFieldID: topicID})

	q = q.RunWith(repo.db)

	row := q.QueryRowContext(ctx)

	topic, err := scanTopic(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &topics.TopicNotFoundError{ID: topicID}
		}

		return nil, fmt.Errorf("failed to scan topic: %w", err)
	}

	return topic, nil
}

func (repo *TopicRepository) List(ctx context.Context, params *topics.ListTopicsParams) ([]*topics.Topic, error) {
	q := sq.Select(topicColumns()...).
		From(tableTopics).
		OrderBy(topicFieldCreatedAt+" DESC", topicFieldID+" DESC")

	if params.Limit > 0 {
		q = q.Limit(uint64(params.Limit))
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

	result := make([]*topics.Topic, 0)

	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}

		result = append(result, topic)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return result, nil
}

func (repo *TopicRepository) SetMainPost(ctx context.Context, topicID, postID int64) error {
	return repo.update(ctx, topicID, sq.Update(tableTopics).Set(topicFieldMainPostID, postID))
}

func (repo *TopicRepository) IncrementPostCount(ctx context.Context, topicID int64, delta int) error {
	return repo.update(
		ctx,
		topicID,
		sq.Update(tableTopics).Set(topicFieldPostCount, sq.Expr(topicFieldPostCount+" + ?", delta)),
	)
}

func (repo *TopicRepository) update(ctx context.Context, topicID int64, q sq.UpdateBuilder) error {
	q = q.Where(sq.Eq{topicFieldID: topicID}).RunWith(repo.db)

	result, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec update: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return &topics.TopicNotFoundError{ID: topicID}
	}

	return nil
}
