package blogcomments

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nasermirzaei89/forum/authorization"
	"github.com/nasermirzaei89/forum/topics"
)

const errSomethingWentWrong = "Something went wrong"

// errorMessage returns the text shown to the reader of the blog for err.
func errorMessage(ctx context.Context, err error) string {
	var contentErr *topics.ContentTooShortError
	if errors.As(err, &contentErr) {
		return contentErr.Error()
	}

	var titleErr *topics.TitleLengthError
	if errors.As(err, &titleErr) {
		return titleErr.Error()
	}

	var topicNotFoundErr *topics.TopicNotFoundError
	if errors.As(err, &topicNotFoundErr) {
		return "Topic does not exist"
	}

	var accessDeniedErr *authorization.AccessDeniedError
	if errors.As(err, &accessDeniedErr) {
		return "You do not have enough privileges for this action."
	}

	slog.ErrorContext(ctx, "unexpected error", "error", err)

	return errSomethingWentWrong
}
