package topics

import (
	"context"
	"fmt"
	"strconv"

	authcontext "github.com/nasermirzaei89/forum/authentication/context"
	"github.com/nasermirzaei89/forum/authorization"
	"github.com/nasermirzaei89/forum/posts"
)

const ServiceName = "github.com/nasermirzaei89/forum/topics"

const (
	ActionCreateTopic = "create"
	ActionReply       = "reply"
	ActionRead        = "read"
)

type AuthorizationMiddleware struct {
	authzClient *authorization.Client
	next        Service
}

var _ Service = (*AuthorizationMiddleware)(nil)

func NewAuthorizationMiddleware(authzClient *authorization.Client, next Service) *AuthorizationMiddleware {
	return &AuthorizationMiddleware{
		authzClient: authzClient,
		next:        next,
	}
}

// checkAccess checks the privilege of the uid the caller acts for, which is
// not necessarily the uid of the request context.
func (mw *AuthorizationMiddleware) checkAccess(ctx context.Context, uid int64, object, action string) error {
	subject := authcontext.Subject(uid)

	if !mw.authzClient.Can(ctx, subject, ServiceName, object, action) {
		return &authorization.AccessDeniedError{
			Subject: subject,
			Domain:  ServiceName,
			Object:  object,
			Action:  action,
		}
	}

	return nil
}

func (mw *AuthorizationMiddleware) Post(ctx context.Context, req PostRequest) (*PostResult, error) {
	err := mw.checkAccess(ctx, req.UID, strconv.FormatInt(req.CategoryID, 10), ActionCreateTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	result, err := mw.next.Post(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return result, nil
}

func (mw *AuthorizationMiddleware) Reply(ctx context.Context, req ReplyRequest) (*posts.Post, error) {
	err := mw.checkAccess(ctx, req.UID, strconv.FormatInt(req.TopicID, 10), ActionReply)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	post, err := mw.next.Reply(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return post, nil
}

func (mw *AuthorizationMiddleware) GetTopic(ctx context.Context, tid int64) (*Topic, error) {
	return mw.next.GetTopic(ctx, tid)
}

func (mw *AuthorizationMiddleware) ListRecentTopics(ctx context.Context, limit int) ([]*Topic, error) {
	return mw.next.ListRecentTopics(ctx, limit)
}

func (mw *AuthorizationMiddleware) GetTopicPosts(
	ctx context.Context,
	tid int64,
	start, stop int,
	uid int64,
	reverse bool,
) ([]*posts.Summary, error) {
	err := mw.checkAccess(ctx, uid, strconv.FormatInt(tid, 10), ActionRead)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	summaries, err := mw.next.GetTopicPosts(ctx, tid, start, stop, uid, reverse)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return summaries, nil
}

func (mw *AuthorizationMiddleware) GetTopicField(ctx context.Context, tid int64, field string) (string, error) {
	return mw.next.GetTopicField(ctx, tid, field)
}
