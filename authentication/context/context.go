package authentication

import (
	"context"
	"strconv"
)

// Guest is the uid of a visitor without a session.
const Guest int64 = 0

const (
	// Anonymous is the guest subject.
	Anonymous = "system:anonymous"

	Authenticated   = "system:authenticated"
	Unauthenticated = "system:unauthenticated"
	Administrators  = "administrators"
)

type contextKeySessionID struct{}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(contextKeySessionID{}).(string)
	if !ok {
		return "", false
	}

	return sessionID, true
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKeySessionID{}, sessionID)
}

type contextKeyUID struct{}

// GetUID returns the uid of the current user or Guest.
func GetUID(ctx context.Context) int64 {
	uid, ok := ctx.Value(contextKeyUID{}).(int64)
	if !ok {
		return Guest
	}

	return uid
}

func WithUID(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, contextKeyUID{}, uid)
}

// Subject maps a uid to the subject name used by authorization policies.
func Subject(uid int64) string {
	if uid == Guest {
		return Anonymous
	}

	return strconv.FormatInt(uid, 10)
}

func GetSubject(ctx context.Context) string {
	return Subject(GetUID(ctx))
}
