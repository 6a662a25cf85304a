package services

import "context"

type userIDKey struct{}

// WithUserID attaches the authenticated user id to ctx for archive records.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserIDFrom(ctx context.Context) string {
	s, _ := ctx.Value(userIDKey{}).(string)
	return s
}

// SessionKey scopes a client session id to a user so two users picking the
// same id never share history.
func SessionKey(userID, sessionID string) string {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	if userID == "" {
		return sessionID
	}
	return userID + ":" + sessionID
}
