package utils

import (
	"context"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UsernameKey contextKey = "username"
)

// Identity is the caller as asserted by the gateway
type Identity struct {
	UserID   string
	Username string
}

func SetIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id.UserID)
	ctx = context.WithValue(ctx, UsernameKey, id.Username)
	return ctx
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	userID, _ := ctx.Value(UserIDKey).(string)
	if userID == "" {
		return Identity{}, false
	}
	username, _ := ctx.Value(UsernameKey).(string)
	if username == "" {
		username = userID
	}
	return Identity{UserID: userID, Username: username}, true
}
