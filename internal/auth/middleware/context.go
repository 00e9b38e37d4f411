package auth

import "context"

type ctxKey string

const ctxKeyUser ctxKey = "user"

// Principal is the authenticated owner of a request.
type Principal struct {
	UserID   int64
	Username string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyUser, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyUser).(Principal)
	return p, ok
}
