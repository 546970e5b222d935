package auth

import "context"

type ctxKey string

const authContextKey ctxKey = "auth.context"

// WithAuthContext は AuthContext を紐付けたコンテキストを返します。
func WithAuthContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// FromContext はコンテキストから AuthContext を取り出します。
func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey).(AuthContext)
	return ac, ok
}
