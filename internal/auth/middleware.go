package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextUserKey は、ハンドラー間で認証済み利用者を共有するための gin のキーです。
const ContextUserKey = "auth.user"

// UserChecker は利用者が現在も存在するかを確認します。
type UserChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Middleware は Gate を gin のミドルウェアとして提供します。
type Middleware struct {
	gate    *Gate
	checker UserChecker
	logger  *slog.Logger
}

// NewMiddleware はミドルウェアを作成します。
// checker を渡した場合はリクエストごとに利用者の存在を再確認します（AUTH_REVALIDATE_USER）。
func NewMiddleware(gate *Gate, checker UserChecker, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{gate: gate, checker: checker, logger: logger}
}

// RequireAuth は Bearer トークンを検証するミドルウェアを返します。
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, err := m.gate.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			m.logger.WarnContext(c.Request.Context(), "authentication failed",
				"path", c.FullPath(), "reason", err.Error())
			abortUnauthorized(c)
			return
		}

		if m.checker != nil {
			exists, err := m.checker.Exists(c.Request.Context(), ac.UserID)
			if err != nil {
				m.logger.ErrorContext(c.Request.Context(), "user revalidation failed",
					"user_id", ac.UserID, "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    "INTERNAL",
					"message": "サーバー内部でエラーが発生しました。",
				})
				return
			}
			if !exists {
				m.logger.WarnContext(c.Request.Context(), "token subject no longer exists", "user_id", ac.UserID)
				abortUnauthorized(c)
				return
			}
		}

		c.Set(ContextUserKey, ac)
		c.Request = c.Request.WithContext(WithAuthContext(c.Request.Context(), ac))
		c.Next()
	}
}

// CurrentUser はミドルウェアが設定した AuthContext を返します。
func CurrentUser(c *gin.Context) (AuthContext, bool) {
	if v, ok := c.Get(ContextUserKey); ok {
		if ac, ok := v.(AuthContext); ok {
			return ac, true
		}
	}
	return FromContext(c.Request.Context())
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    "UNAUTHORIZED",
		"message": "ログインが必要です。",
	})
}
