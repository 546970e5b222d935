// Package httpx はドメインエラーを HTTP レスポンスへ変換する共通処理を提供します。
package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/blog-api/internal/apperr"
)

// StatusOf はエラー種別に対応する HTTP ステータスを返します。
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindDuplicateEmail, apperr.KindWeakPassword, apperr.KindInvalidCredentials:
		return http.StatusUnprocessableEntity
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// RespondError はエラーを {"code","message"} 形式で返します。
// 内部エラーの詳細はログにのみ出力します。
func RespondError(c *gin.Context, logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx := c.Request.Context()

	if errors.Is(err, context.Canceled) {
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":    "REQUEST_CANCELED",
			"message": "リクエストがキャンセルされました。",
		})
		return
	}

	kind := apperr.KindOf(err)
	status := StatusOf(kind)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "path", c.FullPath(), "error", err)
	} else {
		logger.DebugContext(ctx, "request rejected", "path", c.FullPath(), "kind", kind)
	}

	c.JSON(status, gin.H{
		"code":    kind,
		"message": apperr.MessageOf(err),
	})
}

// BadInput はリクエスト本文を解釈できなかった場合の 400 を返します。
func BadInput(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    "INVALID_INPUT",
		"message": message,
	})
}
