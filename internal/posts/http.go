package posts

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/blog-api/internal/auth"
	"github.com/yourusername/blog-api/internal/httpx"
)

// API はハンドラーが利用するサービスの操作です。
type API interface {
	Create(ctx context.Context, ac auth.AuthContext, in CreateInput, thumbnail *multipart.FileHeader) (*Post, error)
	List(ctx context.Context) ([]*Post, error)
	Get(ctx context.Context, id string) (*Post, error)
	ListByCategory(ctx context.Context, category string) ([]*Post, error)
	ListByCreator(ctx context.Context, userID string) ([]*Post, error)
	Edit(ctx context.Context, ac auth.AuthContext, id string, in EditInput, thumbnail *multipart.FileHeader) (*Post, error)
	Delete(ctx context.Context, ac auth.AuthContext, id string) error
}

// RegisterRoutes は /api/posts 配下のルートを登録します。
func RegisterRoutes(group *gin.RouterGroup, svc API, requireAuth gin.HandlerFunc, logger *slog.Logger) {
	group.POST("", requireAuth, CreateHandler(svc, logger))
	group.GET("", ListHandler(svc, logger))
	group.GET("/:id", GetHandler(svc, logger))
	group.GET("/categories/:category", ListByCategoryHandler(svc, logger))
	group.GET("/users/:id", ListByCreatorHandler(svc, logger))
	group.PATCH("/:id", requireAuth, EditHandler(svc, logger))
	group.DELETE("/:id", requireAuth, DeleteHandler(svc, logger))
}

// CreateHandler は POST /api/posts のハンドラーを返します。
func CreateHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, ok := requireUser(c)
		if !ok {
			return
		}
		var in CreateInput
		if err := c.ShouldBind(&in); err != nil {
			httpx.BadInput(c, "multipart/form-data で記事を送信してください。")
			return
		}
		thumbnail, err := optionalFile(c, "thumbnail")
		if err != nil {
			httpx.BadInput(c, "サムネイルの読み込みに失敗しました。")
			return
		}
		post, err := svc.Create(c.Request.Context(), ac, in, thumbnail)
		if err != nil {
			httpx.RespondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, post)
	}
}

// ListHandler は GET /api/posts のハンドラーを返します。
func ListHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.List(c.Request.Context())
		respondList(c, logger, list, err)
	}
}

// GetHandler は GET /api/posts/:id のハンドラーを返します。
func GetHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.RespondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// ListByCategoryHandler は GET /api/posts/categories/:category のハンドラーを返します。
func ListByCategoryHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ListByCategory(c.Request.Context(), c.Param("category"))
		respondList(c, logger, list, err)
	}
}

// ListByCreatorHandler は GET /api/posts/users/:id のハンドラーを返します。
func ListByCreatorHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ListByCreator(c.Request.Context(), c.Param("id"))
		respondList(c, logger, list, err)
	}
}

// EditHandler は PATCH /api/posts/:id のハンドラーを返します。
func EditHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, ok := requireUser(c)
		if !ok {
			return
		}
		var in EditInput
		if err := c.ShouldBind(&in); err != nil {
			httpx.BadInput(c, "リクエストの形式が正しくありません。")
			return
		}
		thumbnail, err := optionalFile(c, "thumbnail")
		if err != nil {
			httpx.BadInput(c, "サムネイルの読み込みに失敗しました。")
			return
		}
		post, err := svc.Edit(c.Request.Context(), ac, c.Param("id"), in, thumbnail)
		if err != nil {
			httpx.RespondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "記事を更新しました。",
			"post":    post,
		})
	}
}

// DeleteHandler は DELETE /api/posts/:id のハンドラーを返します。
func DeleteHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, ok := requireUser(c)
		if !ok {
			return
		}
		id := c.Param("id")
		if err := svc.Delete(c.Request.Context(), ac, id); err != nil {
			httpx.RespondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "記事 " + id + " を削除しました。",
		})
	}
}

func requireUser(c *gin.Context) (auth.AuthContext, bool) {
	ac, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "UNAUTHORIZED",
			"message": "ログインが必要です。",
		})
	}
	return ac, ok
}

// optionalFile はフィールドが無い場合に nil を返します。
func optionalFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	file, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	return file, err
}

func respondList(c *gin.Context, logger *slog.Logger, list []*Post, err error) {
	if err != nil {
		httpx.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
