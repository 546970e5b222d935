package users

import (
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/blog-api/internal/auth"
	"github.com/yourusername/blog-api/internal/httpx"
)

// API はハンドラーが利用するサービスの操作です。
type API interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	EditProfile(ctx context.Context, ac auth.AuthContext, in EditProfileInput) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	ListAuthors(ctx context.Context) ([]*User, error)
	ChangeAvatar(ctx context.Context, ac auth.AuthContext, file *multipart.FileHeader) (*User, error)
}

// RegisterRoutes は /api/users 配下のルートを登録します。
func RegisterRoutes(group *gin.RouterGroup, svc API, requireAuth gin.HandlerFunc, logger *slog.Logger) {
	group.POST("/register", RegisterHandler(svc, logger))
	group.POST("/login", LoginHandler(svc, logger))
	group.GET("", ListAuthorsHandler(svc, logger))
	group.GET("/:id", GetUserHandler(svc, logger))
	group.POST("/change-avatar", requireAuth, ChangeAvatarHandler(svc, logger))
	group.PATCH("/edit-user", requireAuth, EditProfileHandler(svc, logger))
}

// RegisterHandler は POST /api/users/register のハンドラーを返します。
func RegisterHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in RegisterInput
		if err := c.ShouldBind(&in); err != nil {
			httpx.BadInput(c, "リクエストの形式が正しくありません。")
			return
		}
		result, err := svc.Register(c.Request.Context(), in)
		if err != nil {
			httpx.RespondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "ユーザーを登録しました。",
			"id":      result.ID,
			"email":   result.Email,
		})
	}
}

// LoginHandler は POST /api/users/login のハンドラーを返します。
func LoginHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in LoginInput
		if err := c.ShouldBind(&in); err != nil {
			httpx.BadInput(c, "リクエストの形式が正しくありません。")
			return
		}
		result, err := svc.Login(c.Request.Context(), in)
		if err != nil {
			httpx.RespondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ListAuthorsHandler は GET /api/users のハンドラーを返します。
func ListAuthorsHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ListAuthors(c.Request.Context())
		if err != nil {
			httpx.RespondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GetUserHandler は GET /api/users/:id のハンドラーを返します。
func GetUserHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := svc.GetUser(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.RespondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// ChangeAvatarHandler は POST /api/users/change-avatar のハンドラーを返します。
func ChangeAvatarHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, ok := auth.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHORIZED",
				"message": "ログインが必要です。",
			})
			return
		}
		file, err := c.FormFile("avatar")
		if err != nil {
			httpx.BadInput(c, "画像ファイルを選択してください。")
			return
		}
		user, err := svc.ChangeAvatar(c.Request.Context(), ac, file)
		if err != nil {
			httpx.RespondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "アバターを更新しました。",
			"avatar":  user.Avatar,
		})
	}
}

// EditProfileHandler は PATCH /api/users/edit-user のハンドラーを返します。
func EditProfileHandler(svc API, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, ok := auth.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHORIZED",
				"message": "ログインが必要です。",
			})
			return
		}
		var in EditProfileInput
		if err := c.ShouldBind(&in); err != nil {
			httpx.BadInput(c, "リクエストの形式が正しくありません。")
			return
		}
		user, err := svc.EditProfile(c.Request.Context(), ac, in)
		if err != nil {
			httpx.RespondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
