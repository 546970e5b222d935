package users

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/blog-api/internal/apperr"
	"github.com/yourusername/blog-api/internal/auth"
)

const minPasswordLength = 6

var errUserNotFound = apperr.NotFound("ユーザーが見つかりません。")

// PasswordHasher はパスワードのハッシュ化と照合を行います。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenIssuer はログイン成功時にトークンを発行します。
type TokenIssuer interface {
	Issue(sub auth.Subject) (string, error)
}

// Files はアバター画像の保存と破棄を行います。
type Files interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
	Discard(ctx context.Context, name string)
}

// RegisterInput は利用者登録の入力です。
type RegisterInput struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// RegisterResult は登録結果です。
type RegisterResult struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// LoginInput はログインの入力です。
type LoginInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginResult はログイン結果です。
type LoginResult struct {
	Token string `json:"token"`
	ID    string `json:"id"`
	Email string `json:"email"`
}

// EditProfileInput はプロフィール編集の入力です。NewPassword は省略できます。
type EditProfileInput struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
}

// Service は登録・ログイン・プロフィール編集を提供します。
// いずれの操作もトランスポートに依存せず、エラーは apperr の種別で返します。
type Service struct {
	store  Store
	hasher PasswordHasher
	tokens TokenIssuer
	files  Files
	logger *slog.Logger

	// 存在しないメールアドレスでも照合コストを揃えるためのダイジェスト
	dummyDigest string
}

// NewService は Service を作成します。
func NewService(store Store, hasher PasswordHasher, tokens TokenIssuer, files Files, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		files:  files,
		logger: logger,
	}
	if digest, err := hasher.Hash("timing-equalizer"); err == nil {
		s.dummyDigest = digest
	}
	return s
}

// Register は利用者を登録します。投稿数は0で作成されます。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, apperr.Validation("すべての項目を入力してください。")
	}
	if !validEmail(email) {
		return nil, apperr.Validation("メールアドレスの形式が正しくありません。")
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, apperr.ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	if !strongEnough(in.Password) {
		return nil, apperr.ErrWeakPassword
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Create(ctx, &User{Name: name, Email: email, PasswordHash: digest})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, apperr.ErrDuplicateEmail
		}
		return nil, apperr.Internal(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return &RegisterResult{ID: user.ID, Email: user.Email}, nil
}

// Login は認証情報を照合してトークンを発行します。
// メールアドレスが存在しない場合とパスワード不一致の場合は同一のエラー値を返します。
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.Validation("すべての項目を入力してください。")
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.hasher.Verify(in.Password, s.dummyDigest)
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.Subject{ID: user.ID, Email: user.Email})
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ID: user.ID, Email: user.Email}, nil
}

// EditProfile は現在のパスワードを再確認したうえで名前・メールアドレス・パスワードを変更します。
// NewPassword を省略した場合、保存済みのダイジェストは変更しません。
func (s *Service) EditProfile(ctx context.Context, ac auth.AuthContext, in EditProfileInput) (*User, error) {
	if in.CurrentPassword == "" {
		return nil, apperr.Validation("現在のパスワードを入力してください。")
	}
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, apperr.Validation("名前とメールアドレスを入力してください。")
	}
	if !validEmail(email) {
		return nil, apperr.Validation("メールアドレスの形式が正しくありません。")
	}

	user, err := s.store.FindByID(ctx, ac.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, apperr.Internal(err)
	}

	if !s.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}

	if email != user.Email {
		other, err := s.store.FindByEmail(ctx, email)
		switch {
		case err == nil && other.ID != user.ID:
			return nil, apperr.ErrDuplicateEmail
		case err != nil && !errors.Is(err, ErrNotFound):
			return nil, apperr.Internal(err)
		}
	}

	var newDigest string
	if in.NewPassword != "" {
		if !strongEnough(in.NewPassword) {
			return nil, apperr.ErrWeakPassword
		}
		if newDigest, err = s.hasher.Hash(in.NewPassword); err != nil {
			return nil, err
		}
	}

	// パスワードのみの変更以外は名前・メールアドレス・ダイジェストを1回の書き込みで更新する
	if name == user.Name && email == user.Email && newDigest != "" {
		if err := s.store.UpdatePassword(ctx, user.ID, newDigest); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, errUserNotFound
			}
			return nil, apperr.Internal(err)
		}
		s.logger.InfoContext(ctx, "password changed", "user_id", user.ID)
		return user, nil
	}

	updated, err := s.store.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: name, Email: email, PasswordHash: newDigest})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			return nil, apperr.ErrDuplicateEmail
		case errors.Is(err, ErrNotFound):
			return nil, errUserNotFound
		}
		return nil, apperr.Internal(err)
	}
	if newDigest != "" {
		s.logger.InfoContext(ctx, "password changed", "user_id", user.ID)
	}
	return updated, nil
}

// GetUser は利用者を1件取得します。
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, apperr.Internal(err)
	}
	return user, nil
}

// ListAuthors は全利用者を返します。
func (s *Service) ListAuthors(ctx context.Context) ([]*User, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// ChangeAvatar はアバター画像を差し替え、以前の画像を破棄します。
func (s *Service) ChangeAvatar(ctx context.Context, ac auth.AuthContext, file *multipart.FileHeader) (*User, error) {
	if file == nil {
		return nil, apperr.Validation("画像ファイルを選択してください。")
	}
	user, err := s.GetUser(ctx, ac.UserID)
	if err != nil {
		return nil, err
	}

	name, err := s.files.Save(ctx, file)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateAvatar(ctx, user.ID, name); err != nil {
		s.files.Discard(ctx, name)
		if errors.Is(err, ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, apperr.Internal(err)
	}

	s.files.Discard(ctx, user.Avatar)
	user.Avatar = name
	return user, nil
}

// AdjustPostCount は投稿の作成・削除に合わせて投稿数を加減算します。
func (s *Service) AdjustPostCount(ctx context.Context, id string, delta int) (int, error) {
	n, err := s.store.IncrementPostCount(ctx, id, delta)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, errUserNotFound
		}
		return n, apperr.Internal(err)
	}
	return n, nil
}

// Exists は利用者が存在するかを返します。
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.store.FindByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func strongEnough(password string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(password)) >= minPasswordLength
}
