package posts

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/blog-api/internal/apperr"
	"github.com/yourusername/blog-api/internal/auth"
)

const minDescriptionLength = 12

var errPostNotFound = apperr.NotFound("記事が見つかりません。")

// Files はサムネイル画像の保存と破棄を行います。
type Files interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
	Discard(ctx context.Context, name string)
}

// PostCounter は作成者の投稿数を加減算します。
type PostCounter interface {
	AdjustPostCount(ctx context.Context, userID string, delta int) (int, error)
}

// CreateInput は記事作成の入力です。
type CreateInput struct {
	Title       string `form:"title" json:"title"`
	Category    string `form:"category" json:"category"`
	Description string `form:"description" json:"description"`
}

// EditInput は記事編集の入力です。
type EditInput struct {
	Title       string `form:"title" json:"title"`
	Category    string `form:"category" json:"category"`
	Description string `form:"description" json:"description"`
}

// Service は記事の操作を提供します。変更系の操作は作成者本人に限られます。
type Service struct {
	store   Store
	files   Files
	counter PostCounter
	logger  *slog.Logger
}

// NewService は Service を作成します。
func NewService(store Store, files Files, counter PostCounter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, files: files, counter: counter, logger: logger}
}

// Create は記事を作成し、作成者の投稿数を1増やします。
func (s *Service) Create(ctx context.Context, ac auth.AuthContext, in CreateInput, thumbnail *multipart.FileHeader) (*Post, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || in.Category == "" || description == "" || thumbnail == nil {
		return nil, apperr.Validation("すべての項目を入力し、サムネイルを選択してください。")
	}
	category, ok := ParseCategory(in.Category)
	if !ok {
		return nil, apperr.Validation("カテゴリーが正しくありません。")
	}

	name, err := s.files.Save(ctx, thumbnail)
	if err != nil {
		return nil, err
	}

	post, err := s.store.Create(ctx, &Post{
		Title:       title,
		Category:    category,
		Description: description,
		Creator:     ac.UserID,
		Thumbnail:   name,
	})
	if err != nil {
		s.files.Discard(ctx, name)
		return nil, apperr.Internal(err)
	}

	if _, err := s.counter.AdjustPostCount(ctx, ac.UserID, 1); err != nil {
		// 投稿数と記事数を一致させるため作成を取り消す
		if delErr := s.store.Delete(ctx, post.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to roll back post", "post_id", post.ID, "error", delErr)
		} else {
			s.files.Discard(ctx, name)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "post created", "post_id", post.ID, "user_id", ac.UserID)
	return post, nil
}

// List は全記事を更新日時の新しい順に返します。
func (s *Service) List(ctx context.Context) ([]*Post, error) {
	return s.list(ctx, Filter{})
}

// Get は記事を1件取得します。
func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	post, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errPostNotFound
		}
		return nil, apperr.Internal(err)
	}
	return post, nil
}

// ListByCategory はカテゴリーで絞り込んだ記事を返します。未知のカテゴリーは空の一覧になります。
func (s *Service) ListByCategory(ctx context.Context, category string) ([]*Post, error) {
	c, ok := ParseCategory(category)
	if !ok {
		return []*Post{}, nil
	}
	return s.list(ctx, Filter{Category: c})
}

// ListByCreator は作成者で絞り込んだ記事を返します。
func (s *Service) ListByCreator(ctx context.Context, userID string) ([]*Post, error) {
	if strings.TrimSpace(userID) == "" {
		return []*Post{}, nil
	}
	return s.list(ctx, Filter{Creator: userID})
}

// Edit は記事を編集します。thumbnail を渡した場合は差し替え、古い画像を破棄します。
func (s *Service) Edit(ctx context.Context, ac auth.AuthContext, id string, in EditInput, thumbnail *multipart.FileHeader) (*Post, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || in.Category == "" || description == "" {
		return nil, apperr.Validation("すべての項目を入力してください。")
	}
	if utf8.RuneCountInString(description) < minDescriptionLength {
		return nil, apperr.Validation("本文は12文字以上で入力してください。")
	}
	category, ok := ParseCategory(in.Category)
	if !ok {
		return nil, apperr.Validation("カテゴリーが正しくありません。")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanMutate(ac, current.Creator) {
		return nil, apperr.ErrForbidden
	}

	update := PostUpdate{Title: title, Category: category, Description: description}
	if thumbnail != nil {
		name, err := s.files.Save(ctx, thumbnail)
		if err != nil {
			return nil, err
		}
		update.Thumbnail = name
	}

	updated, err := s.store.Update(ctx, id, update)
	if err != nil {
		s.files.Discard(ctx, update.Thumbnail)
		if errors.Is(err, ErrNotFound) {
			return nil, errPostNotFound
		}
		return nil, apperr.Internal(err)
	}
	if update.Thumbnail != "" {
		s.files.Discard(ctx, current.Thumbnail)
	}
	return updated, nil
}

// Delete は記事を削除し、サムネイルを破棄して作成者の投稿数を1減らします。
func (s *Service) Delete(ctx context.Context, ac auth.AuthContext, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CanMutate(ac, current.Creator) {
		return apperr.ErrForbidden
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errPostNotFound
		}
		return apperr.Internal(err)
	}
	s.files.Discard(ctx, current.Thumbnail)

	if _, err := s.counter.AdjustPostCount(ctx, current.Creator, -1); err != nil {
		s.logger.ErrorContext(ctx, "failed to decrement post count",
			"post_id", id, "user_id", current.Creator, "error", err)
	}
	s.logger.InfoContext(ctx, "post deleted", "post_id", id, "user_id", ac.UserID)
	return nil
}

func (s *Service) list(ctx context.Context, filter Filter) ([]*Post, error) {
	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}
