package posts

import (
	"context"
	"errors"
)

// ErrNotFound は記事が存在しない場合に返されます。
var ErrNotFound = errors.New("post not found")

// Store は記事の永続化を抽象化します。List は UpdatedAt の降順で返します。
type Store interface {
	Create(ctx context.Context, post *Post) (*Post, error)
	FindByID(ctx context.Context, id string) (*Post, error)
	List(ctx context.Context, filter Filter) ([]*Post, error)
	Update(ctx context.Context, id string, update PostUpdate) (*Post, error)
	Delete(ctx context.Context, id string) error
}
