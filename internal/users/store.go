package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrNegativePostCount = errors.New("post count would become negative")
)

// Store は利用者レコードの永続化を抽象化します。
// 各操作は1ドキュメント単位でアトミックであり、メールアドレスの一意性は Store が保証します。
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	// UpdateProfile は ProfileUpdate の全項目を1回の書き込みで反映します。失敗時は何も変更しません。
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error)
	UpdateAvatar(ctx context.Context, id, avatar string) error
	// IncrementPostCount は投稿数を delta だけ加減算し、更新後の値を返します。
	// 投稿数を直接書き換える操作は提供しません。
	IncrementPostCount(ctx context.Context, id string, delta int) (int, error)
	List(ctx context.Context) ([]*User, error)
}
