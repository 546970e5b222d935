package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/blog-api/internal/apperr"
)

// DefaultHashCost は BCRYPT_COST 未指定時のコストです。
const DefaultHashCost = 10

// HashError はハッシュ計算自体が失敗したことを表します（乱数源の失敗など）。
type HashError struct {
	Err error
}

func (e *HashError) Error() string {
	return fmt.Sprintf("password hash failed: %v", e.Err)
}

func (e *HashError) Unwrap() error {
	return e.Err
}

// Hasher は bcrypt によるパスワードのハッシュ化と照合を行います。
type Hasher struct {
	cost int
}

// NewHasher は指定コストの Hasher を作成します。範囲外のコストは DefaultHashCost に置き換えます。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &Hasher{cost: cost}
}

// Cost は実際に使用するコストを返します。
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash はソルト付きのダイジェストを返します。ソルトとコストはダイジェスト文字列に埋め込まれます。
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperr.Validation("パスワードは72バイト以内で入力してください。")
		}
		return "", apperr.Internal(&HashError{Err: err})
	}
	return string(digest), nil
}

// Verify はダイジェストに埋め込まれたソルトとコストで再計算し、一致するかを返します。
// 比較は bcrypt 内部で定数時間に行われ、不一致や不正なダイジェストは false になります。
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
