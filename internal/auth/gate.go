// Package auth は認証・認可機能を提供します。
//
// パスワードのハッシュ化（Hasher）、トークンの発行と検証（TokenIssuer）、
// リクエスト単位の認証（Gate）、所有者判定（CanMutate）から構成されます。
package auth

import (
	"fmt"
	"strings"

	"github.com/yourusername/blog-api/internal/apperr"
)

var (
	// ErrMissingToken は Authorization ヘッダーが無いか Bearer 形式でない場合に返されます。
	ErrMissingToken = apperr.Unauthorized("認証トークンがありません。")
	// ErrUnauthorized はトークンの検証に失敗した場合に返されます。
	ErrUnauthorized = apperr.Unauthorized("ログインが必要です。")
)

// AuthContext は検証済みトークンから得たリクエスト単位の利用者情報です。
type AuthContext struct {
	UserID string
	Email  string
}

// TokenVerifier はトークンを検証して Subject を返します。
type TokenVerifier interface {
	Verify(token string) (Subject, error)
}

// Gate は Authorization ヘッダーを検証して AuthContext を作成します。
//
// 利用者の存在確認は行わず、トークンの有効期間中はクレームを信用します。
// 削除済み・変更済みの利用者が最大24時間アクセスできる余地は許容しています。
type Gate struct {
	verifier TokenVerifier
}

// NewGate は Gate を作成します。
func NewGate(verifier TokenVerifier) *Gate {
	return &Gate{verifier: verifier}
}

// Authenticate は生の Authorization ヘッダー値を検証します。
// 検証失敗時のエラーは ErrUnauthorized と原因（ErrTokenExpired など）の両方に errors.Is で一致します。
func (g *Gate) Authenticate(rawHeader string) (AuthContext, error) {
	token, ok := bearerToken(rawHeader)
	if !ok {
		return AuthContext{}, ErrMissingToken
	}

	sub, err := g.verifier.Verify(token)
	if err != nil {
		return AuthContext{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return AuthContext{UserID: sub.ID, Email: sub.Email}, nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
