package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourusername/blog-api/internal/apperr"
)

// TokenLifetime はアクセストークンの有効期間です。
const TokenLifetime = 24 * time.Hour

var (
	ErrInvalidSignature = apperr.Unauthorized("トークンの署名が不正です。")
	ErrTokenExpired     = apperr.Unauthorized("トークンの有効期限が切れています。")
	ErrMalformedToken   = apperr.Unauthorized("トークンの形式が不正です。")
)

// Subject はトークンに埋め込む利用者の識別情報です。
type Subject struct {
	ID    string
	Email string
}

// Claims は発行するJWTのクレームです。
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// TokenIssuer は HS256 署名付きトークンの発行と検証を行います。
// 状態はサーバー側に保存せず、失効は有効期限のみで判断します。
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenIssuer は起動時に読み込んだ署名鍵で TokenIssuer を作成します。
func NewTokenIssuer(secret []byte) *TokenIssuer {
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenIssuer{
		secret:   key,
		lifetime: TokenLifetime,
		now:      time.Now,
	}
}

// Issue は Subject を含むトークンを発行します。有効期限は発行時刻から24時間です。
func (i *TokenIssuer) Issue(sub Subject) (string, error) {
	if sub.ID == "" {
		return "", apperr.Internal(errors.New("token subject id is empty"))
	}
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
		UserID: sub.ID,
		Email:  sub.Email,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return signed, nil
}

// Verify は署名と有効期限を検証し、埋め込まれた Subject を返します。
// 失敗理由は ErrInvalidSignature / ErrTokenExpired / ErrMalformedToken のいずれかです。
func (i *TokenIssuer) Verify(tokenString string) (Subject, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Subject{}, classifyTokenError(err)
	}
	if !token.Valid || claims.UserID == "" {
		return Subject{}, ErrMalformedToken
	}
	return Subject{ID: claims.UserID, Email: claims.Email}, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	default:
		return ErrMalformedToken
	}
}
