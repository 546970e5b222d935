// Package apperr はドメイン層が返すエラーの分類を提供します。
// HTTP ステータスへの変換は httpx パッケージが担当し、このパッケージはトランスポートに依存しません。
package apperr

import (
	"errors"
	"fmt"
)

// Kind はエラーの種別を表します。
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindDuplicateEmail     Kind = "DUPLICATE_EMAIL"
	KindWeakPassword       Kind = "WEAK_PASSWORD"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindTooLarge           Kind = "PAYLOAD_TOO_LARGE"
	KindInternal           Kind = "INTERNAL"
)

// Error は利用者向けメッセージと内部原因を保持するエラーです。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrDuplicateEmail は正規化後のメールアドレスが既に使われている場合に返されます。
	ErrDuplicateEmail = &Error{Kind: KindDuplicateEmail, Message: "このメールアドレスは既に登録されています。"}
	// ErrWeakPassword はパスワードが短すぎる場合に返されます。
	ErrWeakPassword = &Error{Kind: KindWeakPassword, Message: "パスワードは6文字以上で入力してください。"}
	// ErrInvalidCredentials はログイン失敗時に返されます。
	// アカウントの存在有無を推測されないよう、原因によらず常にこの値を返します。
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "メールアドレスまたはパスワードが正しくありません。"}
	// ErrForbidden は他人のリソースを変更しようとした場合に返されます。
	ErrForbidden = &Error{Kind: KindForbidden, Message: "このリソースを変更する権限がありません。"}
)

// Validation は入力不備のエラーを作成します。
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NotFound は対象が存在しない場合のエラーを作成します。
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// TooLarge はアップロードサイズ超過のエラーを作成します。
func TooLarge(message string) *Error {
	return &Error{Kind: KindTooLarge, Message: message}
}

// Unauthorized は認証失敗のエラーを作成します。
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Internal は想定外の失敗を包みます。メッセージは利用者に詳細を出さない固定文言です。
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "サーバー内部でエラーが発生しました。", Err: err}
}

// KindOf はエラーチェーンの中で最も外側にある *Error の種別を返します。
// 分類されていないエラーは KindInternal として扱います。
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf は利用者に返してよいメッセージを返します。
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return Internal(nil).Message
}
