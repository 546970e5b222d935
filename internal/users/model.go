// Package users は利用者の登録・ログイン・プロフィール管理を提供します。
package users

// User はブログの投稿者（利用者）を表します。
type User struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Avatar       string `json:"avatar,omitempty"`
	Posts        int    `json:"posts"`
}

// ProfileUpdate はプロフィール編集で変更できる項目です。
// PasswordHash が空の場合、保存済みのダイジェストは変更しません。
type ProfileUpdate struct {
	Name         string
	Email        string
	PasswordHash string
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
