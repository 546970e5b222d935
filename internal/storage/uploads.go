package storage

import (
	"context"
	"log/slog"
	"mime/multipart"
)

// Saver はアップロードファイルを保存します。
type Saver interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
}

// Scheduler はファイル削除を後で実行するよう予約します。
type Scheduler interface {
	ScheduleRemoval(ctx context.Context, name string) error
}

// Uploads は保存と不要ファイルの破棄をまとめたものです。
// scheduler が設定されていれば削除はキュー経由で行い、失敗した場合はその場で削除します。
type Uploads struct {
	store interface {
		Saver
		Remover
	}
	scheduler Scheduler
	logger    *slog.Logger
}

// NewUploads は Uploads を作成します。scheduler は nil でも構いません。
func NewUploads(local *Local, scheduler Scheduler, logger *slog.Logger) *Uploads {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploads{store: local, scheduler: scheduler, logger: logger}
}

// Save はファイルを保存して保存名を返します。
func (u *Uploads) Save(ctx context.Context, file *multipart.FileHeader) (string, error) {
	return u.store.Save(ctx, file)
}

// Discard は不要になったファイルを削除します。失敗してもリクエストは失敗させずログに残します。
func (u *Uploads) Discard(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if u.scheduler != nil {
		err := u.scheduler.ScheduleRemoval(ctx, name)
		if err == nil {
			return
		}
		u.logger.WarnContext(ctx, "failed to schedule upload removal, removing inline", "name", name, "error", err)
	}
	if err := u.store.Remove(ctx, name); err != nil {
		u.logger.ErrorContext(ctx, "failed to remove upload", "name", name, "error", err)
	}
}
