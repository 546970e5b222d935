// Package storage はアップロードされた画像ファイルの保存を提供します。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/yourusername/blog-api/internal/apperr"
)

// DefaultMaxSize は MAX_UPLOAD_SIZE 未指定時の上限です（約2MB）。
const DefaultMaxSize int64 = 2_000_000

var allowedTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// Remover は保存済みファイルを削除します。
type Remover interface {
	Remove(ctx context.Context, name string) error
}

// Local はローカルディスクにファイルを保存する実装です。
type Local struct {
	dir     string
	maxSize int64
}

// NewLocal は保存先ディレクトリを作成して Local を返します。
func NewLocal(dir string, maxSize int64) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload dir is required")
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Local{dir: dir, maxSize: maxSize}, nil
}

// Dir は保存先ディレクトリを返します。
func (l *Local) Dir() string {
	return l.dir
}

// Save はアップロードされた画像を検証して保存し、保存名を返します。
func (l *Local) Save(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", apperr.Validation("ファイルを選択してください。")
	}
	if file.Size > l.maxSize {
		return "", apperr.TooLarge("ファイルサイズが大きすぎます。")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("failed to detect mime type: %w", err)
	}
	if !mimetype.EqualsAny(mtype.String(), allowedTypes...) {
		return "", apperr.Validation("画像ファイル（png, jpeg, gif, webp）を選択してください。")
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}

	name := uuid.NewString() + mtype.Extension()
	dst, err := os.OpenFile(filepath.Join(l.dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	// 宣言サイズを偽ったリクエストに備えて上限+1バイトまでしか読まない
	written, err := io.Copy(dst, io.LimitReader(src, l.maxSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(l.dir, name))
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if written > l.maxSize {
		_ = os.Remove(filepath.Join(l.dir, name))
		return "", apperr.TooLarge("ファイルサイズが大きすぎます。")
	}
	return name, nil
}

// Remove は保存済みファイルを削除します。存在しない場合はエラーにしません。
func (l *Local) Remove(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return fmt.Errorf("invalid file name: %q", name)
	}
	if err := os.Remove(filepath.Join(l.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}
