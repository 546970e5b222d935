package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/yourusername/blog-api/internal/storage"
)

const (
	taskTypeRemoveUpload = "upload:remove"
	queueName            = "uploads"
	maxRetry             = 3
)

// recordStore は削除ジョブの状態保存先です。本番では Redis の Store を使います。
type recordStore interface {
	Get(ctx context.Context, name string) (*Record, error)
	Upsert(ctx context.Context, record *Record) error
	MarkRunning(ctx context.Context, name string) error
	MarkDone(ctx context.Context, name string) error
	MarkFailed(ctx context.Context, name string, cause error) error
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Manager は不要になったアップロードファイルの削除をキューで処理します。
type Manager struct {
	client  enqueuer
	server  *asynq.Server
	mux     *asynq.ServeMux
	store   recordStore
	remover storage.Remover
	logger  *slog.Logger
}

// NewManager は Manager を初期化します。
func NewManager(redisURL string, store *Store, remover storage.Remover, logger *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if remover == nil {
		return nil, errors.New("remover is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				queueName: 1,
			},
		},
	)

	manager := &Manager{
		client:  asynq.NewClient(opt),
		server:  server,
		mux:     asynq.NewServeMux(),
		store:   store,
		remover: remover,
		logger:  logger,
	}
	manager.mux.HandleFunc(taskTypeRemoveUpload, manager.handleRemoveTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.Error("asynq server stopped with error", "error", err)
		}
	}()
}

// Shutdown はサーバー・キュークライアント・状態保存先の接続を閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.server != nil {
		m.server.Shutdown()
	}
	err := m.client.Close()
	if closer, ok := m.store.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

// GetRecord は削除ジョブの状態を返します。記録が無い場合は nil を返します。
func (m *Manager) GetRecord(ctx context.Context, name string) (*Record, error) {
	return m.store.Get(ctx, name)
}

// ScheduleRemoval はファイル削除をキューに投入します。
func (m *Manager) ScheduleRemoval(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}

	if err := m.store.Upsert(ctx, &Record{
		Name:   name,
		Status: StatusQueued,
	}); err != nil {
		return err
	}

	body, err := json.Marshal(&TaskPayload{Name: name})
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskTypeRemoveUpload, body, asynq.Queue(queueName))
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(maxRetry)); err != nil {
		m.logger.WarnContext(ctx, "failed to enqueue upload removal, removing inline", "name", name, "error", err)
		return m.removeInline(ctx, name, err)
	}
	return nil
}

// removeInline はキュー投入に失敗したファイルをその場で削除し、記録を更新します。
func (m *Manager) removeInline(ctx context.Context, name string, enqueueErr error) error {
	if err := m.remover.Remove(ctx, name); err != nil {
		cause := errors.Join(enqueueErr, err)
		if markErr := m.store.MarkFailed(ctx, name, cause); markErr != nil {
			m.logger.WarnContext(ctx, "failed to mark cleanup failed", "name", name, "error", markErr)
		}
		return cause
	}
	if err := m.store.MarkDone(ctx, name); err != nil {
		m.logger.WarnContext(ctx, "failed to mark cleanup done", "name", name, "error", err)
	}
	return nil
}

func (m *Manager) handleRemoveTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Name == "" {
		return fmt.Errorf("missing name in payload: %w", asynq.SkipRetry)
	}

	if err := m.store.MarkRunning(ctx, payload.Name); err != nil {
		m.logger.WarnContext(ctx, "failed to mark cleanup running", "name", payload.Name, "error", err)
	}

	if err := m.remover.Remove(ctx, payload.Name); err != nil {
		if markErr := m.store.MarkFailed(ctx, payload.Name, err); markErr != nil {
			m.logger.WarnContext(ctx, "failed to mark cleanup failed", "name", payload.Name, "error", markErr)
		}
		return err
	}

	if err := m.store.MarkDone(ctx, payload.Name); err != nil {
		m.logger.WarnContext(ctx, "failed to mark cleanup done", "name", payload.Name, "error", err)
	}
	m.logger.InfoContext(ctx, "upload removed", "name", payload.Name)
	return nil
}
