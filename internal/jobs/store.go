package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	recordKeyPrefix = "upload-cleanup:"
)

// Store は削除ジョブの状態を Redis に保存します。
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
	}
}

// Close は Redis クライアントを閉じます。
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Get はジョブ情報を取得します。存在しない場合は nil を返します。
func (s *Store) Get(ctx context.Context, name string) (*Record, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	data, err := s.rdb.Get(ctx, recordKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert はジョブ情報を保存します（存在しない場合は作成）。
func (s *Store) Upsert(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.ExpiresAt.IsZero() && s.ttl > 0 {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, recordKey(record.Name), payload, s.ttl).Err()
}

// MarkRunning は実行開始と試行回数を記録します。
func (s *Store) MarkRunning(ctx context.Context, name string) error {
	return s.updatePartial(ctx, name, func(record *Record) {
		record.Status = StatusRunning
		record.Attempts++
	})
}

// MarkDone は削除完了を記録します。
func (s *Store) MarkDone(ctx context.Context, name string) error {
	return s.updatePartial(ctx, name, func(record *Record) {
		record.Status = StatusSucceeded
		record.Error = ""
	})
}

// MarkFailed は削除失敗を記録します。
func (s *Store) MarkFailed(ctx context.Context, name string, cause error) error {
	return s.updatePartial(ctx, name, func(record *Record) {
		record.Status = StatusFailed
		if cause != nil {
			record.Error = cause.Error()
		}
	})
}

func (s *Store) updatePartial(ctx context.Context, name string, mutate func(*Record)) error {
	key := recordKey(name)
	for {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return fmt.Errorf("cleanup record not found: %s", name)
				}
				return err
			}
			var record Record
			if err := json.Unmarshal(data, &record); err != nil {
				return err
			}
			mutate(&record)
			record.UpdatedAt = time.Now().UTC()
			payload, err := json.Marshal(&record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, s.ttl)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
}

func recordKey(name string) string {
	return recordKeyPrefix + name
}
