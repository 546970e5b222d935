package posts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	post *Post
	rev  int64
}

// MemoryStore はプロセス内に記事を保持する Store です。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	rev     int64
	now     func() time.Time
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Create は記事を作成します。
func (s *MemoryStore) Create(ctx context.Context, post *Post) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := post.clone()
	stored.ID = uuid.NewString()
	now := s.now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.rev++
	s.entries[stored.ID] = &memoryEntry{post: stored, rev: s.rev}
	return stored.clone(), nil
}

// FindByID はIDで記事を検索します。
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.post.clone(), nil
}

// List は条件に合う記事を更新日時の降順で返します。
func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]*memoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.Category != "" && e.post.Category != filter.Category {
			continue
		}
		if filter.Creator != "" && e.post.Creator != filter.Creator {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.post.UpdatedAt.Equal(b.post.UpdatedAt) {
			return a.post.UpdatedAt.After(b.post.UpdatedAt)
		}
		return a.rev > b.rev
	})
	out := make([]*Post, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.post.clone())
	}
	return out, nil
}

// Update は記事を更新し、更新日時を進めます。
func (s *MemoryStore) Update(ctx context.Context, id string, update PostUpdate) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.post.Title = update.Title
	e.post.Category = update.Category
	e.post.Description = update.Description
	if update.Thumbnail != "" {
		e.post.Thumbnail = update.Thumbnail
	}
	e.post.UpdatedAt = s.now().UTC()
	s.rev++
	e.rev = s.rev
	return e.post.clone(), nil
}

// Delete は記事を削除します。
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}
