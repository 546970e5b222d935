package users

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore はプロセス内に利用者を保持する Store です。ローカル開発とテストで使用します。
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]string
	order   []string
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

// FindByEmail は正規化済みメールアドレスで利用者を検索します。
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].clone(), nil
}

// FindByID はIDで利用者を検索します。
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.clone(), nil
}

// Create は利用者を作成します。メールアドレスが使用済みの場合は ErrDuplicateEmail を返します。
func (s *MemoryStore) Create(ctx context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[user.Email]; exists {
		return nil, ErrDuplicateEmail
	}
	stored := user.clone()
	stored.ID = uuid.NewString()
	s.byID[stored.ID] = stored
	s.byEmail[stored.Email] = stored.ID
	s.order = append(s.order, stored.ID)
	return stored.clone(), nil
}

// UpdatePassword はダイジェストのみを更新します。
func (s *MemoryStore) UpdatePassword(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

// UpdateProfile は名前・メールアドレス・ダイジェストを同じロック区間で更新します。
func (s *MemoryStore) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if owner, taken := s.byEmail[update.Email]; taken && owner != id {
		return nil, ErrDuplicateEmail
	}
	delete(s.byEmail, u.Email)
	u.Name = update.Name
	u.Email = update.Email
	if update.PasswordHash != "" {
		u.PasswordHash = update.PasswordHash
	}
	s.byEmail[u.Email] = id
	return u.clone(), nil
}

// UpdateAvatar はアバターの保存名を更新します。
func (s *MemoryStore) UpdateAvatar(ctx context.Context, id, avatar string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.Avatar = avatar
	return nil
}

// IncrementPostCount は投稿数を加減算します。負になる場合は値を変えずに ErrNegativePostCount を返します。
func (s *MemoryStore) IncrementPostCount(ctx context.Context, id string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	if u.Posts+delta < 0 {
		return u.Posts, ErrNegativePostCount
	}
	u.Posts += delta
	return u.Posts, nil
}

// List は登録順に全利用者を返します。
func (s *MemoryStore) List(ctx context.Context) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].clone())
	}
	return out, nil
}
