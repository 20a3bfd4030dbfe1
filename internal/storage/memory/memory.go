// Package memory keeps users in process memory. Used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	customerrors "github.com/akashipov/userdirectory/internal/errors"
	"github.com/akashipov/userdirectory/internal/storage"
	"github.com/akashipov/userdirectory/internal/storage/user"
	"github.com/google/uuid"
)

var _ storage.Store = (*Store)(nil)

type record struct {
	user.User
	seq int64
}

type Store struct {
	mu    sync.RWMutex
	users map[string]record
	seq   int64
	now   func() time.Time
}

func New() *Store {
	return &Store{
		users: make(map[string]record),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func matches(u user.User, search string) bool {
	if search == "" {
		return true
	}
	s := strings.ToLower(search)
	return strings.Contains(strings.ToLower(u.Name), s) ||
		strings.Contains(strings.ToLower(u.Email), s) ||
		strings.Contains(strings.ToLower(u.Company), s)
}

func (s *Store) List(_ context.Context, q storage.ListQuery) ([]user.User, int64, error) {
	s.mu.RLock()
	found := make([]record, 0, len(s.users))
	for _, r := range s.users {
		if matches(r.User, q.Search) {
			found = append(found, r)
		}
	}
	s.mu.RUnlock()
	sort.Slice(found, func(i, j int) bool {
		if !found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].CreatedAt.After(found[j].CreatedAt)
		}
		return found[i].seq > found[j].seq
	})
	total := int64(len(found))
	from := q.Skip()
	if from < 0 || from > len(found) {
		from = len(found)
	}
	to := from + q.Limit
	if to < from || to > len(found) {
		to = len(found)
	}
	res := make([]user.User, 0, to-from)
	for _, r := range found[from:to] {
		res = append(res, r.User)
	}
	return res, total, nil
}

func (s *Store) GetByID(_ context.Context, id string) (*user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, customerrors.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.users[id]
	if !ok {
		return nil, customerrors.ErrNotFound
	}
	u := r.User
	return &u, nil
}

// emailTaken must be called with mu held.
func (s *Store) emailTaken(email, except string) bool {
	for id, r := range s.users {
		if id != except && r.Email == email {
			return true
		}
	}
	return false
}

func (s *Store) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(u.Email, "") {
		return customerrors.ErrDuplicateEmail
	}
	now := s.now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.seq++
	s.users[u.ID] = record{User: *u, seq: s.seq}
	return nil
}

func (s *Store) Update(_ context.Context, id string, u *user.User) (*user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, customerrors.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.users[id]
	if !ok {
		return nil, customerrors.ErrNotFound
	}
	if s.emailTaken(u.Email, id) {
		return nil, customerrors.ErrDuplicateEmail
	}
	updated := *u
	updated.ID = id
	updated.CreatedAt = r.CreatedAt
	updated.UpdatedAt = s.now()
	r.User = updated
	s.users[id] = r
	return &updated, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return customerrors.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return customerrors.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }
