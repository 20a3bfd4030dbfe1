package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	customerrors "github.com/akashipov/userdirectory/internal/errors"
	"github.com/akashipov/userdirectory/internal/storage"
	"github.com/akashipov/userdirectory/internal/storage/memory"
	"github.com/akashipov/userdirectory/internal/storage/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingStore records how many reads reached the backend.
type countingStore struct {
	storage.Store
	gets int
}

func (s *countingStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	s.gets++
	return s.Store.GetByID(ctx, id)
}

func newCached(t *testing.T, size int) (*CachedStore, *countingStore) {
	t.Helper()
	backend := &countingStore{Store: memory.New()}
	return New(backend, size, time.Minute, zap.NewNop().Sugar()), backend
}

func TestCachedStore_GetByID(t *testing.T) {
	ctx := context.Background()
	c, backend := newCached(t, 5)
	u := user.User{Name: "John Doe", Email: "john.doe@example.com"}
	require.NoError(t, c.Create(ctx, &u))
	c.LRUCache.Purge()

	for i := 0; i < 3; i++ {
		got, err := c.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "John Doe", got.Name)
	}
	assert.Equal(t, 1, backend.gets)
}

func TestCachedStore_UpdateDropsEntry(t *testing.T) {
	ctx := context.Background()
	c, backend := newCached(t, 5)
	u := user.User{Name: "John Doe", Email: "john.doe@example.com"}
	require.NoError(t, c.Create(ctx, &u))

	changed := u
	changed.Name = "Johnny Doe"
	_, err := c.Update(ctx, u.ID, &changed)
	require.NoError(t, err)

	got, err := c.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Johnny Doe", got.Name)
	assert.Equal(t, 1, backend.gets)
}

func TestCachedStore_DeleteEvicts(t *testing.T) {
	ctx := context.Background()
	c, _ := newCached(t, 5)
	u := user.User{Name: "John Doe", Email: "john.doe@example.com"}
	require.NoError(t, c.Create(ctx, &u))

	require.NoError(t, c.Delete(ctx, u.ID))
	_, err := c.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, customerrors.ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, u.ID), customerrors.ErrNotFound)
}

func TestCachedStore_Warm(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		u := user.User{Name: "Someone", Email: email}
		require.NoError(t, backend.Create(ctx, &u))
	}
	c := New(backend, 2, time.Minute, zap.NewNop().Sugar())
	c.Warm(ctx)
	assert.Equal(t, 2, c.LRUCache.Len())
}

// pausingStore holds the first GetByID after it has read the backend until
// release is closed, leaving a window for writes to slip in.
type pausingStore struct {
	storage.Store
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func newPausingStore() *pausingStore {
	return &pausingStore{
		Store:   memory.New(),
		read:    make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *pausingStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	u, err := s.Store.GetByID(ctx, id)
	s.once.Do(func() {
		close(s.read)
		<-s.release
	})
	return u, err
}

func TestCachedStore_ReadRacingWrite(t *testing.T) {
	tests := []struct {
		name  string
		write func(ctx context.Context, c *CachedStore, u user.User) error
		check func(t *testing.T, got *user.User, err error)
	}{
		{
			name: "delete",
			write: func(ctx context.Context, c *CachedStore, u user.User) error {
				return c.Delete(ctx, u.ID)
			},
			check: func(t *testing.T, got *user.User, err error) {
				assert.ErrorIs(t, err, customerrors.ErrNotFound)
				assert.Nil(t, got)
			},
		},
		{
			name: "update",
			write: func(ctx context.Context, c *CachedStore, u user.User) error {
				u.Name = "Johnny Doe"
				_, err := c.Update(ctx, u.ID, &u)
				return err
			},
			check: func(t *testing.T, got *user.User, err error) {
				require.NoError(t, err)
				assert.Equal(t, "Johnny Doe", got.Name)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := newPausingStore()
			c := New(backend, 5, time.Minute, zap.NewNop().Sugar())
			u := user.User{Name: "John Doe", Email: "john.doe@example.com"}
			require.NoError(t, c.Create(ctx, &u))
			c.LRUCache.Purge()

			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = c.GetByID(ctx, u.ID)
			}()
			<-backend.read
			require.NoError(t, tt.write(ctx, c, u))
			close(backend.release)
			<-done

			got, err := c.GetByID(ctx, u.ID)
			tt.check(t, got, err)
		})
	}
}
