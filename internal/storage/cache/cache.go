package cache

import (
	"context"
	"sync"
	"time"

	"github.com/akashipov/userdirectory/internal/storage"
	"github.com/akashipov/userdirectory/internal/storage/user"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// CachedStore keeps recently read users in an expirable LRU in front of
// another store. Lists always go to the backend.
//
// Every update or delete bumps gen before and after the backend write. A read
// that missed the cache fills it only if gen did not move while it was at the
// backend, so a row read before a write never lands in the cache after it.
type CachedStore struct {
	storage.Store
	LRUCache *expirable.LRU[string, user.User]
	Log      *zap.SugaredLogger
	size     int

	mu  sync.Mutex
	gen uint64
}

func New(next storage.Store, size int, ttl time.Duration, log *zap.SugaredLogger) *CachedStore {
	return &CachedStore{
		Store:    next,
		LRUCache: expirable.NewLRU[string, user.User](size, nil, ttl),
		Log:      log,
		size:     size,
	}
}

// Warm loads the newest users so the first reads after a restart hit memory.
func (c *CachedStore) Warm(ctx context.Context) {
	q := storage.ListQuery{Page: 1, Limit: c.size}
	users, _, err := c.Store.List(ctx, q)
	if err != nil {
		c.Log.Infof("Problem with initialization of cache from storage: %s", err.Error())
		return
	}
	for _, u := range users {
		c.LRUCache.Add(u.ID, u)
	}
	c.Log.Infof("LRU cache warmed with %d users", len(users))
}

func (c *CachedStore) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// invalidate drops id and makes in-flight reads discard what they fetched.
func (c *CachedStore) invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.LRUCache.Remove(id)
}

func (c *CachedStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	if u, ok := c.LRUCache.Get(id); ok {
		return &u, nil
	}
	gen := c.generation()
	u, err := c.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.gen == gen {
		c.LRUCache.Add(id, *u)
	}
	c.mu.Unlock()
	return u, nil
}

func (c *CachedStore) Create(ctx context.Context, u *user.User) error {
	if err := c.Store.Create(ctx, u); err != nil {
		return err
	}
	c.LRUCache.Add(u.ID, *u)
	return nil
}

func (c *CachedStore) Update(ctx context.Context, id string, u *user.User) (*user.User, error) {
	c.invalidate(id)
	updated, err := c.Store.Update(ctx, id, u)
	c.invalidate(id)
	return updated, err
}

func (c *CachedStore) Delete(ctx context.Context, id string) error {
	c.invalidate(id)
	err := c.Store.Delete(ctx, id)
	c.invalidate(id)
	return err
}
