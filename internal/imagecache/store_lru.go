package imagecache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUStore is a read-through, write-through memory front for a slower Store.
// Evicting from the front never touches the backing store, so entries still
// never expire.
type LRUStore struct {
	front   *lru.Cache[string, string]
	backing Store
}

func NewLRUStore(backing Store, size int) (*LRUStore, error) {
	front, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRUStore{front: front, backing: backing}, nil
}

func (s *LRUStore) Get(ctx context.Context, key string) (string, bool, error) {
	if h, ok := s.front.Get(key); ok {
		return h, true, nil
	}

	h, ok, err := s.backing.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	s.front.Add(key, h)
	return h, true, nil
}

func (s *LRUStore) Set(ctx context.Context, key, handle string) error {
	if err := s.backing.Set(ctx, key, handle); err != nil {
		s.front.Remove(key)
		return err
	}
	s.front.Add(key, handle)
	return nil
}

func (s *LRUStore) Delete(ctx context.Context, key string) error {
	s.front.Remove(key)
	return s.backing.Delete(ctx, key)
}

func (s *LRUStore) Ping(ctx context.Context) error {
	if p, ok := s.backing.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
