package imagecache

import "context"

// ScopedStore confines a shared Store to one browsing device. Every key is
// prefixed with the device scope, so two devices never read, overwrite, or
// delete each other's entries.
type ScopedStore struct {
	scope string
	store Store
}

// Scoped wraps store so that all keys live under scope. A blank scope leaves
// the store unwrapped.
func Scoped(store Store, scope string) Store {
	if scope == "" {
		return store
	}
	return &ScopedStore{scope: scope, store: store}
}

// ScopeKey is the key a ScopedStore writes to its backing store.
func ScopeKey(scope, key string) string {
	return scope + ":" + key
}

func (s *ScopedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, ScopeKey(s.scope, key))
}

func (s *ScopedStore) Set(ctx context.Context, key, handle string) error {
	return s.store.Set(ctx, ScopeKey(s.scope, key), handle)
}

func (s *ScopedStore) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, ScopeKey(s.scope, key))
}
