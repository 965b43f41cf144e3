package secrets

import "sync"

// MemoryStore is an in-memory Store used by tests and by environments
// without a vault backend when the secret is supplied another way. It
// mirrors the error contract of the keyring-backed store.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string]string
	failMsg error // when set, every operation fails with this error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Fail makes every subsequent operation return err, wrapped like a real
// vault failure. Pass nil to restore normal behavior.
func (s *MemoryStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failMsg = err
}

// Store writes the secret under key.
func (s *MemoryStore) Store(key, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMsg != nil {
		return &StoreError{Op: "store", Key: key, Err: s.failMsg}
	}
	s.values[key] = secret
	return nil
}

// Retrieve returns the secret stored under key.
func (s *MemoryStore) Retrieve(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failMsg != nil {
		return "", &StoreError{Op: "retrieve", Key: key, Err: s.failMsg}
	}
	secret, ok := s.values[key]
	if !ok {
		return "", &StoreError{Op: "retrieve", Key: key, Err: ErrNotFound}
	}
	return secret, nil
}

// Delete removes the secret stored under key.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMsg != nil {
		return &StoreError{Op: "delete", Key: key, Err: s.failMsg}
	}
	if _, ok := s.values[key]; !ok {
		return &StoreError{Op: "delete", Key: key, Err: ErrNotFound}
	}
	delete(s.values, key)
	return nil
}

var _ Store = (*MemoryStore)(nil)
