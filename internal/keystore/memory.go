package keystore

import "sync"

// MemoryStore is a map-backed Store. Errors can be injected per operation.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]map[string]string

	getErr, setErr, deleteErr error
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[string]string)}
}

func (s *MemoryStore) Set(namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.setErr != nil {
		return unavailable("memory set", s.setErr)
	}
	ns, ok := s.entries[namespace]
	if !ok {
		ns = make(map[string]string)
		s.entries[namespace] = ns
	}
	ns[key] = value
	return nil
}

func (s *MemoryStore) Get(namespace, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return "", unavailable("memory get", s.getErr)
	}
	v, ok := s.entries[namespace][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleteErr != nil {
		return unavailable("memory delete", s.deleteErr)
	}
	delete(s.entries[namespace], key)
	return nil
}

// FailWith makes subsequent operations fail with the given errors. Nil
// clears a failure.
func (s *MemoryStore) FailWith(get, set, del error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr, s.setErr, s.deleteErr = get, set, del
}

// Len returns the number of entries in namespace.
func (s *MemoryStore) Len(namespace string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[namespace])
}
