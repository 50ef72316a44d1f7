package toolhub

import (
	"sort"
	"sync"
)

// KVStore is the context-scoped key-value store: a mapping from context
// identifier to a private key space. Entries live for the process lifetime.
// Distinct context identifiers cannot interfere; callers sharing one context
// get last-write-wins semantics with no further guarantee.
type KVStore struct {
	mu   sync.RWMutex
	data map[string]map[string]any
}

// NewKVStore returns an empty store.
func NewKVStore() *KVStore {
	return &KVStore{data: make(map[string]map[string]any)}
}

// PutResult lists the keys present in the context after the write.
type PutResult struct {
	OK   bool     `json:"ok"`
	Keys []string `json:"keys"`
}

// GetResult reports whether the key exists and its value (nil when absent).
type GetResult struct {
	Found bool `json:"found"`
	Value any  `json:"value"`
}

// Put stores value under key within contextID. An empty contextID is rejected.
func (s *KVStore) Put(contextID, key string, value any) (PutResult, error) {
	if contextID == "" {
		return PutResult{}, ErrContextRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.data[contextID]
	if !ok {
		bucket = make(map[string]any)
		s.data[contextID] = bucket
	}
	bucket[key] = value

	keys := make([]string, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return PutResult{OK: true, Keys: keys}, nil
}

// Get reads key within contextID. A missing key is not an error: it returns
// Found=false with a nil value.
func (s *KVStore) Get(contextID, key string) (GetResult, error) {
	if contextID == "" {
		return GetResult{}, ErrContextRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[contextID][key]
	if !ok {
		return GetResult{Found: false, Value: nil}, nil
	}
	return GetResult{Found: true, Value: value}, nil
}

// Reset drops every context and key. Idempotent.
func (s *KVStore) Reset() {
	s.mu.Lock()
	s.data = make(map[string]map[string]any)
	s.mu.Unlock()
}
