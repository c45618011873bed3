package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const memoryCacheSize = 4096

// MemoryStore keeps one expirable LRU per TTL so each key keeps the TTL it
// was written with. It is used when no REDIS_URL is configured and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[time.Duration]*expirable.LRU[string, []byte]
	owner   map[string]time.Duration // key -> bucket holding it
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[time.Duration]*expirable.LRU[string, []byte]),
		owner:   make(map[string]time.Duration),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ttl, ok := m.owner[key]
	if !ok {
		return nil, ErrMiss
	}
	v, ok := m.buckets[ttl].Get(key)
	if !ok {
		delete(m.owner, key)
		return nil, ErrMiss
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.owner[key]; ok && prev != ttl {
		m.buckets[prev].Remove(key)
	}
	bucket, ok := m.buckets[ttl]
	if !ok {
		bucket = expirable.NewLRU[string, []byte](memoryCacheSize, nil, ttl)
		m.buckets[ttl] = bucket
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	bucket.Add(key, stored)
	m.owner[key] = ttl
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		if ttl, ok := m.owner[key]; ok {
			m.buckets[ttl].Remove(key)
			delete(m.owner, key)
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
