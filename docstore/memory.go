package docstore

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore keeps documents in process memory. Versions are a per-document
// counter. It backs the "memory" backend and most tests.
type MemoryStore struct {
	mu            sync.Mutex
	docs          map[string]memoryDoc
	unconditional bool
}

type memoryDoc struct {
	body    []byte
	version uint64
}

// NewMemoryStore returns an empty store that enforces write conditions.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memoryDoc)}
}

// NewUnconditionalMemoryStore returns a store that ignores write conditions and
// always overwrites, like the legacy KV API without ETag support.
func NewUnconditionalMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	s.unconditional = true
	return s
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Conditional() bool { return !s.unconditional }

// Get returns a copy of the stored document.
func (s *MemoryStore) Get(ctx context.Context, resource string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[resource]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{Body: append([]byte(nil), d.body...), Version: formatVersion(d.version)}, nil
}

// Put stores a copy of body.
func (s *MemoryStore) Put(ctx context.Context, resource string, body []byte, cond Condition) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.docs[resource]
	if !s.unconditional {
		if cond.IfAbsent && exists {
			return "", ErrVersionConflict
		}
		if cond.IfMatch != "" && (!exists || formatVersion(cur.version) != cond.IfMatch) {
			return "", ErrVersionConflict
		}
	}

	next := memoryDoc{body: append([]byte(nil), body...), version: cur.version + 1}
	s.docs[resource] = next
	return formatVersion(next.version), nil
}

// Seed stores body without any condition. Used to prepare fixtures.
func (s *MemoryStore) Seed(resource string, body []byte) {
	_, _ = s.Put(context.Background(), resource, body, Condition{})
}

func formatVersion(v uint64) string { return strconv.FormatUint(v, 10) }
