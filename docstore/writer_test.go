package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/symbolic-cat-go/logging"
)

type counterDoc struct {
	N int `json:"n"`
}

func increment(current []byte, exists bool) ([]byte, error) {
	var c counterDoc
	if exists {
		if err := json.Unmarshal(current, &c); err != nil {
			return nil, err
		}
	}
	c.N++
	return json.Marshal(c)
}

func readCounter(t *testing.T, s Store) int {
	t.Helper()
	doc, err := s.Get(context.Background(), "counter")
	require.NoError(t, err)
	var c counterDoc
	require.NoError(t, json.Unmarshal(doc.Body, &c))
	return c.N
}

func testOptions() WriterOptions {
	return WriterOptions{MaxConflictRetries: 50, RetryDelay: time.Millisecond, Logger: logging.Discard()}
}

// flakyStore fails the first n conditional Puts with ErrVersionConflict.
type flakyStore struct {
	Store
	failures atomic.Int32
	puts     atomic.Int32
}

func (s *flakyStore) Put(ctx context.Context, resource string, body []byte, cond Condition) (string, error) {
	s.puts.Add(1)
	if s.failures.Add(-1) >= 0 {
		return "", ErrVersionConflict
	}
	return s.Store.Put(ctx, resource, body, cond)
}

func TestWriter_CreatesMissingDocument(t *testing.T) {
	store := NewMemoryStore()
	w := NewWriter(store, "counter", testOptions())
	defer w.Close()

	var sawExists bool
	err := w.Update(context.Background(), func(current []byte, exists bool) ([]byte, error) {
		sawExists = exists
		return increment(current, exists)
	})
	require.NoError(t, err)
	assert.False(t, sawExists)
	assert.Equal(t, 1, readCounter(t, store))
}

func TestWriter_SerializesConcurrentUpdates(t *testing.T) {
	store := NewUnconditionalMemoryStore()
	w := NewWriter(store, "counter", testOptions())
	defer w.Close()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Update(context.Background(), increment))
		}()
	}
	wg.Wait()

	// Even without conditional writes nothing is lost inside one process.
	assert.Equal(t, n, readCounter(t, store))
}

func TestWriter_TwoWritersShareConditionalStore(t *testing.T) {
	store := NewMemoryStore()
	a := NewWriter(store, "counter", testOptions())
	b := NewWriter(store, "counter", testOptions())
	defer a.Close()
	defer b.Close()

	const perWriter = 15
	var wg sync.WaitGroup
	for i := 0; i < perWriter; i++ {
		for _, w := range []*Writer{a, b} {
			wg.Add(1)
			go func(w *Writer) {
				defer wg.Done()
				assert.NoError(t, w.Update(context.Background(), increment))
			}(w)
		}
	}
	wg.Wait()

	assert.Equal(t, 2*perWriter, readCounter(t, store))
}

func TestWriter_RetriesAfterVersionConflict(t *testing.T) {
	store := &flakyStore{Store: NewMemoryStore()}
	store.failures.Store(2)
	w := NewWriter(store, "counter", testOptions())
	defer w.Close()

	var calls int
	err := w.Update(context.Background(), func(current []byte, exists bool) ([]byte, error) {
		calls++
		return increment(current, exists)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, readCounter(t, store))
}

func TestWriter_GivesUpAfterMaxRetries(t *testing.T) {
	store := &flakyStore{Store: NewMemoryStore()}
	store.failures.Store(1000)
	opts := testOptions()
	opts.MaxConflictRetries = 2
	w := NewWriter(store, "counter", opts)
	defer w.Close()

	err := w.Update(context.Background(), increment)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.EqualValues(t, 3, store.puts.Load())
}

func TestWriter_SkipWriteAndMutatorErrors(t *testing.T) {
	store := &flakyStore{Store: NewMemoryStore()}
	w := NewWriter(store, "counter", testOptions())
	defer w.Close()

	err := w.Update(context.Background(), func([]byte, bool) ([]byte, error) { return nil, ErrSkipWrite })
	require.NoError(t, err)

	boom := errors.New("boom")
	err = w.Update(context.Background(), func([]byte, bool) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	assert.Zero(t, store.puts.Load())
	_, err = store.Get(context.Background(), "counter")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriter_ClosedAndCanceled(t *testing.T) {
	w := NewWriter(NewMemoryStore(), "counter", testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Update(ctx, increment)
	assert.ErrorIs(t, err, context.Canceled)

	w.Close()
	w.Close()
	assert.ErrorIs(t, w.Update(context.Background(), increment), ErrClosed)
}

func TestWriters_OnePerResource(t *testing.T) {
	ws := NewWriters(NewMemoryStore(), testOptions())
	defer ws.Close()

	assert.Same(t, ws.For(ResourceUsers), ws.For(ResourceUsers))
	assert.NotSame(t, ws.For(ResourceUsers), ws.For(ResourceChats))
	assert.Equal(t, ResourceChats, ws.For(ResourceChats).Resource())
}
