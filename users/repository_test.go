package users

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/symbolic-cat-go/apperror"
	"github.com/user/symbolic-cat-go/docstore"
	"github.com/user/symbolic-cat-go/logging"
)

func newRepo(t *testing.T, store docstore.Store) *Repository {
	t.Helper()
	ws := docstore.NewWriters(store, docstore.WriterOptions{
		MaxConflictRetries: 20,
		RetryDelay:         time.Millisecond,
		Logger:             logging.Discard(),
	})
	t.Cleanup(ws.Close)
	return NewRepository(ws, logging.Discard())
}

type brokenStore struct{ docstore.Store }

func (brokenStore) Get(context.Context, string) (*docstore.Document, error) {
	return nil, &docstore.StatusError{Op: "get users", Status: http.StatusServiceUnavailable}
}

func TestLoadAll_MissingDocumentIsEmpty(t *testing.T) {
	repo := newRepo(t, docstore.NewMemoryStore())
	c, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c)
}

func TestLoadAll_StoreFailureIsStoreError(t *testing.T) {
	repo := newRepo(t, brokenStore{docstore.NewMemoryStore()})
	_, err := repo.LoadAll(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.IsStoreError(err))
	ae, _ := apperror.FromError(err)
	assert.Equal(t, http.StatusBadGateway, ae.StatusCode())
}

func TestLoadAll_CorruptDocument(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.Seed(docstore.ResourceUsers, []byte(`["alice"]`))
	_, err := newRepo(t, store).LoadAll(context.Background())
	assert.True(t, apperror.IsStoreError(err))
}

func TestLoadAll_BrokenEntryKeepsOthersUsable(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.Seed(docstore.ResourceUsers, []byte(`{"alice": 42, "bob": {"password": "h"}}`))
	c, err := newRepo(t, store).LoadAll(context.Background())
	require.NoError(t, err)
	assert.True(t, c["alice"].Opaque())
	assert.Equal(t, "h", c["bob"].PasswordHash)
}

func TestInsertIfAbsent_NeverOverwrites(t *testing.T) {
	c := Collection{}
	first := NewRecord("", "hash-1", nil, time.Now())
	require.NoError(t, InsertIfAbsent(c, "alice", first))
	assert.Equal(t, "alice", first.Username)

	err := InsertIfAbsent(c, "alice", NewRecord("", "hash-2", nil, time.Now()))
	require.Error(t, err)
	assert.True(t, apperror.IsConflictError(err))
	assert.Equal(t, "hash-1", c["alice"].PasswordHash)

	// Keys are case-sensitive.
	require.NoError(t, InsertIfAbsent(c, "Alice", NewRecord("", "hash-3", nil, time.Now())))
}

func TestFindByUsername_NotFound(t *testing.T) {
	_, err := FindByUsername(Collection{}, "ghost")
	assert.True(t, apperror.IsNotFound(err))
	assert.True(t, apperror.HasCode(err, apperror.CodeUserNotFound))
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, docstore.NewMemoryStore())

	c := Collection{}
	require.NoError(t, InsertIfAbsent(c, "alice", NewRecord("", "hash", nil, time.Now())))
	require.NoError(t, repo.Save(ctx, c))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	rec, err := FindByUsername(loaded, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash", rec.PasswordHash)
}

// The plain LoadAll / InsertIfAbsent / Save chain is the legacy handler flow.
// Against a store without conditional writes two interleaved registrations
// both "succeed" and the first one is silently discarded. This is a known race
// and why handlers go through Update instead.
func TestNaiveReadModifyWrite_LosesUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, docstore.NewUnconditionalMemoryStore())

	snapshotA, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	snapshotB, err := repo.LoadAll(ctx)
	require.NoError(t, err)

	require.NoError(t, InsertIfAbsent(snapshotA, "alice", NewRecord("", "hash-from-a", nil, time.Now())))
	require.NoError(t, repo.Save(ctx, snapshotA))

	require.NoError(t, InsertIfAbsent(snapshotB, "alice", NewRecord("", "hash-from-b", nil, time.Now())))
	require.NoError(t, repo.Save(ctx, snapshotB))

	final, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hash-from-b", final["alice"].PasswordHash, "registration A was overwritten")
}

func TestUpdate_ConcurrentRegistrationsExactlyOneWins(t *testing.T) {
	for name, store := range map[string]docstore.Store{
		"unconditional store": docstore.NewUnconditionalMemoryStore(),
		"conditional store":   docstore.NewMemoryStore(),
	} {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t, store)

			const contenders = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				wins      int
				conflicts int
			)
			for i := 0; i < contenders; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					err := repo.Update(context.Background(), func(c Collection) error {
						return InsertIfAbsent(c, "alice", NewRecord("", "hash", nil, time.Now()))
					})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						wins++
					case apperror.IsConflictError(err):
						conflicts++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}(i)
			}
			wg.Wait()

			assert.Equal(t, 1, wins)
			assert.Equal(t, contenders-1, conflicts)
		})
	}
}

func TestUpdate_TwoInstancesShareConditionalStore(t *testing.T) {
	store := docstore.NewMemoryStore()
	instanceA := newRepo(t, store)
	instanceB := newRepo(t, store)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, repo := range []*Repository{instanceA, instanceB} {
		wg.Add(1)
		go func(i int, repo *Repository) {
			defer wg.Done()
			results[i] = repo.Update(context.Background(), func(c Collection) error {
				return InsertIfAbsent(c, "alice", NewRecord("", "hash", nil, time.Now()))
			})
		}(i, repo)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		if err == nil {
			wins++
		} else if apperror.IsConflictError(err) {
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)
}

func TestUpdate_SkipWriteAndErrors(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := newRepo(t, store)

	require.NoError(t, repo.Update(ctx, func(Collection) error { return ErrSkipWrite }))
	_, err := store.Get(ctx, docstore.ResourceUsers)
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	boom := apperror.NewValidationError("", "bad", nil)
	err = repo.Update(ctx, func(Collection) error { return boom })
	assert.True(t, errors.Is(err, boom))
}
