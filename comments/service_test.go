package comments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/symbolic-cat-go/apperror"
	"github.com/user/symbolic-cat-go/docstore"
	"github.com/user/symbolic-cat-go/feed"
	"github.com/user/symbolic-cat-go/logging"
)

func newTestService(t *testing.T, store docstore.Store) (*Service, *feed.Broadcaster) {
	t.Helper()
	ws := docstore.NewWriters(store, docstore.WriterOptions{
		MaxConflictRetries: 20,
		RetryDelay:         time.Millisecond,
		Logger:             logging.Discard(),
	})
	t.Cleanup(ws.Close)
	b := feed.NewBroadcaster(logging.Discard())
	return NewService(ws, b, logging.Discard()), b
}

func TestList_MissingDocumentIsEmpty(t *testing.T) {
	svc, _ := newTestService(t, docstore.NewMemoryStore())

	chats, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, chats)
	assert.Empty(t, chats)
}

func TestList_CorruptDocument(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.Seed(docstore.ResourceChats, []byte(`{"not":"an array"}`))
	svc, _ := newTestService(t, store)

	_, err := svc.List(context.Background())
	require.Error(t, err)
	appErr, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeStore, appErr.Code)
}

func TestAdd(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.Seed(docstore.ResourceChats, []byte(`["bob: hi"]`))
	svc, b := newTestService(t, store)
	_, events := b.NewClient()
	ctx := context.Background()

	chats, err := svc.Add(ctx, "alice", "  meow  ")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob: hi", "alice: meow"}, chats)

	listed, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, chats, listed)

	ev := <-events
	assert.Equal(t, EventName, ev.Name)
	assert.Equal(t, "alice: meow", ev.Data)
	assert.Equal(t, "2", ev.ID)
}

func TestAdd_Validation(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Add(ctx, "alice", "   \n\t")
	appErr, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeEmptyComment, appErr.Code)
	assert.Equal(t, 400, appErr.StatusCode())

	_, err = svc.Add(ctx, "alice", strings.Repeat("я", MaxCommentLength+1))
	appErr, ok = apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = svc.Add(ctx, "alice", strings.Repeat("я", MaxCommentLength))
	require.NoError(t, err)

	_, err = store.Get(ctx, docstore.ResourceChats)
	require.NoError(t, err)
}

func TestAdd_CorruptDocumentIsNotOverwritten(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.Seed(docstore.ResourceChats, []byte(`"oops"`))
	svc, _ := newTestService(t, store)

	_, err := svc.Add(context.Background(), "alice", "meow")
	require.Error(t, err)

	doc, err := store.Get(context.Background(), docstore.ResourceChats)
	require.NoError(t, err)
	assert.JSONEq(t, `"oops"`, string(doc.Body))
}

func TestAdd_ConcurrentAppendsAreAllKept(t *testing.T) {
	store := docstore.NewMemoryStore()
	// Two services on the same store behave like two server instances.
	first, _ := newTestService(t, store)
	second, _ := newTestService(t, store)
	ctx := context.Background()

	const perService = 15
	var wg sync.WaitGroup
	for i := 0; i < perService; i++ {
		for _, svc := range []*Service{first, second} {
			wg.Add(1)
			go func(svc *Service, i int) {
				defer wg.Done()
				_, err := svc.Add(ctx, "cat", fmt.Sprint(i))
				assert.NoError(t, err)
			}(svc, i)
		}
	}
	wg.Wait()

	doc, err := store.Get(ctx, docstore.ResourceChats)
	require.NoError(t, err)
	var chats []string
	require.NoError(t, json.Unmarshal(doc.Body, &chats))
	assert.Len(t, chats, 2*perService)
}
