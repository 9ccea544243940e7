package docstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGist struct {
	mu       sync.Mutex
	files    map[string]string
	revision int
	auth     string
}

func (f *fakeGist) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = r.Header.Get("Authorization")

	if r.URL.Path != "/gists/g1" {
		http.NotFound(w, r)
		return
	}
	if r.Method == http.MethodPatch {
		var patch gistPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for name, file := range patch.Files {
			f.files[name] = file.Content
		}
		f.revision++
	} else if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	resp := map[string]any{
		"files":   map[string]any{},
		"history": []map[string]string{{"version": "rev" + strconv.Itoa(f.revision)}},
	}
	for name, content := range f.files {
		resp["files"].(map[string]any)[name] = map[string]any{"content": content}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func TestGistStore_ReadWriteFile(t *testing.T) {
	fake := &fakeGist{files: map[string]string{"users.json": `{"alice":{}}`}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := NewGistStore(srv.URL, "g1", "ghp_test", srv.Client())
	ctx := context.Background()

	doc, err := s.Get(ctx, ResourceUsers)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alice":{}}`, string(doc.Body))
	assert.Equal(t, "rev0", doc.Version)

	_, err = s.Get(ctx, ResourceChats)
	assert.ErrorIs(t, err, ErrNotFound)

	version, err := s.Put(ctx, ResourceUsers, []byte(`{"alice":{},"bob":{}}`), Condition{IfMatch: doc.Version})
	require.NoError(t, err)
	assert.Equal(t, "rev1", version)

	fake.mu.Lock()
	assert.JSONEq(t, `{"alice":{},"bob":{}}`, fake.files["users.json"])
	assert.Equal(t, "Bearer ghp_test", fake.auth)
	fake.mu.Unlock()
}

func TestGistStore_StaleRevisionConflicts(t *testing.T) {
	fake := &fakeGist{files: map[string]string{"users.json": `{}`}, revision: 4}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := NewGistStore(srv.URL, "g1", "ghp_test", srv.Client())
	_, err := s.Put(context.Background(), ResourceUsers, []byte(`{}`), Condition{IfMatch: "rev3"})
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = s.Put(context.Background(), ResourceUsers, []byte(`{}`), Condition{IfAbsent: true})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.False(t, s.Conditional())
}

func TestGistStore_TruncatedFileUsesRawURL(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/gists/g1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"files": map[string]any{
				"chats.json": map[string]any{"content": `["a: 1"`, "truncated": true, "raw_url": srv.URL + "/raw/chats.json"},
			},
			"updated_at": "2026-01-01T00:00:00Z",
		})
	})
	mux.HandleFunc("/raw/chats.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `["a: 1","b: 2"]`)
	})

	s := NewGistStore(srv.URL, "g1", "ghp_test", srv.Client())
	doc, err := s.Get(context.Background(), ResourceChats)
	require.NoError(t, err)
	assert.JSONEq(t, `["a: 1","b: 2"]`, string(doc.Body))
	assert.Equal(t, "2026-01-01T00:00:00Z", doc.Version)
}
