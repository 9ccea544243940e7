package feed

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/symbolic-cat-go/logging"
)

func TestEventFraming(t *testing.T) {
	var b strings.Builder
	_, err := Event{ID: "7", Name: "comment", Data: "line one\nline two"}.WriteTo(&b)
	require.NoError(t, err)
	assert.Equal(t, "id: 7\nevent: comment\ndata: line one\ndata: line two\n\n", b.String())

	b.Reset()
	_, err = NewEvent("", "hi").WriteTo(&b)
	require.NoError(t, err)
	assert.Equal(t, "data: hi\n\n", b.String())
}

func TestPublishFansOut(t *testing.T) {
	b := NewBroadcaster(logging.Discard())
	idA, a := b.NewClient()
	_, c := b.NewClient()
	assert.Equal(t, 2, b.Len())

	b.Publish(NewEvent("comment", "bob: hi"))
	assert.Equal(t, "bob: hi", (<-a).Data)
	assert.Equal(t, "bob: hi", (<-c).Data)

	b.RemoveClient(idA)
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, b.Len())
	b.RemoveClient(idA)
}

func TestPublishDropsForSlowClient(t *testing.T) {
	b := NewBroadcaster(logging.Discard())
	_, slow := b.NewClient()

	for i := 0; i < clientBuffer+5; i++ {
		b.Publish(NewEvent("", "x"))
	}
	assert.Len(t, slow, clientBuffer)
}

func TestStream(t *testing.T) {
	b := NewBroadcaster(logging.Discard())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.Stream(w, r, 0)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)
	_, _ = reader.ReadString('\n')

	b.Publish(NewEvent("comment", "alice: meow"))
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: comment\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: alice: meow\n", line)

	cancel()
	assert.Eventually(t, func() bool { return b.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCloseEndsClients(t *testing.T) {
	b := NewBroadcaster(logging.Discard())
	_, a := b.NewClient()

	b.Close()
	_, open := <-a
	assert.False(t, open)
	assert.Zero(t, b.Len())

	_, late := b.NewClient()
	_, open = <-late
	assert.False(t, open)
	assert.Zero(t, b.Len())
}
