package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), ResourceUsers)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ConditionalWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	v1, err := s.Put(ctx, ResourceUsers, []byte(`{}`), Condition{IfAbsent: true})
	require.NoError(t, err)

	_, err = s.Put(ctx, ResourceUsers, []byte(`{"a":1}`), Condition{IfAbsent: true})
	assert.ErrorIs(t, err, ErrVersionConflict)

	v2, err := s.Put(ctx, ResourceUsers, []byte(`{"a":1}`), Condition{IfMatch: v1})
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)

	_, err = s.Put(ctx, ResourceUsers, []byte(`{"stale":true}`), Condition{IfMatch: v1})
	assert.ErrorIs(t, err, ErrVersionConflict)

	doc, err := s.Get(ctx, ResourceUsers)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(doc.Body))
	assert.Equal(t, v2, doc.Version)
}

func TestMemoryStore_UnconditionalIgnoresConditions(t *testing.T) {
	ctx := context.Background()
	s := NewUnconditionalMemoryStore()
	assert.False(t, s.Conditional())

	s.Seed(ResourceUsers, []byte(`{"old":true}`))
	_, err := s.Put(ctx, ResourceUsers, []byte(`{"new":true}`), Condition{IfMatch: "999"})
	require.NoError(t, err)

	doc, err := s.Get(ctx, ResourceUsers)
	require.NoError(t, err)
	assert.JSONEq(t, `{"new":true}`, string(doc.Body))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	body := []byte(`{"x":1}`)
	s.Seed(ResourceChats, body)
	body[2] = 'y'

	doc, err := s.Get(context.Background(), ResourceChats)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(doc.Body))
}
