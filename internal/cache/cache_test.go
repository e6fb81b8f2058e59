package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client), mr
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	store.Set(ctx, "supplier:abc", payload{Name: "Acme", Count: 3}, EntityTTL)

	var got payload
	require.True(t, store.Get(ctx, "supplier:abc", &got))
	assert.Equal(t, payload{Name: "Acme", Count: 3}, got)

	// TTL is applied, not left unbounded
	ttl := mr.TTL("supplier:abc")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, EntityTTL)
}

func TestStore_GetMiss(t *testing.T) {
	store, _ := newTestStore(t)

	var got payload
	assert.False(t, store.Get(context.Background(), "supplier:missing", &got))
}

func TestStore_CorruptEntryIsDropped(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("supplier:abc", "{not json"))

	var got payload
	assert.False(t, store.Get(ctx, "supplier:abc", &got))
	// The bad entry is evicted so the next write starts clean
	assert.False(t, mr.Exists("supplier:abc"))
}

func TestStore_InvalidateMissingKeyIsNoOp(t *testing.T) {
	store, _ := newTestStore(t)

	// Must not error or log-spam on keys that were never set
	store.Invalidate(context.Background(), "supplier:never-set", "contract:never-set")
}

func TestStore_InvalidateByPrefix(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	store.Set(ctx, ListKey("supplier", 1, 20, nil), payload{Name: "page1"}, ListTTL)
	store.Set(ctx, ListKey("supplier", 2, 20, map[string]string{"status": "PENDING"}), payload{Name: "page2"}, ListTTL)
	store.Set(ctx, EntityKey("supplier", "abc"), payload{Name: "entity"}, EntityTTL)
	store.Set(ctx, ListKey("contract", 1, 20, nil), payload{Name: "other-type"}, ListTTL)

	store.InvalidateByPrefix(ctx, ListPrefix("supplier"))

	// Every supplier list slot is gone; the entity key and other types survive
	var got payload
	assert.False(t, store.Get(ctx, ListKey("supplier", 1, 20, nil), &got))
	assert.False(t, store.Get(ctx, ListKey("supplier", 2, 20, map[string]string{"status": "PENDING"}), &got))
	assert.True(t, mr.Exists(EntityKey("supplier", "abc")))
	assert.True(t, store.Get(ctx, ListKey("contract", 1, 20, nil), &got))
}

func TestStore_NilClientDisablesCaching(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	store.Set(ctx, "supplier:abc", payload{Name: "Acme"}, EntityTTL)
	var got payload
	assert.False(t, store.Get(ctx, "supplier:abc", &got))
	store.Invalidate(ctx, "supplier:abc")
	store.InvalidateByPrefix(ctx, ListPrefix("supplier"))
}

func TestListKey_DeterministicAndFilterSensitive(t *testing.T) {
	a := ListKey("supplier", 1, 20, map[string]string{"status": "PENDING", "search": "acme"})
	b := ListKey("supplier", 1, 20, map[string]string{"search": "acme", "status": "PENDING"})
	assert.Equal(t, a, b)

	// Empty filter values do not perturb the key
	c := ListKey("supplier", 1, 20, map[string]string{"status": "", "search": ""})
	d := ListKey("supplier", 1, 20, nil)
	assert.Equal(t, c, d)

	assert.NotEqual(t, a, ListKey("supplier", 2, 20, map[string]string{"status": "PENDING", "search": "acme"}))
	assert.NotEqual(t, a, ListKey("supplier", 1, 20, map[string]string{"status": "APPROVED", "search": "acme"}))
}
