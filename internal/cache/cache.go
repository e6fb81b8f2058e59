package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLs: single entities are stable, list results are volatile and cheap to
// recompute, so they expire much sooner.
const (
	EntityTTL = 3600 * time.Second
	ListTTL   = 300 * time.Second
)

// Store is a read-through cache over Redis. It is never the system of record:
// every operation degrades to a miss/no-op when Redis is unavailable, so a
// cache failure can never fail a request.
type Store struct {
	client *redis.Client
}

// NewStore wraps a Redis client. A nil client disables caching entirely.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get unmarshals the cached JSON value into dest. Returns false on miss,
// corrupt data, or any Redis error.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) bool {
	if s == nil || s.client == nil {
		return false
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		log.Printf("cache: get %s failed: %v", key, err)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// Corrupt entry — drop it and fall through to the source of truth
		s.client.Del(ctx, key)
		return false
	}
	return true
}

// Set stores value as JSON under key with the given TTL.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s == nil || s.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache: marshal for %s failed: %v", key, err)
		return
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("cache: set %s failed: %v", key, err)
	}
}

// Invalidate deletes specific keys. Deleting a key that was never set is a
// no-op, not an error.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if s == nil || s.client == nil || len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache: del %v failed: %v", keys, err)
	}
}

// InvalidateByPrefix deletes every key under prefix (list-query slots).
func (s *Store) InvalidateByPrefix(ctx context.Context, prefix string) {
	if s == nil || s.client == nil {
		return
	}
	keys, err := s.client.Keys(ctx, prefix+"*").Result()
	if err != nil {
		log.Printf("cache: keys %s* failed: %v", prefix, err)
		return
	}
	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			log.Printf("cache: del by prefix %s failed: %v", prefix, err)
		}
	}
}

// EntityKey returns the cache key for one entity, e.g. "supplier:<id>".
func EntityKey(prefix, id string) string {
	return prefix + ":" + id
}

// ListPrefix returns the shared prefix for all list-query slots of an entity
// type; mutations invalidate everything under it.
func ListPrefix(prefix string) string {
	return prefix + ":list:"
}

// ListKey builds a deterministic key for a paginated/filtered list query so
// identical queries hit the same slot. Filter map keys are sorted before
// serialization.
func ListKey(prefix string, page, limit int, filter map[string]string) string {
	parts := make([]string, 0, len(filter))
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if filter[k] != "" {
			parts = append(parts, k+"="+filter[k])
		}
	}
	return fmt.Sprintf("%s%d:%d:%s", ListPrefix(prefix), page, limit, strings.Join(parts, "&"))
}
