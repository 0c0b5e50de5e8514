// Package ratelimit implements a fixed-window request counter keyed by
// client address. The window lives in an external store so every instance
// of the API shares one budget per client.
package ratelimit

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore increments a counter for key and returns the count within the
// current window. The first increment of a window arms the expiry.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// The increment and the expiry must be one atomic unit. Issued as separate
// commands, a crash between them leaves the key without a TTL and the window
// never resets; the script also re-arms expiry on any key found without one.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	return incrScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore is a process-local CounterStore for tests and development.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter

	// Now is stubbed by tests to step through window expiry.
	Now func() time.Time
}

type memoryCounter struct {
	count   int64
	resetAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*memoryCounter),
		Now:      time.Now,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &memoryCounter{resetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}

type Limiter struct {
	store  CounterStore
	limit  int64
	window time.Duration
}

func New(store CounterStore, limit int64, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow reports whether the request under key fits the current window.
// A failing store admits the request; availability wins over strictness
// when the counter backend is down.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	n, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		log.Printf("Rate limit store error for %s: %v", key, err)
		return true
	}
	return n <= l.limit
}

// ClientKey derives the limiter key from the first X-Forwarded-For entry.
// Only meaningful behind a proxy that sets the header; otherwise everything
// collapses onto the loopback key.
func ClientKey(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return "127.0.0.1"
	}
	if i := strings.Index(forwarded, ","); i >= 0 {
		forwarded = forwarded[:i]
	}
	return strings.TrimSpace(forwarded)
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r.Context(), "ratelimit:"+ClientKey(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "Too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
