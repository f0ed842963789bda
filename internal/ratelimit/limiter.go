// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

// Package ratelimit enforces per-client request budgets by endpoint class.
//
// Each class (auth, general, call) has its own budget: Points requests per
// Window. A client that exhausts a budget is blocked for the class's Block
// duration and every rejection tells the client how long to wait.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/qrcall/internal/config"
	"github.com/tomtom215/qrcall/internal/logging"
	"github.com/tomtom215/qrcall/internal/metrics"
)

// Class identifies a request budget class.
type Class string

const (
	ClassAuth    Class = "auth"
	ClassGeneral Class = "general"
	ClassCall    Class = "call"
)

// Counter is the admission decision backend. Implementations must be safe
// for concurrent use. The in-memory implementation below is the default; the
// interface exists so a shared backend can be swapped in without touching
// the middleware.
type Counter interface {
	// Take records one request for key under budget b and reports whether
	// it is admitted. When denied, retryAfter is how long the client must
	// wait before the next request can succeed.
	Take(key string, b config.RateLimitBudget) (allowed bool, retryAfter time.Duration)

	// Remaining reports how many requests key has left in the current window.
	Remaining(key string, b config.RateLimitBudget) int
}

const windowBuckets = 12

// windowEntry is one client's state for one class: a bucketed circular
// buffer summing to the in-window request count, plus the block deadline.
type windowEntry struct {
	buckets      []int64
	bucketSize   time.Duration
	current      int
	lastUpdate   time.Time
	blockedUntil time.Time
}

func newWindowEntry(window time.Duration) *windowEntry {
	return &windowEntry{
		buckets:    make([]int64, windowBuckets),
		bucketSize: window / windowBuckets,
		lastUpdate: time.Now(),
	}
}

// advance moves the window forward based on elapsed time.
// Must be called with the owning store's lock held.
func (e *windowEntry) advance(now time.Time) {
	elapsed := now.Sub(e.lastUpdate)
	bucketsElapsed := int(elapsed / e.bucketSize)
	if bucketsElapsed <= 0 {
		return
	}
	if bucketsElapsed >= len(e.buckets) {
		for i := range e.buckets {
			e.buckets[i] = 0
		}
		e.current = 0
	} else {
		for i := 0; i < bucketsElapsed; i++ {
			e.current = (e.current + 1) % len(e.buckets)
			e.buckets[e.current] = 0
		}
	}
	e.lastUpdate = now
}

func (e *windowEntry) count() int64 {
	var total int64
	for _, c := range e.buckets {
		total += c
	}
	return total
}

// MemoryCounter is the in-process Counter backend. Entries are keyed by
// client key and lazily created; idle entries are evicted when the map
// exceeds maxKeys.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	maxKeys int
}

// NewMemoryCounter creates an in-memory counter bounded to maxKeys tracked
// clients (0 means unlimited).
func NewMemoryCounter(maxKeys int) *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]*windowEntry),
		maxKeys: maxKeys,
	}
}

// Take implements Counter.
func (m *MemoryCounter) Take(key string, b config.RateLimitBudget) (bool, time.Duration) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entry(key, b.Window)

	if now.Before(entry.blockedUntil) {
		return false, entry.blockedUntil.Sub(now)
	}

	entry.advance(now)
	if entry.count() >= int64(b.Points) {
		entry.blockedUntil = now.Add(b.Block)
		return false, b.Block
	}
	entry.buckets[entry.current]++
	return true, 0
}

// Remaining implements Counter.
func (m *MemoryCounter) Remaining(key string, b config.RateLimitBudget) int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entry(key, b.Window)
	if now.Before(entry.blockedUntil) {
		return 0
	}
	entry.advance(now)
	remaining := b.Points - int(entry.count())
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// entry returns the window state for key, creating it if needed.
// Must be called with m.mu held.
func (m *MemoryCounter) entry(key string, window time.Duration) *windowEntry {
	entry, ok := m.entries[key]
	if !ok {
		if m.maxKeys > 0 && len(m.entries) >= m.maxKeys {
			m.evictIdle()
		}
		entry = newWindowEntry(window)
		m.entries[key] = entry
	}
	return entry
}

// evictIdle drops unblocked entries with empty windows; if none qualify it
// removes an arbitrary entry so the map stays bounded.
// Must be called with m.mu held.
func (m *MemoryCounter) evictIdle() {
	now := time.Now()
	for key, entry := range m.entries {
		entry.advance(now)
		if entry.count() == 0 && !now.Before(entry.blockedUntil) {
			delete(m.entries, key)
			return
		}
	}
	for key := range m.entries {
		delete(m.entries, key)
		return
	}
}

// Limiter applies class budgets as chi middleware.
type Limiter struct {
	cfg     config.RateLimitConfig
	counter Counter
}

// New creates a Limiter over counter with the configured budgets.
func New(cfg config.RateLimitConfig, counter Counter) *Limiter {
	return &Limiter{cfg: cfg, counter: counter}
}

func (l *Limiter) budget(class Class) config.RateLimitBudget {
	switch class {
	case ClassAuth:
		return l.cfg.Auth
	case ClassCall:
		return l.cfg.Call
	default:
		return l.cfg.General
	}
}

// Middleware returns a middleware enforcing the class budget per client IP.
// Budgets are tracked per class, so exhausting the call budget does not
// block authentication requests from the same client.
func (l *Limiter) Middleware(class Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.cfg.Disabled {
				next.ServeHTTP(w, r)
				return
			}

			b := l.budget(class)
			key := string(class) + ":" + clientKey(r)

			allowed, retryAfter := l.counter.Take(key, b)
			if !allowed {
				metrics.RateLimitRejections.WithLabelValues(string(class)).Inc()
				logging.Debug().
					Str("class", string(class)).
					Str("path", r.URL.Path).
					Dur("retry_after", retryAfter).
					Msg("request rate limited")
				writeRateLimited(w, r, b, retryAfter)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(b.Points))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.counter.Remaining(key, b)))
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey extracts the client identity used for budget tracking. The
// remote IP is the key; the port changes per connection and must not split
// one client's budget across connections.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitedBody mirrors the API error envelope. Written directly here so
// the limiter does not depend on the api package.
type rateLimitedBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, b config.RateLimitBudget, retryAfter time.Duration) {
	seconds := int(retryAfter / time.Second)
	if retryAfter%time.Second > 0 {
		seconds++
	}
	if seconds < 1 {
		seconds = 1
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(b.Points))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)

	var body rateLimitedBody
	body.Error.Code = "RATE_LIMITED"
	body.Error.Message = fmt.Sprintf("Too many requests, retry in %d seconds", seconds)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("failed to write rate limit response")
	}
}
