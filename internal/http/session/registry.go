// Package session keeps the per-account metadata caches of the API server and
// builds the workspace each request runs against.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
)

type entry struct {
	cache    *sharepoint.Cache
	lastSeen time.Time
}

// Registry maps session keys to metadata caches. Caches unused for longer than
// the idle timeout are dropped the next time the registry is consulted.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	idle    time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// Key names the session of a Graph token. Account ids are read from tokens
// that are not verified here, so the key also carries a digest of the token
// itself; a token claiming someone else's id gets a session of its own.
func Key(accountID, graphToken string) string {
	sum := sha256.Sum256([]byte(graphToken))
	return accountID + "/" + hex.EncodeToString(sum[:16])
}

func NewRegistry(idle time.Duration, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		entries: make(map[string]*entry),
		idle:    idle,
		now:     time.Now,
		log:     log,
	}
}

// Cache returns the cache of key, creating it on first use. fresh reports
// whether it was just created.
func (r *Registry) Cache(key string) (cache *sharepoint.Cache, fresh bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evict(now)

	e, ok := r.entries[key]
	if !ok {
		e = &entry{cache: sharepoint.NewCache()}
		r.entries[key] = e
	}

	e.lastSeen = now

	return e.cache, !ok
}

// Discard drops the cache of key. It reports whether there was one.
func (r *Registry) Discard(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return false
	}

	e.cache.Discard()
	delete(r.entries, key)

	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

func (r *Registry) evict(now time.Time) {
	if r.idle <= 0 {
		return
	}

	for key, e := range r.entries {
		if now.Sub(e.lastSeen) > r.idle {
			e.cache.Discard()
			delete(r.entries, key)
			r.log.Debug("evicted idle session", "session", key)
		}
	}
}
