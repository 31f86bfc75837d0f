package page

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgallion1/bionic/internal/engine"
	"github.com/dgallion1/bionic/internal/settings"
	"github.com/patrickmn/go-cache"
)

// Store tracks open sessions and closes those idle longer than the TTL.
type Store struct {
	c   *cache.Cache
	ttl time.Duration
}

// NewStore creates a store. A positive cleanup interval starts a background
// janitor that evicts idle sessions.
func NewStore(ttl, cleanup time.Duration) *Store {
	c := cache.New(ttl, cleanup)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.Close()
		}
	})
	return &Store{c: c, ttl: ttl}
}

func (st *Store) Put(s *Session) {
	st.c.Set(s.ID, s, cache.DefaultExpiration)
}

// Get returns the session and extends its lifetime, or nil. A session evicted
// between the lookup and the refresh is reported as gone.
func (st *Store) Get(id string) *Session {
	v, ok := st.c.Get(id)
	if !ok {
		return nil
	}
	s := v.(*Session)
	if err := st.c.Replace(id, s, cache.DefaultExpiration); err != nil {
		return nil
	}
	return s
}

// Delete closes and forgets a session.
func (st *Store) Delete(id string) bool {
	if _, ok := st.c.Get(id); !ok {
		return false
	}
	st.c.Delete(id)
	return true
}

// Each calls fn for every live session.
func (st *Store) Each(fn func(*Session)) {
	for _, item := range st.c.Items() {
		if s, ok := item.Object.(*Session); ok {
			fn(s)
		}
	}
}

func (st *Store) Len() int {
	return st.c.ItemCount()
}

// Cleanup evicts expired sessions now.
func (st *Store) Cleanup() {
	st.c.DeleteExpired()
}

// Close closes every session.
func (st *Store) Close() {
	for id := range st.c.Items() {
		st.c.Delete(id)
	}
}

// Broadcast pushes s to every page that has an engine, the way a settings
// change reaches all open tabs. Pages without an engine are skipped. It
// returns the number of pages that accepted the update.
func (st *Store) Broadcast(ctx context.Context, s settings.Settings, log *slog.Logger) int {
	s = s.Normalize()
	msg := engine.Message{Action: engine.ActionApply, Enabled: &s.Enabled, BoldRatio: &s.BoldRatio}
	n := 0
	st.Each(func(sess *Session) {
		_, err := sess.Send(ctx, msg)
		switch {
		case err == nil:
			n++
		case errors.Is(err, ErrNotLoaded):
		default:
			if log != nil {
				log.Warn("settings broadcast failed", "page_id", sess.ID, "error", err)
			}
		}
	})
	return n
}
