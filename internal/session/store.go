// internal/session/store.go
//
// Folio – Session subsystem: per-visitor controller cache.
//
// Context
//   Store maps a visitor id to its *contact.Controller.  Controllers are
//   created lazily on first use, kept in a sync.Map, and released by a
//   background evictor.  Every EvictInterval it removes:
//
//     - controllers idle longer than idleTTL
//     - least-recently-used controllers while size exceeds maxEntries
//
//   Handlers reach a controller through Use, which pins the entry for the
//   duration of the call.  Eviction skips pinned entries and closes the
//   rest with Controller.CloseIfIdle, so a controller with a delivery in
//   flight is never evicted and no request works on an evicted one.
//
// Notes
//   •  singleflight collapses concurrent first requests for one id.
//   •  Close waits for detached deliveries, so resources they use (the
//      archive DB) can be closed after it.
//   •  Evictions update Prometheus gauges in internal/metrics.
//
//------------------------------------------------------------------------------

package session

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/folio/internal/contact"
	"github.com/yanizio/folio/internal/metrics"
)

// Factory builds the controller for a new visitor.
type Factory func(id string) *contact.Controller

type entry struct {
	ctrl     *contact.Controller
	lastSeen int64 // UnixNano

	mu   sync.Mutex
	refs int  // callers inside Use
	gone bool // removed from the map; pin a fresh entry instead
}

// Store is safe for concurrent use.
type Store struct {
	factory    Factory
	idleTTL    time.Duration
	maxEntries int
	clock      clock.Clock
	log        *zap.SugaredLogger

	sfg  singleflight.Group
	m    sync.Map
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// NewStore constructs a Store and starts the evictor.  Zero idleTTL or
// maxEntries disables that pass.
func NewStore(f Factory, idleTTL time.Duration, maxEntries int, evictInterval time.Duration) *Store {
	return newStore(f, idleTTL, maxEntries, evictInterval, clock.New())
}

func newStore(f Factory, idleTTL time.Duration, maxEntries int, evictInterval time.Duration, clk clock.Clock) *Store {
	s := &Store{
		factory:    f,
		idleTTL:    idleTTL,
		maxEntries: maxEntries,
		clock:      clk,
		log:        zap.S().Named("session"),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if evictInterval <= 0 {
		evictInterval = time.Minute
	}
	go s.evictLoop(s.clock.Ticker(evictInterval))
	return s
}

// Get returns the controller for id, creating it on first use.  The
// controller is not pinned; request handlers use Use.
func (s *Store) Get(id string) *contact.Controller {
	return s.load(id).ctrl
}

// Use runs fn against id's controller while pinning it, so the evictor
// cannot close it until fn returns.
func (s *Store) Use(id string, fn func(*contact.Controller) error) error {
	for {
		ent := s.load(id)
		ent.mu.Lock()
		if ent.gone {
			ent.mu.Unlock()
			continue
		}
		ent.refs++
		ent.mu.Unlock()

		err := fn(ent.ctrl)

		ent.mu.Lock()
		ent.refs--
		ent.mu.Unlock()
		return err
	}
}

// Drop removes id if it is currently held, closing its controller.
func (s *Store) Drop(id string) {
	v, ok := s.m.LoadAndDelete(id)
	if !ok {
		return
	}
	ent := v.(*entry)
	ent.mu.Lock()
	ent.gone = true
	ent.mu.Unlock()
	ent.ctrl.Close()
	metrics.ActiveSessions.Dec()
}

// Len counts held controllers.
func (s *Store) Len() int {
	n := 0
	s.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Close stops the evictor and closes every controller.
func (s *Store) Close() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
	s.m.Range(func(key, _ any) bool {
		s.Drop(key.(string))
		return true
	})
}

func (s *Store) load(id string) *entry {
	if v, ok := s.m.Load(id); ok {
		return s.touch(v.(*entry))
	}

	v, _, _ := s.sfg.Do(id, func() (any, error) {
		// Double-check after singleflight barrier.
		if v, ok := s.m.Load(id); ok {
			return s.touch(v.(*entry)), nil
		}
		ent := &entry{ctrl: s.factory(id), lastSeen: s.clock.Now().UnixNano()}
		s.m.Store(id, ent)
		metrics.ActiveSessions.Inc()
		return ent, nil
	})
	return v.(*entry)
}

func (s *Store) touch(ent *entry) *entry {
	atomic.StoreInt64(&ent.lastSeen, s.clock.Now().UnixNano())
	return ent
}

// ----------------------------------------------------------------------------
// Eviction
// ----------------------------------------------------------------------------

func (s *Store) evictLoop(t *clock.Ticker) {
	defer close(s.done)
	defer t.Stop()
	for {
		select {
		case <-s.quit:
			return
		case now := <-t.C:
			s.evictPass(now)
		}
	}
}

// evictPass runs both passes once and returns how many entries went.
func (s *Store) evictPass(now time.Time) int {
	evicted := 0

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	count := 0
	s.m.Range(func(key, value any) bool {
		count++
		ent := value.(*entry)
		idle := time.Duration(now.UnixNano() - atomic.LoadInt64(&ent.lastSeen))
		if s.idleTTL > 0 && idle > s.idleTTL && s.evict(key.(string), ent) {
			count--
			evicted++
			s.log.Debugw("visitor evicted", "id", key, "idle", idle.Truncate(time.Second))
		}
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	if s.maxEntries > 0 && count > s.maxEntries {
		type kv struct {
			key string
			ent *entry
			at  int64
		}
		var all []kv
		s.m.Range(func(key, value any) bool {
			ent := value.(*entry)
			all = append(all, kv{key: key.(string), ent: ent, at: atomic.LoadInt64(&ent.lastSeen)})
			return true
		})
		sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
		excess := len(all) - s.maxEntries
		for _, e := range all {
			if excess <= 0 {
				break
			}
			if s.evict(e.key, e.ent) {
				excess--
				evicted++
				s.log.Debugw("visitor evicted (LRU pressure)", "id", e.key)
			}
		}
	}
	return evicted
}

// evict removes ent unless it is pinned or its controller is sending.
// Holding ent.mu keeps Use from pinning it halfway through.
func (s *Store) evict(key string, ent *entry) bool {
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.gone || ent.refs > 0 {
		return false
	}
	if !ent.ctrl.CloseIfIdle() {
		return false
	}
	ent.gone = true
	if s.m.CompareAndDelete(key, ent) {
		metrics.ActiveSessions.Dec()
	}
	metrics.SessionsEvictedTotal.Inc()
	return true
}
