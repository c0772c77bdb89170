// internal/component/registry.go
//
// Component registry.
//
// Each concrete component lives under components/<name>.  Unlike a plain
// init()-time registry, Folio components need runtime collaborators (the
// session store, the rate limiter), so cmd/web builds them and calls
// Register.  Mount then attaches every component's Routes() under
// “/api/<name>”, so two components can never claim the same path.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Component contract.  Routes() paths are relative to the mount point, e.g.
// for a component named "contact":
//
//	r := chi.NewRouter()
//	r.Get("/", getState)        // GET /api/contact
//	r.Post("/submit", submit)   // POST /api/contact/submit
//	return r
type Component interface {
	Name() string
	Routes() chi.Router
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register adds c, replacing any component with the same name.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount attaches every registered component to r under /api/<name>.
func Mount(r chi.Router) {
	for _, c := range All() {
		r.Mount("/api/"+c.Name(), c.Routes())
	}
}
