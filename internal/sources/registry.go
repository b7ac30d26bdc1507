package sources

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/brogergvhs/mangacap/internal/ui"
)

// ErrAdapterNotFound is returned when a caller names a site no adapter is
// registered for. This is a caller error, not a scrape failure.
var ErrAdapterNotFound = errors.New("adapter not found")

// Registry maps site identifiers to adapters. It is the only place adapters
// are constructed; everything else dispatches through it. Iteration order is
// registration order, which callers rely on for result grouping.
type Registry struct {
	order    []string
	adapters map[string]Adapter
}

// NewRegistry builds the registry with every known adapter, skipping sites
// not in the enabled set. An empty enabled set means all sites.
func NewRegistry(client *http.Client, log *ui.Logger, enabled []string) *Registry {
	r := &Registry{adapters: map[string]Adapter{}}

	allow := map[string]bool{}
	for _, s := range enabled {
		allow[s] = true
	}

	for _, a := range []Adapter{
		newMgeko(client, log),
		newMgekoJumbo(client, log),
		newThunderScans(client, log),
		newMangaDex(client, log),
	} {
		if len(allow) > 0 && !allow[a.Site()] {
			continue
		}
		r.register(a)
	}

	return r
}

// NewRegistryWith builds a registry from explicit adapters, in the order
// given. Callers composing their own adapter set (and tests) use this.
func NewRegistryWith(adapters ...Adapter) *Registry {
	r := &Registry{adapters: map[string]Adapter{}}
	for _, a := range adapters {
		r.register(a)
	}
	return r
}

func (r *Registry) register(a Adapter) {
	if _, dup := r.adapters[a.Site()]; dup {
		panic(fmt.Sprintf("duplicate adapter registration: %s", a.Site()))
	}
	r.order = append(r.order, a.Site())
	r.adapters[a.Site()] = a
}

// Get resolves a site identifier to its adapter.
func (r *Registry) Get(siteName string) (Adapter, error) {
	a, ok := r.adapters[siteName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAdapterNotFound, siteName)
	}
	return a, nil
}

// Sites lists registered site identifiers in registration order.
func (r *Registry) Sites() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
