package discovery

import (
	"context"
	"sync"

	"github.com/philiph/caddy-pub-resolver/internal/core/domain"
	"github.com/philiph/caddy-pub-resolver/internal/core/ports"
)

// InMemoryDiscoveryProvider is an in-memory implementation of
// DiscoveryProvider. Suitable for testing and development.
type InMemoryDiscoveryProvider struct {
	mu    sync.RWMutex
	stubs map[string]int
	err   error
	calls int
}

// NewInMemoryDiscoveryProvider creates a new in-memory discovery provider.
func NewInMemoryDiscoveryProvider() *InMemoryDiscoveryProvider {
	return &InMemoryDiscoveryProvider{
		stubs: make(map[string]int),
	}
}

// Add maps a stub to a publication id.
func (p *InMemoryDiscoveryProvider) Add(stub string, id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stubs[stub] = id
}

// FailWith makes every subsequent lookup return err.
func (p *InMemoryDiscoveryProvider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Calls returns the number of lookups performed.
func (p *InMemoryDiscoveryProvider) Calls() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls
}

// DiscoverPublicationID looks up the publication id for a URL stub.
// Unknown stubs report UnresolvedID, mirroring the HTTP adapter's 404
// behavior.
func (p *InMemoryDiscoveryProvider) DiscoverPublicationID(ctx context.Context, stub string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return 0, p.err
	}
	id, ok := p.stubs[stub]
	if !ok {
		return domain.UnresolvedID, nil
	}
	return id, nil
}

// Ensure InMemoryDiscoveryProvider implements ports.DiscoveryProvider
var _ ports.DiscoveryProvider = (*InMemoryDiscoveryProvider)(nil)
