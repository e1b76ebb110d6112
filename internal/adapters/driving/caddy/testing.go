package caddy

import (
	"github.com/philiph/caddy-pub-resolver/internal/core/ports"
)

// NewPubResolverForTest creates a PubResolver instance with injected
// dependencies. This constructor is intended for testing purposes only.
func NewPubResolverForTest(
	config Config,
	resolver *Resolver,
	descriptorStore ports.DescriptorStore,
) *PubResolver {
	config.SetDefaults()
	return &PubResolver{
		Config:          config,
		resolver:        resolver,
		descriptorStore: descriptorStore,
	}
}
