package ports

import "context"

// DiscoveryProvider is the port interface for the CMS discovery service.
// It maps a URL stub to the publication id that owns that URL prefix.
type DiscoveryProvider interface {
	// DiscoverPublicationID looks up the publication id for a URL stub.
	// A non-positive id means the stub is known but not mapped to any
	// publication; an error means the lookup itself failed and must be
	// treated as fatal for the current resolution attempt.
	DiscoverPublicationID(ctx context.Context, stub string) (int, error)
}
