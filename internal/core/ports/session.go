package ports

import (
	"errors"

	"github.com/philiph/caddy-pub-resolver/internal/core/domain"
)

// DescriptorStore is the port interface for per-session descriptor storage.
type DescriptorStore interface {
	// Create stores a descriptor and returns a token for the session.
	Create(descriptor *domain.PublicationDescriptor) (string, error)

	// Get retrieves a descriptor by token. Returns ErrDescriptorNotFound
	// if the token is invalid, expired, or not found.
	Get(token string) (*domain.PublicationDescriptor, error)

	// Delete removes a stored descriptor. For stateless implementations
	// (JWT cookies) this may be a no-op as actual cookie removal happens
	// in the HTTP layer.
	Delete(token string) error
}

// ErrDescriptorNotFound is returned when a session descriptor cannot be
// found or is invalid.
var ErrDescriptorNotFound = errors.New("publication descriptor not found")
