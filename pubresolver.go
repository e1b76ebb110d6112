// Package caddypubresolver provides a Caddy v2 plugin that resolves which
// CMS publication an inbound request belongs to, based on the request URL.
// The resolved descriptor is cached process-wide by URL stub, memoized in a
// session cookie, and exposed to downstream handlers via request context
// and X-Publication-* headers.
package caddypubresolver

import (
	resolver "github.com/philiph/caddy-pub-resolver/internal/adapters/driving/caddy"
	"github.com/philiph/caddy-pub-resolver/internal/core/domain"
	"github.com/philiph/caddy-pub-resolver/internal/core/ports"
)

// Re-export the core domain types.
type PublicationDescriptor = domain.PublicationDescriptor

// Re-export the port interfaces for callers that inject their own adapters.
type (
	DiscoveryProvider = ports.DiscoveryProvider
	DescriptorStore   = ports.DescriptorStore
	StubCache         = ports.StubCache
	MetricsRecorder   = ports.MetricsRecorder
)

// Re-export the resolver surface.
type (
	PubResolver    = resolver.PubResolver
	Resolver       = resolver.Resolver
	Resolution     = resolver.Resolution
	ResolverOption = resolver.ResolverOption
	Config         = resolver.Config
)

// UnresolvedID is the sentinel publication id for unresolved requests.
const UnresolvedID = domain.UnresolvedID

// Publication headers set for downstream handlers.
const (
	HeaderPublicationID  = resolver.HeaderPublicationID
	HeaderPublicationURL = resolver.HeaderPublicationURL
	HeaderImagesURL      = resolver.HeaderImagesURL
)

var (
	// EmptyDescriptor returns the ephemeral descriptor for unresolvable requests.
	EmptyDescriptor = domain.EmptyDescriptor

	// NormalizeURL and CreatePathFromURI are the URL helpers used for
	// stub derivation.
	NormalizeURL      = domain.NormalizeURL
	CreatePathFromURI = domain.CreatePathFromURI

	// GetDescriptor retrieves the resolved descriptor from a request.
	GetDescriptor = resolver.GetDescriptor

	// SetResolver and CurrentResolver are the process-wide resolver
	// accessor for template glue code.
	SetResolver     = resolver.SetResolver
	CurrentResolver = resolver.CurrentResolver

	// NewResolver constructs a resolver from explicit collaborators.
	NewResolver = resolver.NewResolver

	// Resolver options.
	WithLevel           = resolver.WithLevel
	WithIncludePattern  = resolver.WithIncludePattern
	WithContextPath     = resolver.WithContextPath
	WithResolverLogger  = resolver.WithResolverLogger
	WithMetricsRecorder = resolver.WithMetricsRecorder

	// CompileIncludePattern compiles a whole-stub include pattern.
	CompileIncludePattern = resolver.CompileIncludePattern
)

// Sentinel errors.
var (
	ErrNoPublication      = domain.ErrNoPublication
	ErrDescriptorNotFound = ports.ErrDescriptorNotFound
)
