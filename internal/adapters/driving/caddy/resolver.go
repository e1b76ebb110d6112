package caddy

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/philiph/caddy-pub-resolver/internal/core/domain"
	"github.com/philiph/caddy-pub-resolver/internal/core/ports"
)

// Resolver maps a request path to a PublicationDescriptor. It consults the
// per-session descriptor first, then the process-wide stub cache, and only
// then the discovery provider. All collaborators are constructor-injected.
type Resolver struct {
	level          int
	includePattern *regexp.Regexp
	contextPath    string
	provider       ports.DiscoveryProvider
	cache          ports.StubCache
	metrics        ports.MetricsRecorder
	logger         *zap.Logger
}

// ResolverOption is a functional option for configuring the resolver.
type ResolverOption func(*Resolver)

// WithLevel sets how many path segments deep to search for a valid stub.
func WithLevel(level int) ResolverOption {
	return func(r *Resolver) {
		r.level = level
	}
}

// WithIncludePattern restricts discovery to stubs matching the pattern.
// Non-matching stubs resolve to UnresolvedID without a discovery call.
func WithIncludePattern(pattern *regexp.Regexp) ResolverOption {
	return func(r *Resolver) {
		r.includePattern = pattern
	}
}

// WithContextPath sets the application context path that is stripped from
// request paths before stub derivation.
func WithContextPath(contextPath string) ResolverOption {
	return func(r *Resolver) {
		r.contextPath = contextPath
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(recorder ports.MetricsRecorder) ResolverOption {
	return func(r *Resolver) {
		r.metrics = recorder
	}
}

// NewResolver creates a resolver with the given discovery provider and
// stub cache. The default level is 1.
func NewResolver(provider ports.DiscoveryProvider, cache ports.StubCache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		level:    1,
		provider: provider,
		cache:    cache,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.metrics == nil {
		r.metrics = noopMetrics{}
	}
	return r
}

// noopMetrics avoids nil checks on every record call.
type noopMetrics struct{}

func (noopMetrics) RecordResolution(outcome string) {}
func (noopMetrics) RecordDiscovery(success bool)    {}
func (noopMetrics) RecordStubCacheLookup(hit bool)  {}

// Resolution is the outcome of resolving one request.
type Resolution struct {
	// Descriptor is never nil.
	Descriptor *domain.PublicationDescriptor

	// FromSession is true when the prior session descriptor was reused.
	FromSession bool

	// StoreInSession is true when the freshly resolved descriptor should
	// replace the session copy. Never set for the ephemeral empty
	// descriptor.
	StoreInSession bool

	// ClearSession is true when a prior session descriptor is stale and
	// must be removed (the fresh path is unresolvable).
	ClearSession bool
}

// Resolve computes the descriptor for a request path. prior is the
// descriptor stored in the caller's session, or nil.
//
// An unresolvable path (empty or root) is an expected condition and yields
// the ephemeral empty descriptor without error. A discovery provider
// failure is fatal for this resolution attempt: the error is returned and
// neither the session nor the stub cache is touched.
func (r *Resolver) Resolve(ctx context.Context, requestPath string, prior *domain.PublicationDescriptor) (*Resolution, error) {
	stub, ok := r.baseURL(requestPath)
	if !ok {
		r.metrics.RecordResolution(ports.ResolutionUnresolved)
		r.logger.Debug("no publication derivable for path",
			zap.String("path", requestPath))
		return &Resolution{
			Descriptor:   domain.EmptyDescriptor(),
			ClearSession: prior != nil,
		}, nil
	}

	if prior != nil && prior.PublicationURL == stub {
		r.metrics.RecordResolution(ports.ResolutionSession)
		return &Resolution{Descriptor: prior, FromSession: true}, nil
	}

	descriptor, outcome, err := r.createDescriptor(ctx, stub)
	if err != nil {
		return nil, err
	}
	r.metrics.RecordResolution(outcome)
	return &Resolution{Descriptor: descriptor, StoreInSession: true}, nil
}

// baseURL derives the lookup stub from the request path: the context path
// prefix is stripped and the remainder truncated to level segments.
// Returns false when no publication is derivable (empty or root path).
func (r *Resolver) baseURL(requestPath string) (string, bool) {
	urlPath := requestPath
	if r.contextPath != "" && strings.HasPrefix(urlPath, r.contextPath) {
		urlPath = urlPath[len(r.contextPath):]
	}
	if urlPath == "" || urlPath == "/" {
		return "", false
	}
	return domain.CreatePathFromURI(urlPath, r.level), true
}

// createDescriptor resolves a stub through the cache, the include pattern,
// and finally the discovery provider.
func (r *Resolver) createDescriptor(ctx context.Context, stub string) (*domain.PublicationDescriptor, string, error) {
	descriptor := &domain.PublicationDescriptor{
		PublicationURL: stub,
		ImageURL:       stub,
	}

	if id, ok := r.cache.Get(stub); ok {
		r.metrics.RecordStubCacheLookup(true)
		descriptor.ID = id
		return descriptor, ports.ResolutionCache, nil
	}
	r.metrics.RecordStubCacheLookup(false)

	if r.includePattern != nil && !r.includePattern.MatchString(stub) {
		descriptor.ID = domain.UnresolvedID
		return descriptor, ports.ResolutionExcluded, nil
	}

	id, err := r.provider.DiscoverPublicationID(ctx, stub)
	if err != nil {
		r.metrics.RecordDiscovery(false)
		return nil, "", fmt.Errorf("discover publication id for %q: %w", stub, err)
	}
	r.metrics.RecordDiscovery(true)

	if id > 0 {
		r.logger.Info("found publication id for stub",
			zap.Int("publication_id", id),
			zap.String("stub", stub))
		r.cache.Put(stub, id)
	} else {
		// Non-positive ids are returned to the caller but never cached;
		// the discovery contract defines their meaning.
		r.logger.Error("discovery returned non-positive publication id",
			zap.Int("publication_id", id),
			zap.String("stub", stub))
	}

	descriptor.ID = id
	return descriptor, ports.ResolutionDiscovery, nil
}

// PublicationID returns the publication id resolved for the request, or
// UnresolvedID when the middleware has not resolved the request.
func (r *Resolver) PublicationID(req *http.Request) int {
	if d := GetDescriptor(req); d != nil {
		return d.ID
	}
	return domain.UnresolvedID
}

// PublicationURL returns the resolved publication URL prefix.
func (r *Resolver) PublicationURL(req *http.Request) string {
	if d := GetDescriptor(req); d != nil {
		return d.PublicationURL
	}
	return ""
}

// ImagesURL returns the resolved image URL prefix.
func (r *Resolver) ImagesURL(req *http.Request) string {
	if d := GetDescriptor(req); d != nil {
		return d.ImageURL
	}
	return ""
}

// LocalPageURL returns the page URL in the resolved publication for the
// given generic URL, or "" when the request is unresolved.
func (r *Resolver) LocalPageURL(req *http.Request, url string) string {
	if d := GetDescriptor(req); d != nil {
		return d.LocalPageURL(url)
	}
	return ""
}

// LocalBinaryURL returns the binary URL in the resolved publication for
// the given generic URL, or "" when the request is unresolved.
func (r *Resolver) LocalBinaryURL(req *http.Request, url string) string {
	if d := GetDescriptor(req); d != nil {
		return d.LocalBinaryURL(url)
	}
	return ""
}

// CompileIncludePattern compiles an include pattern so that it must match
// the whole stub, not a substring.
func CompileIncludePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("compile include pattern: %w", err)
	}
	return re, nil
}
