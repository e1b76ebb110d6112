package caddy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"go.uber.org/zap"

	"github.com/philiph/caddy-pub-resolver/internal/core/domain"
	"github.com/philiph/caddy-pub-resolver/internal/core/ports"

	"github.com/philiph/caddy-pub-resolver/internal/adapters/driven/cache"
	envconfig "github.com/philiph/caddy-pub-resolver/internal/adapters/driven/config"
	"github.com/philiph/caddy-pub-resolver/internal/adapters/driven/discovery"
	"github.com/philiph/caddy-pub-resolver/internal/adapters/driven/metrics"
	"github.com/philiph/caddy-pub-resolver/internal/adapters/driven/session"
)

// Version is the plugin version, reported by the health endpoint.
const Version = "0.3.0"

// Publication headers set for downstream handlers.
const (
	HeaderPublicationID  = "X-Publication-Id"
	HeaderPublicationURL = "X-Publication-Url"
	HeaderImagesURL      = "X-Publication-Images-Url"
)

func init() {
	caddy.RegisterModule(PubResolver{})
	httpcaddyfile.RegisterHandlerDirective("pub_resolver", ParseCaddyfile)
}

// descriptorContextKey is the context key for the resolved descriptor.
type descriptorContextKey struct{}

// GetDescriptor retrieves the resolved publication descriptor from the
// request context. Returns nil if the request has not passed through the
// resolver middleware.
func GetDescriptor(r *http.Request) *domain.PublicationDescriptor {
	descriptor, _ := r.Context().Value(descriptorContextKey{}).(*domain.PublicationDescriptor)
	return descriptor
}

// PubResolver is a Caddy HTTP handler module that resolves which CMS
// publication each request belongs to. The result is exposed to downstream
// handlers via request context and X-Publication-* headers, memoized in a
// descriptor session cookie, and cached process-wide by URL stub.
type PubResolver struct {
	// Configuration embedded directly
	Config

	// Runtime state (not serialized)
	resolver        *Resolver
	descriptorStore ports.DescriptorStore
	stubCache       ports.StubCache
	metricsRecorder ports.MetricsRecorder
	sessionDuration time.Duration
	logger          *zap.Logger
}

// CaddyModule returns the Caddy module information.
func (PubResolver) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID:  "http.handlers.pub_resolver",
		New: func() caddy.Module { return new(PubResolver) },
	}
}

// Provision sets up the module.
func (p *PubResolver) Provision(ctx caddy.Context) error {
	p.logger = ctx.Logger()
	p.logger.Debug("provisioning publication resolver")

	p.Config.SetDefaults()
	p.initMetricsRecorder()

	// Fall back to static per-deployment parameters for fields not set
	// explicitly in the module config.
	params, err := envconfig.LoadDeploymentParams()
	if err != nil {
		return fmt.Errorf("load deployment parameters: %w", err)
	}
	if p.IncludePattern == "" && params.IncludePattern != "" {
		p.IncludePattern = params.IncludePattern
		p.logger.Debug("include pattern from deployment parameter",
			zap.String("include_pattern", p.IncludePattern))
	}
	if p.DiscoveryURL == "" && params.DiscoveryURL != "" {
		p.DiscoveryURL = params.DiscoveryURL
	}

	resolverOpts := []ResolverOption{
		WithLevel(p.Level),
		WithContextPath(p.ContextPath),
		WithResolverLogger(p.logger),
		WithMetricsRecorder(p.metricsRecorder),
	}

	if p.IncludePattern != "" {
		pattern, err := CompileIncludePattern(p.IncludePattern)
		if err != nil {
			return err
		}
		resolverOpts = append(resolverOpts, WithIncludePattern(pattern))
	}

	// The stub cache is owned by this module instance and lives as long
	// as the handler does; entries are never evicted.
	p.stubCache = cache.NewInMemoryStubCache()

	provider := discovery.NewHTTPDiscoveryProvider(p.DiscoveryURL,
		discovery.WithLogger(p.logger))

	// Initialize the descriptor session store if a key file is configured.
	if p.KeyFile != "" {
		privateKey, err := session.LoadPrivateKey(p.KeyFile)
		if err != nil {
			return fmt.Errorf("load session signing key: %w", err)
		}

		duration, err := time.ParseDuration(p.SessionDuration)
		if err != nil {
			return fmt.Errorf("parse session duration: %w", err)
		}

		p.descriptorStore = session.NewCookieDescriptorStore(privateKey, duration)
		p.sessionDuration = duration
	}

	p.resolver = NewResolver(provider, p.stubCache, resolverOpts...)

	// Expose the resolver to non-injected callers (template helpers).
	SetResolver(p.resolver)

	p.logger.Info("publication resolver provisioned",
		zap.String("discovery_url", p.DiscoveryURL),
		zap.Int("level", p.Level),
		zap.Bool("session_enabled", p.descriptorStore != nil),
		zap.String("version", Version))

	return nil
}

// Validate ensures the module's configuration is valid.
func (p *PubResolver) Validate() error {
	return p.Config.Validate()
}

// ServeHTTP implements caddyhttp.MiddlewareHandler.
func (p *PubResolver) ServeHTTP(w http.ResponseWriter, r *http.Request, next caddyhttp.Handler) error {
	// Resolver API endpoints
	switch r.URL.Path {
	case "/publication/api/info":
		if r.Method != http.MethodGet {
			return p.renderAppError(w, domain.BadRequestError("Method not supported"))
		}
		return p.handleInfo(w, r)
	case "/publication/api/health":
		if r.Method != http.MethodGet {
			return p.renderAppError(w, domain.BadRequestError("Method not supported"))
		}
		return p.handleHealth(w, r)
	}

	// Read the prior descriptor from the session cookie, if any.
	var prior *domain.PublicationDescriptor
	var token string
	if p.descriptorStore != nil {
		if cookie, err := r.Cookie(p.SessionCookieName); err == nil && cookie.Value != "" {
			token = cookie.Value
			if d, err := p.descriptorStore.Get(cookie.Value); err == nil {
				prior = d
			}
		}
	}

	resolution, err := p.resolver.Resolve(r.Context(), r.URL.Path, prior)
	if err != nil {
		// Discovery failures are fatal for this request: not retried,
		// nothing cached.
		p.getLogger().Error("publication resolution failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		return p.renderAppError(w, domain.DiscoveryError("Publication resolution failed", err))
	}

	if p.descriptorStore != nil {
		if resolution.ClearSession && token != "" {
			if err := p.descriptorStore.Delete(token); err != nil {
				p.getLogger().Warn("failed to delete session descriptor",
					zap.Error(err))
			}
			p.clearSessionCookie(w, r)
		}
		if resolution.StoreInSession {
			if newToken, err := p.descriptorStore.Create(resolution.Descriptor); err == nil {
				p.setSessionCookie(w, r, newToken)
			} else {
				p.getLogger().Warn("failed to store descriptor in session",
					zap.Error(err))
			}
		}
	}

	// Make the descriptor available to downstream handlers.
	ctx := context.WithValue(r.Context(), descriptorContextKey{}, resolution.Descriptor)
	r = r.WithContext(ctx)
	p.applyPublicationHeaders(r, resolution.Descriptor)

	return next.ServeHTTP(w, r)
}

// applyPublicationHeaders maps the resolved descriptor to X-Publication-*
// headers on the request so downstream handlers can use them without
// importing this module.
func (p *PubResolver) applyPublicationHeaders(r *http.Request, descriptor *domain.PublicationDescriptor) {
	if p.shouldStripPublicationHeaders() {
		r.Header.Del(HeaderPublicationID)
		r.Header.Del(HeaderPublicationURL)
		r.Header.Del(HeaderImagesURL)
	}

	if descriptor == nil {
		return
	}

	r.Header.Set(HeaderPublicationID, strconv.Itoa(descriptor.ID))
	if descriptor.PublicationURL != "" {
		r.Header.Set(HeaderPublicationURL, descriptor.PublicationURL)
	}
	if descriptor.ImageURL != "" {
		r.Header.Set(HeaderImagesURL, descriptor.ImageURL)
	}
}

func (p *PubResolver) shouldStripPublicationHeaders() bool {
	if p == nil || p.StripPublicationHeaders == nil {
		return true
	}
	return *p.StripPublicationHeaders
}

// infoResponse is the JSON response for GET /publication/api/info.
type infoResponse struct {
	Resolved       bool   `json:"resolved"`
	PublicationID  int    `json:"publication_id"`
	PublicationURL string `json:"publication_url,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
}

// renderAppError writes a structured JSON error response with the status
// mapped from the error code.
func (p *PubResolver) renderAppError(w http.ResponseWriter, err *domain.AppError) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code.HTTPStatus())
	return json.NewEncoder(w).Encode(domain.NewJSONErrorResponse(err))
}

// handleInfo handles GET /publication/api/info and returns the descriptor
// currently stored in the caller's session.
func (p *PubResolver) handleInfo(w http.ResponseWriter, r *http.Request) error {
	if p.descriptorStore == nil {
		return p.renderAppError(w, domain.ConfigError("Descriptor session store is not configured"))
	}

	response := infoResponse{Resolved: false, PublicationID: domain.UnresolvedID}

	if cookie, err := r.Cookie(p.SessionCookieName); err == nil && cookie.Value != "" {
		if descriptor, err := p.descriptorStore.Get(cookie.Value); err == nil {
			response.Resolved = descriptor.Resolved()
			response.PublicationID = descriptor.ID
			response.PublicationURL = descriptor.PublicationURL
			response.ImageURL = descriptor.ImageURL
		}
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(response)
}

// healthResponse is the JSON response for GET /publication/api/health.
type healthResponse struct {
	Version           string `json:"version"`
	DiscoveryURL      string `json:"discovery_url"`
	Level             int    `json:"level"`
	IncludePatternSet bool   `json:"include_pattern_set"`
	SessionEnabled    bool   `json:"session_enabled"`
}

func (p *PubResolver) handleHealth(w http.ResponseWriter, r *http.Request) error {
	resp := healthResponse{
		Version:           Version,
		DiscoveryURL:      p.DiscoveryURL,
		Level:             p.Level,
		IncludePatternSet: p.IncludePattern != "",
		SessionEnabled:    p.descriptorStore != nil,
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(resp)
}

// setSessionCookie writes the descriptor session cookie.
func (p *PubResolver) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(p.sessionDuration.Seconds()),
	})
}

// clearSessionCookie removes a stale descriptor session cookie.
func (p *PubResolver) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1, // Delete cookie
	})
}

// getLogger returns the logger, or a no-op logger if not set.
// This allows tests to run without calling Provision().
func (p *PubResolver) getLogger() *zap.Logger {
	if p.logger != nil {
		return p.logger
	}
	return zap.NewNop()
}

// initMetricsRecorder initializes the metrics recorder based on configuration.
func (p *PubResolver) initMetricsRecorder() {
	if p.MetricsEnabled {
		p.metricsRecorder = metrics.NewPrometheusMetricsRecorder()
	} else {
		p.metricsRecorder = metrics.NewNoopMetricsRecorder()
	}
}

// Interface guards
var (
	_ caddy.Provisioner           = (*PubResolver)(nil)
	_ caddy.Validator             = (*PubResolver)(nil)
	_ caddyhttp.MiddlewareHandler = (*PubResolver)(nil)
)
