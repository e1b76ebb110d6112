package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/philiph/caddy-pub-resolver/internal/core/domain"
	"github.com/philiph/caddy-pub-resolver/internal/core/ports"
)

const defaultTimeout = 30 * time.Second

// HTTPDiscoveryProvider resolves publication ids against the CMS discovery
// service over HTTP. The endpoint is expected to accept the URL stub as the
// "url" query parameter and respond with a JSON body containing the
// publication id:
//
//	GET {endpoint}?url=/en/products
//	200 {"publicationId": 42}
//
// A 404 response means the stub is not mapped to any publication and is
// reported as a non-positive id, not an error.
type HTTPDiscoveryProvider struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// DiscoveryOption is a functional option for configuring the provider.
type DiscoveryOption func(*HTTPDiscoveryProvider)

// WithHTTPClient overrides the HTTP client. Use this for testing.
func WithHTTPClient(client *http.Client) DiscoveryOption {
	return func(p *HTTPDiscoveryProvider) {
		p.httpClient = client
	}
}

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(logger *zap.Logger) DiscoveryOption {
	return func(p *HTTPDiscoveryProvider) {
		p.logger = logger
	}
}

// NewHTTPDiscoveryProvider creates a provider for the given discovery endpoint.
func NewHTTPDiscoveryProvider(endpoint string, opts ...DiscoveryOption) *HTTPDiscoveryProvider {
	p := &HTTPDiscoveryProvider{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// discoveryResponse is the JSON body returned by the discovery endpoint.
type discoveryResponse struct {
	PublicationID int `json:"publicationId"`
}

// DiscoverPublicationID looks up the publication id for a URL stub.
func (p *HTTPDiscoveryProvider) DiscoverPublicationID(ctx context.Context, stub string) (int, error) {
	reqURL, err := url.Parse(p.endpoint)
	if err != nil {
		return 0, fmt.Errorf("parse discovery endpoint: %w", err)
	}
	q := reqURL.Query()
	q.Set("url", stub)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("create discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("discover publication id for %q: %w", stub, err)
	}
	defer resp.Body.Close()

	// Not found is a normal outcome, not a provider failure.
	if resp.StatusCode == http.StatusNotFound {
		if p.logger != nil {
			p.logger.Debug("discovery returned no publication",
				zap.String("stub", stub))
		}
		return domain.UnresolvedID, nil
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("discover publication id for %q: HTTP %d", stub, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read discovery response: %w", err)
	}

	var parsed discoveryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("decode discovery response for %q: %w", stub, err)
	}

	if p.logger != nil {
		p.logger.Debug("discovered publication id",
			zap.String("stub", stub),
			zap.Int("publication_id", parsed.PublicationID))
	}
	return parsed.PublicationID, nil
}

// Ensure HTTPDiscoveryProvider implements ports.DiscoveryProvider
var _ ports.DiscoveryProvider = (*HTTPDiscoveryProvider)(nil)
