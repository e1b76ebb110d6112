package caddy

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the configuration for the publication resolver plugin.
type Config struct {
	// Level is how many path segments deep to search for a valid
	// publication URL stub. Defaults to 1.
	Level int `json:"level,omitempty"`

	// IncludePattern is an optional regular expression; when set, only
	// stubs matching it (as a whole) are passed to discovery. Non-matching
	// stubs resolve to -1 without a discovery call. When unset, the
	// PUB_RESOLVER_INCLUDE_PATTERN deployment parameter is used.
	IncludePattern string `json:"include_pattern,omitempty"`

	// DiscoveryURL is the CMS discovery endpoint used to look up
	// publication ids by URL stub. When unset, the
	// PUB_RESOLVER_DISCOVERY_URL deployment parameter is used.
	DiscoveryURL string `json:"discovery_url,omitempty"`

	// ContextPath is the application context path prefix stripped from
	// request paths before stub derivation. Empty means the application
	// is mounted at the root.
	ContextPath string `json:"context_path,omitempty"`

	// SessionCookieName is the name of the descriptor session cookie.
	// Defaults to "pub_descriptor".
	SessionCookieName string `json:"session_cookie_name,omitempty"`

	// SessionDuration is how long the session descriptor cookie lasts
	// (e.g., "8h"). Defaults to "8h".
	SessionDuration string `json:"session_duration,omitempty"`

	// KeyFile is the path to the RSA private key (PEM) used to sign the
	// descriptor session cookie. When unset, per-session memoization is
	// disabled and every request resolves through the stub cache.
	KeyFile string `json:"key_file,omitempty"`

	// StripPublicationHeaders controls whether incoming X-Publication-*
	// headers are removed before new values are set, preventing clients
	// from spoofing the resolved publication. Defaults to true.
	StripPublicationHeaders *bool `json:"strip_publication_headers,omitempty"`

	// MetricsEnabled enables Prometheus metrics exposition.
	// Metrics are exposed via Caddy's admin API /metrics endpoint.
	// Defaults to false.
	MetricsEnabled bool `json:"metrics_enabled,omitempty"`
}

// Validate checks if the configuration is valid. It runs after Provision,
// so deployment-parameter fallbacks have already been applied.
func (c *Config) Validate() error {
	if c.Level < 0 {
		return fmt.Errorf("level cannot be negative")
	}

	if c.DiscoveryURL == "" {
		return fmt.Errorf("discovery_url is required (set it in the config or via PUB_RESOLVER_DISCOVERY_URL)")
	}

	if c.IncludePattern != "" {
		if _, err := CompileIncludePattern(c.IncludePattern); err != nil {
			return fmt.Errorf("include_pattern is invalid: %w", err)
		}
	}

	if c.ContextPath != "" && !strings.HasPrefix(c.ContextPath, "/") {
		return fmt.Errorf("context_path must start with /")
	}

	if c.SessionDuration != "" {
		if _, err := time.ParseDuration(c.SessionDuration); err != nil {
			return fmt.Errorf("session_duration is invalid: %w", err)
		}
	}

	return nil
}

// SetDefaults applies default values to unset configuration fields.
func (c *Config) SetDefaults() {
	if c.Level == 0 {
		c.Level = 1
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = "pub_descriptor"
	}
	if c.SessionDuration == "" {
		c.SessionDuration = "8h"
	}
	if c.StripPublicationHeaders == nil {
		c.StripPublicationHeaders = boolPtr(true)
	}
}

func boolPtr(v bool) *bool {
	b := v
	return &b
}
