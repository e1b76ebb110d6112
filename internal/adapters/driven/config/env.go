package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DeploymentParams are static per-deployment parameters read from the
// environment. They fill in configuration that was not set explicitly in
// the Caddyfile, mirroring deployment-wide init parameters.
type DeploymentParams struct {
	// IncludePattern is the default include pattern for stub discovery.
	IncludePattern string `env:"PUB_RESOLVER_INCLUDE_PATTERN"`

	// DiscoveryURL is the default CMS discovery endpoint.
	DiscoveryURL string `env:"PUB_RESOLVER_DISCOVERY_URL"`
}

// LoadDeploymentParams reads deployment parameters from the environment.
func LoadDeploymentParams() (*DeploymentParams, error) {
	var params DeploymentParams
	if err := env.Parse(&params); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &params, nil
}
