package caddy

import (
	"strconv"

	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
)

// ParseCaddyfile sets up the handler from Caddyfile tokens.
//
// Syntax:
//
//	pub_resolver {
//	    level <n>
//	    include_pattern <regexp>
//	    discovery_url <url>
//	    context_path <path>
//	    session_cookie_name <name>
//	    session_duration <duration>
//	    key_file <path>
//	    metrics
//	}
func ParseCaddyfile(h httpcaddyfile.Helper) (caddyhttp.MiddlewareHandler, error) {
	var p PubResolver
	err := p.UnmarshalCaddyfile(h.Dispenser)
	return &p, err
}

// UnmarshalCaddyfile implements caddyfile.Unmarshaler.
func (p *PubResolver) UnmarshalCaddyfile(d *caddyfile.Dispenser) error {
	d.Next() // consume directive name

	for d.NextBlock(0) {
		switch d.Val() {
		case "level":
			if !d.NextArg() {
				return d.ArgErr()
			}
			level, err := strconv.Atoi(d.Val())
			if err != nil {
				return d.Errf("level must be an integer: %v", err)
			}
			p.Level = level

		case "include_pattern":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.IncludePattern = d.Val()

		case "discovery_url":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.DiscoveryURL = d.Val()

		case "context_path":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.ContextPath = d.Val()

		case "session_cookie_name":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.SessionCookieName = d.Val()

		case "session_duration":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.SessionDuration = d.Val()

		case "key_file":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.KeyFile = d.Val()

		case "metrics":
			p.MetricsEnabled = true

		default:
			return d.Errf("unknown directive: %s", d.Val())
		}
	}

	return nil
}

// Ensure PubResolver implements caddyfile.Unmarshaler
var _ caddyfile.Unmarshaler = (*PubResolver)(nil)
