package caddy

import "sync/atomic"

// currentResolver holds the process-wide resolver reference for callers
// that cannot receive it through normal composition, such as template
// helper functions. Last writer wins; reads see the latest stored value.
var currentResolver atomic.Pointer[Resolver]

// SetResolver replaces the process-wide resolver. The Caddy module calls
// this during Provision.
func SetResolver(r *Resolver) {
	currentResolver.Store(r)
}

// CurrentResolver returns the configured resolver, or nil when none has
// been configured yet. Callers must treat nil as "resolution unavailable".
func CurrentResolver() *Resolver {
	return currentResolver.Load()
}
