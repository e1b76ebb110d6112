package ports

// Resolution outcomes recorded by MetricsRecorder.RecordResolution.
const (
	ResolutionSession    = "session"    // reused the session descriptor
	ResolutionCache      = "cache"      // served from the stub cache
	ResolutionDiscovery  = "discovery"  // required a discovery call
	ResolutionExcluded   = "excluded"   // stub rejected by include pattern
	ResolutionUnresolved = "unresolved" // root or empty path
)

// MetricsRecorder is the port interface for recording metrics.
// Implementations are adapters (PrometheusMetricsRecorder for production,
// NoopMetricsRecorder for disabled/testing).
type MetricsRecorder interface {
	// RecordResolution records a completed descriptor resolution and its outcome.
	RecordResolution(outcome string)

	// RecordDiscovery records a discovery provider call.
	RecordDiscovery(success bool)

	// RecordStubCacheLookup records a stub cache lookup result.
	RecordStubCacheLookup(hit bool)
}
