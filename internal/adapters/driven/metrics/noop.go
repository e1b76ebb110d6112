package metrics

import (
	"github.com/philiph/caddy-pub-resolver/internal/core/ports"
)

// NoopMetricsRecorder is a no-op implementation for when metrics are disabled.
// All methods are safe to call and do nothing.
type NoopMetricsRecorder struct{}

// NewNoopMetricsRecorder creates a new no-op metrics recorder.
func NewNoopMetricsRecorder() *NoopMetricsRecorder {
	return &NoopMetricsRecorder{}
}

// RecordResolution is a no-op.
func (n *NoopMetricsRecorder) RecordResolution(outcome string) {}

// RecordDiscovery is a no-op.
func (n *NoopMetricsRecorder) RecordDiscovery(success bool) {}

// RecordStubCacheLookup is a no-op.
func (n *NoopMetricsRecorder) RecordStubCacheLookup(hit bool) {}

// Ensure NoopMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*NoopMetricsRecorder)(nil)
