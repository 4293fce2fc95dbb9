package manager

import "github.com/c360/inputcore/hostval"

// Metrics is the narrow interface the manager reports row/veto counts
// and live-stream count through. metrics.Metrics (Prometheus-backed)
// satisfies it; this package only depends on the interface so manager
// stays usable without pulling in a metrics backend in tests.
type Metrics interface {
	ObserveNew(streamID string)
	ObserveChanged(streamID string)
	ObserveRemoved(streamID string)
	ObserveVetoed(streamID string, tag hostval.EventTag)
	SetLiveStreams(n int)
}

// NopMetrics discards every observation, the default when a Manager
// is constructed without a Metrics backend.
type NopMetrics struct{}

func (NopMetrics) ObserveNew(string)                     {}
func (NopMetrics) ObserveChanged(string)                 {}
func (NopMetrics) ObserveRemoved(string)                 {}
func (NopMetrics) ObserveVetoed(string, hostval.EventTag) {}
func (NopMetrics) SetLiveStreams(int)                     {}
