package metrics

import "time"

// Recorder defines observability hooks for build runs. Implementations may
// forward to Prometheus, OpenTelemetry, etc. All methods must be safe for nil
// receivers when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveRunDuration(mode string, d time.Duration)
	IncItem(itemType, status string)
	IncRunOutcome(outcome string) // outcome: ok|missing|failed
	IncRebuild(trigger string)    // trigger: initial|change|schedule
	SetLastRunItems(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRunDuration(string, time.Duration) {}
func (NoopRecorder) IncItem(string, string)                   {}
func (NoopRecorder) IncRunOutcome(string)                     {}
func (NoopRecorder) IncRebuild(string)                        {}
func (NoopRecorder) SetLastRunItems(int)                      {}
