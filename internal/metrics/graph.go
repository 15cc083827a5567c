package metrics

import (
	"time"

	"github.com/adsmirror/adsmirror/internal/observability"
)

// Graph gateway metrics
const (
	GraphRequestsTotal  = "graph_requests_total"
	GraphAttemptsTotal  = "graph_attempts_total"
	GraphThrottlesTotal = "graph_throttles_total"
	GraphWaitDuration   = "graph_wait_duration_ms"
)

// RecordGraphRequest records a finished gateway call and the dispatches it took.
func RecordGraphRequest(method string, outcome string, attempts int) {
	counter(GraphRequestsTotal, 1, map[string]string{
		"method":  method,
		"outcome": outcome,
	})
	counter(GraphAttemptsTotal, float64(attempts), map[string]string{"method": method})
}

// RecordGraphThrottle records a throttle signal and the wait it triggered.
func RecordGraphThrottle(state string, wait time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{"state": state}
	_ = observability.TelemetrySystem.Counter(GraphThrottlesTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(GraphWaitDuration, wait, labels)
}
