package metrics

import (
	"time"

	"github.com/adsmirror/adsmirror/internal/observability"
)

// Application-level metrics following Prometheus conventions
const (
	// Mirror operations, one per remote mutation
	OperationsTotal       = "app_operations_total"
	OperationsErrorsTotal = "app_operations_errors_total"

	ActiveConnections = "app_active_connections"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordOperation records a mirror operation and whether the remote accepted it.
func RecordOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	counter(OperationsTotal, 1, map[string]string{
		"operation": operation,
		"status":    status,
	})
}

// RecordOperationError records why a mirror operation failed.
func RecordOperationError(operation string, errorType string) {
	counter(OperationsErrorsTotal, 1, map[string]string{
		"operation":  operation,
		"error_type": errorType,
	})
}

// SetActiveConnections sets the current number of open HTTP connections.
func SetActiveConnections(count int64) {
	gauge(ActiveConnections, float64(count))
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	_ = observability.TelemetrySystem.Counter(HealthCheckTotal, 1, map[string]string{
		"check":  checkName,
		"status": status,
	})
	_ = observability.TelemetrySystem.Histogram(HealthCheckDuration, duration, map[string]string{
		"check": checkName,
	})
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	gauge(ServerStartTime, float64(timestamp))
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	gauge(ServerUptime, float64(seconds))
}

func counter(name string, value float64, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(name, value, labels)
}

func gauge(name string, value float64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(name, value, nil)
}
