package transport

import (
	"sync"
	"time"
)

// rollingWindow bounds how many recent request latencies feed the rolling
// average exposed at /metrics.
const rollingWindow = 50

// requestMetrics is an in-process counter set for the /metrics endpoint.
// There is no external metrics backend wired in; this is deliberately
// cheap enough to update on every RPC dispatch under a single mutex.
type requestMetrics struct {
	mu              sync.Mutex
	totalRequests   int64
	errorCount      int64
	latenciesMillis []float64
	lastRequestUnix int64
}

func (m *requestMetrics) record(d time.Duration, isErr bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
	if isErr {
		m.errorCount++
	}
	m.latenciesMillis = append(m.latenciesMillis, float64(d.Microseconds())/1000.0)
	if len(m.latenciesMillis) > rollingWindow {
		m.latenciesMillis = m.latenciesMillis[len(m.latenciesMillis)-rollingWindow:]
	}
	m.lastRequestUnix = time.Now().Unix()
}

func (m *requestMetrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	var avg float64
	if n := len(m.latenciesMillis); n > 0 {
		var sum float64
		for _, l := range m.latenciesMillis {
			sum += l
		}
		avg = sum / float64(n)
	}
	return map[string]interface{}{
		"total_requests":    m.totalRequests,
		"error_count":       m.errorCount,
		"latency_rolling":   avg,
		"last_request_unix": m.lastRequestUnix,
	}
}
