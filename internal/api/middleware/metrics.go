package middleware

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics counts requests by status class and accumulates handler latency.
type Metrics struct {
	requests  atomic.Int64
	clientErr atomic.Int64
	serverErr atomic.Int64
	limited   atomic.Int64
	latencyNs atomic.Int64
}

type MetricsSnapshot struct {
	Requests      int64   `json:"request_count"`
	ClientErrors  int64   `json:"client_error_count"`
	ServerErrors  int64   `json:"server_error_count"`
	RateLimited   int64   `json:"rate_limited_count"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		m.requests.Add(1)
		m.latencyNs.Add(int64(time.Since(start)))
		switch {
		case rec.status == http.StatusTooManyRequests:
			m.limited.Add(1)
		case rec.status >= 500:
			m.serverErr.Add(1)
		case rec.status >= 400:
			m.clientErr.Add(1)
		}
	})
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Requests:     m.requests.Load(),
		ClientErrors: m.clientErr.Load(),
		ServerErrors: m.serverErr.Load(),
		RateLimited:  m.limited.Load(),
	}
	if s.Requests > 0 {
		s.MeanLatencyMs = float64(m.latencyNs.Load()) / float64(s.Requests) / float64(time.Millisecond)
	}
	return s
}
