package api

import (
	"sync/atomic"
	"time"
)

// Metrics collects in-memory server metrics using atomic counters.
type Metrics struct {
	startTime         time.Time
	requests          atomic.Int64
	serverErrors      atomic.Int64
	clientErrors      atomic.Int64
	entriesSaved      atomic.Int64
	transcriptions    atomic.Int64
	analyzerFallbacks atomic.Int64
	rateLimited       atomic.Int64
}

// MetricsSnapshot is a point-in-time view of server metrics.
type MetricsSnapshot struct {
	UptimeSeconds     float64 `json:"uptime_seconds"`
	Requests          int64   `json:"requests"`
	ServerErrors      int64   `json:"server_errors"`
	ClientErrors      int64   `json:"client_errors"`
	EntriesSaved      int64   `json:"entries_saved"`
	Transcriptions    int64   `json:"transcriptions"`
	AnalyzerFallbacks int64   `json:"analyzer_fallbacks"`
	RateLimited       int64   `json:"rate_limited"`
}

// NewMetrics creates a new Metrics instance with the current time as start.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordRequest increments the total request counter.
func (m *Metrics) RecordRequest() {
	m.requests.Add(1)
}

// RecordError increments the server error (5xx) counter.
func (m *Metrics) RecordError() {
	m.serverErrors.Add(1)
}

// RecordClientError increments the client error (4xx) counter.
func (m *Metrics) RecordClientError() {
	m.clientErrors.Add(1)
}

// RecordEntrySaved increments the saved entry counter.
func (m *Metrics) RecordEntrySaved() {
	m.entriesSaved.Add(1)
}

// RecordTranscription increments the successful transcription counter.
func (m *Metrics) RecordTranscription() {
	m.transcriptions.Add(1)
}

// RecordFallback counts an analyzer that failed and handed off to the next one.
// Its signature matches analyzer.Chain.OnFallback.
func (m *Metrics) RecordFallback(string, error) {
	m.analyzerFallbacks.Add(1)
}

// RecordRateLimited increments the rejected request counter.
func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Add(1)
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UptimeSeconds:     time.Since(m.startTime).Seconds(),
		Requests:          m.requests.Load(),
		ServerErrors:      m.serverErrors.Load(),
		ClientErrors:      m.clientErrors.Load(),
		EntriesSaved:      m.entriesSaved.Load(),
		Transcriptions:    m.transcriptions.Load(),
		AnalyzerFallbacks: m.analyzerFallbacks.Load(),
		RateLimited:       m.rateLimited.Load(),
	}
}
