package authcore

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that produced a full session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins of any cause.
	MetricLoginFailure
	MetricLoginRateLimited
	// MetricPasswordChangeRequired counts logins answered with a change-password token.
	MetricPasswordChangeRequired
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh attempts that did not rotate.
	MetricRefreshFailure
	MetricLogout
	// MetricTokenRevoked counts deny-list writes.
	MetricTokenRevoked
	// MetricRevocationCheckFailure counts deny-list lookups that failed after the retry.
	MetricRevocationCheckFailure
	MetricPasswordChangeSuccess
	MetricPasswordChangeInvalidOld
	MetricPasswordChangeMismatch
	// MetricAuthenticateFailure counts Authenticate calls that returned an error.
	MetricAuthenticateFailure
	// MetricAuthenticateLatency is the only histogram-backed metric.
	MetricAuthenticateLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:             "login_success",
	MetricLoginFailure:             "login_failure",
	MetricLoginRateLimited:         "login_rate_limited",
	MetricPasswordChangeRequired:   "password_change_required",
	MetricRefreshSuccess:           "refresh_success",
	MetricRefreshFailure:           "refresh_failure",
	MetricLogout:                   "logout",
	MetricTokenRevoked:             "token_revoked",
	MetricRevocationCheckFailure:   "revocation_check_failure",
	MetricPasswordChangeSuccess:    "password_change_success",
	MetricPasswordChangeInvalidOld: "password_change_invalid_old",
	MetricPasswordChangeMismatch:   "password_change_mismatch",
	MetricAuthenticateFailure:      "authenticate_failure",
	MetricAuthenticateLatency:      "authenticate_latency",
}

// String returns the snake_case name of id, or "unknown".
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// latencyBounds are the inclusive upper bounds of the first histBucketCount-1
// buckets; the last bucket takes everything slower.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const (
	histBucketCount = len(latencyBounds) + 1
	cacheLineSize   = 64
)

// counter sits alone on its cache line so hot counters do not contend.
type counter struct {
	n atomic.Uint64
	_ [cacheLineSize - 8]byte
}

type latencyHistogram struct {
	buckets [histBucketCount]atomic.Uint64
	sum     atomic.Int64
}

func (h *latencyHistogram) observe(d time.Duration) {
	i := 0
	for i < len(latencyBounds) && d > latencyBounds[i] {
		i++
	}
	h.buckets[i].Add(1)
	if d > 0 {
		h.sum.Add(int64(d))
	}
}

// Metrics holds lock-free engine counters. A nil or disabled Metrics is a no-op.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counter
	authLatency   latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	// HistogramSums holds the total observed duration per histogram.
	HistogramSums map[MetricID]time.Duration
}

func emptySnapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Counters:      map[MetricID]uint64{},
		Histograms:    map[MetricID][]uint64{},
		HistogramSums: map[MetricID]time.Duration{},
	}
}

// NewMetrics returns a counter set. Latency histograms are only recorded when
// both flags are set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records d against id. Ids without a histogram are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricAuthenticateLatency {
		return
	}
	m.authLatency.observe(d)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

// Snapshot copies every counter, and the latency histogram when enabled.
// It returns empty maps when metrics are disabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if !m.Enabled() {
		return emptySnapshot()
	}

	s := MetricsSnapshot{
		Counters:      make(map[MetricID]uint64, int(metricIDCount)),
		Histograms:    make(map[MetricID][]uint64, 1),
		HistogramSums: make(map[MetricID]time.Duration, 1),
	}
	for id := range metricIDCount {
		s.Counters[id] = m.counters[id].n.Load()
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.authLatency.buckets[i].Load()
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
		s.HistogramSums[MetricAuthenticateLatency] = time.Duration(m.authLatency.sum.Load())
	}

	return s
}
