package authcore

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRefreshSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricAuthenticateLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricAuthenticateLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsObserveIgnoresCounterIDs(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatal("counter metric must not grow a histogram")
	}
	for i, v := range snap.Histograms[MetricAuthenticateLatency] {
		if v != 0 {
			t.Fatalf("bucket %d expected 0, got %d", i, v)
		}
	}
}

func TestMetricsLatencyRequiresEnabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{EnableLatencyHistograms: true})
	if m.LatencyEnabled() {
		t.Fatal("latency must stay off while metrics are disabled")
	}
}

func TestMetricsNilReceiverIsNoOp(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLogout)
	m.Observe(MetricAuthenticateLatency, time.Millisecond)
	if m.Value(MetricLogout) != 0 || m.Enabled() {
		t.Fatal("nil metrics must be inert")
	}
}

func TestMetricsBucketBoundsAreInclusive(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricAuthenticateLatency, 5*time.Millisecond+time.Microsecond)
	m.Observe(MetricAuthenticateLatency, 0)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricAuthenticateLatency]
	if buckets[0] != 1 || buckets[1] != 1 {
		t.Fatalf("unexpected buckets %v", buckets)
	}
	if got := snap.HistogramSums[MetricAuthenticateLatency]; got != 5*time.Millisecond+time.Microsecond {
		t.Fatalf("sum = %v", got)
	}
}

func TestMetricIDString(t *testing.T) {
	if got := MetricRevocationCheckFailure.String(); got != "revocation_check_failure" {
		t.Fatalf("String() = %q", got)
	}
	if got := metricIDCount.String(); got != "unknown" {
		t.Fatalf("String() = %q", got)
	}
	for id := range metricIDCount {
		if id.String() == "" {
			t.Fatalf("metric %d has no name", id)
		}
	}
}
