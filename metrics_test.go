package authflow

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricRefreshSuccess)
	m.Add(MetricRefreshShared, 5)
	m.Observe(MetricRefreshLatency, 10*time.Millisecond)

	if got := m.Value(MetricRefreshSuccess); got != 0 {
		t.Fatalf("disabled metrics recorded a value: %d", got)
	}

	s := m.Snapshot()
	if len(s.Counters) != 0 || len(s.Histograms) != 0 {
		t.Fatal("disabled metrics produced a non-empty snapshot")
	}
}

func TestMetricsIncAddValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricRefreshSuccess)
	m.Inc(MetricRefreshSuccess)
	m.Add(MetricRefreshShared, 7)

	if got := m.Value(MetricRefreshSuccess); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := m.Value(MetricRefreshShared); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}

	// out-of-range IDs are ignored, not a panic
	m.Inc(MetricID(9999))
	if got := m.Value(MetricID(9999)); got != 0 {
		t.Fatalf("expected 0 for unknown ID, got %d", got)
	}
}

func TestMetricsObserveBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	cases := []struct {
		d      time.Duration
		bucket int
	}{
		{2 * time.Millisecond, 0},
		{5 * time.Millisecond, 0},
		{8 * time.Millisecond, 1},
		{20 * time.Millisecond, 2},
		{40 * time.Millisecond, 3},
		{90 * time.Millisecond, 4},
		{200 * time.Millisecond, 5},
		{400 * time.Millisecond, 6},
		{2 * time.Second, 7},
	}

	for _, tc := range cases {
		m.Observe(MetricRefreshLatency, tc.d)
	}

	s := m.Snapshot()
	buckets := s.Histograms[MetricRefreshLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}

	want := make([]uint64, histBucketCount)
	for _, tc := range cases {
		want[tc.bucket]++
	}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("bucket %d: expected %d, got %d", i, want[i], buckets[i])
		}
	}
}

func TestMetricsObserveOnlyLatencyID(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricRefreshSuccess, 10*time.Millisecond)

	s := m.Snapshot()
	if _, ok := s.Histograms[MetricRefreshSuccess]; ok {
		t.Fatal("non-latency IDs must not produce histograms")
	}
}

func TestMetricsConcurrent(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 16
	const perWorker = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricCredentialRejected)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricCredentialRejected); got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
}

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricCredentialRejected)
		}
	})
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics

	m.Inc(MetricRefreshSuccess)
	m.Add(MetricRefreshShared, 1)
	m.Observe(MetricRefreshLatency, time.Millisecond)
	if m.Value(MetricRefreshSuccess) != 0 {
		t.Fatal("nil metrics returned a value")
	}
	if s := m.Snapshot(); len(s.Counters) != 0 {
		t.Fatal("nil metrics returned a non-empty snapshot")
	}
	if m.Enabled() || m.LatencyEnabled() {
		t.Fatal("nil metrics reported enabled")
	}
}
