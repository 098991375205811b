package tokenfamily

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stashbin/tokenfamily/store"
)

func TestMetricsDisabledSnapshotEmpty(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricRotateSuccess)
	m.Observe(MetricRotateLatency, time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot when disabled, got %+v", snap)
	}
}

func TestMetricsCountersAccumulate(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	for i := 0; i < 5; i++ {
		m.Inc(MetricRotateSuccess)
	}
	m.Inc(MetricReplayDetected)

	if got := m.Value(MetricRotateSuccess); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	snap := m.Snapshot()
	if snap.Counters[MetricReplayDetected] != 1 {
		t.Fatalf("expected replay counter 1, got %d", snap.Counters[MetricReplayDetected])
	}
	if len(snap.Histograms) != 0 {
		t.Fatal("expected no histograms without latency enabled")
	}
}

func TestMetricsLatencyHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricRotateLatency, 500*time.Microsecond)
	m.Observe(MetricRotateLatency, 3*time.Millisecond)
	m.Observe(MetricRotateLatency, time.Second)

	snap := m.Snapshot()
	buckets, ok := snap.Histograms[MetricRotateLatency]
	if !ok {
		t.Fatal("expected rotate latency histogram in snapshot")
	}
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	if buckets[0] != 1 {
		t.Fatalf("expected one sub-millisecond observation, got %d", buckets[0])
	}
	if buckets[2] != 1 {
		t.Fatalf("expected one 2-5ms observation, got %d", buckets[2])
	}
	if buckets[histBucketCount-1] != 1 {
		t.Fatalf("expected one overflow observation, got %d", buckets[histBucketCount-1])
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricRotateSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRotateSuccess); got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
}

// slowConsumeStore delays the consume step so a rotation takes a known
// minimum wall-clock time.
type slowConsumeStore struct {
	store.Store
	delay time.Duration
}

func (s *slowConsumeStore) Consume(ctx context.Context, id string, now time.Time) (*store.Record, error) {
	time.Sleep(s.delay)
	return s.Store.Consume(ctx, id, now)
}

func TestRotateLatencyCoversWholeRotation(t *testing.T) {
	cfg := rotationTestConfig()
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := New().
		WithConfig(cfg).
		WithStore(&slowConsumeStore{Store: store.NewMemory(), delay: 30 * time.Millisecond}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	issued, err := engine.IssueNewFamily(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueNewFamily failed: %v", err)
	}
	if _, err := engine.Rotate(ctx, issued.RawToken); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	buckets, ok := snap.Histograms[MetricRotateLatency]
	if !ok {
		t.Fatal("expected rotate latency histogram in snapshot")
	}

	var total uint64
	for _, b := range buckets {
		total += b
	}
	if total != 1 {
		t.Fatalf("expected exactly one observation, got %d", total)
	}
	// The observation must reflect the full rotation, not the instant the
	// deferred measurement was registered.
	if buckets[0] != 0 {
		t.Fatal("30ms rotation recorded in the sub-millisecond bucket")
	}
}

func TestEngineMetricsTrackLifecycle(t *testing.T) {
	engine, done := newRotationEngine(t, rotationTestConfig())
	defer done()
	ctx := context.Background()

	issued, err := engine.IssueNewFamily(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueNewFamily failed: %v", err)
	}
	if _, err := engine.Rotate(ctx, issued.RawToken); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if _, err := engine.Rotate(ctx, issued.RawToken); err == nil {
		t.Fatal("expected replay failure")
	}
	if _, err := engine.Rotate(ctx, "garbage"); err == nil {
		t.Fatal("expected invalid failure")
	}

	snap := engine.MetricsSnapshot()
	checks := map[MetricID]uint64{
		MetricIssueSuccess:   1,
		MetricRotateSuccess:  1,
		MetricReplayDetected: 1,
		MetricFamilyRevoked:  1,
		MetricRotateInvalid:  1,
	}
	for id, want := range checks {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("metric %d = %d, want %d", id, got, want)
		}
	}
}
