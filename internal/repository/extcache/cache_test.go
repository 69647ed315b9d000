package extcache

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
)

func sampleParams() params.Extracted {
	from, to := "2025-06-13", "2025-06-20"
	return params.Extracted{
		AssetTypes: []string{"FX"},
		Statuses:   []string{"ALLEGED"},
		DateFrom:   &from,
		DateTo:     &to,
	}
}

func TestKey(t *testing.T) {
	k := Key("show me alleged fx trades")
	if !strings.HasPrefix(k, "tradesearch:extraction:") {
		t.Errorf("unexpected prefix: %s", k)
	}
	if got := len(strings.TrimPrefix(k, "tradesearch:extraction:")); got != 16 {
		t.Errorf("expected 16 hex chars, got %d", got)
	}
	if Key("a") == Key("b") {
		t.Error("different inputs must give different keys")
	}
	if Key("a") != Key("a") {
		t.Error("key must be deterministic")
	}
}

func TestRoundTripAndExpiry(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, time.Hour, nil, zap.NewNop(), WithClock(kv.clock))
	ctx := context.Background()

	want := sampleParams()
	c.Put(ctx, "q", want)

	got, ok := c.Get(ctx, "q")
	if !ok {
		t.Fatal("expected hit right after put")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}

	kv.advance(time.Hour + time.Second)
	if _, ok := c.Get(ctx, "q"); ok {
		t.Error("expected miss after TTL expiry")
	}
}

func TestTradeIDRoundTrip(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, time.Minute, nil, zap.NewNop(), WithClock(kv.clock))
	want := params.OnlyTradeID(77194044)

	c.Put(context.Background(), "trade 77194044", want)
	got, ok := c.Get(context.Background(), "trade 77194044")
	if !ok || !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v (hit=%v), want %+v", got, ok, want)
	}
}

func TestBackendErrorsSwallowed(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("connection reset")
	kv.setErr = errors.New("connection reset")
	c := New(kv, time.Minute, nil, zap.NewNop(), WithClock(kv.clock))

	c.Put(context.Background(), "q", sampleParams())
	if _, ok := c.Get(context.Background(), "q"); ok {
		t.Error("backend error must read as a miss")
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	kv := newFakeKV()
	_ = kv.SetWithTTL(context.Background(), Key("q"), []byte("{not json"), time.Minute)
	c := New(kv, time.Minute, nil, zap.NewNop(), WithClock(kv.clock))

	if _, ok := c.Get(context.Background(), "q"); ok {
		t.Error("corrupt entry must read as a miss")
	}
}

func TestHitMissCounter(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_extraction_cache_total"}, []string{"result"})
	kv := newFakeKV()
	c := New(kv, time.Minute, counter, zap.NewNop(), WithClock(kv.clock))
	ctx := context.Background()

	c.Get(ctx, "q")
	c.Put(ctx, "q", sampleParams())
	c.Get(ctx, "q")
	c.Get(ctx, "q")

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 2 {
		t.Errorf("hit = %v, want 2", got)
	}
}

func TestDefaultTTL(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, 0, nil, zap.NewNop(), WithClock(kv.clock))
	c.Put(context.Background(), "q", sampleParams())

	kv.advance(DefaultTTL - time.Second)
	if _, ok := c.Get(context.Background(), "q"); !ok {
		t.Error("expected hit before default TTL")
	}
}

func TestPut_DatedEntryExpiresAtMidnight(t *testing.T) {
	kv := newFakeKV()
	kv.advance(11*time.Hour + 30*time.Minute) // 23:30 UTC
	c := New(kv, time.Hour, nil, zap.NewNop(), WithClock(kv.clock))
	ctx := context.Background()

	c.Put(ctx, "alleged fx trades last week", sampleParams())
	c.Put(ctx, "alleged fx trades", params.Extracted{AssetTypes: []string{"FX"}, Statuses: []string{"ALLEGED"}})

	if got := kv.ttlOf(Key("alleged fx trades last week")); got != 30*time.Minute {
		t.Errorf("dated ttl = %v, want 30m", got)
	}
	if got := kv.ttlOf(Key("alleged fx trades")); got != time.Hour {
		t.Errorf("undated ttl = %v, want 1h", got)
	}

	kv.advance(31 * time.Minute)
	if _, ok := c.Get(ctx, "alleged fx trades last week"); ok {
		t.Error("dated entry must not survive midnight")
	}
	if _, ok := c.Get(ctx, "alleged fx trades"); !ok {
		t.Error("undated entry should still be cached")
	}
}

func TestPut_SkipsAtDayBoundary(t *testing.T) {
	kv := newFakeKV()
	kv.advance(12*time.Hour - 500*time.Millisecond)
	c := New(kv, time.Hour, nil, zap.NewNop(), WithClock(kv.clock))

	from := "2025-06-13"
	c.Put(context.Background(), "since last friday", params.Extracted{DateFrom: &from})
	if _, ok := c.Get(context.Background(), "since last friday"); ok {
		t.Error("entry written with a sub-second lifetime")
	}
}
