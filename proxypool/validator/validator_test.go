package validator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"proxyfinder/proxypool/model"
)

// mockChecker simulates probes with a per-endpoint delay and records how many
// probes run at the same time.
type mockChecker struct {
	delays   map[string]time.Duration
	fallback time.Duration

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	calls       atomic.Int64

	mu    sync.Mutex
	seen  map[string]int
	onRun chan string
}

func newMockChecker(fallback time.Duration) *mockChecker {
	return &mockChecker{
		delays:   make(map[string]time.Duration),
		fallback: fallback,
		seen:     make(map[string]int),
	}
}

func (m *mockChecker) Probe(ctx context.Context, ep model.Endpoint) model.Outcome {
	m.calls.Add(1)
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		prev := m.maxInFlight.Load()
		if cur <= prev || m.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	m.mu.Lock()
	m.seen[ep.String()]++
	m.mu.Unlock()
	if m.onRun != nil {
		m.onRun <- ep.String()
	}

	delay, ok := m.delays[ep.String()]
	if !ok {
		delay = m.fallback
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return model.Outcome{Endpoint: ep, Failure: model.FailureCanceled, Err: ctx.Err()}
	}
	return model.Outcome{Endpoint: ep, Reachable: ep.Port()%2 == 0}
}

func makeSet(t *testing.T, n int) model.EndpointSet {
	t.Helper()
	raw := make([]string, 0, n)
	for i := 0; i < n; i++ {
		raw = append(raw, fmt.Sprintf("http://10.0.%d.%d:%d", i/250, i%250, 1000+i))
	}
	set := model.Dedupe(raw)
	if set.Len() != n {
		t.Fatalf("expected %d endpoints, got %d", n, set.Len())
	}
	return set
}

func drain(t *testing.T, ch <-chan model.Outcome, timeout time.Duration) []model.Outcome {
	t.Helper()
	var outs []model.Outcome
	deadline := time.After(timeout)
	for {
		select {
		case out, ok := <-ch:
			if !ok {
				return outs
			}
			outs = append(outs, out)
		case <-deadline:
			t.Fatalf("outcome stream not closed after %v (got %d outcomes)", timeout, len(outs))
		}
	}
}

func TestValidate_Bijection(t *testing.T) {
	const n = 25
	for _, limit := range []int{1, 3, n, n + 10} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			set := makeSet(t, n)
			checker := newMockChecker(time.Millisecond)

			outs := drain(t, Validate(context.Background(), set, limit, checker), 10*time.Second)

			if len(outs) != n {
				t.Fatalf("Expected %d outcomes, got %d", n, len(outs))
			}
			got := make(map[string]int)
			for _, out := range outs {
				got[out.Endpoint.String()]++
			}
			for _, ep := range set.Endpoints() {
				if got[ep.String()] != 1 {
					t.Errorf("endpoint %s appeared %d times", ep, got[ep.String()])
				}
			}
			if peak := checker.maxInFlight.Load(); peak > int64(limit) {
				t.Errorf("in-flight probes reached %d, limit is %d", peak, limit)
			}
		})
	}
}

func TestValidate_InFlightNeverExceedsLimit(t *testing.T) {
	const limit = 5
	set := makeSet(t, 60)
	checker := newMockChecker(0)
	for i, ep := range set.Endpoints() {
		checker.delays[ep.String()] = time.Duration(i%7) * time.Millisecond
	}

	outs := drain(t, Validate(context.Background(), set, limit, checker), 10*time.Second)

	if len(outs) != 60 {
		t.Fatalf("Expected 60 outcomes, got %d", len(outs))
	}
	if peak := checker.maxInFlight.Load(); peak > limit {
		t.Errorf("in-flight probes reached %d, limit is %d", peak, limit)
	}
	if peak := checker.maxInFlight.Load(); peak < 2 {
		t.Errorf("probes never ran concurrently (max in flight %d)", peak)
	}
}

func TestValidate_ThreeEndpointsLimitOne(t *testing.T) {
	set := model.Dedupe([]string{"http://1.1.1.1:80", "http://2.2.2.2:80", "http://3.3.3.3:80"})
	checker := newMockChecker(5 * time.Millisecond)

	outs := drain(t, Validate(context.Background(), set, 1, checker), 5*time.Second)

	if len(outs) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(outs))
	}
	if peak := checker.maxInFlight.Load(); peak != 1 {
		t.Errorf("Expected one probe at a time, got max %d", peak)
	}
}

func TestValidate_CompletionOrder(t *testing.T) {
	set := makeSet(t, 5)
	checker := newMockChecker(0)
	slow := set.Endpoints()[0]
	checker.delays[slow.String()] = 300 * time.Millisecond

	outs := drain(t, Validate(context.Background(), set, 5, checker), 5*time.Second)

	if len(outs) != 5 {
		t.Fatalf("Expected 5 outcomes, got %d", len(outs))
	}
	if outs[len(outs)-1].Endpoint != slow {
		t.Errorf("Expected slow endpoint %s to arrive last, got %s", slow, outs[len(outs)-1].Endpoint)
	}
}

func TestValidate_EmptySet(t *testing.T) {
	checker := newMockChecker(0)
	outs := drain(t, Validate(context.Background(), model.Dedupe(nil), 0, checker), time.Second)
	if len(outs) != 0 {
		t.Errorf("Expected no outcomes, got %d", len(outs))
	}
	if checker.calls.Load() != 0 {
		t.Errorf("checker called %d times for an empty set", checker.calls.Load())
	}
}

func TestValidate_CancelStopsQueuedWork(t *testing.T) {
	const limit = 2
	set := makeSet(t, 20)
	checker := newMockChecker(time.Hour)
	checker.onRun = make(chan string, 20)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := Validate(ctx, set, limit, checker)

	for i := 0; i < limit; i++ {
		select {
		case <-checker.onRun:
		case <-time.After(2 * time.Second):
			t.Fatal("probes did not start")
		}
	}
	cancel()

	drain(t, ch, 2*time.Second)

	if calls := checker.calls.Load(); calls != limit {
		t.Errorf("Expected only %d probes to start, got %d", limit, calls)
	}
}

func TestEngine_DefaultLimit(t *testing.T) {
	e := NewEngine(newMockChecker(0), 0)
	if e.Limit() != DefaultConcurrency {
		t.Errorf("Expected default limit %d, got %d", DefaultConcurrency, e.Limit())
	}
	outs := drain(t, e.Validate(context.Background(), makeSet(t, 3)), time.Second)
	if len(outs) != 3 {
		t.Errorf("Expected 3 outcomes, got %d", len(outs))
	}
}
