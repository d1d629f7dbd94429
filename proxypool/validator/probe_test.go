package validator

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"proxyfinder/proxypool/model"
)

const testTarget = "http://probe-target.invalid/ip"

func endpointFor(t *testing.T, scheme, addr string) model.Endpoint {
	t.Helper()
	ep, err := model.ParseEndpoint(scheme + "://" + addr)
	if err != nil {
		t.Fatalf("ParseEndpoint(%s) returned an error: %v", addr, err)
	}
	return ep
}

func newTestProber(t *testing.T, timeout time.Duration) *Prober {
	t.Helper()
	p, err := NewProber(testTarget, timeout, "")
	if err != nil {
		t.Fatalf("NewProber() returned an error: %v", err)
	}
	return p
}

// hangingListener accepts connections and never answers.
func hangingListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return ln
}

func TestDefaultTimeoutIsFourSeconds(t *testing.T) {
	if DefaultTimeout != 4*time.Second {
		t.Errorf("DefaultTimeout = %v, want 4s", DefaultTimeout)
	}
	p, err := NewProber("", 0, "")
	if err != nil {
		t.Fatalf("NewProber() returned an error: %v", err)
	}
	if p.Timeout() != DefaultTimeout {
		t.Errorf("zero timeout should select DefaultTimeout, got %v", p.Timeout())
	}
}

func TestNewProber_RejectsBadTarget(t *testing.T) {
	if _, err := NewProber("ftp://example.com/", time.Second, ""); err == nil {
		t.Error("Expected an error for a non-HTTP target")
	}
}

func TestProbe_ReachableThroughForwardProxy(t *testing.T) {
	hosts := make(chan string, 1)
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hosts <- r.URL.Host
		w.Write([]byte(`{"origin":"127.0.0.1"}`))
	}))
	defer proxySrv.Close()

	p := newTestProber(t, 2*time.Second)
	ep := endpointFor(t, "http", strings.TrimPrefix(proxySrv.URL, "http://"))

	out := p.Probe(context.Background(), ep)

	if !out.Reachable {
		t.Fatalf("Expected endpoint to be reachable, got failure %s: %v", out.Failure, out.Err)
	}
	if out.Failure != model.FailureNone || out.Err != nil {
		t.Errorf("unexpected failure fields: %s %v", out.Failure, out.Err)
	}
	if gotHost := <-hosts; gotHost != "probe-target.invalid" {
		t.Errorf("proxy saw host %q, expected the probe target", gotHost)
	}
	if out.Endpoint != ep {
		t.Errorf("outcome endpoint %s != %s", out.Endpoint, ep)
	}
}

func TestProbe_NonSuccessStatus(t *testing.T) {
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer proxySrv.Close()

	p := newTestProber(t, 2*time.Second)
	out := p.Probe(context.Background(), endpointFor(t, "http", strings.TrimPrefix(proxySrv.URL, "http://")))

	if out.Reachable {
		t.Fatal("Expected a 503 to be reported as unreachable")
	}
	if out.Failure != model.FailureStatus {
		t.Errorf("Expected failure %s, got %s (%v)", model.FailureStatus, out.Failure, out.Err)
	}
}

func TestProbe_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	p := newTestProber(t, 2*time.Second)
	out := p.Probe(context.Background(), endpointFor(t, "http", addr))

	if out.Reachable {
		t.Fatal("Expected a closed port to be unreachable")
	}
	if out.Failure != model.FailureRefused {
		t.Errorf("Expected failure %s, got %s (%v)", model.FailureRefused, out.Failure, out.Err)
	}
}

func TestProbe_HangingProxyTimesOut(t *testing.T) {
	const timeout = 300 * time.Millisecond
	ln := hangingListener(t)

	p := newTestProber(t, timeout)
	start := time.Now()
	out := p.Probe(context.Background(), endpointFor(t, "http", ln.Addr().String()))
	elapsed := time.Since(start)

	if out.Reachable {
		t.Fatal("Expected a hanging proxy to be unreachable")
	}
	if out.Failure != model.FailureTimeout {
		t.Errorf("Expected failure %s, got %s (%v)", model.FailureTimeout, out.Failure, out.Err)
	}
	if elapsed < timeout {
		t.Errorf("probe returned after %v, before the %v deadline", elapsed, timeout)
	}
	if elapsed > timeout+2*time.Second {
		t.Errorf("probe took %v, far beyond the %v deadline", elapsed, timeout)
	}
}

func TestProbe_HangingSocks5TimesOut(t *testing.T) {
	const timeout = 300 * time.Millisecond
	ln := hangingListener(t)

	p := newTestProber(t, timeout)
	start := time.Now()
	out := p.Probe(context.Background(), endpointFor(t, "socks5", ln.Addr().String()))
	elapsed := time.Since(start)

	if out.Reachable {
		t.Fatal("Expected a hanging SOCKS5 proxy to be unreachable")
	}
	if elapsed > timeout+2*time.Second {
		t.Errorf("probe took %v, far beyond the %v deadline", elapsed, timeout)
	}
}

func TestProbe_CanceledContext(t *testing.T) {
	ln := hangingListener(t)
	p := newTestProber(t, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	out := p.Probe(ctx, endpointFor(t, "http", ln.Addr().String()))

	if out.Reachable {
		t.Fatal("Expected a canceled probe to be unreachable")
	}
	if out.Failure != model.FailureCanceled {
		t.Errorf("Expected failure %s, got %s (%v)", model.FailureCanceled, out.Failure, out.Err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("canceled probe did not return promptly")
	}
}

// getOnlyProxy forwards plain GETs and refuses CONNECT tunnels.
func getOnlyProxy(t *testing.T, requests chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests <- r.Method + " " + r.URL.Host
		}
		if r.Method == http.MethodConnect {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte(`{"origin":"127.0.0.1"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProbe_SameTargetForEveryScheme(t *testing.T) {
	requests := make(chan string, 2)
	srv := getOnlyProxy(t, requests)
	addr := strings.TrimPrefix(srv.URL, "http://")

	p := newTestProber(t, 2*time.Second)
	for _, scheme := range []string{"http", "https"} {
		out := p.Probe(context.Background(), endpointFor(t, scheme, addr))
		if !out.Reachable {
			t.Errorf("%s-labelled endpoint unreachable: %s %v", scheme, out.Failure, out.Err)
		}
		if got := <-requests; got != "GET probe-target.invalid" {
			t.Errorf("%s-labelled endpoint sent %q, expected a plain GET of the target", scheme, got)
		}
	}
}

func TestProbe_RejectedConnectIsProxyFailure(t *testing.T) {
	srv := getOnlyProxy(t, nil)

	p, err := NewProber("https://probe-target.invalid/ip", 2*time.Second, "")
	if err != nil {
		t.Fatalf("NewProber() returned an error: %v", err)
	}
	out := p.Probe(context.Background(), endpointFor(t, "http", strings.TrimPrefix(srv.URL, "http://")))

	if out.Reachable {
		t.Fatal("Expected a refused CONNECT to be unreachable")
	}
	if out.Failure != model.FailureProxy {
		t.Errorf("Expected failure %s, got %s (%v)", model.FailureProxy, out.Failure, out.Err)
	}
	var connectErr *ProxyConnectError
	if !errors.As(out.Err, &connectErr) || connectErr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected a ProxyConnectError with code 405, got %v", out.Err)
	}
}
