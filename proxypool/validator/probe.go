package validator

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/proxy"

	"proxyfinder/proxypool/model"
)

const (
	// DefaultTimeout is the fixed per-probe deadline.
	DefaultTimeout = 4 * time.Second
	// DefaultTarget is fetched through every candidate proxy.
	DefaultTarget = "http://httpbin.org/ip"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/115.0.0.0 Safari/537.36"
	maxBodyDrain     = 64 << 10
)

// StatusError is returned when the target answers through the proxy with a
// non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-successful status code: %d", e.Code)
}

// ProxyConnectError is returned when an HTTP proxy refuses to open a CONNECT
// tunnel to an https target.
type ProxyConnectError struct {
	Code   int
	Status string
}

func (e *ProxyConnectError) Error() string {
	return fmt.Sprintf("proxy refused CONNECT: %s", e.Status)
}

// DialContextFunc matches net.Dialer.DialContext.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Prober performs single liveness checks. It holds no per-call state and is
// safe for concurrent use.
type Prober struct {
	target    *url.URL
	timeout   time.Duration
	userAgent string
	dial      DialContextFunc
}

// NewProber returns a Prober fetching target through each candidate with the
// given deadline. Zero values fall back to DefaultTarget and DefaultTimeout.
func NewProber(target string, timeout time.Duration, userAgent string) (*Prober, error) {
	if target == "" {
		target = DefaultTarget
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid probe target %q: %w", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid probe target %q: scheme must be http or https", target)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: -1,
	}
	return &Prober{
		target:    u,
		timeout:   timeout,
		userAgent: userAgent,
		dial:      dialer.DialContext,
	}, nil
}

// Timeout returns the per-probe deadline.
func (p *Prober) Timeout() time.Duration {
	return p.timeout
}

// Probe checks one endpoint. It never returns an error: every failure is
// folded into Reachable=false, with the cause kept in Failure and Err.
func (p *Prober) Probe(ctx context.Context, ep model.Endpoint) model.Outcome {
	start := time.Now()
	err := p.check(ctx, ep)
	out := model.Outcome{
		Endpoint: ep,
		Latency:  time.Since(start),
	}
	if err == nil {
		out.Reachable = true
		return out
	}
	out.Err = err
	out.Failure = classify(ctx, err)
	return out
}

func (p *Prober) check(parent context.Context, ep model.Endpoint) error {
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()

	transport, err := p.transportFor(ep)
	if err != nil {
		return err
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   p.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyDrain)); err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func (p *Prober) transportFor(ep model.Endpoint) (*http.Transport, error) {
	transport := &http.Transport{
		DialContext:            p.dial,
		TLSClientConfig:        &tls.Config{InsecureSkipVerify: true},
		TLSHandshakeTimeout:    p.timeout,
		ResponseHeaderTimeout:  p.timeout,
		DisableKeepAlives:      true,
		OnProxyConnectResponse: checkConnect,
	}

	switch ep.Scheme() {
	case model.SchemeSOCKS5:
		dialer, err := proxy.SOCKS5("tcp", ep.Address(), nil, forwardDialer(p.dial))
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		cd, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("SOCKS5 dialer does not support contexts")
		}
		transport.DialContext = cd.DialContext
	default:
		// "https" on a listing site only marks CONNECT support; the proxy
		// itself speaks plain HTTP on its port.
		transport.Proxy = http.ProxyURL(&url.URL{Scheme: "http", Host: ep.Address()})
	}
	return transport, nil
}

func checkConnect(_ context.Context, _ *url.URL, _ *http.Request, resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		return &ProxyConnectError{Code: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

// forwardDialer adapts a DialContextFunc to proxy.Dialer and proxy.ContextDialer.
type forwardDialer DialContextFunc

func (f forwardDialer) Dial(network, addr string) (net.Conn, error) {
	return f(context.Background(), network, addr)
}

func (f forwardDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return f(ctx, network, addr)
}

// classify maps a probe error to a FailureKind.
func classify(parent context.Context, err error) model.FailureKind {
	if parent.Err() != nil {
		return model.FailureCanceled
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return model.FailureStatus
	}
	var connectErr *ProxyConnectError
	if errors.As(err, &connectErr) {
		return model.FailureProxy
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.FailureTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return model.FailureDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return model.FailureRefused
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return model.FailureProtocol
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Op == "proxyconnect" || opErr.Op == "socks connect") {
		return model.FailureProxy
	}

	msg := err.Error()
	if strings.Contains(msg, "malformed HTTP") || strings.Contains(msg, "server gave HTTP response") {
		return model.FailureProtocol
	}
	return model.FailureOther
}
