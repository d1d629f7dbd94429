package model

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ErrMalformedEndpoint 表示一个字符串无法解析为合法的代理地址。
var ErrMalformedEndpoint = errors.New("malformed endpoint")

// Scheme 是代理协议。只接受固定的几种取值。
type Scheme string

const (
	SchemeHTTP   Scheme = "http"
	SchemeHTTPS  Scheme = "https"
	SchemeSOCKS5 Scheme = "socks5"
)

// Valid 判断协议是否为受支持的取值。
func (s Scheme) Valid() bool {
	switch s {
	case SchemeHTTP, SchemeHTTPS, SchemeSOCKS5:
		return true
	}
	return false
}

// Endpoint 是一个格式合法的代理地址，构造后不可修改。
// 只能通过 NewEndpoint 或 ParseEndpoint 获得。
type Endpoint struct {
	scheme Scheme
	host   string
	port   uint16
}

// NewEndpoint 校验各字段后构造 Endpoint。
func NewEndpoint(scheme Scheme, host string, port int) (Endpoint, error) {
	scheme = Scheme(strings.ToLower(string(scheme)))
	if !scheme.Valid() {
		return Endpoint{}, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedEndpoint, scheme)
	}
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: empty host", ErrMalformedEndpoint)
	}
	if strings.ContainsAny(host, "/@?# ") {
		return Endpoint{}, fmt.Errorf("%w: invalid host %q", ErrMalformedEndpoint, host)
	}
	if port < 1 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: port %d out of range", ErrMalformedEndpoint, port)
	}
	return Endpoint{scheme: scheme, host: host, port: uint16(port)}, nil
}

// ParseEndpoint 解析 "scheme://host:port" 形式的字符串。
// 不允许携带认证信息、路径、查询参数或片段。
func ParseEndpoint(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, fmt.Errorf("%w: empty string", ErrMalformedEndpoint)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrMalformedEndpoint, err)
	}
	if u.User != nil {
		return Endpoint{}, fmt.Errorf("%w: credentials are not supported", ErrMalformedEndpoint)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" || u.Opaque != "" {
		return Endpoint{}, fmt.Errorf("%w: unexpected path or query in %q", ErrMalformedEndpoint, raw)
	}
	portStr := u.Port()
	if portStr == "" {
		return Endpoint{}, fmt.Errorf("%w: missing port in %q", ErrMalformedEndpoint, raw)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: invalid port %q", ErrMalformedEndpoint, portStr)
	}
	return NewEndpoint(Scheme(u.Scheme), u.Hostname(), port)
}

func (e Endpoint) Scheme() Scheme { return e.scheme }
func (e Endpoint) Host() string   { return e.host }
func (e Endpoint) Port() uint16   { return e.port }

// Address 返回 "host:port"，IPv6 地址会加上方括号。
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.host, strconv.Itoa(int(e.port)))
}

// String 返回规范形式 "scheme://host:port"，也是去重所用的键。
func (e Endpoint) String() string {
	return string(e.scheme) + "://" + e.Address()
}

// URL 返回可交给 http.Transport 使用的代理 URL。
func (e Endpoint) URL() *url.URL {
	return &url.URL{Scheme: string(e.scheme), Host: e.Address()}
}

// IsZero 判断是否为未初始化的零值。
func (e Endpoint) IsZero() bool {
	return e.host == ""
}
