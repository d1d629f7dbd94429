package model

import "time"

// FailureKind 区分探测失败的具体原因。
// 对外契约只暴露 Reachable，这里的细分仅用于日志与统计。
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureDNS
	FailureRefused
	FailureTimeout
	FailureProxy
	FailureStatus
	FailureProtocol
	FailureCanceled
	FailureOther
)

var failureNames = [...]string{
	FailureNone:     "none",
	FailureDNS:      "dns",
	FailureRefused:  "refused",
	FailureTimeout:  "timeout",
	FailureProxy:    "proxy_rejected",
	FailureStatus:   "bad_status",
	FailureProtocol: "protocol",
	FailureCanceled: "canceled",
	FailureOther:    "other",
}

func (k FailureKind) String() string {
	if k < 0 || int(k) >= len(failureNames) {
		return "unknown"
	}
	return failureNames[k]
}

// Outcome 是一次探测的结果，每个 Endpoint 每轮验证只产生一次。
type Outcome struct {
	Endpoint  Endpoint
	Reachable bool

	Failure FailureKind
	Err     error
	Latency time.Duration
}
