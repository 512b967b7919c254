package gatekeeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	reasonHoneypot        = "honeypot"
	reasonDwell           = "dwell"
	reasonRateLimit       = "rate_limit"
	reasonAddressThrottle = "address_throttle"
	reasonDenylist        = "denylist"
	reasonNoMX            = "no_mx"
	reasonPattern         = "pattern"
	reasonRule            = "rule"
)

var rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_rejections_total",
	Help: "Registration submissions rejected by policy, by reason.",
}, []string{"reason"})
