package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// MXResolver reports whether a mail domain publishes at least one MX record.
type MXResolver interface {
	HasMX(ctx context.Context, domain string) (bool, error)
}

type resolver struct {
	servers []string
	client  *dns.Client
}

// NewResolver queries public resolvers first, then the system resolver.
func NewResolver() MXResolver {
	return &resolver{
		servers: []string{"1.1.1.1:53", "8.8.8.8:53"},
		client:  &dns.Client{Timeout: 3 * time.Second},
	}
}

func (r *resolver) HasMX(ctx context.Context, domain string) (bool, error) {
	if strings.TrimSpace(domain) == "" {
		return false, fmt.Errorf("domain cannot be empty")
	}

	host := dns.Fqdn(strings.ToLower(domain))

	var lastErr error
	for _, server := range r.servers {
		ok, err := r.queryMX(ctx, host, server)
		if err == nil {
			return ok, nil
		}
		zap.L().Debug("DNS MX query failed", zap.String("resolver", server), zap.Error(err))
		lastErr = err
	}

	zap.L().Warn("Falling back to system resolver", zap.String("domain", domain), zap.Error(lastErr))
	records, err := net.DefaultResolver.LookupMX(ctx, host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false, nil
		}
		return false, fmt.Errorf("system resolver MX lookup failed: %w", err)
	}

	return len(records) > 0, nil
}

func (r *resolver) queryMX(ctx context.Context, host, server string) (bool, error) {
	msg := dns.Msg{}
	msg.SetQuestion(host, dns.TypeMX)

	resp, _, err := r.client.ExchangeContext(ctx, &msg, server)
	if err != nil {
		return false, err
	}

	if resp.Rcode == dns.RcodeNameError {
		return false, nil
	}
	if resp.Rcode != dns.RcodeSuccess {
		return false, fmt.Errorf("resolver %s answered %s", server, dns.RcodeToString[resp.Rcode])
	}

	for _, ans := range resp.Answer {
		if _, ok := ans.(*dns.MX); ok {
			return true, nil
		}
	}

	return false, nil
}
