package checker

import (
	"context"
	"net"
	"time"
)

// NewResolver returns a pure-Go resolver whose upstream dials are bounded by timeout.
func NewResolver(timeout time.Duration) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, network, address)
		},
	}
}

// splitTarget returns the dial address and TLS server name for a normalized
// domain. An explicit host:port is kept as is.
func splitTarget(domain, defaultPort string) (addr, host string) {
	if h, _, err := net.SplitHostPort(domain); err == nil {
		return domain, h
	}
	return net.JoinHostPort(domain, defaultPort), domain
}
