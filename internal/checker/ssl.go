package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/leozw/ssl-verifier/internal/core"
)

const (
	DefaultTLSTimeout = 5 * time.Second
	DefaultTLSPort    = "443"
)

var (
	oidCommonName = asn1.ObjectIdentifier{2, 5, 4, 3}

	errNoCertificates = errors.New("no certificates found")
)

// HandshakeError marks a failure that happened after the TCP connection was
// established, while negotiating TLS.
type HandshakeError struct {
	Err error
}

func (e *HandshakeError) Error() string { return e.Err.Error() }
func (e *HandshakeError) Unwrap() error { return e.Err }

// SSLChecker reads the certificate a server presents. It does not validate
// the chain or the hostname: expiry is judged from the leaf alone.
type SSLChecker struct {
	port     string
	resolver *net.Resolver
}

type SSLOption func(*SSLChecker)

func WithPort(port string) SSLOption {
	return func(s *SSLChecker) { s.port = port }
}

func WithResolver(r *net.Resolver) SSLOption {
	return func(s *SSLChecker) { s.resolver = r }
}

func NewSSLChecker(opts ...SSLOption) *SSLChecker {
	s := &SSLChecker{port: DefaultTLSPort}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch connects to the domain and returns the leaf certificate. Handshake
// failures are wrapped in *HandshakeError; dial failures are returned as is.
func (s *SSLChecker) Fetch(ctx context.Context, domain string, timeout time.Duration) (*x509.Certificate, error) {
	if timeout <= 0 {
		timeout = DefaultTLSTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr, host := splitTarget(domain, s.port)

	resolver := s.resolver
	if resolver == nil {
		resolver = NewResolver(timeout)
	}
	dialer := &net.Dialer{Timeout: timeout, Resolver: resolver}

	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer rawConn.Close()

	conn := tls.Client(rawConn, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true, //nolint:gosec // leaf is read, not trusted
	})
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, &HandshakeError{Err: err}
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, &HandshakeError{Err: errNoCertificates}
	}
	return certs[0], nil
}

// CertificateDetails extracts the reported fields of a leaf certificate.
func CertificateDetails(cert *x509.Certificate, now time.Time) core.CertificateInfo {
	expires := cert.NotAfter.UTC()
	days := DaysRemaining(expires, now)
	return core.CertificateInfo{
		CommonName:    StripCommonNameSuffix(commonName(cert)),
		ExpiresAt:     &expires,
		DaysRemaining: &days,
	}
}

// commonName returns the first CN attribute of the subject. pkix.Name keeps
// the last one, so the raw attribute list is walked instead.
func commonName(cert *x509.Certificate) string {
	for _, attr := range cert.Subject.Names {
		if attr.Type.Equal(oidCommonName) {
			if v, ok := attr.Value.(string); ok {
				return v
			}
		}
	}
	return cert.Subject.CommonName
}

func StripCommonNameSuffix(cn string) string {
	return strings.TrimSuffix(cn, ".com.br")
}

// DaysRemaining is the whole-day floor of expires-now, computed in UTC.
func DaysRemaining(expires, now time.Time) int {
	const day = 24 * time.Hour
	d := expires.UTC().Sub(now.UTC())
	days := d / day
	if d < 0 && d%day != 0 {
		days--
	}
	return int(days)
}

func timeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("timeout after %s", timeout)
}
