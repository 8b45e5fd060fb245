package checker

import (
	"context"
	"crypto/x509"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/core"
)

type Prober interface {
	Probe(ctx context.Context, domain string) core.HTTPProbeResult
}

type Fetcher interface {
	Fetch(ctx context.Context, domain string, timeout time.Duration) (*x509.Certificate, error)
}

// Verifier runs the HTTP probe and the certificate fetch for one domain and
// classifies the combined result. It never returns an error: every failure
// becomes a status on the outcome.
type Verifier struct {
	prober     Prober
	fetcher    Fetcher
	tlsTimeout time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

type VerifierOption func(*Verifier)

func WithTLSTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.tlsTimeout = d }
}

func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(prober Prober, fetcher Fetcher, logger *zap.Logger, opts ...VerifierOption) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &Verifier{
		prober:     prober,
		fetcher:    fetcher,
		tlsTimeout: DefaultTLSTimeout,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Verifier) Verify(ctx context.Context, record core.DomainRecord) core.VerificationOutcome {
	return v.verify(ctx, record, v.tlsTimeout)
}

// VerifyWithTimeouts retries the check with each timeout in turn and stops
// at the first outcome that read a certificate or found it expired.
func (v *Verifier) VerifyWithTimeouts(ctx context.Context, record core.DomainRecord, timeouts []time.Duration) []core.VerificationOutcome {
	var attempts []core.VerificationOutcome
	for _, timeout := range timeouts {
		outcome := v.verify(ctx, record, timeout)
		attempts = append(attempts, outcome)
		if outcome.Status.CertificateVerified() || outcome.Status == core.StatusCertExpired {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return attempts
}

func (v *Verifier) verify(ctx context.Context, record core.DomainRecord, timeout time.Duration) (outcome core.VerificationOutcome) {
	domain := NormalizeDomain(record.Domain)
	outcome = core.VerificationOutcome{
		Record: record,
		Domain: domain,
	}

	defer func() {
		if r := recover(); r != nil {
			outcome.Status = core.StatusUnexpectedError
			outcome.Error = fmt.Sprintf("unexpected error: %v", r)
			outcome.Certificate = core.CertificateInfo{}
		}
		outcome.CheckedAt = v.now().UTC()
	}()

	log := v.logger.With(zap.String("id", record.ID), zap.String("domain", domain))
	log.Info("Checking domain", zap.String("original", record.Domain))

	if domain == "" {
		outcome.Status = core.StatusInvalidDomain
		outcome.Error = "empty domain"
		log.Warn("Empty domain")
		return outcome
	}

	outcome.HTTP = v.prober.Probe(ctx, domain)

	cert, err := v.fetcher.Fetch(ctx, domain, timeout)
	now := v.now()
	status := Classify(err)
	outcome.Status = status

	switch status {
	case core.StatusSuccess:
		outcome.Certificate = CertificateDetails(cert, now)
		if outcome.HTTP.HasError {
			outcome.Status = core.StatusValidCertHTTPError
			outcome.Error = outcome.HTTP.ErrorKind
		}
		log.Info("Certificate retrieved",
			zap.String("status", string(outcome.Status)),
			zap.String("common_name", outcome.Certificate.CommonName),
			zap.Int("days_remaining", outcome.Days()),
		)
		return outcome
	case core.StatusCertExpired:
		days := core.ExpiredDaysSentinel
		outcome.Certificate.DaysRemaining = &days
		outcome.Error = "SSL certificate expired"
	case core.StatusSSLError:
		outcome.Error = fmt.Sprintf("SSL error: %v", err)
	case core.StatusInvalidDomain:
		outcome.Error = "domain not found (DNS)"
	case core.StatusTimeout:
		outcome.Error = timeoutMessage(timeout)
	case core.StatusConnectionRefused:
		outcome.Error = "connection refused by server"
	default:
		outcome.Error = fmt.Sprintf("unexpected error: %v", err)
	}

	log.Warn("Certificate check failed",
		zap.String("status", string(outcome.Status)),
		zap.String("error", outcome.Error),
	)
	return outcome
}
