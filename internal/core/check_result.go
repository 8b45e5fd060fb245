package core

import (
	"fmt"
	"time"
)

type ProbeStatus string

const (
	StatusSuccess            ProbeStatus = "SUCCESS"
	StatusValidCertHTTPError ProbeStatus = "VALID_CERT_HTTP_ERROR"
	StatusCertExpired        ProbeStatus = "CERT_EXPIRED"
	StatusSSLError           ProbeStatus = "SSL_ERROR"
	StatusInvalidDomain      ProbeStatus = "INVALID_DOMAIN"
	StatusTimeout            ProbeStatus = "TIMEOUT"
	StatusConnectionRefused  ProbeStatus = "CONNECTION_REFUSED"
	StatusUnexpectedError    ProbeStatus = "UNEXPECTED_ERROR"
)

// ExpiredDaysSentinel is reported when the handshake failed because the
// certificate expired and the exact day count is unknown.
const ExpiredDaysSentinel = -1

// CertificateVerified reports whether the leaf certificate was read and the
// domain should be routed by its remaining days.
func (s ProbeStatus) CertificateVerified() bool {
	return s == StatusSuccess || s == StatusValidCertHTTPError
}

// HTTPProbeResult is the application-layer signal overlaid on certificate validity.
type HTTPProbeResult struct {
	HasError  bool   `json:"has_error"`
	ErrorKind string `json:"error_kind,omitempty"`
}

func ClientError(code int) HTTPProbeResult {
	return HTTPProbeResult{HasError: true, ErrorKind: fmt.Sprintf("ClientError(%d)", code)}
}

func ServerError(code int) HTTPProbeResult {
	return HTTPProbeResult{HasError: true, ErrorKind: fmt.Sprintf("ServerError(%d)", code)}
}

type CertificateInfo struct {
	CommonName    string     `json:"common_name,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	DaysRemaining *int       `json:"days_remaining,omitempty"`
}

// VerificationOutcome is the classified result of probing one domain.
type VerificationOutcome struct {
	Record      DomainRecord    `json:"record"`
	Domain      string          `json:"domain"`
	Certificate CertificateInfo `json:"certificate"`
	Status      ProbeStatus     `json:"status"`
	Error       string          `json:"error,omitempty"`
	HTTP        HTTPProbeResult `json:"http"`
	CheckedAt   time.Time       `json:"checked_at"`
}

// Days returns the remaining days, or zero when unknown.
func (o *VerificationOutcome) Days() int {
	if o.Certificate.DaysRemaining == nil {
		return 0
	}
	return *o.Certificate.DaysRemaining
}
