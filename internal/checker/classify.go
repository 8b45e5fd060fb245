package checker

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/leozw/ssl-verifier/internal/core"
)

// Classify maps a certificate fetch error to a probe status.
func Classify(err error) core.ProbeStatus {
	if err == nil {
		return core.StatusSuccess
	}

	var hsErr *HandshakeError
	if errors.As(err, &hsErr) {
		switch {
		case certificateExpired(err):
			return core.StatusCertExpired
		case isTimeout(err):
			return core.StatusTimeout
		}
		return core.StatusSSLError
	}

	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return core.StatusInvalidDomain
	case isTimeout(err):
		return core.StatusTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return core.StatusConnectionRefused
	case isTLSError(err):
		if certificateExpired(err) {
			return core.StatusCertExpired
		}
		return core.StatusSSLError
	}
	return core.StatusUnexpectedError
}

// certificateExpired matches failures that only carry text, such as an
// alert sent by the peer. A certificate that was read is judged by its
// NotAfter instead.
func certificateExpired(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "certificate has expired") || strings.Contains(msg, "certificate expired")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isTLSError(err error) bool {
	var (
		recordErr tls.RecordHeaderError
		alertErr  tls.AlertError
	)
	if errors.As(err, &recordErr) || errors.As(err, &alertErr) {
		return true
	}
	return strings.Contains(err.Error(), "tls: ")
}
