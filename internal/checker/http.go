package checker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/core"
)

const DefaultHTTPTimeout = 3 * time.Second

// HTTPProber looks for 4xx/5xx responses. Certificate trust is ignored here;
// the TLS fetcher judges the certificate on its own.
type HTTPProber struct {
	client *http.Client
	logger *zap.Logger
}

func NewHTTPProber(timeout time.Duration, logger *zap.Logger) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:  timeout,
			Resolver: NewResolver(timeout),
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // status probe only
		},
		TLSHandshakeTimeout: timeout,
		DisableKeepAlives:   true,
	}

	return &HTTPProber{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
		logger: logger,
	}
}

func (h *HTTPProber) Probe(ctx context.Context, domain string) core.HTTPProbeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+domain, nil)
	if err != nil {
		h.logger.Debug("HTTP probe request invalid", zap.String("domain", domain), zap.Error(err))
		return core.HTTPProbeResult{}
	}
	req.Header.Set("User-Agent", "SSLVerifier/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Debug("HTTP probe failed", zap.String("domain", domain), zap.Error(err))
		return core.HTTPProbeResult{}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	result := StatusCodeResult(resp.StatusCode)
	if result.HasError {
		h.logger.Info("HTTP error response",
			zap.String("domain", domain),
			zap.Int("status_code", resp.StatusCode),
			zap.String("kind", result.ErrorKind),
		)
	}
	return result
}

// StatusCodeResult maps an HTTP status code to a probe result.
func StatusCodeResult(code int) core.HTTPProbeResult {
	switch {
	case code >= 500:
		return core.ServerError(code)
	case code >= 400:
		return core.ClientError(code)
	default:
		return core.HTTPProbeResult{}
	}
}
