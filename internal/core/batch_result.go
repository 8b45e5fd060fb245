package core

import (
	"errors"
	"time"
)

const (
	ExpiryLayout = "02/01/2006 15:04:05 UTC"
	NotAvailable = "N/A"
)

// ErrNoReport is wrapped by every report source when nothing was stored yet.
var ErrNoReport = errors.New("no report available")

// ResultRow is a row of the expired and valid buckets.
type ResultRow struct {
	ID             string     `json:"id"`
	OriginalDomain string     `json:"original_domain"`
	Domain         string     `json:"verified_domain"`
	CommonName     string     `json:"common_name"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	DaysRemaining  int        `json:"days_remaining"`
	HTTPError      string     `json:"http_error,omitempty"`
}

// ErrorRow is a row of the errored bucket.
type ErrorRow struct {
	ID             string      `json:"id"`
	OriginalDomain string      `json:"original_domain"`
	Domain         string      `json:"attempted_domain"`
	Status         ProbeStatus `json:"status"`
	Error          string      `json:"error"`
}

// BatchResult holds the three ordered buckets of one verification pass.
// Every input record lands in exactly one bucket.
type BatchResult struct {
	Expired   []ResultRow `json:"expired"`
	Valid     []ResultRow `json:"valid"`
	Errored   []ErrorRow  `json:"errored"`
	CheckedAt time.Time   `json:"checked_at"`
}

func NewBatchResult(checkedAt time.Time) *BatchResult {
	return &BatchResult{
		Expired:   []ResultRow{},
		Valid:     []ResultRow{},
		Errored:   []ErrorRow{},
		CheckedAt: checkedAt,
	}
}

// Add routes an outcome into its bucket.
func (b *BatchResult) Add(o VerificationOutcome) {
	switch {
	case o.Status.CertificateVerified():
		row := resultRow(o)
		if row.DaysRemaining <= 0 {
			b.Expired = append(b.Expired, row)
		} else {
			b.Valid = append(b.Valid, row)
		}
	case o.Status == StatusCertExpired:
		row := resultRow(o)
		if o.Certificate.DaysRemaining == nil {
			row.DaysRemaining = ExpiredDaysSentinel
		}
		b.Expired = append(b.Expired, row)
	default:
		b.Errored = append(b.Errored, ErrorRow{
			ID:             o.Record.ID,
			OriginalDomain: o.Record.Domain,
			Domain:         o.Domain,
			Status:         o.Status,
			Error:          o.Error,
		})
	}
}

func resultRow(o VerificationOutcome) ResultRow {
	return ResultRow{
		ID:             o.Record.ID,
		OriginalDomain: o.Record.Domain,
		Domain:         o.Domain,
		CommonName:     o.Certificate.CommonName,
		ExpiresAt:      o.Certificate.ExpiresAt,
		DaysRemaining:  o.Days(),
		HTTPError:      o.HTTP.ErrorKind,
	}
}

func (b *BatchResult) Total() int {
	return len(b.Expired) + len(b.Valid) + len(b.Errored)
}

// SplitValid separates valid rows without an HTTP error from those with one.
func (b *BatchResult) SplitValid() (healthy, httpErrors []ResultRow) {
	for _, row := range b.Valid {
		if row.HTTPError == "" {
			healthy = append(healthy, row)
		} else {
			httpErrors = append(httpErrors, row)
		}
	}
	return healthy, httpErrors
}

// FormatExpiry renders an expiry timestamp in UTC, or N/A when absent.
func FormatExpiry(t *time.Time) string {
	if t == nil || t.IsZero() {
		return NotAvailable
	}
	return t.UTC().Format(ExpiryLayout)
}

// ParseExpiry is the inverse of FormatExpiry.
func ParseExpiry(s string) (*time.Time, error) {
	if s == "" || s == NotAvailable {
		return nil, nil
	}
	t, err := time.ParseInLocation(ExpiryLayout, s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
