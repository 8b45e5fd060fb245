package report

import (
	"strings"
	"testing"
	"time"

	"github.com/leozw/ssl-verifier/internal/core"
)

func TestSubject(t *testing.T) {
	at := time.Date(2025, 6, 23, 9, 5, 59, 0, time.UTC)
	if got := Subject(at); got != "SSL Verification Report - 23/06/2025 09:05" {
		t.Fatalf("Subject() = %q", got)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{90, "OK"},
		{31, "OK"},
		{30, "Expiring soon"},
		{8, "Expiring soon"},
		{7, "Expiring in a few days"},
		{1, "Expiring in a few days"},
	}
	for _, tt := range tests {
		if got := StatusLabel(tt.days); got != tt.want {
			t.Errorf("StatusLabel(%d) = %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	expires := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	b := core.NewBatchResult(time.Date(2025, 6, 23, 9, 42, 11, 0, time.UTC))
	b.Expired = append(b.Expired, core.ResultRow{ID: "1", Domain: "old.com", DaysRemaining: -12})
	b.Valid = append(b.Valid,
		core.ResultRow{ID: "2", Domain: "fine.com", CommonName: "fine", ExpiresAt: &expires, DaysRemaining: 45},
		core.ResultRow{ID: "3", Domain: "broken.com", DaysRemaining: 5, HTTPError: "ServerError(502)"},
	)
	b.Errored = append(b.Errored, core.ErrorRow{ID: "4", Domain: "<script>", Status: core.StatusSSLError, Error: "SSL error: bad"})

	body, err := RenderHTML(b)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"23/06/2025 09:42:11",
		"<strong>Total domains checked:</strong> 4",
		"<td>old.com</td><td>N/A</td><td>12</td><td>N/A</td>",
		"<td>fine.com</td><td>fine</td><td>45</td><td>OK</td>",
		"Domains with a Valid Certificate but an HTTP Error",
		"<td>broken.com</td><td>5</td><td>ServerError(502)</td>",
		"&lt;script&gt;",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "<td>broken.com</td><td></td>") {
		t.Errorf("row with HTTP error rendered in the healthy table")
	}
}

func TestRenderHTMLEmptyBatch(t *testing.T) {
	body, err := RenderHTML(core.NewBatchResult(time.Now()))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "No domains with expired certificates.") {
		t.Errorf("missing empty expired notice")
	}
	if strings.Contains(body, "Domains that Failed Verification") {
		t.Errorf("errored table rendered for an empty bucket")
	}
}
