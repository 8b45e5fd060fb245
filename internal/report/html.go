package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/leozw/ssl-verifier/internal/core"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

const (
	subjectLayout   = "02/01/2006 15:04"
	checkedAtLayout = "02/01/2006 15:04:05"
)

var reportTemplate = template.Must(
	template.New("report.html.tmpl").Funcs(template.FuncMap{
		"formatTime":  func(t time.Time) string { return t.Format(checkedAtLayout) },
		"expiry":      core.FormatExpiry,
		"abs":         abs,
		"orNA":        orNA,
		"statusLabel": StatusLabel,
	}).ParseFS(templateFS, "templates/report.html.tmpl"),
)

type view struct {
	CheckedAt  time.Time
	Total      int
	Expired    []core.ResultRow
	Valid      []core.ResultRow
	Healthy    []core.ResultRow
	HTTPErrors []core.ResultRow
	Errored    []core.ErrorRow
}

// Subject is the mail subject for a report generated at t.
func Subject(t time.Time) string {
	return "SSL Verification Report - " + t.Format(subjectLayout)
}

// RenderHTML renders the summary mail body for a batch.
func RenderHTML(b *core.BatchResult) (string, error) {
	healthy, httpErrors := b.SplitValid()
	data := view{
		CheckedAt:  b.CheckedAt,
		Total:      b.Total(),
		Expired:    b.Expired,
		Valid:      b.Valid,
		Healthy:    healthy,
		HTTPErrors: httpErrors,
		Errored:    b.Errored,
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// StatusLabel grades the time left on a valid certificate.
func StatusLabel(days int) string {
	switch {
	case days > 30:
		return "OK"
	case days > 7:
		return "Expiring soon"
	default:
		return "Expiring in a few days"
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func orNA(s string) string {
	if s == "" {
		return core.NotAvailable
	}
	return s
}
