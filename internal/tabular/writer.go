package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/core"
)

// TimestampLayout names one saved report across its three files.
const TimestampLayout = "20060102_150405"

const (
	expiredPrefix = "expired_domains_"
	validPrefix   = "valid_domains_"
	erroredPrefix = "error_domains_"
	csvExt        = ".csv"
)

var (
	resultHeader = []string{"id", "original_domain", "verified_domain", "common_name", "expires_at", "days_remaining", "http_error"}
	errorHeader  = []string{"id", "original_domain", "attempted_domain", "status", "error"}
)

// ReportFiles are the paths of one saved report.
type ReportFiles struct {
	Expired string
	Valid   string
	Errored string
}

// Files returns the paths of the report saved under timestamp ts in dir.
func Files(dir, ts string) ReportFiles {
	return ReportFiles{
		Expired: filepath.Join(dir, expiredPrefix+ts+csvExt),
		Valid:   filepath.Join(dir, validPrefix+ts+csvExt),
		Errored: filepath.Join(dir, erroredPrefix+ts+csvExt),
	}
}

// All lists the three paths in bucket order.
func (f ReportFiles) All() []string {
	return []string{f.Expired, f.Valid, f.Errored}
}

// Timestamp renders t in local time, the zone LoadReport parses names in.
func Timestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// Writer persists a batch result as three CSV files.
type Writer struct {
	dir    string
	logger *zap.Logger
	last   ReportFiles
}

func NewWriter(dir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, logger: logger}
}

func (w *Writer) Dir() string { return w.dir }

// LastFiles returns the paths written by the most recent Save.
func (w *Writer) LastFiles() ReportFiles { return w.last }

// Last loads the newest report saved in the writer's directory.
func (w *Writer) Last(_ context.Context) (*core.BatchResult, error) {
	return Latest(w.dir)
}

func (w *Writer) Save(ctx context.Context, b *core.BatchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	files := Files(w.dir, Timestamp(b.CheckedAt))
	if err := writeCSV(files.Expired, resultHeader, resultRecords(b.Expired)); err != nil {
		return err
	}
	if err := writeCSV(files.Valid, resultHeader, resultRecords(b.Valid)); err != nil {
		return err
	}
	if err := writeCSV(files.Errored, errorHeader, errorRecords(b.Errored)); err != nil {
		return err
	}
	w.last = files

	w.logger.Info("Reports saved",
		zap.String("expired", files.Expired),
		zap.String("valid", files.Valid),
		zap.String("errored", files.Errored),
	)
	return nil
}

func resultRecords(rows []core.ResultRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.ID,
			r.OriginalDomain,
			r.Domain,
			r.CommonName,
			core.FormatExpiry(r.ExpiresAt),
			strconv.Itoa(r.DaysRemaining),
			r.HTTPError,
		})
	}
	return out
}

func errorRecords(rows []core.ErrorRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.ID, r.OriginalDomain, r.Domain, string(r.Status), r.Error})
	}
	return out
}

func writeCSV(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
