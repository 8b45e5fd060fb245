package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leozw/ssl-verifier/internal/core"
)

var ErrReportNotFound = fmt.Errorf("report not found: %w", core.ErrNoReport)

// ReportSummary describes one saved report.
type ReportSummary struct {
	Timestamp string
	Expired   int
	Valid     int
	Errored   int
}

func (s ReportSummary) Total() int { return s.Expired + s.Valid + s.Errored }

// LoadReport reads a saved report back. Missing bucket files load as empty
// buckets; the report must have at least one file.
func LoadReport(dir, ts string) (*core.BatchResult, error) {
	checkedAt, err := time.ParseInLocation(TimestampLayout, ts, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid report timestamp %q: %w", ts, err)
	}

	files := Files(dir, ts)
	found := false
	for _, p := range files.All() {
		if _, err := os.Stat(p); err == nil {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s in %s", ErrReportNotFound, ts, dir)
	}

	b := core.NewBatchResult(checkedAt)
	if b.Expired, err = readResultRows(files.Expired); err != nil {
		return nil, err
	}
	if b.Valid, err = readResultRows(files.Valid); err != nil {
		return nil, err
	}
	if b.Errored, err = readErrorRows(files.Errored); err != nil {
		return nil, err
	}
	return b, nil
}

// ListReports returns the saved reports in dir, newest first.
func ListReports(dir string) ([]ReportSummary, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ts, ok := reportTimestamp(e.Name()); ok {
			seen[ts] = true
		}
	}

	timestamps := make([]string, 0, len(seen))
	for ts := range seen {
		timestamps = append(timestamps, ts)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(timestamps)))

	summaries := make([]ReportSummary, 0, len(timestamps))
	for _, ts := range timestamps {
		b, err := LoadReport(dir, ts)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ReportSummary{
			Timestamp: ts,
			Expired:   len(b.Expired),
			Valid:     len(b.Valid),
			Errored:   len(b.Errored),
		})
	}
	return summaries, nil
}

// Latest loads the newest report in dir.
func Latest(dir string) (*core.BatchResult, error) {
	summaries, err := ListReports(dir)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("%w: no reports in %s", ErrReportNotFound, dir)
	}
	return LoadReport(dir, summaries[0].Timestamp)
}

func reportTimestamp(name string) (string, bool) {
	if !strings.HasSuffix(name, csvExt) {
		return "", false
	}
	for _, prefix := range []string{expiredPrefix, validPrefix, erroredPrefix} {
		if strings.HasPrefix(name, prefix) {
			ts := strings.TrimSuffix(strings.TrimPrefix(name, prefix), csvExt)
			if _, err := time.Parse(TimestampLayout, ts); err != nil {
				return "", false
			}
			return ts, true
		}
	}
	return "", false
}

func readRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			row[name] = field(rec, i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readResultRows(path string) ([]core.ResultRow, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	out := make([]core.ResultRow, 0, len(rows))
	for _, r := range rows {
		expires, err := core.ParseExpiry(r["expires_at"])
		if err != nil {
			return nil, fmt.Errorf("%s: expires_at: %w", path, err)
		}
		days, err := strconv.Atoi(r["days_remaining"])
		if err != nil {
			return nil, fmt.Errorf("%s: days_remaining: %w", path, err)
		}
		out = append(out, core.ResultRow{
			ID:             r["id"],
			OriginalDomain: r["original_domain"],
			Domain:         r["verified_domain"],
			CommonName:     r["common_name"],
			ExpiresAt:      expires,
			DaysRemaining:  days,
			HTTPError:      r["http_error"],
		})
	}
	return out, nil
}

func readErrorRows(path string) ([]core.ErrorRow, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	out := make([]core.ErrorRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.ErrorRow{
			ID:             r["id"],
			OriginalDomain: r["original_domain"],
			Domain:         r["attempted_domain"],
			Status:         core.ProbeStatus(r["status"]),
			Error:          r["error"],
		})
	}
	return out, nil
}
