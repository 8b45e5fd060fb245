package tabular

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leozw/ssl-verifier/internal/core"
)

func TestParseDomains(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []core.DomainRecord
		wantErr bool
	}{
		{
			name:  "basic",
			input: "id,domain\n1,example.com\n2, https://foo.com.br/ \n",
			want: []core.DomainRecord{
				{ID: "1", Domain: "example.com"},
				{ID: "2", Domain: "https://foo.com.br/"},
			},
		},
		{
			name:  "extra columns and reordering",
			input: "owner,domain,id\nops,example.org,7\n",
			want:  []core.DomainRecord{{ID: "7", Domain: "example.org"}},
		},
		{
			name:  "bom on header",
			input: "\ufeffid,domain\n1,example.com\n",
			want:  []core.DomainRecord{{ID: "1", Domain: "example.com"}},
		},
		{
			name:  "blank lines skipped",
			input: "id,domain\n\n1,example.com\n,\n",
			want:  []core.DomainRecord{{ID: "1", Domain: "example.com"}},
		},
		{
			name:  "header only",
			input: "id,domain\n",
			want:  []core.DomainRecord{},
		},
		{name: "missing domain column", input: "id,dominio\n1,example.com\n", wantErr: true},
		{name: "case sensitive", input: "ID,Domain\n1,example.com\n", wantErr: true},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDomains(strings.NewReader(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrStructuralInput) {
					t.Fatalf("expected structural input error, got %v", err)
				}
				if got != nil {
					t.Fatalf("expected no records on error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("record %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestHeaderErrorListsFields(t *testing.T) {
	_, err := ParseDomains(strings.NewReader("id,dominio\n"))
	var hdrErr *HeaderError
	if !errors.As(err, &hdrErr) {
		t.Fatalf("expected *HeaderError, got %T", err)
	}
	if len(hdrErr.Fields) != 2 || hdrErr.Fields[1] != "dominio" {
		t.Fatalf("fields = %v", hdrErr.Fields)
	}
	if !strings.Contains(err.Error(), "dominio") {
		t.Fatalf("message does not name detected fields: %s", err)
	}
}

func TestReadDomainsMissingFile(t *testing.T) {
	_, err := ReadDomains(filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, ErrStructuralInput) {
		t.Fatalf("expected structural input error, got %v", err)
	}
}

func sampleBatch(checkedAt time.Time) *core.BatchResult {
	expires := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	past := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	b := core.NewBatchResult(checkedAt)
	b.Expired = append(b.Expired, core.ResultRow{
		ID: "1", OriginalDomain: "https://old.com", Domain: "old.com",
		CommonName: "old", ExpiresAt: &past, DaysRemaining: -1,
	}, core.ResultRow{
		ID: "4", OriginalDomain: "gone.com", Domain: "gone.com", DaysRemaining: -1,
	})
	b.Valid = append(b.Valid, core.ResultRow{
		ID: "2", OriginalDomain: "ok.com", Domain: "ok.com",
		CommonName: "ok", ExpiresAt: &expires, DaysRemaining: 40, HTTPError: "ClientError(404)",
	})
	b.Errored = append(b.Errored, core.ErrorRow{
		ID: "3", OriginalDomain: "bad, domain", Domain: "bad, domain",
		Status: core.StatusInvalidDomain, Error: "domain not found (DNS)",
	})
	return b
}

func TestWriterRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	checkedAt := time.Date(2025, 6, 23, 9, 42, 11, 0, time.Local)
	in := sampleBatch(checkedAt)

	w := NewWriter(dir, nil)
	if err := w.Save(context.Background(), in); err != nil {
		t.Fatalf("save: %v", err)
	}

	files := w.LastFiles()
	if filepath.Base(files.Valid) != "valid_domains_20250623_094211.csv" {
		t.Fatalf("unexpected file name %s", files.Valid)
	}
	raw, err := os.ReadFile(files.Valid)
	if err != nil {
		t.Fatal(err)
	}
	wantHeader := "id,original_domain,verified_domain,common_name,expires_at,days_remaining,http_error\n"
	wantRow := "2,ok.com,ok.com,ok,01/09/2025 12:00:00 UTC,40,ClientError(404)\n"
	if string(raw) != wantHeader+wantRow {
		t.Fatalf("valid file content:\n%s", raw)
	}

	out, err := LoadReport(dir, "20250623_094211")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !out.CheckedAt.Equal(checkedAt) {
		t.Errorf("checked at = %s, want %s", out.CheckedAt, checkedAt)
	}
	if len(out.Expired) != 2 || len(out.Valid) != 1 || len(out.Errored) != 1 {
		t.Fatalf("bucket sizes = %d/%d/%d", len(out.Expired), len(out.Valid), len(out.Errored))
	}
	if out.Expired[1].ExpiresAt != nil {
		t.Errorf("N/A expiry should load as nil")
	}
	if !out.Valid[0].ExpiresAt.Equal(*in.Valid[0].ExpiresAt) || out.Valid[0].HTTPError != "ClientError(404)" {
		t.Errorf("valid row = %+v", out.Valid[0])
	}
	if out.Errored[0] != in.Errored[0] {
		t.Errorf("errored row = %+v, want %+v", out.Errored[0], in.Errored[0])
	}
}

func TestListReports(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	older := time.Date(2025, 6, 1, 8, 0, 0, 0, time.Local)
	newer := time.Date(2025, 6, 2, 8, 0, 0, 0, time.Local)
	if err := w.Save(context.Background(), sampleBatch(older)); err != nil {
		t.Fatal(err)
	}
	if err := w.Save(context.Background(), core.NewBatchResult(newer)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	reports, err := ListReports(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	if reports[0].Timestamp != "20250602_080000" || reports[0].Total() != 0 {
		t.Errorf("newest = %+v", reports[0])
	}
	if reports[1].Expired != 2 || reports[1].Valid != 1 || reports[1].Errored != 1 {
		t.Errorf("older = %+v", reports[1])
	}
}

func TestLoadReportNotFound(t *testing.T) {
	_, err := LoadReport(t.TempDir(), "20250101_000000")
	if !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
	if _, err := ListReports(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("missing dir should list nothing, got %v", err)
	}
}
