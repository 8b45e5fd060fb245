package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leozw/ssl-verifier/internal/core"
)

const (
	ColumnID     = "id"
	ColumnDomain = "domain"

	utf8BOM = "\ufeff"
)

// ErrStructuralInput is wrapped by every error that makes a domain list
// unusable as a whole.
var ErrStructuralInput = errors.New("structural input error")

// HeaderError reports a header missing the id or domain column.
type HeaderError struct {
	Fields []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("CSV must contain %q and %q columns, detected columns: [%s]",
		ColumnID, ColumnDomain, strings.Join(e.Fields, ", "))
}

func (e *HeaderError) Unwrap() error { return ErrStructuralInput }

// ReadDomains loads the domain list at path.
func ReadDomains(path string) ([]core.DomainRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStructuralInput, path, err)
	}
	defer f.Close()

	records, err := ParseDomains(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ParseDomains reads CSV rows keyed by the exact, case-sensitive id and
// domain columns. Other columns are ignored.
func ParseDomains(r io.Reader) ([]core.DomainRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &HeaderError{}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrStructuralInput, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	idIdx, domainIdx := -1, -1
	for i, name := range header {
		switch name {
		case ColumnID:
			if idIdx < 0 {
				idIdx = i
			}
		case ColumnDomain:
			if domainIdx < 0 {
				domainIdx = i
			}
		}
	}
	if idIdx < 0 || domainIdx < 0 {
		return nil, &HeaderError{Fields: header}
	}

	records := []core.DomainRecord{}
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrStructuralInput, line, err)
		}
		if isBlank(row) {
			continue
		}
		records = append(records, core.DomainRecord{
			ID:     strings.TrimSpace(field(row, idIdx)),
			Domain: strings.TrimSpace(field(row, domainIdx)),
		})
	}
	return records, nil
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
