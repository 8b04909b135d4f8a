// Package roster imports the client directory from a CSV export. Import is
// an explicit schema boundary: headers are located by name, each row is
// validated, and bad rows become warnings instead of aborting the import.
package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	enc "github.com/rajindermavi/InvoiceMailer/internal/encoding"
	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
)

// Column headers recognized in the roster export, compared after trimming
// and lowercasing.
const (
	colCustomerNumber = "customer number"
	colHeadOffice     = "head office"
	colHeadOfficeName = "head office name"
	emailColPrefix    = "emailforinvoice"
)

// Warning is one roster row that could not be imported.
type Warning struct {
	Line   int    `json:"line"`
	Detail string `json:"detail"`
}

// row is the typed shape a roster line must satisfy before it becomes a
// Client.
type row struct {
	CustomerID     string   `validate:"required"`
	HeadOffice     string   `validate:"required"`
	HeadOfficeName string
	Emails         []string `validate:"dive,omitempty,email"`
}

type Reader struct {
	validate *validator.Validate
}

func NewReader() *Reader {
	return &Reader{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ReadFile opens and imports a roster CSV from disk.
func (r *Reader) ReadFile(path string) ([]ledger.Client, []Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening roster: %w", err)
	}
	defer f.Close()

	return r.Read(f)
}

// Read imports the roster rows from src, normalizing the encoding first.
// The header row is located by content, so leading banner lines in the
// export are tolerated.
func (r *Reader) Read(src io.Reader) ([]ledger.Client, []Warning, error) {
	utf8r, err := enc.NewUTF8Reader(src)
	if err != nil {
		return nil, nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}

	cols, headerIdx := findHeader(records)
	if cols == nil {
		return nil, nil, fmt.Errorf("no roster header found: expected a %q column", colCustomerNumber)
	}

	var (
		clients  []ledger.Client
		warnings []Warning
	)

	for i, record := range records[headerIdx+1:] {
		line := headerIdx + i + 2 // 1-based, after the header

		if blank(record) {
			continue
		}

		parsed := parseRow(record, cols)

		if err := r.validate.Struct(parsed); err != nil {
			warnings = append(warnings, Warning{
				Line:   line,
				Detail: fmt.Sprintf("invalid roster row: %v", err),
			})

			continue
		}

		clients = append(clients, ledger.Client{
			CustomerID:     parsed.CustomerID,
			HeadOffice:     parsed.HeadOffice,
			HeadOfficeName: parsed.HeadOfficeName,
			Recipients:     ledger.NormalizeRecipients(parsed.Emails),
		})
	}

	return clients, warnings, nil
}

// colIndex maps normalized column names to their position.
type colIndex map[string]int

// findHeader scans for the first record carrying the customer number
// column and returns its column map.
func findHeader(records [][]string) (colIndex, int) {
	for idx, record := range records {
		cols := make(colIndex)

		for i, cell := range record {
			name := strings.ToLower(strings.TrimSpace(cell))
			if name != "" {
				cols[name] = i
			}
		}

		if _, ok := cols[colCustomerNumber]; ok {
			return cols, idx
		}
	}

	return nil, 0
}

func parseRow(record []string, cols colIndex) row {
	parsed := row{
		CustomerID:     cell(record, cols, colCustomerNumber),
		HeadOffice:     cell(record, cols, colHeadOffice),
		HeadOfficeName: cell(record, cols, colHeadOfficeName),
	}

	for i := 1; i <= ledger.MaxRecipients; i++ {
		parsed.Emails = append(parsed.Emails, cell(record, cols, fmt.Sprintf("%s%d", emailColPrefix, i)))
	}

	return parsed
}

func cell(record []string, cols colIndex, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}

	return strings.TrimSpace(record[idx])
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}
