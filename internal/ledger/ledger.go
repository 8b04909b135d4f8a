package ledger

import (
	"fmt"
	"time"
)

// AggregateKey selects the grouping dimension used when bundling documents
// for delivery: either the client's head office or the customer number.
type AggregateKey string

const (
	AggregateByHeadOffice AggregateKey = "head_office"
	AggregateByCustomer   AggregateKey = "customer_number"
)

func ParseAggregateKey(s string) (AggregateKey, error) {
	switch AggregateKey(s) {
	case AggregateByHeadOffice, AggregateByCustomer:
		return AggregateKey(s), nil
	default:
		return "", fmt.Errorf("unknown aggregate key %q", s)
	}
}

// MaxRecipients is the number of recipient slots a roster row carries.
const MaxRecipients = 5

// Client is one roster row. Clients are replaced wholesale on every
// rebuild and are never deleted individually.
type Client struct {
	CustomerID     string
	HeadOffice     string
	HeadOfficeName string
	Recipients     []string
}

// NormalizeRecipients drops empty slots, removes duplicates preserving
// first occurrence, and caps the list at MaxRecipients.
func NormalizeRecipients(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))

	var out []string

	for _, e := range emails {
		if e == "" {
			continue
		}

		if _, dup := seen[e]; dup {
			continue
		}

		seen[e] = struct{}{}
		out = append(out, e)

		if len(out) == MaxRecipients {
			break
		}
	}

	return out
}

// Invoice is one discovered invoice document. Number and FilePath are each
// unique on their own; a collision on either is an upsert, not an insert.
// CustomerID is not enforced against the clients collection - orphans are
// tolerated and surfaced during reconciliation.
type Invoice struct {
	Number     string
	CustomerID string
	ShipName   string
	FilePath   string
	Date       *time.Time
	Period     string

	Delivered     bool
	DeliveredAt   *time.Time
	DeliveryError string
}

// StatementOfAccount is one discovered SOA document, unique by FilePath.
// It is tied to a head office, not to a single customer.
type StatementOfAccount struct {
	HeadOffice     string
	HeadOfficeName string
	FilePath       string
	Date           *time.Time
	Period         string

	Delivered     bool
	DeliveredAt   *time.Time
	DeliveryError string
}

// PeriodOf derives the YYYY-MM period string from an extracted date. A nil
// date yields "" and keeps the row out of period-scoped reconciliation.
func PeriodOf(d *time.Time) string {
	if d == nil {
		return ""
	}

	return d.Format("2006-01")
}

// FormatPeriod builds the period string for a requested year and month.
func FormatPeriod(year, month int) (string, error) {
	if year < 1 || month < 1 || month > 12 {
		return "", fmt.Errorf("invalid period %d-%d", year, month)
	}

	return fmt.Sprintf("%04d-%02d", year, month), nil
}

// EntityChanges summarizes how one collection differed across a rebuild.
// Duplicates counts upsert overwrites observed while importing.
type EntityChanges struct {
	Added      int `json:"added"`
	Removed    int `json:"removed"`
	Changed    int `json:"changed"`
	Duplicates int `json:"duplicates"`
}

func (c EntityChanges) empty() bool {
	return c.Added == 0 && c.Removed == 0 && c.Changed == 0
}

// ChangeReport compares ledger content before and after a rebuild, keyed
// by each entity's natural unique key.
type ChangeReport struct {
	Clients    EntityChanges `json:"clients"`
	Invoices   EntityChanges `json:"invoices"`
	Statements EntityChanges `json:"statements"`
}

// Empty reports whether the rebuild left every collection as it was.
func (r *ChangeReport) Empty() bool {
	return r.Clients.empty() && r.Invoices.empty() && r.Statements.empty()
}

func (r *ChangeReport) String() string {
	line := func(name string, c EntityChanges) string {
		return fmt.Sprintf("%s: %d added, %d removed, %d changed, %d duplicate keys",
			name, c.Added, c.Removed, c.Changed, c.Duplicates)
	}

	return line("clients", r.Clients) + "\n" +
		line("invoices", r.Invoices) + "\n" +
		line("statements", r.Statements)
}
