// Package reconcile selects and groups ledger rows for one billing period.
// It is read-only: it runs against an already-rebuilt ledger and produces
// the per-client matches the bundler materializes.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
)

type WarningKind string

const (
	// WarnAmbiguousSOA marks duplicate statements for one head office and
	// period; the most recent one was chosen.
	WarnAmbiguousSOA WarningKind = "ambiguous_soa_match"
	// WarnOrphanInvoice marks an invoice whose customer id has no roster
	// row, so it cannot be attributed to a head office.
	WarnOrphanInvoice WarningKind = "orphan_invoice"
)

type Warning struct {
	Kind   WarningKind `json:"kind"`
	Key    string      `json:"key"`
	Detail string      `json:"detail"`
}

// Match is one delivery group: every period invoice for the aggregate,
// at most one SOA, and the union of the group's recipient addresses.
type Match struct {
	Key            string
	HeadOffice     string
	HeadOfficeName string
	Period         string
	Invoices       []ledger.Invoice
	Statement      *ledger.StatementOfAccount
	Recipients     []string
}

// LedgerReader is the slice of ledger accessors reconciliation reads.
type LedgerReader interface {
	InvoicesForPeriod(ctx context.Context, period string) ([]ledger.Invoice, error)
	ClientsByAggregateKey(ctx context.Context, key ledger.AggregateKey) (map[string][]ledger.Client, error)
	StatementsForHeadOffice(ctx context.Context, headOffice, period string) ([]ledger.StatementOfAccount, error)
}

type Service struct {
	ledger LedgerReader
}

func NewService(ledger LedgerReader) *Service {
	return &Service{ledger: ledger}
}

// Reconcile groups the period's invoices by the aggregate key and joins at
// most one SOA per group. Groups without invoices are dropped; output is
// sorted by key so reruns are deterministic.
func (s *Service) Reconcile(ctx context.Context, period string, key ledger.AggregateKey) ([]Match, []Warning, error) {
	invoices, err := s.ledger.InvoicesForPeriod(ctx, period)
	if err != nil {
		return nil, nil, fmt.Errorf("selecting invoices for %s: %w", period, err)
	}

	groups, err := s.ledger.ClientsByAggregateKey(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("grouping clients: %w", err)
	}

	byCustomer := make(map[string]ledger.Client)

	for _, clients := range groups {
		for _, c := range clients {
			byCustomer[c.CustomerID] = c
		}
	}

	var warnings []Warning

	grouped := make(map[string][]ledger.Invoice)

	for _, inv := range invoices {
		aggValue, ok := aggregateValue(inv, key, byCustomer)
		if !ok {
			warnings = append(warnings, Warning{
				Kind:   WarnOrphanInvoice,
				Key:    inv.CustomerID,
				Detail: fmt.Sprintf("invoice %s has no roster row for customer %s", inv.Number, inv.CustomerID),
			})

			continue
		}

		grouped[aggValue] = append(grouped[aggValue], inv)
	}

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	matches := make([]Match, 0, len(keys))

	for _, k := range keys {
		match, ws, err := s.buildMatch(ctx, k, key, period, grouped[k], groups[k], byCustomer)
		if err != nil {
			return nil, nil, err
		}

		warnings = append(warnings, ws...)
		matches = append(matches, *match)
	}

	return matches, warnings, nil
}

// aggregateValue derives the grouping value for an invoice. Under
// customer grouping the invoice's own customer id serves even without a
// roster row; under head-office grouping an orphan cannot be attributed.
func aggregateValue(inv ledger.Invoice, key ledger.AggregateKey, byCustomer map[string]ledger.Client) (string, bool) {
	if key == ledger.AggregateByCustomer {
		return inv.CustomerID, true
	}

	client, ok := byCustomer[inv.CustomerID]
	if !ok {
		return "", false
	}

	return client.HeadOffice, true
}

func (s *Service) buildMatch(ctx context.Context, aggValue string, key ledger.AggregateKey, period string, invoices []ledger.Invoice, clients []ledger.Client, byCustomer map[string]ledger.Client) (*Match, []Warning, error) {
	sort.Slice(invoices, func(i, j int) bool {
		return invoices[i].FilePath < invoices[j].FilePath
	})

	headOffice := aggValue
	if key == ledger.AggregateByCustomer {
		headOffice = byCustomer[aggValue].HeadOffice
	}

	var warnings []Warning

	soa, warning, err := s.resolveStatement(ctx, aggValue, headOffice, period)
	if err != nil {
		return nil, nil, err
	}

	if warning != nil {
		warnings = append(warnings, *warning)
	}

	match := &Match{
		Key:            aggValue,
		HeadOffice:     headOffice,
		HeadOfficeName: headOfficeName(soa, clients),
		Period:         period,
		Invoices:       invoices,
		Statement:      soa,
		Recipients:     recipientUnion(clients),
	}

	return match, warnings, nil
}

// resolveStatement joins at most one SOA to the group. Duplicate
// statements for the same head office and period are a recoverable
// anomaly: the most recent extracted date wins, nil dates last, file path
// as the final tie-break.
func (s *Service) resolveStatement(ctx context.Context, aggValue, headOffice, period string) (*ledger.StatementOfAccount, *Warning, error) {
	if headOffice == "" {
		return nil, nil, nil
	}

	candidates, err := s.ledger.StatementsForHeadOffice(ctx, headOffice, period)
	if err != nil {
		return nil, nil, fmt.Errorf("selecting statements for %s: %w", headOffice, err)
	}

	if len(candidates) == 0 {
		return nil, nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]

		switch {
		case a.Date == nil && b.Date == nil:
			return a.FilePath < b.FilePath
		case a.Date == nil:
			return false
		case b.Date == nil:
			return true
		case !a.Date.Equal(*b.Date):
			return a.Date.After(*b.Date)
		default:
			return a.FilePath < b.FilePath
		}
	})

	chosen := candidates[0]

	var warning *Warning

	if len(candidates) > 1 {
		warning = &Warning{
			Kind:   WarnAmbiguousSOA,
			Key:    aggValue,
			Detail: fmt.Sprintf("%d statements for head office %s in %s; using %s", len(candidates), headOffice, period, chosen.FilePath),
		}
	}

	return &chosen, warning, nil
}

func headOfficeName(soa *ledger.StatementOfAccount, clients []ledger.Client) string {
	if soa != nil && soa.HeadOfficeName != "" {
		return soa.HeadOfficeName
	}

	for _, c := range clients {
		if c.HeadOfficeName != "" {
			return c.HeadOfficeName
		}
	}

	return ""
}

// recipientUnion is the order-preserving, deduplicated union of every
// client's recipients in the group.
func recipientUnion(clients []ledger.Client) []string {
	seen := make(map[string]struct{})

	var union []string

	for _, c := range clients {
		for _, addr := range c.Recipients {
			if _, dup := seen[addr]; dup {
				continue
			}

			seen[addr] = struct{}{}
			union = append(union, addr)
		}
	}

	return union
}
