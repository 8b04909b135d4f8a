package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
)

// snapshotState captures one ledger state for diffing, keyed by each
// entity's natural unique key. Delivery bookkeeping is excluded so a
// rerun over unchanged sources reports an unchanged ledger even though a
// rebuild resets delivery flags.
type snapshotState struct {
	clients    map[string]string
	invoices   map[string]string
	statements map[string]string
}

func (s *Store) snapshot(ctx context.Context, db *sql.DB) (*snapshotState, error) {
	clients, err := queryClients(ctx, db)
	if err != nil {
		return nil, err
	}

	invoices, err := queryInvoices(ctx, db,
		`SELECT `+selectInvoiceColumns+` FROM invoices ORDER BY id`)
	if err != nil {
		return nil, err
	}

	statements, err := queryStatements(ctx, db,
		`SELECT `+selectStatementColumns+` FROM statements ORDER BY id`)
	if err != nil {
		return nil, err
	}

	state := &snapshotState{
		clients:    make(map[string]string, len(clients)),
		invoices:   make(map[string]string, len(invoices)),
		statements: make(map[string]string, len(statements)),
	}

	for _, c := range clients {
		state.clients[c.CustomerID] = clientContent(c)
	}

	for _, inv := range invoices {
		state.invoices[inv.Number] = invoiceContent(inv)
	}

	for _, soa := range statements {
		state.statements[soa.FilePath] = statementContent(soa)
	}

	return state, nil
}

func clientContent(c ledger.Client) string {
	return strings.Join(append([]string{c.HeadOffice, c.HeadOfficeName}, c.Recipients...), "\x1f")
}

func invoiceContent(inv ledger.Invoice) string {
	return strings.Join([]string{
		inv.CustomerID, inv.ShipName, inv.FilePath, contentDate(inv.Date), inv.Period,
	}, "\x1f")
}

func statementContent(soa ledger.StatementOfAccount) string {
	return strings.Join([]string{
		soa.HeadOffice, soa.HeadOfficeName, contentDate(soa.Date), soa.Period,
	}, "\x1f")
}

func contentDate(d *time.Time) string {
	if d == nil {
		return ""
	}

	return d.Format(time.DateOnly)
}

// diff fills the Added/Removed/Changed counters of report by comparing the
// two states key by key.
func diff(prev, next *snapshotState, report *ledger.ChangeReport) {
	diffEntity(prev.clients, next.clients, &report.Clients)
	diffEntity(prev.invoices, next.invoices, &report.Invoices)
	diffEntity(prev.statements, next.statements, &report.Statements)
}

func diffEntity(prev, next map[string]string, changes *ledger.EntityChanges) {
	for key, content := range next {
		old, existed := prev[key]

		switch {
		case !existed:
			changes.Added++
		case old != content:
			changes.Changed++
		}
	}

	for key := range prev {
		if _, kept := next[key]; !kept {
			changes.Removed++
		}
	}
}
