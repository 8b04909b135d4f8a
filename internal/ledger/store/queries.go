package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
)

const selectClientColumns = `
	customer_number, head_office, head_office_name,
	emailforinvoice1, emailforinvoice2, emailforinvoice3,
	emailforinvoice4, emailforinvoice5
`

const selectInvoiceColumns = `
	invoice_number, customer_number, ship_name, file_path,
	invoice_date, period_month, delivered, delivered_at, delivery_error
`

const selectStatementColumns = `
	head_office, head_office_name, file_path,
	soa_date, period_month, delivered, delivered_at, delivery_error
`

func (s *Store) Clients(ctx context.Context) ([]ledger.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryClients(ctx, s.db)
}

// ClientsByAggregateKey groups roster rows by head office or by customer
// number, preserving roster order within each group.
func (s *Store) ClientsByAggregateKey(ctx context.Context, key ledger.AggregateKey) (map[string][]ledger.Client, error) {
	s.mu.RLock()
	clients, err := queryClients(ctx, s.db)
	s.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	groups := make(map[string][]ledger.Client)

	for _, c := range clients {
		var k string

		switch key {
		case ledger.AggregateByCustomer:
			k = c.CustomerID
		case ledger.AggregateByHeadOffice:
			k = c.HeadOffice
		default:
			return nil, fmt.Errorf("unknown aggregate key %q", key)
		}

		groups[k] = append(groups[k], c)
	}

	return groups, nil
}

func queryClients(ctx context.Context, db *sql.DB) ([]ledger.Client, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+selectClientColumns+` FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	defer rows.Close()

	var clients []ledger.Client

	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning client: %w", err)
		}

		clients = append(clients, *c)
	}

	return clients, rows.Err()
}

func (s *Store) Invoices(ctx context.Context) ([]ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryInvoices(ctx, s.db,
		`SELECT `+selectInvoiceColumns+` FROM invoices ORDER BY id`)
}

// InvoicesForPeriod selects by exact period string equality. Undated rows
// carry an empty period and never match a real period.
func (s *Store) InvoicesForPeriod(ctx context.Context, period string) ([]ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryInvoices(ctx, s.db,
		`SELECT `+selectInvoiceColumns+` FROM invoices WHERE period_month = ? ORDER BY id`,
		period)
}

func queryInvoices(ctx context.Context, db *sql.DB, query string, args ...any) ([]ledger.Invoice, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var invoices []ledger.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invoices = append(invoices, *inv)
	}

	return invoices, rows.Err()
}

func (s *Store) Statements(ctx context.Context) ([]ledger.StatementOfAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryStatements(ctx, s.db,
		`SELECT `+selectStatementColumns+` FROM statements ORDER BY id`)
}

// StatementsForHeadOffice filters by head office and, when period is
// non-empty, by exact period equality. Head office comparison trims
// whitespace to survive sloppy document metadata.
func (s *Store) StatementsForHeadOffice(ctx context.Context, headOffice, period string) ([]ledger.StatementOfAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + selectStatementColumns + ` FROM statements WHERE TRIM(head_office) = TRIM(?)`
	args := []any{headOffice}

	if period != "" {
		query += ` AND period_month = ?`
		args = append(args, period)
	}

	query += ` ORDER BY id`

	return queryStatements(ctx, s.db, query, args...)
}

func queryStatements(ctx context.Context, db *sql.DB, query string, args ...any) ([]ledger.StatementOfAccount, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing statements: %w", err)
	}
	defer rows.Close()

	var statements []ledger.StatementOfAccount

	for rows.Next() {
		soa, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning statement: %w", err)
		}

		statements = append(statements, *soa)
	}

	return statements, rows.Err()
}

// MarkInvoiceDelivered records a dispatch outcome. Success sets the
// delivered flag and clears the stored error; failure stores the error and
// leaves the flag unset.
func (s *Store) MarkInvoiceDelivered(ctx context.Context, filePath string, at time.Time, sendErr string) error {
	return s.markDelivered(ctx, "invoices", filePath, at, sendErr)
}

// MarkStatementDelivered records a dispatch outcome for an SOA file.
func (s *Store) MarkStatementDelivered(ctx context.Context, filePath string, at time.Time, sendErr string) error {
	return s.markDelivered(ctx, "statements", filePath, at, sendErr)
}

func (s *Store) markDelivered(ctx context.Context, table, filePath string, at time.Time, sendErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error

	if sendErr == "" {
		_, err = s.db.ExecContext(ctx,
			`UPDATE `+table+` SET delivered = 1, delivered_at = ?, delivery_error = '' WHERE file_path = ?`,
			at.Format(time.RFC3339), filePath)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE `+table+` SET delivery_error = ? WHERE file_path = ?`,
			sendErr, filePath)
	}

	if err != nil {
		return fmt.Errorf("marking delivery on %s: %w", table, err)
	}

	return nil
}

func scanClient(sc scanner) (*ledger.Client, error) {
	var (
		c      ledger.Client
		emails [ledger.MaxRecipients]sql.NullString
	)

	if err := sc.Scan(
		&c.CustomerID, &c.HeadOffice, &c.HeadOfficeName,
		&emails[0], &emails[1], &emails[2], &emails[3], &emails[4],
	); err != nil {
		return nil, err
	}

	for _, e := range emails {
		if e.Valid && e.String != "" {
			c.Recipients = append(c.Recipients, e.String)
		}
	}

	return &c, nil
}

func scanInvoice(sc scanner) (*ledger.Invoice, error) {
	var (
		inv         ledger.Invoice
		date        sql.NullString
		delivered   int
		deliveredAt sql.NullString
	)

	if err := sc.Scan(
		&inv.Number, &inv.CustomerID, &inv.ShipName, &inv.FilePath,
		&date, &inv.Period, &delivered, &deliveredAt, &inv.DeliveryError,
	); err != nil {
		return nil, err
	}

	inv.Date = parseDateColumn(date, time.DateOnly)
	inv.Delivered = delivered != 0
	inv.DeliveredAt = parseDateColumn(deliveredAt, time.RFC3339)

	return &inv, nil
}

func scanStatement(sc scanner) (*ledger.StatementOfAccount, error) {
	var (
		soa         ledger.StatementOfAccount
		date        sql.NullString
		delivered   int
		deliveredAt sql.NullString
	)

	if err := sc.Scan(
		&soa.HeadOffice, &soa.HeadOfficeName, &soa.FilePath,
		&date, &soa.Period, &delivered, &deliveredAt, &soa.DeliveryError,
	); err != nil {
		return nil, err
	}

	soa.Date = parseDateColumn(date, time.DateOnly)
	soa.Delivered = delivered != 0
	soa.DeliveredAt = parseDateColumn(deliveredAt, time.RFC3339)

	return &soa, nil
}

func parseDateColumn(ns sql.NullString, layout string) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}

	t, err := time.Parse(layout, ns.String)
	if err != nil {
		return nil
	}

	return &t
}
