// Package store persists the ledger in a single SQLite file.
//
// A rebuild never mutates the live database. The new state is imported into
// a fresh file next to the live one and atomically renamed into place, with
// the previous file held as a backup until the swap completes. Readers
// therefore see either the fully-previous or the fully-new state.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rajindermavi/InvoiceMailer/internal/database"
	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS clients (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_number     TEXT    NOT NULL UNIQUE,
	head_office         TEXT    NOT NULL,
	head_office_name    TEXT    NOT NULL DEFAULT '',
	emailforinvoice1    TEXT,
	emailforinvoice2    TEXT,
	emailforinvoice3    TEXT,
	emailforinvoice4    TEXT,
	emailforinvoice5    TEXT
);

CREATE TABLE IF NOT EXISTS invoices (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	invoice_number      TEXT    NOT NULL UNIQUE,
	customer_number     TEXT    NOT NULL,
	ship_name           TEXT    NOT NULL DEFAULT '',
	file_path           TEXT    NOT NULL UNIQUE,
	invoice_date        TEXT,
	period_month        TEXT    NOT NULL DEFAULT '',
	delivered           INTEGER NOT NULL DEFAULT 0,
	delivered_at        TEXT,
	delivery_error      TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_invoices_customer_period
	ON invoices(customer_number, period_month);

CREATE TABLE IF NOT EXISTS statements (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	head_office         TEXT    NOT NULL,
	head_office_name    TEXT    NOT NULL DEFAULT '',
	file_path           TEXT    NOT NULL UNIQUE,
	soa_date            TEXT,
	period_month        TEXT    NOT NULL DEFAULT '',
	delivered           INTEGER NOT NULL DEFAULT 0,
	delivered_at        TEXT,
	delivery_error      TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_statements_head_office
	ON statements(head_office, period_month);
`

// Store implements ledger.Repository on a SQLite file.
type Store struct {
	mu   sync.RWMutex
	path string
	db   *sql.DB
}

var _ ledger.Repository = (*Store)(nil)

func New(path string) (*Store, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}

	return &Store{path: path, db: db}, nil
}

func open(path string) (*sql.DB, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Rebuild imports the supplied rows into a brand-new database file and
// publishes it over the live one. The write lock serializes concurrent
// rebuilds and keeps readers on a stable state until the swap is done.
func (s *Store) Rebuild(ctx context.Context, clients []ledger.Client, invoices []ledger.Invoice, statements []ledger.StatementOfAccount) (*ledger.ChangeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.snapshot(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("snapshotting previous state: %w", err)
	}

	buildPath := s.path + ".rebuild"
	// A stale build file from an interrupted run is worthless; start over.
	os.Remove(buildPath)

	report, err := s.buildNew(ctx, buildPath, prev, clients, invoices, statements)
	if err != nil {
		os.Remove(buildPath)
		return nil, err
	}

	if err := s.publish(buildPath); err != nil {
		os.Remove(buildPath)
		return nil, err
	}

	return report, nil
}

// buildNew creates the replacement database and returns the change report
// against the previous snapshot. The live store is untouched throughout.
func (s *Store) buildNew(ctx context.Context, buildPath string, prev *snapshotState, clients []ledger.Client, invoices []ledger.Invoice, statements []ledger.StatementOfAccount) (*ledger.ChangeReport, error) {
	db, err := open(buildPath)
	if err != nil {
		return nil, fmt.Errorf("creating rebuild database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	var report ledger.ChangeReport

	for _, c := range clients {
		overwrote, err := upsertClient(ctx, tx, c)
		if err != nil {
			return nil, fmt.Errorf("importing client %s: %w", c.CustomerID, err)
		}

		if overwrote {
			report.Clients.Duplicates++
		}
	}

	for _, inv := range invoices {
		overwrote, err := upsertInvoice(ctx, tx, inv)
		if err != nil {
			return nil, fmt.Errorf("importing invoice %s: %w", inv.Number, err)
		}

		if overwrote {
			report.Invoices.Duplicates++
		}
	}

	for _, soa := range statements {
		overwrote, err := upsertStatement(ctx, tx, soa)
		if err != nil {
			return nil, fmt.Errorf("importing statement %s: %w", soa.FilePath, err)
		}

		if overwrote {
			report.Statements.Duplicates++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}

	next, err := s.snapshot(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("snapshotting new state: %w", err)
	}

	diff(prev, next, &report)

	return &report, nil
}

// publish swaps the freshly built file into place. The previous file is
// kept as .bak until the swap succeeds, and restored if it does not.
func (s *Store) publish(buildPath string) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing live database: %w", err)
	}

	bakPath := s.path + ".bak"
	if err := os.Rename(s.path, bakPath); err != nil {
		return s.reopenAfter(fmt.Errorf("backing up database: %w", err))
	}

	if err := os.Rename(buildPath, s.path); err != nil {
		// Put the previous file back; the store must never be left without
		// a database.
		if rerr := os.Rename(bakPath, s.path); rerr != nil {
			return fmt.Errorf("restoring backup after failed swap: %w (swap: %v)", rerr, err)
		}

		return s.reopenAfter(fmt.Errorf("publishing rebuilt database: %w", err))
	}

	db, err := open(s.path)
	if err != nil {
		return fmt.Errorf("reopening database: %w", err)
	}

	s.db = db
	os.Remove(bakPath)

	return nil
}

func (s *Store) reopenAfter(cause error) error {
	db, err := open(s.path)
	if err != nil {
		return fmt.Errorf("reopening database: %w (cause: %v)", err, cause)
	}

	s.db = db

	return cause
}

// upsertClient inserts a roster row, replacing any earlier row with the
// same customer number. Reports whether an overwrite happened.
func upsertClient(ctx context.Context, tx *sql.Tx, c ledger.Client) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM clients WHERE customer_number = ?`, c.CustomerID)
	if err != nil {
		return false, err
	}

	emails := recipientColumns(c.Recipients)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO clients (
			customer_number, head_office, head_office_name,
			emailforinvoice1, emailforinvoice2, emailforinvoice3,
			emailforinvoice4, emailforinvoice5
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CustomerID, c.HeadOffice, c.HeadOfficeName,
		emails[0], emails[1], emails[2], emails[3], emails[4],
	)
	if err != nil {
		return false, err
	}

	n, _ := res.RowsAffected()

	return n > 0, nil
}

// upsertInvoice inserts an invoice row; a collision on the invoice number
// or on the file path replaces the earlier row (last-write-wins).
func upsertInvoice(ctx context.Context, tx *sql.Tx, inv ledger.Invoice) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM invoices WHERE invoice_number = ? OR file_path = ?`,
		inv.Number, inv.FilePath)
	if err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (
			invoice_number, customer_number, ship_name, file_path,
			invoice_date, period_month, delivered, delivered_at, delivery_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Number, inv.CustomerID, inv.ShipName, inv.FilePath,
		dateColumn(inv.Date), inv.Period,
		boolColumn(inv.Delivered), timeColumn(inv.DeliveredAt), inv.DeliveryError,
	)
	if err != nil {
		return false, err
	}

	n, _ := res.RowsAffected()

	return n > 0, nil
}

// upsertStatement inserts an SOA row, replacing any earlier row with the
// same file path.
func upsertStatement(ctx context.Context, tx *sql.Tx, soa ledger.StatementOfAccount) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM statements WHERE file_path = ?`, soa.FilePath)
	if err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO statements (
			head_office, head_office_name, file_path,
			soa_date, period_month, delivered, delivered_at, delivery_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		soa.HeadOffice, soa.HeadOfficeName, soa.FilePath,
		dateColumn(soa.Date), soa.Period,
		boolColumn(soa.Delivered), timeColumn(soa.DeliveredAt), soa.DeliveryError,
	)
	if err != nil {
		return false, err
	}

	n, _ := res.RowsAffected()

	return n > 0, nil
}

func recipientColumns(emails []string) [ledger.MaxRecipients]any {
	var cols [ledger.MaxRecipients]any

	for i, e := range ledger.NormalizeRecipients(emails) {
		cols[i] = e
	}

	return cols
}

func dateColumn(d *time.Time) any {
	if d == nil {
		return nil
	}

	return d.Format(time.DateOnly)
}

func timeColumn(t *time.Time) any {
	if t == nil {
		return nil
	}

	return t.Format(time.RFC3339)
}

func boolColumn(b bool) int {
	if b {
		return 1
	}

	return 0
}
