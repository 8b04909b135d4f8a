package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
	"github.com/rajindermavi/InvoiceMailer/internal/ledger/store"
)

func newStore(t *testing.T) (*store.Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := store.New(path)
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })

	return s, path
}

func datePtr(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

func fixtureRows() ([]ledger.Client, []ledger.Invoice, []ledger.StatementOfAccount) {
	clients := []ledger.Client{
		{CustomerID: "C1", HeadOffice: "H1", HeadOfficeName: "Acme Holdings", Recipients: []string{"billing@acme.test", "ap@acme.test"}},
		{CustomerID: "C2", HeadOffice: "H1", HeadOfficeName: "Acme Holdings", Recipients: []string{"billing@acme.test"}},
		{CustomerID: "C3", HeadOffice: "H2", HeadOfficeName: "Globex", Recipients: []string{"accounts@globex.test"}},
	}

	invoices := []ledger.Invoice{
		{Number: "INV-001", CustomerID: "C1", ShipName: "Evergreen", FilePath: "in/C1 invoice INV-001 Evergreen.pdf", Date: datePtr(2024, 5, 17), Period: "2024-05"},
		{Number: "INV-002", CustomerID: "C2", ShipName: "Meridian", FilePath: "in/C2 invoice INV-002 Meridian.pdf", Date: datePtr(2024, 5, 20), Period: "2024-05"},
		{Number: "INV-003", CustomerID: "C3", ShipName: "Polaris", FilePath: "in/C3 invoice INV-003 Polaris.pdf", Date: datePtr(2024, 4, 2), Period: "2024-04"},
	}

	statements := []ledger.StatementOfAccount{
		{HeadOffice: "H1", HeadOfficeName: "Acme Holdings", FilePath: "soa/Statement H1 Acme Holdings.pdf", Date: datePtr(2024, 5, 31), Period: "2024-05"},
		{HeadOffice: "H2", HeadOfficeName: "Globex", FilePath: "soa/Statement H2 Globex.pdf", Date: datePtr(2024, 4, 30), Period: "2024-04"},
	}

	return clients, invoices, statements
}

func TestStore_RebuildAndQuery(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	clients, invoices, statements := fixtureRows()

	report, err := s.Rebuild(ctx, clients, invoices, statements)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Clients.Added)
	assert.Equal(t, 3, report.Invoices.Added)
	assert.Equal(t, 2, report.Statements.Added)

	gotClients, err := s.Clients(ctx)
	require.NoError(t, err)
	require.Len(t, gotClients, 3)
	assert.Equal(t, "C1", gotClients[0].CustomerID)
	assert.Equal(t, []string{"billing@acme.test", "ap@acme.test"}, gotClients[0].Recipients)

	gotInvoices, err := s.InvoicesForPeriod(ctx, "2024-05")
	require.NoError(t, err)
	require.Len(t, gotInvoices, 2)
	assert.Equal(t, "INV-001", gotInvoices[0].Number)
	require.NotNil(t, gotInvoices[0].Date)
	assert.Equal(t, 17, gotInvoices[0].Date.Day())

	gotSOAs, err := s.StatementsForHeadOffice(ctx, "H1", "2024-05")
	require.NoError(t, err)
	require.Len(t, gotSOAs, 1)
	assert.Equal(t, "Acme Holdings", gotSOAs[0].HeadOfficeName)

	// Period filter is exact equality.
	none, err := s.InvoicesForPeriod(ctx, "2024-06")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Rebuild_Idempotent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	clients, invoices, statements := fixtureRows()

	_, err := s.Rebuild(ctx, clients, invoices, statements)
	require.NoError(t, err)

	report, err := s.Rebuild(ctx, clients, invoices, statements)
	require.NoError(t, err)
	assert.True(t, report.Empty(), "rerun over identical sources must report no changes, got %s", report)
}

func TestStore_Rebuild_ReportsChanges(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	clients, invoices, statements := fixtureRows()

	_, err := s.Rebuild(ctx, clients, invoices, statements)
	require.NoError(t, err)

	// Drop one client, change one invoice's ship, add one statement.
	clients = clients[:2]
	invoices[0].ShipName = "Evergreen II"
	statements = append(statements, ledger.StatementOfAccount{
		HeadOffice: "H3", HeadOfficeName: "Initech", FilePath: "soa/Statement H3 Initech.pdf",
		Date: datePtr(2024, 5, 31), Period: "2024-05",
	})

	report, err := s.Rebuild(ctx, clients, invoices, statements)
	require.NoError(t, err)
	assert.Equal(t, ledger.EntityChanges{Removed: 1}, report.Clients)
	assert.Equal(t, ledger.EntityChanges{Changed: 1}, report.Invoices)
	assert.Equal(t, ledger.EntityChanges{Added: 1}, report.Statements)
}

func TestStore_Rebuild_UpsertLastWins(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	invoices := []ledger.Invoice{
		{Number: "INV-001", CustomerID: "C1", ShipName: "First", FilePath: "in/a.pdf", Period: "2024-05"},
		{Number: "INV-001", CustomerID: "C1", ShipName: "Second", FilePath: "in/b.pdf", Period: "2024-05"},
		{Number: "INV-002", CustomerID: "C2", ShipName: "Other", FilePath: "in/b.pdf", Period: "2024-05"},
	}

	report, err := s.Rebuild(ctx, nil, invoices, nil)
	require.NoError(t, err)

	// Both the number collision and the path collision overwrote a row.
	assert.Equal(t, 2, report.Invoices.Duplicates)

	got, err := s.Invoices(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "INV-002", got[0].Number)
	assert.Equal(t, "in/b.pdf", got[0].FilePath)
}

func TestStore_Rebuild_DuplicateClientLastWins(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	clients := []ledger.Client{
		{CustomerID: "C1", HeadOffice: "H1", HeadOfficeName: "First"},
		{CustomerID: "C1", HeadOffice: "H2", HeadOfficeName: "Second"},
	}

	report, err := s.Rebuild(ctx, clients, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Clients.Duplicates)

	got, err := s.Clients(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "H2", got[0].HeadOffice)
}

func TestStore_Rebuild_FailureKeepsPreviousState(t *testing.T) {
	s, path := newStore(t)
	ctx := context.Background()

	clients, invoices, statements := fixtureRows()

	_, err := s.Rebuild(ctx, clients, invoices, statements)
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// A non-empty directory squatting on the build path makes the rebuild
	// unable to create its working file.
	buildPath := path + ".rebuild"
	require.NoError(t, os.MkdirAll(filepath.Join(buildPath, "blocker"), 0o755))

	defer os.RemoveAll(buildPath)

	_, err = s.Rebuild(ctx, nil, nil, nil)
	require.Error(t, err)

	// The live file is byte-identical and the store still serves the old
	// state.
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	gotClients, err := s.Clients(ctx)
	require.NoError(t, err)
	assert.Len(t, gotClients, 3)

	gotInvoices, err := s.Invoices(ctx)
	require.NoError(t, err)
	assert.Len(t, gotInvoices, 3)
}

func TestStore_Rebuild_LeavesNoWorkingFiles(t *testing.T) {
	s, path := newStore(t)
	ctx := context.Background()

	clients, invoices, statements := fixtureRows()

	_, err := s.Rebuild(ctx, clients, invoices, statements)
	require.NoError(t, err)

	_, err = os.Stat(path + ".rebuild")
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(path + ".bak")
	assert.True(t, os.IsNotExist(err))
}

func TestStore_ClientsByAggregateKey(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	clients, _, _ := fixtureRows()

	_, err := s.Rebuild(ctx, clients, nil, nil)
	require.NoError(t, err)

	byOffice, err := s.ClientsByAggregateKey(ctx, ledger.AggregateByHeadOffice)
	require.NoError(t, err)
	require.Len(t, byOffice, 2)
	require.Len(t, byOffice["H1"], 2)
	assert.Equal(t, "C1", byOffice["H1"][0].CustomerID)
	assert.Equal(t, "C2", byOffice["H1"][1].CustomerID)
	require.Len(t, byOffice["H2"], 1)

	byCustomer, err := s.ClientsByAggregateKey(ctx, ledger.AggregateByCustomer)
	require.NoError(t, err)
	assert.Len(t, byCustomer, 3)

	_, err = s.ClientsByAggregateKey(ctx, ledger.AggregateKey("ship_name"))
	assert.Error(t, err)
}

func TestStore_StatementsForHeadOffice_TrimsWhitespace(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	statements := []ledger.StatementOfAccount{
		{HeadOffice: " H1 ", HeadOfficeName: "Acme", FilePath: "soa/a.pdf", Date: datePtr(2024, 5, 31), Period: "2024-05"},
	}

	_, err := s.Rebuild(ctx, nil, nil, statements)
	require.NoError(t, err)

	got, err := s.StatementsForHeadOffice(ctx, "H1", "")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_MarkDelivered(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	clients, invoices, statements := fixtureRows()

	_, err := s.Rebuild(ctx, clients, invoices, statements)
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.MarkInvoiceDelivered(ctx, invoices[0].FilePath, at, ""))
	require.NoError(t, s.MarkInvoiceDelivered(ctx, invoices[1].FilePath, at, "mailbox unavailable"))
	require.NoError(t, s.MarkStatementDelivered(ctx, statements[0].FilePath, at, ""))

	got, err := s.Invoices(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	byNumber := map[string]ledger.Invoice{}
	for _, inv := range got {
		byNumber[inv.Number] = inv
	}

	sent := byNumber["INV-001"]
	assert.True(t, sent.Delivered)
	require.NotNil(t, sent.DeliveredAt)
	assert.True(t, sent.DeliveredAt.Equal(at))
	assert.Empty(t, sent.DeliveryError)

	failed := byNumber["INV-002"]
	assert.False(t, failed.Delivered)
	assert.Nil(t, failed.DeliveredAt)
	assert.Equal(t, "mailbox unavailable", failed.DeliveryError)

	soas, err := s.Statements(ctx)
	require.NoError(t, err)
	assert.True(t, soas[0].Delivered)
}

func TestStore_Rebuild_ResetsDeliveryButReportsUnchanged(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	clients, invoices, statements := fixtureRows()

	_, err := s.Rebuild(ctx, clients, invoices, statements)
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkInvoiceDelivered(ctx, invoices[0].FilePath, at, ""))

	// Scanned rows never carry delivery state, so a rebuild resets it. The
	// change report still ignores delivery bookkeeping.
	report, err := s.Rebuild(ctx, clients, invoices, statements)
	require.NoError(t, err)
	assert.True(t, report.Empty())

	got, err := s.Invoices(ctx)
	require.NoError(t, err)

	for _, inv := range got {
		assert.False(t, inv.Delivered)
	}
}
