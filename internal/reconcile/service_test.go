package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
	"github.com/rajindermavi/InvoiceMailer/internal/reconcile"
)

// fakeLedger serves canned rows the way the store would.
type fakeLedger struct {
	invoices   []ledger.Invoice
	clients    []ledger.Client
	statements []ledger.StatementOfAccount
}

func (f *fakeLedger) InvoicesForPeriod(_ context.Context, period string) ([]ledger.Invoice, error) {
	var out []ledger.Invoice

	for _, inv := range f.invoices {
		if inv.Period == period {
			out = append(out, inv)
		}
	}

	return out, nil
}

func (f *fakeLedger) ClientsByAggregateKey(_ context.Context, key ledger.AggregateKey) (map[string][]ledger.Client, error) {
	groups := make(map[string][]ledger.Client)

	for _, c := range f.clients {
		k := c.HeadOffice
		if key == ledger.AggregateByCustomer {
			k = c.CustomerID
		}

		groups[k] = append(groups[k], c)
	}

	return groups, nil
}

func (f *fakeLedger) StatementsForHeadOffice(_ context.Context, headOffice, period string) ([]ledger.StatementOfAccount, error) {
	var out []ledger.StatementOfAccount

	for _, soa := range f.statements {
		if soa.HeadOffice != headOffice {
			continue
		}

		if period != "" && soa.Period != period {
			continue
		}

		out = append(out, soa)
	}

	return out, nil
}

func datePtr(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

func fixtureLedger() *fakeLedger {
	return &fakeLedger{
		clients: []ledger.Client{
			{CustomerID: "C1", HeadOffice: "H1", HeadOfficeName: "Acme Holdings", Recipients: []string{"billing@acme.test", "ap@acme.test"}},
			{CustomerID: "C2", HeadOffice: "H1", HeadOfficeName: "Acme Holdings", Recipients: []string{"billing@acme.test", "c2@acme.test"}},
			{CustomerID: "C3", HeadOffice: "H2", HeadOfficeName: "Globex", Recipients: []string{"accounts@globex.test"}},
		},
		invoices: []ledger.Invoice{
			{Number: "INV-002", CustomerID: "C2", FilePath: "in/b.pdf", Date: datePtr(2024, 5, 20), Period: "2024-05"},
			{Number: "INV-001", CustomerID: "C1", FilePath: "in/a.pdf", Date: datePtr(2024, 5, 17), Period: "2024-05"},
			{Number: "INV-003", CustomerID: "C3", FilePath: "in/c.pdf", Date: datePtr(2024, 4, 2), Period: "2024-04"},
		},
		statements: []ledger.StatementOfAccount{
			{HeadOffice: "H1", HeadOfficeName: "Acme Holdings Group", FilePath: "soa/h1.pdf", Date: datePtr(2024, 5, 31), Period: "2024-05"},
			{HeadOffice: "H2", HeadOfficeName: "Globex", FilePath: "soa/h2.pdf", Date: datePtr(2024, 4, 30), Period: "2024-04"},
		},
	}
}

func TestService_Reconcile_ByHeadOffice(t *testing.T) {
	svc := reconcile.NewService(fixtureLedger())

	matches, warnings, err := svc.Reconcile(context.Background(), "2024-05", ledger.AggregateByHeadOffice)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	// H2 has no invoices in the period, so only H1 survives.
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "H1", m.Key)
	assert.Equal(t, "H1", m.HeadOffice)
	assert.Equal(t, "Acme Holdings Group", m.HeadOfficeName)
	assert.Equal(t, "2024-05", m.Period)

	// Invoices are ordered by file path.
	require.Len(t, m.Invoices, 2)
	assert.Equal(t, "INV-001", m.Invoices[0].Number)
	assert.Equal(t, "INV-002", m.Invoices[1].Number)

	require.NotNil(t, m.Statement)
	assert.Equal(t, "soa/h1.pdf", m.Statement.FilePath)

	// Recipient union preserves roster order and deduplicates.
	assert.Equal(t, []string{"billing@acme.test", "ap@acme.test", "c2@acme.test"}, m.Recipients)
}

func TestService_Reconcile_ByCustomer(t *testing.T) {
	svc := reconcile.NewService(fixtureLedger())

	matches, warnings, err := svc.Reconcile(context.Background(), "2024-05", ledger.AggregateByCustomer)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	// One group per invoiced customer, sorted by key.
	require.Len(t, matches, 2)
	assert.Equal(t, "C1", matches[0].Key)
	assert.Equal(t, "C2", matches[1].Key)

	assert.Equal(t, "H1", matches[0].HeadOffice)
	assert.Equal(t, []string{"billing@acme.test", "ap@acme.test"}, matches[0].Recipients)
	require.Len(t, matches[0].Invoices, 1)

	// Both customers share the head office, so both carry its statement.
	require.NotNil(t, matches[0].Statement)
	require.NotNil(t, matches[1].Statement)
}

func TestService_Reconcile_PeriodIsExact(t *testing.T) {
	svc := reconcile.NewService(fixtureLedger())

	matches, warnings, err := svc.Reconcile(context.Background(), "2024-06", ledger.AggregateByHeadOffice)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Empty(t, matches)
}

func TestService_Reconcile_StatementPeriodMustMatch(t *testing.T) {
	lgr := fixtureLedger()

	// Move H1's only statement to another period; the invoices still ship,
	// just without a statement.
	lgr.statements[0].Period = "2024-04"

	svc := reconcile.NewService(lgr)

	matches, _, err := svc.Reconcile(context.Background(), "2024-05", ledger.AggregateByHeadOffice)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Nil(t, matches[0].Statement)

	// No statement to name the group, so the roster name serves.
	assert.Equal(t, "Acme Holdings", matches[0].HeadOfficeName)
}

func TestService_Reconcile_OrphanInvoice(t *testing.T) {
	lgr := fixtureLedger()
	lgr.invoices = append(lgr.invoices, ledger.Invoice{
		Number: "INV-009", CustomerID: "C9", FilePath: "in/x.pdf",
		Date: datePtr(2024, 5, 2), Period: "2024-05",
	})

	t.Run("HeadOfficeGroupingSkips", func(t *testing.T) {
		svc := reconcile.NewService(lgr)

		matches, warnings, err := svc.Reconcile(context.Background(), "2024-05", ledger.AggregateByHeadOffice)
		require.NoError(t, err)

		require.Len(t, warnings, 1)
		assert.Equal(t, reconcile.WarnOrphanInvoice, warnings[0].Kind)
		assert.Equal(t, "C9", warnings[0].Key)

		require.Len(t, matches, 1)
		assert.Len(t, matches[0].Invoices, 2)
	})

	t.Run("CustomerGroupingKeeps", func(t *testing.T) {
		svc := reconcile.NewService(lgr)

		matches, warnings, err := svc.Reconcile(context.Background(), "2024-05", ledger.AggregateByCustomer)
		require.NoError(t, err)
		assert.Empty(t, warnings)

		// The orphan ships under its own customer number with no head
		// office, statement or recipients.
		require.Len(t, matches, 3)

		orphan := matches[2]
		assert.Equal(t, "C9", orphan.Key)
		assert.Empty(t, orphan.HeadOffice)
		assert.Nil(t, orphan.Statement)
		assert.Empty(t, orphan.Recipients)
	})
}

func TestService_Reconcile_AmbiguousStatement(t *testing.T) {
	type testCase struct {
		name     string
		extra    ledger.StatementOfAccount
		wantPath string
	}

	tests := []testCase{
		{
			name: "MostRecentDateWins",
			extra: ledger.StatementOfAccount{
				HeadOffice: "H1", FilePath: "soa/h1-june.pdf",
				Date: datePtr(2024, 6, 2), Period: "2024-05",
			},
			wantPath: "soa/h1-june.pdf",
		},
		{
			name: "NilDateLoses",
			extra: ledger.StatementOfAccount{
				HeadOffice: "H1", FilePath: "soa/h1-undated.pdf", Period: "2024-05",
			},
			wantPath: "soa/h1.pdf",
		},
		{
			name: "FilePathBreaksDateTie",
			extra: ledger.StatementOfAccount{
				HeadOffice: "H1", FilePath: "soa/h1-copy.pdf",
				Date: datePtr(2024, 5, 31), Period: "2024-05",
			},
			wantPath: "soa/h1-copy.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lgr := fixtureLedger()
			lgr.statements = append(lgr.statements, tt.extra)

			svc := reconcile.NewService(lgr)

			matches, warnings, err := svc.Reconcile(context.Background(), "2024-05", ledger.AggregateByHeadOffice)
			require.NoError(t, err)

			require.Len(t, warnings, 1)
			assert.Equal(t, reconcile.WarnAmbiguousSOA, warnings[0].Kind)
			assert.Equal(t, "H1", warnings[0].Key)

			require.Len(t, matches, 1)
			require.NotNil(t, matches[0].Statement)
			assert.Equal(t, tt.wantPath, matches[0].Statement.FilePath)
		})
	}
}
