package pipeline_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajindermavi/InvoiceMailer/internal/bundle"
	"github.com/rajindermavi/InvoiceMailer/internal/extract"
	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
	"github.com/rajindermavi/InvoiceMailer/internal/ledger/store"
	"github.com/rajindermavi/InvoiceMailer/internal/mail"
	"github.com/rajindermavi/InvoiceMailer/internal/pipeline"
	"github.com/rajindermavi/InvoiceMailer/internal/reconcile"
	"github.com/rajindermavi/InvoiceMailer/internal/roster"
	"github.com/rajindermavi/InvoiceMailer/internal/scan"
)

const (
	invoicePattern = `^(?P<customer>[A-Za-z0-9]+)[ _]+invoice[ _]+(?P<invoice>[A-Za-z0-9-]+)[ _]+(?P<ship>.+)\.pdf$`
	soaPattern     = `^Statement[ _]+(?P<head_office>[A-Za-z0-9]+)[ _]+(?P<head_office_name>.+)\.pdf$`
)

var datePatterns = []string{`\d{1,2}/\d{1,2}/\d{4}`}

// captureDispatcher records shipments and reports them all sent.
type captureDispatcher struct {
	dispatched []bundle.ShipmentRecord
}

func (c *captureDispatcher) Dispatch(_ context.Context, shipments []bundle.ShipmentRecord) ([]mail.Delivery, error) {
	deliveries := make([]mail.Delivery, 0, len(shipments))

	for _, s := range shipments {
		if len(s.Recipients) == 0 {
			continue
		}

		c.dispatched = append(c.dispatched, s)
		deliveries = append(deliveries, mail.Delivery{ShipmentID: s.ID, Recipients: s.Recipients})
	}

	return deliveries, nil
}

type fixture struct {
	pipeline   *pipeline.Pipeline
	ledger     *ledger.Service
	dispatcher *captureDispatcher
	invoiceDir string
	soaDir     string
	outDir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()

	f := &fixture{
		dispatcher: &captureDispatcher{},
		invoiceDir: filepath.Join(root, "invoices"),
		soaDir:     filepath.Join(root, "statements"),
		outDir:     filepath.Join(root, "bundles"),
	}

	require.NoError(t, os.MkdirAll(f.invoiceDir, 0o755))
	require.NoError(t, os.MkdirAll(f.soaDir, 0o755))

	rosterPath := filepath.Join(root, "roster.csv")
	rosterCSV := `Customer Number,Head Office,Head Office Name,EmailForInvoice1
C1,H1,Acme Holdings,c1@x.com
C2,H2,Globex,c2@x.com
`
	require.NoError(t, os.WriteFile(rosterPath, []byte(rosterCSV), 0o644))

	writeDoc(t, f.invoiceDir, "C1 invoice INV-001 Evergreen.pdf", "Invoice date: 17/05/2024")
	writeDoc(t, f.soaDir, "Statement H1 Acme Holdings.pdf", "Statement date: 31/05/2024")

	s, err := store.New(filepath.Join(root, "ledger.db"))
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })

	finder, err := extract.NewDateFinder(datePatterns)
	require.NoError(t, err)

	patterns, err := scan.CompilePatterns(invoicePattern, soaPattern)
	require.NoError(t, err)

	f.ledger = ledger.NewService(s)

	f.pipeline = pipeline.New(pipeline.Options{
		Roots:      scan.Roots{InvoiceFolder: f.invoiceDir, SOAFolder: f.soaDir},
		Patterns:   patterns,
		RosterPath: rosterPath,
		OutputDir:  f.outDir,
		Roster:     roster.NewReader(),
		Scanner:    scan.NewScanner(extract.NewTextExtractor(extract.FileText, finder)),
		Ledger:     f.ledger,
		Reconciler: reconcile.NewService(f.ledger),
		Bundler:    bundle.NewService(),
		Dispatcher: f.dispatcher,
	})

	return f
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func archiveMembers(t *testing.T, archivePath string) []string {
	t.Helper()

	r, err := zip.OpenReader(archivePath)
	require.NoError(t, err)

	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}

	sort.Strings(names)

	return names
}

func TestPipeline_Run(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.Run(context.Background(), pipeline.Request{
		Year: 2024, Month: 5, AggregateBy: "head_office",
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-05", report.Period)
	assert.NotEmpty(t, report.RunID)
	assert.Empty(t, report.RosterWarnings)
	assert.Empty(t, report.ScanWarnings)
	assert.Empty(t, report.ReconcileWarnings)
	assert.Empty(t, report.Failures)

	require.NotNil(t, report.ChangeReport)
	assert.Equal(t, 2, report.ChangeReport.Clients.Added)
	assert.Equal(t, 1, report.ChangeReport.Invoices.Added)
	assert.Equal(t, 1, report.ChangeReport.Statements.Added)

	// One shipment for H1 with the invoice and the statement bundled.
	require.Len(t, report.Shipments, 1)

	shipment := report.Shipments[0]
	assert.Equal(t, "H1", shipment.Key)
	assert.Equal(t, []string{"c1@x.com"}, shipment.Recipients)
	assert.Equal(t, filepath.Join(f.outDir, "H1.zip"), shipment.ArchivePath)
	assert.Equal(t, []string{
		"C1 invoice INV-001 Evergreen.pdf",
		"Statement H1 Acme Holdings.pdf",
	}, archiveMembers(t, shipment.ArchivePath))

	require.Len(t, report.Deliveries, 1)
	assert.True(t, report.Deliveries[0].Succeeded())
	require.Len(t, f.dispatcher.dispatched, 1)

	// Dispatch outcomes are written back onto the ledger rows.
	invoices, err := f.ledger.InvoicesForPeriod(context.Background(), "2024-05")
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.True(t, invoices[0].Delivered)

	statements, err := f.ledger.StatementsForHeadOffice(context.Background(), "H1", "2024-05")
	require.NoError(t, err)
	require.Len(t, statements, 1)
	assert.True(t, statements[0].Delivered)
}

func TestPipeline_Run_EmptyPeriod(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.Run(context.Background(), pipeline.Request{
		Year: 2024, Month: 6, AggregateBy: "head_office",
	})
	require.NoError(t, err)

	assert.Empty(t, report.Shipments)
	assert.Empty(t, report.Deliveries)
	assert.Empty(t, f.dispatcher.dispatched)
}

func TestPipeline_Run_RerunReportsUnchanged(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Run(context.Background(), pipeline.Request{
		Year: 2024, Month: 5, AggregateBy: "head_office",
	})
	require.NoError(t, err)

	report, err := f.pipeline.Run(context.Background(), pipeline.Request{
		Year: 2024, Month: 5, AggregateBy: "head_office",
	})
	require.NoError(t, err)

	assert.True(t, report.ChangeReport.Empty())
	require.Len(t, report.Shipments, 1)
}

func TestPipeline_Run_DryRun(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.Run(context.Background(), pipeline.Request{
		Year: 2024, Month: 5, AggregateBy: "head_office", DryRun: true,
	})
	require.NoError(t, err)

	// The real dispatcher is bypassed, archives are still written.
	assert.Empty(t, f.dispatcher.dispatched)
	require.Len(t, report.Shipments, 1)
	assert.FileExists(t, report.Shipments[0].ArchivePath)
	require.Len(t, report.Deliveries, 1)

	// Nothing is marked delivered on a dry run.
	invoices, err := f.ledger.InvoicesForPeriod(context.Background(), "2024-05")
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.False(t, invoices[0].Delivered)
}

func TestPipeline_Run_InvalidRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Run(context.Background(), pipeline.Request{
		Year: 2024, Month: 5, AggregateBy: "ship_name",
	})
	assert.Error(t, err)

	_, err = f.pipeline.Run(context.Background(), pipeline.Request{
		Year: 2024, Month: 13, AggregateBy: "head_office",
	})
	assert.Error(t, err)
}

func TestPipeline_Run_ByCustomer(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.Run(context.Background(), pipeline.Request{
		Year: 2024, Month: 5, AggregateBy: "customer_number",
	})
	require.NoError(t, err)

	require.Len(t, report.Shipments, 1)
	assert.Equal(t, "C1", report.Shipments[0].Key)
	assert.Equal(t, filepath.Join(f.outDir, "C1.zip"), report.Shipments[0].ArchivePath)
}
