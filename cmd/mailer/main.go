package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/rajindermavi/InvoiceMailer/internal/app"
	"github.com/rajindermavi/InvoiceMailer/internal/config"
	"github.com/rajindermavi/InvoiceMailer/internal/ledger/store"
	"github.com/rajindermavi/InvoiceMailer/internal/pipeline"
)

// mailer runs one reconcile-and-dispatch cycle from the command line and
// prints the resulting change report.
func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Paths.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	ledgerStore, err := store.New(cfg.Paths.DBPath)
	if err != nil {
		return fmt.Errorf("open ledger store: %w", err)
	}
	defer ledgerStore.Close()

	p, _, err := app.Build(cfg, ledgerStore)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	year, month := cfg.Run.PeriodYear, cfg.Run.PeriodMonth
	if year == 0 || month == 0 {
		// Billing runs usually cover the month that just closed.
		now := time.Now()
		prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local).AddDate(0, 0, -1)
		year, month = prev.Year(), int(prev.Month())
	}

	report, err := p.Run(context.Background(), pipeline.Request{
		Year:        year,
		Month:       month,
		AggregateBy: cfg.Run.AggregateBy,
		DryRun:      cfg.Run.DryRun,
	})
	if err != nil {
		return err
	}

	printReport(report)

	return nil
}

func printReport(report *pipeline.Report) {
	fmt.Printf("run %s for period %s\n", report.RunID, report.Period)
	fmt.Println(report.ChangeReport.String())

	for _, w := range report.RosterWarnings {
		fmt.Printf("roster warning: line %d: %s\n", w.Line, w.Detail)
	}

	for _, w := range report.ScanWarnings {
		fmt.Printf("scan warning: %s: %s (%s)\n", w.Kind, w.Path, w.Detail)
	}

	for _, w := range report.ReconcileWarnings {
		fmt.Printf("reconcile warning: %s: %s (%s)\n", w.Kind, w.Key, w.Detail)
	}

	for _, s := range report.Shipments {
		fmt.Printf("bundled %s: %d invoice(s), archive %s\n", s.Key, len(s.InvoicePaths), s.ArchivePath)
	}

	for _, f := range report.Failures {
		fmt.Printf("bundle failed for %s: %v\n", f.Key, f.Err)
	}

	sent := 0

	for _, d := range report.Deliveries {
		if d.Succeeded() {
			sent++
		}
	}

	fmt.Printf("dispatched %d of %d shipment(s)\n", sent, len(report.Deliveries))
}
