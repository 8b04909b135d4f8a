// Package pipeline runs the full reconciliation-and-bundling sequence:
// roster import, document scan, ledger rebuild, reconciliation, bundling
// and dispatch. Row- and file-level faults surface as warnings in the run
// report; only a rebuild fault (or an unusable roster source) fails a run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rajindermavi/InvoiceMailer/internal/bundle"
	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
	"github.com/rajindermavi/InvoiceMailer/internal/mail"
	"github.com/rajindermavi/InvoiceMailer/internal/reconcile"
	"github.com/rajindermavi/InvoiceMailer/internal/roster"
	"github.com/rajindermavi/InvoiceMailer/internal/scan"
)

// Request selects the billing period and grouping for one run.
type Request struct {
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	AggregateBy string `json:"aggregate_key"`
	DryRun      bool   `json:"dry_run"`
}

// Report is the full outcome of one pipeline run.
type Report struct {
	RunID  uuid.UUID `json:"run_id"`
	Period string    `json:"period"`

	ChangeReport *ledger.ChangeReport `json:"change_report"`

	RosterWarnings    []roster.Warning        `json:"roster_warnings,omitempty"`
	ScanWarnings      []scan.Warning          `json:"scan_warnings,omitempty"`
	ReconcileWarnings []reconcile.Warning     `json:"reconcile_warnings,omitempty"`
	Shipments         []bundle.ShipmentRecord `json:"shipments"`
	Failures          []bundle.Failure        `json:"bundle_failures,omitempty"`
	Deliveries        []mail.Delivery         `json:"deliveries,omitempty"`
}

// Options wires the pipeline's collaborators and the folders one
// deployment works against.
type Options struct {
	Roots      scan.Roots
	Patterns   scan.Patterns
	RosterPath string
	OutputDir  string

	Roster     *roster.Reader
	Scanner    *scan.Scanner
	Ledger     *ledger.Service
	Reconciler *reconcile.Service
	Bundler    *bundle.Service
	Dispatcher mail.Dispatcher
}

type Pipeline struct {
	// One run at a time: a rebuild must not interleave with another run's
	// rebuild or reads.
	mu sync.Mutex

	opts   Options
	dryRun mail.Dispatcher
}

func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts, dryRun: mail.NewLogDispatcher()}
}

// Run executes one full pipeline pass and returns its report.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key, err := ledger.ParseAggregateKey(req.AggregateBy)
	if err != nil {
		return nil, err
	}

	period, err := ledger.FormatPeriod(req.Year, req.Month)
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.New(), Period: period}

	slog.Info("pipeline run starting", "run_id", report.RunID, "period", period, "aggregate", key, "dry_run", req.DryRun)

	clients, rosterWarnings, err := p.opts.Roster.ReadFile(p.opts.RosterPath)
	if err != nil {
		return nil, fmt.Errorf("importing roster: %w", err)
	}

	report.RosterWarnings = rosterWarnings

	scanned, err := p.opts.Scanner.Scan(ctx, p.opts.Roots, p.opts.Patterns)
	if err != nil {
		return nil, fmt.Errorf("scanning documents: %w", err)
	}

	report.ScanWarnings = scanned.Warnings

	// A rebuild failure is fatal: reconciling against a corrupted store
	// would ship wrong bundles. The store rolls itself back.
	report.ChangeReport, err = p.opts.Ledger.Rebuild(ctx, clients, scanned.Invoices, scanned.Statements)
	if err != nil {
		return nil, err
	}

	matches, reconcileWarnings, err := p.opts.Reconciler.Reconcile(ctx, period, key)
	if err != nil {
		return nil, fmt.Errorf("reconciling %s: %w", period, err)
	}

	report.ReconcileWarnings = reconcileWarnings

	report.Shipments, report.Failures, err = p.opts.Bundler.Bundle(ctx, matches, p.opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("bundling: %w", err)
	}

	dispatcher := p.opts.Dispatcher
	if req.DryRun || dispatcher == nil {
		dispatcher = p.dryRun
	}

	report.Deliveries, err = dispatcher.Dispatch(ctx, report.Shipments)
	if err != nil {
		return report, fmt.Errorf("dispatching: %w", err)
	}

	if !req.DryRun {
		p.recordDeliveries(ctx, report)
	}

	slog.Info("pipeline run finished",
		"run_id", report.RunID,
		"shipments", len(report.Shipments),
		"bundle_failures", len(report.Failures),
		"warnings", len(report.ScanWarnings)+len(report.ReconcileWarnings)+len(report.RosterWarnings),
	)

	return report, nil
}

// recordDeliveries writes each dispatch outcome back onto the ledger rows
// that went into the shipment. Bookkeeping failures are logged, not fatal.
func (p *Pipeline) recordDeliveries(ctx context.Context, report *Report) {
	byID := make(map[uuid.UUID]bundle.ShipmentRecord, len(report.Shipments))
	for _, s := range report.Shipments {
		byID[s.ID] = s
	}

	for _, d := range report.Deliveries {
		shipment, ok := byID[d.ShipmentID]
		if !ok {
			continue
		}

		at := d.SentAt
		if at.IsZero() {
			at = time.Now()
		}

		for _, path := range shipment.InvoicePaths {
			if err := p.opts.Ledger.MarkInvoiceDelivered(ctx, path, at, d.Err); err != nil {
				slog.Error("recording invoice delivery", "path", path, "error", err)
			}
		}

		if shipment.StatementPath != "" {
			if err := p.opts.Ledger.MarkStatementDelivered(ctx, shipment.StatementPath, at, d.Err); err != nil {
				slog.Error("recording statement delivery", "path", shipment.StatementPath, "error", err)
			}
		}
	}
}
