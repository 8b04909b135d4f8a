// Package app wires the configured services into a runnable pipeline.
package app

import (
	"github.com/rajindermavi/InvoiceMailer/internal/bundle"
	"github.com/rajindermavi/InvoiceMailer/internal/config"
	"github.com/rajindermavi/InvoiceMailer/internal/extract"
	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
	"github.com/rajindermavi/InvoiceMailer/internal/mail"
	"github.com/rajindermavi/InvoiceMailer/internal/pipeline"
	"github.com/rajindermavi/InvoiceMailer/internal/reconcile"
	"github.com/rajindermavi/InvoiceMailer/internal/roster"
	"github.com/rajindermavi/InvoiceMailer/internal/scan"
)

// Build assembles the full document pipeline from configuration. The ledger
// repository is injected so callers control its lifecycle.
func Build(cfg *config.Config, repo ledger.Repository) (*pipeline.Pipeline, *ledger.Service, error) {
	finder, err := extract.NewDateFinder(cfg.Patterns.DatePatterns)
	if err != nil {
		return nil, nil, err
	}

	patterns, err := scan.CompilePatterns(cfg.Patterns.InvoiceFile, cfg.Patterns.SOAFile)
	if err != nil {
		return nil, nil, err
	}

	extractor := extract.NewChain(
		extract.NewTextExtractor(extract.FileText, finder),
		extract.NewFilenameExtractor(finder),
	)

	ledgerService := ledger.NewService(repo)

	var dispatcher mail.Dispatcher = mail.NewLogDispatcher()

	if cfg.SMTP.Host != "" {
		dispatcher = mail.NewSMTPDispatcher(
			mail.SMTPConfig{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
			},
			mail.Templates{
				Subject:        cfg.Email.SubjectTemplate,
				Body:           cfg.Email.BodyTemplate,
				SenderName:     cfg.Email.SenderName,
				ReporterEmails: cfg.Email.ReporterEmails,
			},
		)
	}

	p := pipeline.New(pipeline.Options{
		Roots: scan.Roots{
			InvoiceFolder: cfg.Paths.InvoiceFolder,
			SOAFolder:     cfg.Paths.SOAFolder,
		},
		Patterns:   patterns,
		RosterPath: cfg.Paths.RosterPath,
		OutputDir:  cfg.Paths.ZipOutputDir,
		Roster:     roster.NewReader(),
		Scanner:    scan.NewScanner(extractor),
		Ledger:     ledgerService,
		Reconciler: reconcile.NewService(ledgerService),
		Bundler:    bundle.NewService(),
		Dispatcher: dispatcher,
	})

	return p, ledgerService, nil
}
