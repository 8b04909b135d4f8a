package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rajindermavi/InvoiceMailer/internal/app"
	"github.com/rajindermavi/InvoiceMailer/internal/config"
	mailerHttp "github.com/rajindermavi/InvoiceMailer/internal/http"
	"github.com/rajindermavi/InvoiceMailer/internal/http/documents"
	"github.com/rajindermavi/InvoiceMailer/internal/http/run"
	"github.com/rajindermavi/InvoiceMailer/internal/ledger/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Paths.DBPath), 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	ledgerStore, err := store.New(cfg.Paths.DBPath)
	if err != nil {
		slog.Error("failed to open ledger store", "error", err)
		os.Exit(1)
	}
	defer ledgerStore.Close()

	pipeline, ledgerService, err := app.Build(cfg, ledgerStore)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	var (
		runsV1      = run.NewHandler(pipeline)
		documentsV1 = documents.NewHandler(ledgerService)
	)

	router := mailerHttp.New(runsV1, documentsV1)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "addr", addr)

	if err := http.ListenAndServe(addr, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
