package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is the immutable run configuration. It is loaded once per process
// and passed by value into the components that need it; nothing in the
// pipeline reads configuration from globals.
type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"InvoiceMailer"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	Paths struct {
		InvoiceFolder string `envconfig:"INVOICE_FOLDER" default:"./data/invoices"`
		SOAFolder     string `envconfig:"SOA_FOLDER" default:"./data/soa"`
		RosterPath    string `envconfig:"ROSTER_PATH" default:"./data/client_directory.csv"`
		DBPath        string `envconfig:"DB_PATH" default:"./data/invoice_mailer.sqlite3"`
		ZipOutputDir  string `envconfig:"ZIP_OUTPUT_DIR" default:"./data/bundles"`
	}

	Patterns struct {
		// File patterns are regular expressions with named capture groups,
		// matched case-insensitively against file names. The invoice
		// pattern must capture customer, invoice and ship; the SOA pattern
		// must capture head_office and head_office_name.
		InvoiceFile string `envconfig:"INVOICE_FILE_PATTERN" default:"^(?P<customer>[A-Za-z0-9]+)[ _]+invoice[ _]+(?P<invoice>[A-Za-z0-9-]+)[ _]+(?P<ship>.+)\\.pdf$"`
		SOAFile     string `envconfig:"SOA_FILE_PATTERN" default:"^Statement[ _]+(?P<head_office>[A-Za-z0-9]+)[ _]+(?P<head_office_name>.+)\\.pdf$"`

		// Date patterns are applied in order to the extracted document
		// text, and to the file name by the fallback strategy.
		DatePatterns []string `envconfig:"DATE_PATTERNS" default:"\\b\\d{4}[-/]\\d{1,2}[-/]\\d{1,2}\\b,\\b\\d{1,2}[-/]\\d{1,2}[-/](?:\\d{2}|\\d{4})\\b"`
	}

	Run struct {
		PeriodYear  int    `envconfig:"PERIOD_YEAR"`
		PeriodMonth int    `envconfig:"PERIOD_MONTH"`
		AggregateBy string `envconfig:"AGGREGATE_BY" default:"head_office"`
		DryRun      bool   `envconfig:"DRY_RUN" default:"false"`
	}

	SMTP struct {
		Host     string `envconfig:"SMTP_HOST"`
		Port     int    `envconfig:"SMTP_PORT" default:"587"`
		Username string `envconfig:"SMTP_USERNAME"`
		Password string `envconfig:"SMTP_PASSWORD"`
		From     string `envconfig:"SMTP_FROM"`
	}

	Email struct {
		SubjectTemplate string   `envconfig:"EMAIL_SUBJECT_TEMPLATE" default:"Invoices for {head_office_name} - {month_year}"`
		BodyTemplate    string   `envconfig:"EMAIL_BODY_TEMPLATE" default:"Dear {head_office_name},\\n\\nPlease find attached the invoices for {month_year}.\\n\\nBest regards,\\n{sender_name}"`
		SenderName      string   `envconfig:"EMAIL_SENDER_NAME" default:"Accounts"`
		ReporterEmails  []string `envconfig:"EMAIL_REPORTER_EMAILS"`
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
