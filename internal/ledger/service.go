package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	// Rebuild replaces all three collections with the supplied rows and
	// reports what changed. Implementations must be atomic: on failure the
	// previous state remains intact and observable.
	Rebuild(ctx context.Context, clients []Client, invoices []Invoice, statements []StatementOfAccount) (*ChangeReport, error)

	Clients(ctx context.Context) ([]Client, error)
	ClientsByAggregateKey(ctx context.Context, key AggregateKey) (map[string][]Client, error)
	Invoices(ctx context.Context) ([]Invoice, error)
	InvoicesForPeriod(ctx context.Context, period string) ([]Invoice, error)
	Statements(ctx context.Context) ([]StatementOfAccount, error)
	StatementsForHeadOffice(ctx context.Context, headOffice, period string) ([]StatementOfAccount, error)

	MarkInvoiceDelivered(ctx context.Context, filePath string, at time.Time, sendErr string) error
	MarkStatementDelivered(ctx context.Context, filePath string, at time.Time, sendErr string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Rebuild replaces the persisted ledger with freshly discovered rows.
// A failure here is fatal for the surrounding run; the repository
// guarantees the previous state survives it.
func (s *Service) Rebuild(ctx context.Context, clients []Client, invoices []Invoice, statements []StatementOfAccount) (*ChangeReport, error) {
	report, err := s.repo.Rebuild(ctx, clients, invoices, statements)
	if err != nil {
		return nil, fmt.Errorf("rebuilding ledger: %w", err)
	}

	slog.Info("ledger rebuilt",
		"clients", len(clients),
		"invoices", len(invoices),
		"statements", len(statements),
		"unchanged", report.Empty(),
	)

	return report, nil
}

func (s *Service) Clients(ctx context.Context) ([]Client, error) {
	return s.repo.Clients(ctx)
}

// ClientsByAggregateKey returns roster rows grouped by the chosen
// aggregate value, preserving roster order within each group.
func (s *Service) ClientsByAggregateKey(ctx context.Context, key AggregateKey) (map[string][]Client, error) {
	return s.repo.ClientsByAggregateKey(ctx, key)
}

func (s *Service) Invoices(ctx context.Context) ([]Invoice, error) {
	return s.repo.Invoices(ctx)
}

// InvoicesForPeriod selects invoices whose period string equals period
// exactly. Rows with no extracted date have an empty period and are never
// returned for a real period.
func (s *Service) InvoicesForPeriod(ctx context.Context, period string) ([]Invoice, error) {
	return s.repo.InvoicesForPeriod(ctx, period)
}

func (s *Service) Statements(ctx context.Context) ([]StatementOfAccount, error) {
	return s.repo.Statements(ctx)
}

func (s *Service) StatementsForHeadOffice(ctx context.Context, headOffice, period string) ([]StatementOfAccount, error) {
	return s.repo.StatementsForHeadOffice(ctx, headOffice, period)
}

// MarkInvoiceDelivered records the dispatch outcome for one invoice file.
// An empty sendErr marks success; otherwise the error is stored and the
// delivered flag stays unset.
func (s *Service) MarkInvoiceDelivered(ctx context.Context, filePath string, at time.Time, sendErr string) error {
	return s.repo.MarkInvoiceDelivered(ctx, filePath, at, sendErr)
}

// MarkStatementDelivered records the dispatch outcome for one SOA file.
func (s *Service) MarkStatementDelivered(ctx context.Context, filePath string, at time.Time, sendErr string) error {
	return s.repo.MarkStatementDelivered(ctx, filePath, at, sendErr)
}
