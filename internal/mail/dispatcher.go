// Package mail defines the dispatch boundary the pipeline hands shipment
// records to, plus an SMTP implementation and a dry-run implementation.
// Retry and queuing semantics belong to whoever operates the mail side.
package mail

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rajindermavi/InvoiceMailer/internal/bundle"
)

// Delivery is the per-shipment outcome a dispatcher reports back.
type Delivery struct {
	ShipmentID uuid.UUID `json:"shipment_id"`
	Recipients []string  `json:"recipients"`
	SentAt     time.Time `json:"sent_at"`
	Err        string    `json:"error,omitempty"`
}

func (d Delivery) Succeeded() bool {
	return d.Err == ""
}

// Dispatcher consumes shipment records. Implementations must report one
// Delivery per shipment that has recipients; shipments without recipients
// are skipped.
type Dispatcher interface {
	Dispatch(ctx context.Context, shipments []bundle.ShipmentRecord) ([]Delivery, error)
}

// Templates hold the message templates. Placeholders {head_office_name},
// {month_year} and {sender_name} are substituted per shipment; literal
// "\n" sequences from configuration render as newlines.
type Templates struct {
	Subject        string
	Body           string
	SenderName     string
	ReporterEmails []string
}

func (t Templates) render(tmpl string, shipment bundle.ShipmentRecord) string {
	out := strings.ReplaceAll(tmpl, `\n`, "\n")
	out = strings.ReplaceAll(out, "{head_office_name}", shipment.HeadOfficeName)
	out = strings.ReplaceAll(out, "{month_year}", shipment.Period)
	out = strings.ReplaceAll(out, "{sender_name}", t.SenderName)

	return out
}

// LogDispatcher is the dry-run implementation: it logs what would be sent
// and reports every shipment as delivered without touching the network.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Dispatch(_ context.Context, shipments []bundle.ShipmentRecord) ([]Delivery, error) {
	deliveries := make([]Delivery, 0, len(shipments))

	for _, s := range shipments {
		if len(s.Recipients) == 0 {
			slog.Info("dry run: skipping shipment without recipients", "key", s.Key)
			continue
		}

		slog.Info("dry run: would send shipment",
			"key", s.Key,
			"archive", s.ArchivePath,
			"recipients", strings.Join(s.Recipients, ", "),
		)

		deliveries = append(deliveries, Delivery{
			ShipmentID: s.ID,
			Recipients: s.Recipients,
			SentAt:     time.Now(),
		})
	}

	return deliveries, nil
}
