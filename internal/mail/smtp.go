package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rajindermavi/InvoiceMailer/internal/bundle"
)

// SMTPConfig carries the transport settings for the SMTP dispatcher.
// STARTTLS is negotiated whenever the server advertises it.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPDispatcher sends one message per shipment with the archive attached.
// A failed send is recorded in that shipment's Delivery; the remaining
// shipments still go out.
type SMTPDispatcher struct {
	cfg       SMTPConfig
	templates Templates

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPDispatcher(cfg SMTPConfig, templates Templates) *SMTPDispatcher {
	return &SMTPDispatcher{cfg: cfg, templates: templates, send: smtp.SendMail}
}

func (d *SMTPDispatcher) Dispatch(ctx context.Context, shipments []bundle.ShipmentRecord) ([]Delivery, error) {
	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)

	var auth smtp.Auth
	if d.cfg.Username != "" {
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	}

	deliveries := make([]Delivery, 0, len(shipments))

	for _, s := range shipments {
		if err := ctx.Err(); err != nil {
			return deliveries, err
		}

		if len(s.Recipients) == 0 {
			slog.Info("skipping shipment without recipients", "key", s.Key)
			continue
		}

		delivery := Delivery{
			ShipmentID: s.ID,
			Recipients: s.Recipients,
			SentAt:     time.Now(),
		}

		if err := d.sendShipment(addr, auth, s); err != nil {
			delivery.Err = err.Error()

			slog.Error("shipment failed", "key", s.Key, "error", err)
		} else {
			slog.Info("shipment sent", "key", s.Key, "recipients", len(s.Recipients))
		}

		deliveries = append(deliveries, delivery)
	}

	if err := d.sendSummary(addr, auth, deliveries); err != nil {
		slog.Error("summary mail failed", "error", err)
	}

	return deliveries, nil
}

func (d *SMTPDispatcher) sendShipment(addr string, auth smtp.Auth, s bundle.ShipmentRecord) error {
	msg, err := buildMessage(
		d.cfg.From,
		s.Recipients,
		d.templates.render(d.templates.Subject, s),
		d.templates.render(d.templates.Body, s),
		s.ArchivePath,
	)
	if err != nil {
		return err
	}

	if err := d.send(addr, auth, d.cfg.From, s.Recipients, msg); err != nil {
		return fmt.Errorf("sending to %s: %w", strings.Join(s.Recipients, ", "), err)
	}

	return nil
}

// sendSummary mails the run outcome to the reporter addresses, when any
// are configured.
func (d *SMTPDispatcher) sendSummary(addr string, auth smtp.Auth, deliveries []Delivery) error {
	if len(d.templates.ReporterEmails) == 0 || len(deliveries) == 0 {
		return nil
	}

	var b strings.Builder

	sent := 0

	for _, dl := range deliveries {
		if dl.Succeeded() {
			sent++
			fmt.Fprintf(&b, "sent to %s\n", strings.Join(dl.Recipients, ", "))
		} else {
			fmt.Fprintf(&b, "FAILED for %s: %s\n", strings.Join(dl.Recipients, ", "), dl.Err)
		}
	}

	subject := fmt.Sprintf("Invoice dispatch report: %d/%d sent", sent, len(deliveries))

	msg, err := buildMessage(d.cfg.From, d.templates.ReporterEmails, subject, b.String(), "")
	if err != nil {
		return err
	}

	return d.send(addr, auth, d.cfg.From, d.templates.ReporterEmails, msg)
}

// buildMessage assembles a multipart MIME message with an optional zip
// attachment.
func buildMessage(from string, to []string, subject, body, attachmentPath string) ([]byte, error) {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mw.Boundary())

	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("creating text part: %w", err)
	}

	if _, err := text.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("writing body: %w", err)
	}

	if attachmentPath != "" {
		if err := attachZip(mw, attachmentPath); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing message: %w", err)
	}

	return buf.Bytes(), nil
}

func attachZip(mw *multipart.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading attachment: %w", err)
	}

	name := filepath.Base(path)

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/zip"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", name)},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return fmt.Errorf("creating attachment part: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(data)

	// RFC 2045 line length limit.
	for len(encoded) > 0 {
		n := min(76, len(encoded))

		if _, err := fmt.Fprintf(part, "%s\r\n", encoded[:n]); err != nil {
			return fmt.Errorf("writing attachment: %w", err)
		}

		encoded = encoded[n:]
	}

	return nil
}
