package documents

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
)

type Handler struct {
	ledger *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{ledger: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/clients", h.listClients)
	r.Get("/invoices", h.listInvoices)
	r.Get("/statements", h.listStatements)
}

type clientResponse struct {
	CustomerID     string   `json:"customer_id"`
	HeadOffice     string   `json:"head_office"`
	HeadOfficeName string   `json:"head_office_name,omitempty"`
	Recipients     []string `json:"recipients"`
}

type invoiceResponse struct {
	Number        string     `json:"number"`
	CustomerID    string     `json:"customer_id"`
	ShipName      string     `json:"ship_name"`
	FilePath      string     `json:"file_path"`
	Date          *time.Time `json:"date,omitempty"`
	Period        string     `json:"period,omitempty"`
	Delivered     bool       `json:"delivered"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	DeliveryError string     `json:"delivery_error,omitempty"`
}

type statementResponse struct {
	HeadOffice     string     `json:"head_office"`
	HeadOfficeName string     `json:"head_office_name,omitempty"`
	FilePath       string     `json:"file_path"`
	Date           *time.Time `json:"date,omitempty"`
	Period         string     `json:"period,omitempty"`
	Delivered      bool       `json:"delivered"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	DeliveryError  string     `json:"delivery_error,omitempty"`
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.ledger.Clients(r.Context())
	if err != nil {
		slog.Error("listing clients", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	out := make([]clientResponse, 0, len(clients))
	for _, c := range clients {
		out = append(out, clientResponse{
			CustomerID:     c.CustomerID,
			HeadOffice:     c.HeadOffice,
			HeadOfficeName: c.HeadOfficeName,
			Recipients:     c.Recipients,
		})
	}

	writeJSON(w, out)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	var (
		invoices []ledger.Invoice
		err      error
	)

	if period := r.URL.Query().Get("period"); period != "" {
		invoices, err = h.ledger.InvoicesForPeriod(r.Context(), period)
	} else {
		invoices, err = h.ledger.Invoices(r.Context())
	}

	if err != nil {
		slog.Error("listing invoices", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, invoiceResponse{
			Number:        inv.Number,
			CustomerID:    inv.CustomerID,
			ShipName:      inv.ShipName,
			FilePath:      inv.FilePath,
			Date:          inv.Date,
			Period:        inv.Period,
			Delivered:     inv.Delivered,
			DeliveredAt:   inv.DeliveredAt,
			DeliveryError: inv.DeliveryError,
		})
	}

	writeJSON(w, out)
}

func (h *Handler) listStatements(w http.ResponseWriter, r *http.Request) {
	var (
		statements []ledger.StatementOfAccount
		err        error
	)

	if headOffice := r.URL.Query().Get("head_office"); headOffice != "" {
		statements, err = h.ledger.StatementsForHeadOffice(r.Context(), headOffice, r.URL.Query().Get("period"))
	} else {
		statements, err = h.ledger.Statements(r.Context())
	}

	if err != nil {
		slog.Error("listing statements", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	out := make([]statementResponse, 0, len(statements))
	for _, soa := range statements {
		out = append(out, statementResponse{
			HeadOffice:     soa.HeadOffice,
			HeadOfficeName: soa.HeadOfficeName,
			FilePath:       soa.FilePath,
			Date:           soa.Date,
			Period:         soa.Period,
			Delivered:      soa.Delivered,
			DeliveredAt:    soa.DeliveredAt,
			DeliveryError:  soa.DeliveryError,
		})
	}

	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
