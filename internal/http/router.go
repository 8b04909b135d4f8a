package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rajindermavi/InvoiceMailer/internal/http/documents"
	"github.com/rajindermavi/InvoiceMailer/internal/http/run"
)

func New(runsV1 *run.Handler, documentsV1 *documents.Handler) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			runsV1.Routes(r)
		})

		documentsV1.Routes(r)
	})

	return router
}
