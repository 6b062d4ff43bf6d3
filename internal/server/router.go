// Package server assembles the HTTP router and server for the relay.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/negroni/relay/internal/blob"
	appMiddleware "github.com/negroni/relay/internal/middleware"
	"github.com/negroni/relay/internal/prepared"
	"github.com/negroni/relay/internal/relay"
	"github.com/negroni/relay/internal/response"
)

// Deps are the handlers and policies the router mounts. Nil Metrics skips
// /metrics; Swagger mounts the API docs UI.
type Deps struct {
	Logger  *slog.Logger
	CORS    *appMiddleware.CORSPolicy
	Relay   *relay.Handler
	Prepare *prepared.Handler
	Blob    *blob.Handler
	Metrics http.Handler
	Swagger bool
}

// NewRouter builds the chi router. Every OPTIONS request is answered by the
// preflight middleware before routing; unknown paths and methods get 404.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(d.Logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(appMiddleware.Preflight(d.CORS))

	r.NotFound(response.NotFound)
	r.MethodNotAllowed(response.NotFound)

	r.Get("/health", relay.Health)

	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.CORS(d.CORS))
		r.Post("/echo", d.Relay.Echo)
		if d.Prepare != nil {
			r.Post("/prepare", d.Prepare.Prepare)
		}
	})

	if d.Blob != nil {
		r.Get("/blob/{token}", d.Blob.Get)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	if d.Swagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	return r
}

// New returns an http.Server for h. The general OPTIONS handler is disabled
// so that "OPTIONS *" reaches the preflight middleware.
func New(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:                         addr,
		Handler:                      h,
		DisableGeneralOptionsHandler: true,
		ReadHeaderTimeout:            10 * time.Second,
		ReadTimeout:                  60 * time.Second,
		WriteTimeout:                 60 * time.Second,
		IdleTimeout:                  60 * time.Second,
	}
}
