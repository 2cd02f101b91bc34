// Package httptrigger exposes the registration pipeline over HTTP.
package httptrigger

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"watch-registration/internal/common/logger"
)

// RegistrationPath is the route that accepts raw registration payloads.
const RegistrationPath = "/v1/triggers/watch-registration"

// DefaultMaxBodyBytes caps the request body when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Trigger turns a raw payload into a success summary or a failure.
type Trigger interface {
	Handle(ctx context.Context, raw []byte) (string, error)
}

// ReadyFunc reports whether the process can accept registrations.
type ReadyFunc func(ctx context.Context) error

// Options configures the router. Without a Trigger only the probes and
// /metrics are served.
type Options struct {
	Trigger      Trigger
	Ready        ReadyFunc
	MaxBodyBytes int64
	Logger       logger.Logger
}

func NewRouter(opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}

	h := &handler{
		trigger:      opts.Trigger,
		maxBodyBytes: opts.MaxBodyBytes,
		logger:       opts.Logger.WithFields(map[string]interface{}{"component": "http-trigger"}),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(h.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), requestIDFromContext(r.Context()))
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", promhttp.Handler())

	if opts.Trigger != nil {
		r.Post(RegistrationPath, h.register)
	}

	return r
}
