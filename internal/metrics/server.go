package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter serves /metrics and a trivial /healthz. Callers may mount more routes.
func NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Method(http.MethodGet, "/metrics", Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
