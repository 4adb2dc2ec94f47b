// Package api implements the deployment REST contract over the local store.
// It is mounted when the console runs in standalone mode (no remote
// DECORYARD_API_ENDPOINT configured) and backs the client tests.
package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"
)

// NewRouter creates the deployment API router with all endpoints registered.
func NewRouter(db *sql.DB) http.Handler {
	mux := http.NewServeMux()

	items := &ItemsHandler{DB: db}
	deployments := &DeploymentsHandler{DB: db}

	mux.HandleFunc("GET /items", items.List)
	mux.HandleFunc("POST /items", items.Create)
	mux.HandleFunc("GET /items/{id}", items.Get)
	mux.HandleFunc("PUT /items/{id}", items.Update)
	mux.HandleFunc("PUT /items/{id}/image", items.UploadImage)
	mux.HandleFunc("GET /items/{id}/image", items.GetImage)

	mux.HandleFunc("GET /deployments", deployments.List)
	mux.HandleFunc("POST /deployments", deployments.Create)
	mux.HandleFunc("GET /deployments/{id}", deployments.Get)
	mux.HandleFunc("POST /deployments/{id}/start-setup", deployments.StartSetup)
	mux.HandleFunc("POST /deployments/{id}/locations", deployments.AddLocation)
	mux.HandleFunc("GET /deployments/{id}/review", deployments.Review)
	mux.HandleFunc("POST /deployments/{id}/complete-setup", deployments.CompleteSetup)
	mux.HandleFunc("POST /deployments/{id}/locations/{zone}/connections", deployments.AddConnection)
	mux.HandleFunc("POST /deployments/{id}/locations/{zone}/sessions", deployments.StartSession)
	mux.HandleFunc("POST /deployments/{id}/locations/{zone}/sessions/{sid}/end", deployments.EndSession)

	return mux
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush passes through to the wrapped writer so streaming responses (the
// session timer event stream) keep working behind the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
