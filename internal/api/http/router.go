package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"rental-escrow-backend/internal/security"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterOptions holds what the side HTTP listener serves.
type RouterOptions struct {
	DB             Pinger
	Images         ImageOpener // nil when images live in S3
	Tokens         security.TokenManager
	AllowedOrigins []string
}

// NewRouter registers health, metrics and image routes behind CORS.
func NewRouter(opts RouterOptions) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", healthHandler(opts.DB)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if opts.Images != nil {
		images := NewImageHandler(opts.Images, opts.Tokens)
		router.HandleFunc("/api/v1/images/{key:.+}", images.HandleDownload).Methods(http.MethodGet)
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	}).Handler(router)
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status, code = "database unavailable", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
