package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/defolio/defolio/internal/apy"
	"github.com/defolio/defolio/internal/nav"
	"github.com/defolio/defolio/internal/snapshot"
)

// NewServer creates an HTTP server with all routes configured. Mutating routes
// require the admin API key when one is set.
func NewServer(port string, snapshots *snapshot.Service, engine *apy.Engine, navs *nav.Service, adminAPIKey string) *http.Server {
	handler := NewHandler(snapshots)
	yieldHandler := NewYieldHandler(snapshots, engine)
	navHandler := NewNAVHandler(navs)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/v1/snapshots/{wallet}/latest", handler.GetLatestSnapshot)
	mux.HandleFunc("GET /api/v1/snapshots/{wallet}/{date}", handler.GetSnapshotByDate)
	mux.HandleFunc("GET /api/v1/snapshots/{wallet}", handler.ListSnapshots)
	mux.Handle("POST /api/v1/snapshots/{wallet}/generate",
		maybeAuth(adminAPIKey, http.HandlerFunc(handler.GenerateSnapshot)))

	mux.HandleFunc("GET /api/v1/yield/{wallet}", yieldHandler.GetYield)

	mux.HandleFunc("GET /api/v1/nav/{year}/{month}", navHandler.GetResult)
	mux.HandleFunc("GET /api/v1/nav/{year}/{month}/settings", navHandler.GetSettings)
	mux.Handle("PUT /api/v1/nav/{year}/{month}/settings",
		maybeAuth(adminAPIKey, http.HandlerFunc(navHandler.PutSettings)))
	mux.Handle("POST /api/v1/nav/{year}/{month}/calculate",
		maybeAuth(adminAPIKey, http.HandlerFunc(navHandler.Calculate)))

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func maybeAuth(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	return requireAuth(apiKey, next)
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
