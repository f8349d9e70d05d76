package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/bistpro/internal/api/handlers"
	"github.com/wonny/bistpro/internal/metrics"
	"github.com/wonny/bistpro/pkg/logger"
)

// Handlers bundles the endpoint handlers. Metrics may be nil.
type Handlers struct {
	Scan      *handlers.ScanHandler
	Stream    *handlers.StreamHandler
	Portfolio *handlers.PortfolioHandler
	Metrics   *metrics.Registry
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Scan endpoints
	api.HandleFunc("/scan", h.Scan.GetScan).Methods("GET")
	api.HandleFunc("/scan.csv", h.Scan.GetScanCSV).Methods("GET")

	// Portfolio endpoints
	api.HandleFunc("/portfolio", h.Portfolio.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio", h.Portfolio.Clear).Methods("DELETE")
	api.HandleFunc("/portfolio/commit", h.Portfolio.Commit).Methods("POST")
	api.HandleFunc("/portfolio/history", h.Portfolio.GetHistory).Methods("GET")
	api.HandleFunc("/backtest", h.Portfolio.GetBacktest).Methods("GET")

	// Progress stream
	r.HandleFunc("/ws/scan", h.Stream.ServeScan).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log, h.Metrics))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "bistpro-api",
	})
}

// statusRecorder captures the response code. Hijack is passed through for
// the websocket upgrade.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger, reg *metrics.Registry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			duration := time.Since(start)
			if reg != nil {
				reg.ObserveRequest(route, rec.status, duration)
			}

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": duration,
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
