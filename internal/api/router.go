package api

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/tradegate/internal/api/handlers"
	"github.com/wonny/tradegate/internal/metrics"
	"github.com/wonny/tradegate/internal/realtime"
	"github.com/wonny/tradegate/pkg/logger"
)

// RouterConfig carries the router's tunables from the main config
type RouterConfig struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
	MetricsEnabled     bool
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(riskHandler *handlers.RiskHandler, hub *realtime.Hub, cfg RouterConfig, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	// Realtime decision feed
	if hub != nil {
		r.HandleFunc("/ws/decisions", hub.ServeWS).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Risk endpoints
	api.HandleFunc("/risk/evaluate", riskHandler.Evaluate).Methods("POST")
	api.HandleFunc("/risk/limits/{workspace}", riskHandler.GetLimits).Methods("GET")
	api.HandleFunc("/risk/decisions", riskHandler.GetDecisions).Methods("GET")
	api.HandleFunc("/risk/stats", riskHandler.GetStats).Methods("GET")

	// Only evaluation traffic is rate limited; health and the feed are not
	if cfg.RateLimitPerSecond > 0 {
		api.Use(rateLimitMiddleware(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "tradegate-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
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

// rateLimitMiddleware applies a per-client token bucket to the API surface
func rateLimitMiddleware(rps float64, burst int) mux.MiddlewareFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(addr string) *rate.Limiter {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[host]
		if !ok {
			l = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[host] = l
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiterFor(r.RemoteAddr).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
