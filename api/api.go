// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api exposes the engine's read-only views over HTTP.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meridianlabs/liquidstake/health"
	"github.com/meridianlabs/liquidstake/pool"
)

var logger = log.New("pkg", "api")

// Options tune the HTTP surface.
type Options struct {
	AllowedOrigins  string
	EnableMetrics   bool
	EnableReqLogger bool
	Health          *health.Health // optional /health endpoint
}

// New returns the API handler for a pool.
func New(p *pool.Pool, opts Options) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	newPoolHandler(p).Mount(router, "/pool")

	if opts.EnableMetrics {
		router.Path("/metrics").Methods(http.MethodGet).Handler(promhttp.Handler())
	}
	if opts.Health != nil {
		router.Path("/health").Methods(http.MethodGet).HandlerFunc(healthHandler(opts.Health))
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	if opts.EnableReqLogger {
		handler = requestLoggerHandler(handler)
	}

	return handler.ServeHTTP
}

// requestLoggerHandler logs every request with its handling time.
func requestLoggerHandler(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		handler.ServeHTTP(w, r)
		logger.Info("handled request",
			"method", r.Method,
			"uri", r.RequestURI,
			"elapsed", time.Since(started),
		)
	})
}
