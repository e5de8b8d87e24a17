// Package httpserver builds the http.Server the wizard API runs behind.
package httpserver

import (
	"net/http"
	"time"
)

// The write timeout sits above the 30s per-request deadline the router
// enforces, so the middleware, not the socket, is what cuts off a slow
// handler. Idle keeps gateway webhook connections reusable between
// deliveries.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 35 * time.Second
	idleTimeout       = 90 * time.Second
)

// New builds an HTTP server with timeouts suited to the wizard API.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
