package server

import (
	"context"
	"net/http"
	"time"
)

// CreateServer builds the HTTP server with production timeout settings.
// IdleTimeout stays above the websocket ping period so idle upgraded
// connections are not reaped between pings.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ShutdownServer gracefully stops the server, waiting up to timeout for
// in-flight requests to finish.
func ShutdownServer(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
