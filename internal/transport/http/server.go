package httptransport

import (
	"net/http"
	"time"
)

const maxHeaderBytes = 1 << 20

// Config contains tunables for the workout API server.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer builds the *http.Server serving the workout API. Request
// bodies are small JSON documents, so header reads get a tight deadline
// independent of the overall read timeout.
func NewServer(cfg Config, handler http.Handler) *http.Server {
	readHeaderTimeout := cfg.ReadTimeout
	if readHeaderTimeout > 5*time.Second || readHeaderTimeout == 0 {
		readHeaderTimeout = 5 * time.Second
	}

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
}
