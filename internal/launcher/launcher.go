// Package launcher hosts an http.Handler in production: it binds the
// configured address, restarts a failed server a bounded number of times
// and drains connections on shutdown.
//
// With TLS domains configured it serves HTTPS on :443 with certificates
// from Let's Encrypt and answers ACME HTTP-01 challenges on :80.
package launcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"github.com/Tmacphee13/axoserve/internal/config"
)

// Launcher runs one or more http.Servers around a handler.
type Launcher struct {
	cfg     *config.Config
	handler http.Handler
	logger  *log.Logger

	// Listen opens listeners. It defaults to net.Listen and is replaced in tests.
	Listen func(network, addr string) (net.Listener, error)
}

type endpoint struct {
	name    string
	addr    string
	handler http.Handler
	tls     *tls.Config
}

func New(cfg *config.Config, h http.Handler, logger *log.Logger) *Launcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Launcher{
		cfg:     cfg,
		handler: h,
		logger:  logger,
		Listen:  net.Listen,
	}
}

// Run serves until ctx is cancelled, returning nil after a clean shutdown.
// A server that fails to bind or stops unexpectedly is restarted after
// RetryDelay, up to StartRetries attempts in total.
func (l *Launcher) Run(ctx context.Context) error {
	eps := l.endpoints()
	attempts := l.cfg.StartRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		l.logger.Printf("launcher: start attempt %d/%d", attempt, attempts)
		err := l.runOnce(ctx, eps)
		if err == nil {
			l.logger.Printf("launcher: shutdown complete")
			return nil
		}
		lastErr = err
		l.logger.Printf("launcher: server error: %v", err)
		if attempt == attempts {
			break
		}
		l.logger.Printf("launcher: retrying in %s (%d/%d)", l.cfg.RetryDelay, attempt, attempts)
		select {
		case <-ctx.Done():
			l.logger.Printf("launcher: shutdown complete")
			return nil
		case <-time.After(l.cfg.RetryDelay):
		}
	}
	return fmt.Errorf("launcher: giving up after %d attempts: %w", attempts, lastErr)
}

func (l *Launcher) endpoints() []endpoint {
	if !l.cfg.TLSEnabled() {
		return []endpoint{{name: "http", addr: l.cfg.Addr(), handler: l.handler}}
	}
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(l.cfg.TLS.Domains...),
		Cache:      autocert.DirCache(l.cfg.TLS.CacheDir),
	}
	l.logger.Printf("launcher: tls enabled, domains=%v cache_dir=%s", l.cfg.TLS.Domains, l.cfg.TLS.CacheDir)
	return []endpoint{
		{name: "https", addr: net.JoinHostPort(l.cfg.Host, "443"), handler: l.handler, tls: m.TLSConfig()},
		{name: "acme", addr: net.JoinHostPort(l.cfg.Host, "80"), handler: m.HTTPHandler(nil)},
	}
}

// runOnce binds every endpoint, serves, and returns nil only when ctx
// ended the run.
func (l *Launcher) runOnce(ctx context.Context, eps []endpoint) error {
	listeners := make([]net.Listener, 0, len(eps))
	for _, ep := range eps {
		ln, err := l.Listen("tcp", ep.addr)
		if err != nil {
			for _, open := range listeners {
				open.Close()
			}
			return fmt.Errorf("listen %s: %w", ep.addr, err)
		}
		if ep.tls != nil {
			ln = tls.NewListener(ln, ep.tls)
		}
		listeners = append(listeners, ln)
	}

	servers := make([]*http.Server, len(eps))
	errc := make(chan error, len(eps))
	for i, ep := range eps {
		srv := l.newHTTPServer(ep)
		servers[i] = srv
		ln := listeners[i]
		l.logger.Printf("launcher: %s listening on %s", ep.name, ln.Addr())
		go func() {
			errc <- srv.Serve(ln)
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		l.logger.Printf("launcher: stopping (%v)", context.Cause(ctx))
	case serveErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.ShutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.logger.Printf("launcher: graceful shutdown error: %v", err)
		}
	}

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	if ctx.Err() == nil {
		return errors.New("server stopped unexpectedly")
	}
	return nil
}

func (l *Launcher) newHTTPServer(ep endpoint) *http.Server {
	return &http.Server{
		Addr:              ep.addr,
		Handler:           ep.handler,
		TLSConfig:         ep.tls,
		ReadHeaderTimeout: l.cfg.ReadHeaderTimeout,
		ReadTimeout:       l.cfg.ReadTimeout,
		WriteTimeout:      l.cfg.WriteTimeout,
		IdleTimeout:       l.cfg.IdleTimeout,
		ErrorLog:          l.logger,
	}
}
