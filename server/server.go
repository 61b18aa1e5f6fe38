// Package server runs the forum HTTP handler over plain HTTP or TLS.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

const (
	DefaultPort    = "8080"
	DefaultTLSMode = TLSModeAutoCert

	TLSModeAutoCert = "autocert"
	TLSModeManual   = "manual"

	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 15 * time.Second
)

type Server struct {
	Port string
	Host string
	TLS  ServerTLS
}

type ServerTLS struct {
	Enabled  bool
	Mode     string
	AutoCert *ServerTLSAutoCert
	CertFile string
	KeyFile  string
}

type ServerTLSAutoCert struct {
	CacheDir string
	Domains  []string
	Email    string
}

var ErrMissingCertificate = errors.New("tls certificate file and key file are required in manual mode")

type UnknownTLSModeError struct {
	Mode string
}

func (err UnknownTLSModeError) Error() string {
	return fmt.Sprintf("unknown tls mode %q", err.Mode)
}

// Run serves handler until ctx is done, then shuts the server down
// gracefully.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	serve, err := s.serveFunc(httpServer)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)

	go func() {
		slog.InfoContext(ctx, "server starting", "address", httpServer.Addr, "tls", s.TLS.Enabled)

		err := serve()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	slog.InfoContext(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err = httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	slog.InfoContext(ctx, "server stopped")

	return nil
}

func (s *Server) serveFunc(httpServer *http.Server) (func() error, error) {
	if !s.TLS.Enabled {
		return httpServer.ListenAndServe, nil
	}

	switch s.TLS.Mode {
	case TLSModeAutoCert:
		autoCert := s.TLS.AutoCert
		if autoCert == nil {
			autoCert = &ServerTLSAutoCert{}
		}

		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(autoCert.CacheDir),
			HostPolicy: autocert.HostWhitelist(autoCert.Domains...),
			Email:      autoCert.Email,
		}

		httpServer.TLSConfig = manager.TLSConfig()

		slog.Info("serving with automatic certificates", "domains", domainsToHTTPSAddress(autoCert.Domains))

		return func() error {
			return httpServer.ListenAndServeTLS("", "")
		}, nil
	case TLSModeManual:
		if s.TLS.CertFile == "" || s.TLS.KeyFile == "" {
			return nil, ErrMissingCertificate
		}

		return func() error {
			return httpServer.ListenAndServeTLS(s.TLS.CertFile, s.TLS.KeyFile)
		}, nil
	default:
		return nil, &UnknownTLSModeError{Mode: s.TLS.Mode}
	}
}

func domainsToHTTPSAddress(domains []string) string {
	addresses := make([]string, 0, len(domains))

	for _, domain := range domains {
		addresses = append(addresses, "https://"+domain)
	}

	return strings.Join(addresses, ", ")
}
