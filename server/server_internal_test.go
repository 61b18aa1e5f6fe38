package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainsToHTTPSAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		domains  []string
		expected string
	}{
		{
			name:     "single domain",
			domains:  []string{"example.com"},
			expected: "https://example.com",
		},
		{
			name:     "multiple domains",
			domains:  []string{"example.com", "www.example.com"},
			expected: "https://example.com, https://www.example.com",
		},
		{
			name:     "no domains",
			domains:  []string{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := domainsToHTTPSAddress(tt.domains)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestServeFunc(t *testing.T) {
	t.Parallel()

	t.Run("manual mode without certificate", func(t *testing.T) {
		t.Parallel()

		s := &Server{TLS: ServerTLS{Enabled: true, Mode: TLSModeManual}}

		_, err := s.serveFunc(&http.Server{})
		assert.ErrorIs(t, err, ErrMissingCertificate)
	})

	t.Run("unknown mode", func(t *testing.T) {
		t.Parallel()

		s := &Server{TLS: ServerTLS{Enabled: true, Mode: "self-signed"}}

		_, err := s.serveFunc(&http.Server{})

		unknownErr := &UnknownTLSModeError{}
		assert.ErrorAs(t, err, &unknownErr)
	})

	t.Run("autocert mode sets tls config", func(t *testing.T) {
		t.Parallel()

		s := &Server{TLS: ServerTLS{
			Enabled:  true,
			Mode:     TLSModeAutoCert,
			AutoCert: &ServerTLSAutoCert{CacheDir: t.TempDir(), Domains: []string{"example.com"}},
		}}
		httpServer := &http.Server{}

		serve, err := s.serveFunc(httpServer)
		assert.NoError(t, err)
		assert.NotNil(t, serve)
		assert.NotNil(t, httpServer.TLSConfig)
	})
}

func TestRun_StopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{Host: "127.0.0.1", Port: "0"}

	done := make(chan error, 1)

	go func() {
		done <- s.Run(ctx, http.NotFoundHandler())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
