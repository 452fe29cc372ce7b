package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/feedstore/internal/logger"
	"github.com/marmos91/feedstore/pkg/feedstore"
	"github.com/marmos91/feedstore/pkg/feedstoreconfig"
)

// Server is the introspection API's HTTP listener.
type Server struct {
	server       *http.Server
	port         int
	shutdownOnce sync.Once
}

// NewServer builds a Server from config and a store. When cfg.Auth.Enabled
// the returned *TokenIssuer can mint operator tokens; it is nil otherwise.
func NewServer(cfg feedstoreconfig.HTTPAPIConfig, store *feedstore.FeedStore) (*Server, *TokenIssuer, error) {
	port := cfg.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	var issuer *TokenIssuer
	if cfg.Auth.Enabled {
		var err error
		issuer, err = NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.AccessTokenDuration)
		if err != nil {
			return nil, nil, fmt.Errorf("configure http api auth: %w", err)
		}
	}

	router := NewRouter(store, issuer)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	return &Server{server: httpServer, port: port}, issuer, nil
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("feedstore http api listening", "port", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("feedstore http api failed: %w", err)
	}
}

// Stop gracefully shuts the server down. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("feedstore http api shutdown: %w", err)
		}
	})
	return shutdownErr
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}
