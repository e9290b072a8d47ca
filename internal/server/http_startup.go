package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"tendermatch/internal/config"
)

const shutdownTimeout = 30 * time.Second

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	httpServer := s.setupHTTPServer()

	if err := s.configureTLS(httpServer); err != nil {
		return err
	}

	if err := s.startWatchers(); err != nil {
		s.stopWatchers()
		return err
	}

	s.displayServerInfo()

	return s.startWithGracefulShutdown(ctx, httpServer)
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// configureTLS sets the TLS parameters for server mode
func (s *Server) configureTLS(server *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		return nil
	case "server":
		minVersion := uint16(tls.VersionTLS12)
		if s.TLSConfig.MinVersion == "1.3" {
			minVersion = tls.VersionTLS13
		}
		server.TLSConfig = &tls.Config{MinVersion: minVersion}
		return nil
	default:
		return fmt.Errorf("unsupported TLS mode: %s", s.TLSConfig.Mode)
	}
}

// startWatchers starts the vocabulary and Vault watchers that are configured
func (s *Server) startWatchers() error {
	cfg := s.AppConfig
	if cfg == nil {
		return nil
	}

	if cfg.Server.WatchVocabulary && cfg.Matching.VocabularyFile != "" {
		s.vocabWatcher = NewVocabularyWatcher(cfg.Matching.VocabularyFile, cfg.Server.WatchDebounce, s.ReloadVocabulary, s.Logger)
		if err := s.vocabWatcher.Start(); err != nil {
			return fmt.Errorf("failed to start vocabulary watcher: %w", err)
		}
	}

	if cfg.Vault.Enabled && cfg.Vault.Secrets.APIKeys != "" && cfg.Server.VaultPollInterval > 0 {
		client, err := config.NewVaultClient(cfg.Vault, s.Logger)
		if err != nil {
			return fmt.Errorf("failed to create vault client for API key rotation: %w", err)
		}
		s.vaultWatcher = NewVaultWatcher(client, cfg.Vault.Secrets.APIKeys, cfg.Server.VaultPollInterval, s.SetAPIKeys, s.Logger)
		if err := s.vaultWatcher.Start(); err != nil {
			return fmt.Errorf("failed to start vault watcher: %w", err)
		}
	}

	return nil
}

func (s *Server) stopWatchers() {
	if s.vocabWatcher != nil {
		if err := s.vocabWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop vocabulary watcher")
		}
	}
	if s.vaultWatcher != nil {
		if err := s.vaultWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop vault watcher")
		}
	}
}

// startWithGracefulShutdown serves until ctx is done or the listener fails
func (s *Server) startWithGracefulShutdown(ctx context.Context, server *http.Server) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			err = server.ListenAndServeTLS(s.TLSConfig.CertFile, s.TLSConfig.KeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.releaseResources()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown",
			"cause", context.Cause(ctx))
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.Logger.Info("Shutting down HTTP server...")
	err := server.Shutdown(shutdownCtx)
	s.releaseResources()
	if err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// releaseResources stops background goroutines owned by the server
func (s *Server) releaseResources() {
	s.stopWatchers()
	s.Sessions.Close()
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
