package cli

import (
	"fmt"

	"tendermatch/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the analysis engine.

Available endpoints:
- POST /analyze: Analyze one CV against a tender
- POST /rank: Rank several CVs against a tender
- POST /sessions, PUT /sessions/{id}/tender, POST /sessions/{id}/cvs,
  GET /sessions/{id}/ranking, DELETE /sessions/{id}: Incremental ranking sessions
- GET /health: Health check including AI collaborator status
- GET /stats: Server statistics and rate limiting info
- GET /metrics: Prometheus metrics (when enabled)

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

var serveFlags struct {
	host     string
	port     string
	tlsMode  string
	certFile string
	keyFile  string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.tlsMode, "tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.certFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.keyFile, "key-file", "", "Server private key file (PEM, overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, err := loadCommandServices(cmd)
	if err != nil {
		return err
	}
	defer svc.factory.Close()

	cfg := svc.cfg
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = serveFlags.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = serveFlags.port
	}
	if flags.Changed("tls-mode") {
		cfg.Server.TLS.Mode = serveFlags.tlsMode
	}
	if flags.Changed("cert-file") {
		cfg.Server.TLS.CertFile = serveFlags.certFile
	}
	if flags.Changed("key-file") {
		cfg.Server.TLS.KeyFile = serveFlags.keyFile
	}

	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.Server.MaxRequestBytes,
		RateLimit:      &cfg.Server.RateLimit,
		Sessions:       cfg.Server.Sessions,
	}

	srv, err := server.NewServer(cfg, serverCfg, svc.factory, svc.om, svc.logger)
	if err != nil {
		return wrapCommandError("create server", err)
	}
	return srv.Start(cmd.Context())
}
