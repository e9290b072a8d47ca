package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"tendermatch/internal/analysis"
	"tendermatch/internal/config"
	appErrors "tendermatch/internal/errors"
	"tendermatch/internal/observability"
	"tendermatch/internal/parser"
	"tendermatch/internal/types"
)

// AnalyzeRequest is the body of POST /analyze
type AnalyzeRequest struct {
	TenderText string `json:"tender_text"`
	CVText     string `json:"cv_text"`
	CVFilename string `json:"cv_filename"`
}

// RankRequest is the body of POST /rank
type RankRequest struct {
	TenderText string           `json:"tender_text"`
	CVs        []types.Document `json:"cvs"`
}

// TenderUploadRequest is the body of PUT /sessions/{id}/tender
type TenderUploadRequest struct {
	Text string `json:"text"`
}

// TenderUploadResponse is the tender as parsed at upload time
type TenderUploadResponse struct {
	types.TenderRequirements
	AIExtractionUsed bool `json:"ai_extraction_used"`
}

// CVUploadRequest is the body of POST /sessions/{id}/cvs
type CVUploadRequest struct {
	CVs []types.Document `json:"cvs"`
}

// CVUploadResponse reports the session's candidate count after an upload
type CVUploadResponse struct {
	TotalCandidates int `json:"total_candidates"`
}

// SessionResponse is returned when a session is created
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// EngineBuilder creates orchestrators for the server. Build is called again
// with the new vocabulary whenever the vocabulary file changes.
type EngineBuilder interface {
	Build(vocab *parser.Vocabulary) (*analysis.Orchestrator, error)
	AIStatus(ctx context.Context) map[string]any
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Sessions *SessionStore

	Logger *appErrors.Logger

	// API keys can be rotated at runtime by the Vault watcher
	apiKeysMu sync.RWMutex
	apiKeys   map[string]bool

	engine       EngineBuilder
	orchestrator atomic.Pointer[analysis.Orchestrator]
	om           *observability.ObservabilityManager

	vocabWatcher *VocabularyWatcher
	vaultWatcher *VaultWatcher

	startedAt time.Time
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
	Sessions       config.SessionConfig
}

// NewServer creates a Server and builds its first orchestrator
func NewServer(appCfg *config.Config, cfg ServerConfig, engine EngineBuilder, om *observability.ObservabilityManager, logger *appErrors.Logger) (*Server, error) {
	if logger == nil {
		logger = appErrors.Discard()
	}

	orch, err := engine.Build(nil)
	if err != nil {
		return nil, err
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			cfg.RateLimit.Window,
			logger,
		)
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Sessions:       NewSessionStore(cfg.Sessions.TTL, cfg.Sessions.MaxSessions, om.GetMetrics(), logger),
		Logger:         logger,
		engine:         engine,
		om:             om,
		startedAt:      time.Now(),
	}
	s.orchestrator.Store(orch)
	s.SetAPIKeys(cfg.APIKeys)

	return s, nil
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.setupRoutes())
}

// Orchestrator returns the orchestrator currently serving requests
func (s *Server) Orchestrator() *analysis.Orchestrator {
	return s.orchestrator.Load()
}

// ReloadVocabulary rebuilds the orchestrator around vocab and swaps it in.
// On failure the current orchestrator keeps serving.
func (s *Server) ReloadVocabulary(vocab *parser.Vocabulary) error {
	orch, err := s.engine.Build(vocab)
	if err != nil {
		return err
	}
	s.orchestrator.Store(orch)
	s.Logger.Info("Orchestrator rebuilt with new vocabulary", "terms", len(vocab.Terms()))
	return nil
}

// SetAPIKeys replaces the accepted API keys. An empty set disables authentication.
func (s *Server) SetAPIKeys(keys []string) {
	apiKeyMap := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	s.apiKeysMu.Lock()
	s.apiKeys = apiKeyMap
	s.apiKeysMu.Unlock()
}

func (s *Server) apiKeyCount() int {
	s.apiKeysMu.RLock()
	defer s.apiKeysMu.RUnlock()
	return len(s.apiKeys)
}

func (s *Server) validAPIKey(key string) bool {
	s.apiKeysMu.RLock()
	defer s.apiKeysMu.RUnlock()
	return s.apiKeys[key]
}
