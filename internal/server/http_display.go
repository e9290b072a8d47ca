package server

import (
	"fmt"
	"io"
	"os"
)

// displayServerInfo prints the server configuration to stdout
func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

func (s *Server) writeServerInfo(w io.Writer) {
	s.displayEndpoints(w)
	s.displayAuthInfo(w)
	s.displayRequestLimitInfo(w)
	s.displayRateLimitInfo(w)
	s.displayEngineInfo(w)
}

func (s *Server) displayEndpoints(w io.Writer) {
	fmt.Fprintln(w, "Available endpoints:")
	fmt.Fprintln(w, "  GET    /health                  - Health check")
	fmt.Fprintln(w, "  GET    /stats                   - Server statistics")
	if s.om.PrometheusHandler() != nil {
		fmt.Fprintf(w, "  GET    %-24s - Prometheus metrics\n", s.om.PrometheusEndpoint())
	}
	fmt.Fprintln(w, "  POST   /analyze                 - Analyze one CV against a tender")
	fmt.Fprintln(w, "  POST   /rank                    - Rank several CVs against a tender")
	fmt.Fprintln(w, "  POST   /sessions                - Open a ranking session")
	fmt.Fprintln(w, "  PUT    /sessions/{id}/tender    - Upload the session's tender")
	fmt.Fprintln(w, "  POST   /sessions/{id}/cvs       - Add CVs to the session")
	fmt.Fprintln(w, "  GET    /sessions/{id}/ranking   - Rank the session's CVs")
	fmt.Fprintln(w, "  DELETE /sessions/{id}           - Discard the session")
}

func (s *Server) displayAuthInfo(w io.Writer) {
	if n := s.apiKeyCount(); n > 0 {
		fmt.Fprintf(w, "API authentication: ENABLED (%d keys configured)\n", n)
		fmt.Fprintln(w, "Include 'X-API-Key: <your-key>' header in requests to the analysis endpoints")
	} else {
		fmt.Fprintln(w, "API authentication: DISABLED (no API keys configured)")
		fmt.Fprintln(w, "WARNING: API endpoints are publicly accessible!")
	}
}

func (s *Server) displayRequestLimitInfo(w io.Writer) {
	if s.MaxRequestSize > 0 {
		fmt.Fprintf(w, "Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Fprintln(w, "Request size limit: DISABLED")
		fmt.Fprintln(w, "WARNING: No request size limits configured!")
	}
}

func (s *Server) displayRateLimitInfo(w io.Writer) {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Fprintf(w, "Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Fprintln(w, "  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Fprintln(w, "  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Fprintln(w, "Rate limiting: DISABLED")
		fmt.Fprintln(w, "WARNING: No rate limiting configured!")
	}
}

func (s *Server) displayEngineInfo(w io.Writer) {
	extraction, justification := s.Orchestrator().AIAvailable()
	fmt.Fprintf(w, "AI tender extraction: %s\n", enabledLabel(extraction))
	fmt.Fprintf(w, "AI candidate justification: %s\n", enabledLabel(justification))
	if s.vocabWatcher != nil {
		fmt.Fprintf(w, "Vocabulary hot reload: ENABLED (%s)\n", s.AppConfig.Matching.VocabularyFile)
	}
}

func enabledLabel(on bool) string {
	if on {
		return "ENABLED"
	}
	return "DISABLED (deterministic fallback)"
}
