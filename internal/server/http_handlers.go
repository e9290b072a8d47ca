package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	appErrors "tendermatch/internal/errors"
)

const healthCheckTimeout = 5 * time.Second

// healthHandler reports service status and AI collaborator availability.
// The engine always works deterministically, so unavailable AI only degrades the status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "tendermatch",
		"version": s.Version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	}

	aiStatus := s.engine.AIStatus(ctx)
	response["ai"] = aiStatus
	if aiDegraded(aiStatus) {
		response["status"] = "degraded"
	}

	extraction, justification := s.Orchestrator().AIAvailable()
	response["ai_extraction_available"] = extraction
	response["ai_justification_available"] = justification
	response["sessions"] = s.Sessions.GetStats()

	if s.vocabWatcher != nil {
		response["vocabulary_watcher"] = s.vocabWatcher.Status()
	}
	if s.vaultWatcher != nil {
		response["vault_watcher"] = s.vaultWatcher.Status()
	}

	writeJSON(w, http.StatusOK, response)
}

// aiDegraded is true when a configured collaborator is currently unavailable
func aiDegraded(status map[string]any) bool {
	for _, v := range status {
		op, ok := v.(map[string]any)
		if !ok {
			continue
		}
		configured, _ := op["configured"].(bool)
		available, _ := op["available"].(bool)
		if configured && !available {
			return true
		}
	}
	return false
}

// statsHandler provides server statistics including sessions and rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "tendermatch",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"api_keys_configured":    s.apiKeyCount(),
			"uptime_seconds":         int64(time.Since(s.startedAt).Seconds()),
		},
		"sessions": s.Sessions.GetStats(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses a JSON request body into v
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return invalidRequest("content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return invalidRequest(fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return invalidRequest("failed to read request body", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return invalidRequest("failed to parse JSON", err)
	}

	return nil
}

func invalidRequest(message string, cause error) error {
	return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, message, cause)
}

// statusForError maps application error codes onto HTTP statuses
func statusForError(err error) int {
	var appErr *appErrors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case appErrors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case appErrors.ErrCodeSessionLimit:
		return http.StatusTooManyRequests
	case appErrors.ErrCodeMissingTender, appErrors.ErrCodeMissingCandidate, appErrors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	}

	if appErr.Type == appErrors.ErrorTypeValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeAppError writes err as an ErrorResponse. Internal failures are not described to the client.
func writeAppError(w http.ResponseWriter, err error, statusCode int) {
	var appErr *appErrors.AppError
	if statusCode >= http.StatusInternalServerError || !errors.As(err, &appErr) {
		writeErrorResponse(w, http.StatusText(statusCode), "INTERNAL_ERROR", "The request could not be processed", statusCode)
		return
	}
	writeErrorResponse(w, http.StatusText(statusCode), appErr.Code, appErr.Message, statusCode)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, code, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   error,
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// headers are already sent, so an encode failure cannot be reported
	_ = json.NewEncoder(w).Encode(v)
}
