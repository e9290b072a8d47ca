package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tendermatch/internal/analysis"
	"tendermatch/internal/config"
	appErrors "tendermatch/internal/errors"
	"tendermatch/internal/matching"
	"tendermatch/internal/narrative"
	"tendermatch/internal/parser"
	"tendermatch/internal/types"
)

const (
	testTender = "Role: Backend Engineer\nSkills: Python, Docker, AWS\nExperience: 5 years\nSector: Finance"
	janeCV     = "Jane Doe\nSkills: Python, Kubernetes\n3 years experience"
	omarCV     = "Omar Haddad\nSkills: Python, Docker, AWS Lambda\n8 years of experience\nSector: Finance"
)

// testEngine builds deterministic orchestrators
type testEngine struct {
	builds atomic.Int32
	err    error
}

func (e *testEngine) Build(vocab *parser.Vocabulary) (*analysis.Orchestrator, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.builds.Add(1)
	return analysis.New(
		parser.NewCandidateParser(parser.CandidateOptions{Vocabulary: vocab}),
		matching.NewEngine(matching.Options{}),
		narrative.NewGenerator(narrative.Options{}),
	), nil
}

func (e *testEngine) AIStatus(context.Context) map[string]any {
	return map[string]any{"enabled": false}
}

func newTestServer(t *testing.T, mutate func(*ServerConfig)) (*Server, *testEngine) {
	t.Helper()
	cfg := ServerConfig{Version: "test"}
	if mutate != nil {
		mutate(&cfg)
	}

	engine := &testEngine{}
	s, err := NewServer(&config.Config{}, cfg, engine, nil, appErrors.Discard())
	require.NoError(t, err)
	t.Cleanup(s.releaseResources)
	return s, engine
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAnalyzeEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s.Handler(), http.MethodPost, "/analyze", AnalyzeRequest{
		TenderText: testTender,
		CVText:     janeCV,
		CVFilename: "jane.txt",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[types.AnalysisReport](t, rec)
	assert.Equal(t, "Backend Engineer", report.Tender.Role)
	assert.Equal(t, "Jane Doe", report.Candidate.Name)
	assert.Equal(t, 33, report.Score)
	assert.NotNil(t, report.RejectionEmail)
	assert.False(t, report.AIExtractionUsed)
}

func TestAnalyzeEndpointErrors(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	tests := []struct {
		name     string
		body     any
		wantCode string
	}{
		{"missing tender", AnalyzeRequest{CVText: janeCV}, appErrors.ErrCodeMissingTender},
		{"missing cv", AnalyzeRequest{TenderText: testTender}, appErrors.ErrCodeMissingCandidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/analyze", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, rec).Code)
		})
	}

	t.Run("not json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("tender"))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, appErrors.ErrCodeInvalidRequest, decode[ErrorResponse](t, rec).Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/analyze", nil, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestRankEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s.Handler(), http.MethodPost, "/rank", RankRequest{
		TenderText: testTender,
		CVs: []types.Document{
			{Filename: "jane.txt", Text: janeCV},
			{Text: omarCV},
		},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[types.RankingReport](t, rec)
	require.Len(t, report.Candidates, 2)
	assert.Equal(t, 2, report.TotalCandidates)

	top := report.Candidates[0]
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, 2, top.ID)
	assert.Equal(t, "cv_2.txt", top.Filename)
	assert.Equal(t, 100, top.Score)
	assert.Equal(t, top.ValidationParagraph, top.JustificationParagraph)
	assert.Equal(t, "jane.txt", report.Candidates[1].Filename)
}

func TestRankEndpointRejectsBadCVs(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	for name, cvs := range map[string][]types.Document{
		"empty list": nil,
		"blank text": {{Filename: "a.txt", Text: "  "}},
	} {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/rank", RankRequest{TenderText: testTender, CVs: cvs}, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, appErrors.ErrCodeMissingCandidate, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := doRequest(t, h, http.MethodPost, "/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[SessionResponse](t, rec).SessionID
	require.NotEmpty(t, id)
	base := "/sessions/" + id

	rec = doRequest(t, h, http.MethodPut, base+"/tender", TenderUploadRequest{Text: testTender}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tender := decode[TenderUploadResponse](t, rec)
	assert.Equal(t, "Backend Engineer", tender.Role)
	assert.Equal(t, 5, tender.ExperienceYears)
	assert.False(t, tender.AIExtractionUsed)

	rec = doRequest(t, h, http.MethodPost, base+"/cvs", CVUploadRequest{CVs: []types.Document{{Filename: "jane.txt", Text: janeCV}}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[CVUploadResponse](t, rec).TotalCandidates)

	rec = doRequest(t, h, http.MethodPost, base+"/cvs", CVUploadRequest{CVs: []types.Document{{Text: omarCV}}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[CVUploadResponse](t, rec).TotalCandidates)

	rec = doRequest(t, h, http.MethodGet, base+"/ranking", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[types.RankingReport](t, rec)
	require.Len(t, report.Candidates, 2)
	assert.Equal(t, "cv_2.txt", report.Candidates[0].Filename)
	assert.Equal(t, "Jane Doe", report.Candidates[1].Candidate.Name)

	rec = doRequest(t, h, http.MethodDelete, base, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodGet, base+"/ranking", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, appErrors.ErrCodeSessionNotFound, decode[ErrorResponse](t, rec).Code)
}

func TestSessionRankingNeedsTenderAndCVs(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	sess, err := s.Sessions.Create(context.Background())
	require.NoError(t, err)
	base := "/sessions/" + sess.ID

	rec := doRequest(t, h, http.MethodGet, base+"/ranking", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrCodeMissingTender, decode[ErrorResponse](t, rec).Code)

	rec = doRequest(t, h, http.MethodPut, base+"/tender", TenderUploadRequest{Text: ""}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrCodeMissingTender, decode[ErrorResponse](t, rec).Code)

	doRequest(t, h, http.MethodPut, base+"/tender", TenderUploadRequest{Text: testTender}, nil)
	rec = doRequest(t, h, http.MethodGet, base+"/ranking", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrCodeMissingCandidate, decode[ErrorResponse](t, rec).Code)
}

func TestSessionLimitReturns429(t *testing.T) {
	s, _ := newTestServer(t, func(c *ServerConfig) { c.Sessions.MaxSessions = 1 })
	h := s.Handler()

	assert.Equal(t, http.StatusCreated, doRequest(t, h, http.MethodPost, "/sessions", nil, nil).Code)

	rec := doRequest(t, h, http.MethodPost, "/sessions", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, appErrors.ErrCodeSessionLimit, decode[ErrorResponse](t, rec).Code)
}

func TestAuthMiddleware(t *testing.T) {
	const key = "tm-test-key-0001"
	s, _ := newTestServer(t, func(c *ServerConfig) { c.APIKeys = []string{key, ""} })
	h := s.Handler()

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"no key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": key}, http.StatusCreated},
		{"bearer token", map[string]string{"Authorization": "Bearer " + key}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/sessions", nil, tt.headers)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("health is public", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, doRequest(t, h, http.MethodGet, "/health", nil, nil).Code)
	})

	t.Run("rotated keys apply immediately", func(t *testing.T) {
		s.SetAPIKeys([]string{"tm-rotated-key-02"})
		rec := doRequest(t, h, http.MethodPost, "/sessions", nil, map[string]string{"X-API-Key": key})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		rec = doRequest(t, h, http.MethodPost, "/sessions", nil, map[string]string{"X-API-Key": "tm-rotated-key-02"})
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	s, _ := newTestServer(t, func(c *ServerConfig) {
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})
	h := s.Handler()

	assert.Equal(t, http.StatusCreated, doRequest(t, h, http.MethodPost, "/sessions", nil, nil).Code)

	rec := doRequest(t, h, http.MethodPost, "/sessions", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := doRequest(t, h, http.MethodPost, "/sessions", nil, map[string]string{"X-Forwarded-For": "198.51.100.7"})
	assert.Equal(t, http.StatusCreated, other.Code)
}

func TestRequestSizeLimit(t *testing.T) {
	s, _ := newTestServer(t, func(c *ServerConfig) { c.MaxRequestSize = 64 })

	rec := doRequest(t, s.Handler(), http.MethodPost, "/analyze", AnalyzeRequest{
		TenderText: strings.Repeat("x", 200),
		CVText:     janeCV,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Message, "too large")
}

func TestHealthAndStats(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := doRequest(t, h, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, false, health["ai_extraction_available"])

	rec = doRequest(t, h, http.MethodGet, "/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]any](t, rec)
	assert.Contains(t, stats, "sessions")
	assert.Equal(t, map[string]any{"enabled": false}, stats["rate_limiting"])

	assert.Equal(t, http.StatusNotFound, doRequest(t, h, http.MethodGet, "/metrics", nil, nil).Code)
}

func TestAIDegraded(t *testing.T) {
	assert.False(t, aiDegraded(map[string]any{"enabled": false}))
	assert.False(t, aiDegraded(map[string]any{
		"extract": map[string]any{"configured": false, "available": false},
	}))
	assert.True(t, aiDegraded(map[string]any{
		"extract": map[string]any{"configured": true, "available": true},
		"justify": map[string]any{"configured": true, "available": false},
	}))
}

func TestReloadVocabulary(t *testing.T) {
	s, engine := newTestServer(t, nil)
	before := s.Orchestrator()

	require.NoError(t, s.ReloadVocabulary(parser.NewVocabulary([]string{"cobol"})))
	assert.NotSame(t, before, s.Orchestrator())
	assert.Equal(t, int32(2), engine.builds.Load())

	current := s.Orchestrator()
	engine.err = fmt.Errorf("bad vocabulary")
	assert.Error(t, s.ReloadVocabulary(parser.NewVocabulary([]string{"fortran"})))
	assert.Same(t, current, s.Orchestrator())
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{appErrors.NewValidationError(appErrors.ErrCodeMissingTender, "x", nil), http.StatusBadRequest},
		{appErrors.NewValidationError(appErrors.ErrCodeSessionNotFound, "x", nil), http.StatusNotFound},
		{appErrors.NewValidationError(appErrors.ErrCodeSessionLimit, "x", nil), http.StatusTooManyRequests},
		{appErrors.NewValidationError("OTHER", "x", nil), http.StatusBadRequest},
		{appErrors.NewInternalError("BOOM", "x", nil), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", appErrors.NewValidationError(appErrors.ErrCodeMissingCandidate, "x", nil)), http.StatusBadRequest},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
