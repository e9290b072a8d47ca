package server

import (
	"fmt"
	"net/http"
	"strings"

	"tendermatch/internal/analysis"
	appErrors "tendermatch/internal/errors"
	"tendermatch/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "tendermatch.api"

// analyzeHandler analyzes one CV against one tender
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer(tracerName).Start(r.Context(), "api.analyze")
	defer span.End()

	var req AnalyzeRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}
	if req.CVFilename == "" {
		req.CVFilename = "cv.txt"
	}

	span.SetAttributes(
		attribute.Int("request.tender_length", len(req.TenderText)),
		attribute.Int("request.cv_length", len(req.CVText)),
		attribute.String("operation", "analyze"),
	)

	metrics := s.om.GetMetrics()
	metrics.RecordContentSize(ctx, "tender", len(req.TenderText))
	metrics.RecordContentSize(ctx, "cv", len(req.CVText))

	report, err := s.Orchestrator().Analyze(ctx, req.TenderText, req.CVText, req.CVFilename)
	if err != nil {
		metrics.RecordAnalysis(ctx, "analyze", false, false)
		s.failRequest(w, span, err)
		return
	}

	metrics.RecordAnalysis(ctx, "analyze", true, report.AIExtractionUsed)
	metrics.RecordCandidateScores(ctx, []int{report.Score})

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("score", report.Score),
		attribute.Bool("ai.extraction_used", report.AIExtractionUsed),
	)
	writeJSON(w, http.StatusOK, report)
}

// rankHandler ranks a batch of CVs against a tender in one call
func (s *Server) rankHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer(tracerName).Start(r.Context(), "api.rank")
	defer span.End()

	var req RankRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}

	docs, err := normalizeDocuments(req.CVs, 0)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	span.SetAttributes(
		attribute.Int("request.tender_length", len(req.TenderText)),
		attribute.Int("request.candidates", len(docs)),
		attribute.String("operation", "rank"),
	)

	s.recordUploadSizes(r, req.TenderText, docs)
	s.serveRanking(w, r.WithContext(ctx), span, "rank", &analysis.Session{
		TenderText: req.TenderText,
		Candidates: docs,
	})
}

// createSessionHandler opens a new ranking session
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer(tracerName).Start(r.Context(), "api.sessions.create")
	defer span.End()

	sess, err := s.Sessions.Create(ctx)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	span.SetAttributes(attribute.String("session.id", sess.ID))
	writeJSON(w, http.StatusCreated, SessionResponse{
		SessionID: sess.ID,
		ExpiresAt: s.Sessions.ExpiresAt(sess),
	})
}

// uploadTenderHandler parses a tender once and stores it on the session
func (s *Server) uploadTenderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer(tracerName).Start(r.Context(), "api.sessions.tender")
	defer span.End()

	sess, err := s.Sessions.Get(ctx, r.PathValue("id"))
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	var req TenderUploadRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.failRequest(w, span, appErrors.NewValidationError(appErrors.ErrCodeMissingTender,
			"text field is required", nil))
		return
	}

	s.om.GetMetrics().RecordContentSize(ctx, "tender", len(req.Text))
	tender, aiUsed := s.Orchestrator().PrepareTender(ctx, req.Text)
	sess.SetTender(req.Text, tender, aiUsed)

	span.SetAttributes(
		attribute.String("session.id", sess.ID),
		attribute.Bool("ai.extraction_used", aiUsed),
	)
	writeJSON(w, http.StatusOK, TenderUploadResponse{TenderRequirements: tender, AIExtractionUsed: aiUsed})
}

// uploadCVsHandler appends CVs to a session
func (s *Server) uploadCVsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer(tracerName).Start(r.Context(), "api.sessions.cvs")
	defer span.End()

	sess, err := s.Sessions.Get(ctx, r.PathValue("id"))
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	var req CVUploadRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}

	docs, err := normalizeDocuments(req.CVs, len(sess.Snapshot().Candidates))
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	metrics := s.om.GetMetrics()
	for _, d := range docs {
		metrics.RecordContentSize(ctx, "cv", len(d.Text))
	}
	total := sess.AddCandidates(docs)

	span.SetAttributes(
		attribute.String("session.id", sess.ID),
		attribute.Int("session.candidates", total),
	)
	writeJSON(w, http.StatusOK, CVUploadResponse{TotalCandidates: total})
}

// rankingHandler ranks everything uploaded to a session so far
func (s *Server) rankingHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer(tracerName).Start(r.Context(), "api.sessions.ranking")
	defer span.End()

	sess, err := s.Sessions.Get(ctx, r.PathValue("id"))
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	span.SetAttributes(attribute.String("session.id", sess.ID))
	s.serveRanking(w, r.WithContext(ctx), span, "session", sess.Snapshot())
}

// deleteSessionHandler discards a session
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer(tracerName).Start(r.Context(), "api.sessions.delete")
	defer span.End()

	if err := s.Sessions.Delete(ctx, r.PathValue("id")); err != nil {
		s.failRequest(w, span, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serveRanking(w http.ResponseWriter, r *http.Request, span oteltrace.Span, source string, session *analysis.Session) {
	ctx := r.Context()
	metrics := s.om.GetMetrics()

	report, err := s.Orchestrator().Rank(ctx, session)
	if err != nil {
		metrics.RecordAnalysis(ctx, source, false, false)
		s.failRequest(w, span, err)
		return
	}

	scores := make([]int, len(report.Candidates))
	for i, c := range report.Candidates {
		scores[i] = c.Score
	}
	metrics.RecordAnalysis(ctx, source, true, report.AIExtractionUsed || report.AIJustificationUsed)
	metrics.RecordCandidateScores(ctx, scores)

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("ranking.candidates", report.TotalCandidates),
		attribute.Int("ranking.top_score", report.Candidates[0].Score),
		attribute.Bool("ai.extraction_used", report.AIExtractionUsed),
		attribute.Bool("ai.justification_used", report.AIJustificationUsed),
	)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) recordUploadSizes(r *http.Request, tenderText string, docs []types.Document) {
	metrics := s.om.GetMetrics()
	metrics.RecordContentSize(r.Context(), "tender", len(tenderText))
	for _, d := range docs {
		metrics.RecordContentSize(r.Context(), "cv", len(d.Text))
	}
}

// failRequest records err on the span and writes the matching error response
func (s *Server) failRequest(w http.ResponseWriter, span oteltrace.Span, err error) {
	status := statusForError(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed")
	}
	writeAppError(w, err, status)
}

// normalizeDocuments rejects blank CVs and names unnamed ones by their
// upload position. offset is the number of CVs already uploaded.
func normalizeDocuments(docs []types.Document, offset int) ([]types.Document, error) {
	if len(docs) == 0 {
		return nil, appErrors.NewValidationError(appErrors.ErrCodeMissingCandidate,
			"cvs must contain at least one document", nil)
	}

	out := make([]types.Document, len(docs))
	for i, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			return nil, appErrors.NewValidationError(appErrors.ErrCodeMissingCandidate,
				fmt.Sprintf("cv %d has no text", i+1), nil)
		}
		if strings.TrimSpace(d.Filename) == "" {
			d.Filename = fmt.Sprintf("cv_%d.txt", offset+i+1)
		}
		out[i] = d
	}
	return out, nil
}
