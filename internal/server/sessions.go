package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tendermatch/internal/analysis"
	appErrors "tendermatch/internal/errors"
	"tendermatch/internal/observability"
	"tendermatch/internal/types"
)

const (
	defaultSessionTTL  = time.Hour
	defaultMaxSessions = 1000
)

// Session is one multi-candidate ranking in progress. Requests touching the
// same session are applied one at a time.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	lastAccess time.Time
	state      analysis.Session
}

// SetTender stores the tender text together with its parsed form
func (s *Session) SetTender(text string, tender types.TenderRequirements, aiExtracted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TenderText = text
	s.state.Tender = &tender
	s.state.TenderAIExtracted = aiExtracted
}

// AddCandidates appends documents in upload order and returns the new total
func (s *Session) AddCandidates(docs []types.Document) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Candidates = append(s.state.Candidates, docs...)
	return len(s.state.Candidates)
}

// Snapshot returns a copy of the session state that the orchestrator can
// read while further uploads continue.
func (s *Session) Snapshot() *analysis.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state
	snap.Candidates = append([]types.Document(nil), s.state.Candidates...)
	if s.state.Tender != nil {
		tender := *s.state.Tender
		snap.Tender = &tender
	}
	return &snap
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// SessionStore keeps ranking sessions in memory. Sessions idle for longer
// than the TTL are evicted.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	ttl         time.Duration
	maxSessions int
	metrics     *observability.Metrics
	logger      *appErrors.Logger
	now         func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewSessionStore creates a store and starts its eviction loop.
// Zero ttl or maxSessions use the defaults.
func NewSessionStore(ttl time.Duration, maxSessions int, metrics *observability.Metrics, logger *appErrors.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	if logger == nil {
		logger = appErrors.Discard()
	}

	st := &SessionStore{
		sessions:    make(map[string]*Session),
		ttl:         ttl,
		maxSessions: maxSessions,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		done:        make(chan struct{}),
	}
	go st.cleanupRoutine(max(ttl/4, time.Second))
	return st
}

// Create opens a new empty session
func (st *SessionStore) Create(ctx context.Context) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(ctx)
	if len(st.sessions) >= st.maxSessions {
		return nil, appErrors.NewValidationError(appErrors.ErrCodeSessionLimit,
			fmt.Sprintf("session limit of %d reached", st.maxSessions), nil)
	}

	now := st.now()
	sess := &Session{ID: uuid.NewString(), CreatedAt: now, lastAccess: now}
	st.sessions[sess.ID] = sess
	st.metrics.SessionOpened(ctx)

	st.logger.Debug("Session created", "session_id", sess.ID, "active_sessions", len(st.sessions))
	return sess, nil
}

// Get returns a live session and refreshes its idle timer
func (st *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	if !ok {
		return nil, sessionNotFound(id)
	}
	now := st.now()
	if st.expired(sess, now) {
		st.removeLocked(ctx, id)
		return nil, sessionNotFound(id)
	}
	sess.touch(now)
	return sess, nil
}

// Delete removes a session
func (st *SessionStore) Delete(ctx context.Context, id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return sessionNotFound(id)
	}
	st.removeLocked(ctx, id)
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet evicted
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// ExpiresAt reports when sess will expire if left idle
func (st *SessionStore) ExpiresAt(sess *Session) time.Time {
	return sess.idleSince().Add(st.ttl)
}

// GetStats returns store statistics for the stats endpoint
func (st *SessionStore) GetStats() map[string]any {
	st.mu.Lock()
	defer st.mu.Unlock()
	return map[string]any{
		"active_sessions": len(st.sessions),
		"max_sessions":    st.maxSessions,
		"ttl":             st.ttl.String(),
	}
}

// Close stops the eviction loop
func (st *SessionStore) Close() {
	st.closeOnce.Do(func() { close(st.done) })
}

func (st *SessionStore) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st.mu.Lock()
			evicted := st.evictExpiredLocked(context.Background())
			remaining := len(st.sessions)
			st.mu.Unlock()
			if evicted > 0 {
				st.logger.Debug("Expired sessions evicted", "evicted", evicted, "remaining", remaining)
			}
		case <-st.done:
			return
		}
	}
}

func (st *SessionStore) evictExpiredLocked(ctx context.Context) int {
	now := st.now()
	evicted := 0
	for id, sess := range st.sessions {
		if st.expired(sess, now) {
			st.removeLocked(ctx, id)
			evicted++
		}
	}
	return evicted
}

func (st *SessionStore) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.idleSince()) > st.ttl
}

func (st *SessionStore) removeLocked(ctx context.Context, id string) {
	delete(st.sessions, id)
	st.metrics.SessionClosed(ctx)
}

func sessionNotFound(id string) error {
	return appErrors.NewValidationError(appErrors.ErrCodeSessionNotFound,
		fmt.Sprintf("session %s not found or expired", id), nil)
}
