package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/postmind-ai/postmind/internal/chat"
	"github.com/postmind-ai/postmind/internal/instrumentation"
)

const (
	// SessionCookieName carries the opaque session ID. The cookie is the
	// only credential the browser holds; Google tokens stay server-side.
	SessionCookieName = "postmind_session"

	// DefaultSessionTimeout is how long a session survives without any
	// request before cleanup removes it.
	DefaultSessionTimeout = 24 * time.Hour

	cleanupInterval = 10 * time.Minute
)

// UserSession binds an authenticated user to their OAuth token and
// conversation state.
type UserSession struct {
	ID         string
	User       chat.User
	Token      *oauth2.Token
	Chat       *chat.Session
	lastAccess time.Time
}

// SessionStore keeps sessions in memory. Sessions do not survive a
// restart; users simply log in again through Google.
type SessionStore struct {
	sessions      map[string]*UserSession
	mu            sync.RWMutex
	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	timeout       time.Duration
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
}

// NewSessionStore creates a store and starts its cleanup goroutine.
func NewSessionStore(timeout time.Duration, logger *slog.Logger, metrics *instrumentation.Metrics) *SessionStore {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}

	s := &SessionStore{
		sessions:      make(map[string]*UserSession),
		cleanupTicker: time.NewTicker(cleanupInterval),
		cleanupDone:   make(chan struct{}),
		timeout:       timeout,
		logger:        logger,
		metrics:       metrics,
	}
	go s.cleanupExpiredSessions()
	return s
}

// Create registers a new session for the user and returns it.
func (s *SessionStore) Create(user chat.User, token *oauth2.Token) *UserSession {
	session := &UserSession{
		ID:         uuid.NewString(),
		User:       user,
		Token:      token,
		Chat:       &chat.Session{User: user},
		lastAccess: time.Now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.metrics.IncrementActiveSessions(context.Background())
	return session
}

// Get returns the session for an ID and refreshes its last access time.
func (s *SessionStore) Get(id string) (*UserSession, bool) {
	if id == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	session.lastAccess = time.Now()
	return session, true
}

// Delete removes a session. Removing an unknown ID is a no-op.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	_, existed := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if existed {
		s.metrics.DecrementActiveSessions(context.Background())
	}
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// FromRequest resolves the session for an incoming request from its
// cookie. A missing cookie or an unknown ID both mean "not logged in".
func (s *SessionStore) FromRequest(r *http.Request) (*UserSession, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, false
	}
	return s.Get(cookie.Value)
}

func (s *SessionStore) cleanupExpiredSessions() {
	for {
		select {
		case <-s.cleanupTicker.C:
			if expired := s.removeExpired(time.Now()); expired > 0 {
				s.logger.Info("cleaned up expired sessions", "count", expired)
			}
		case <-s.cleanupDone:
			return
		}
	}
}

// removeExpired drops sessions idle past the timeout and returns how
// many were removed.
func (s *SessionStore) removeExpired(now time.Time) int {
	expired := 0

	s.mu.Lock()
	for id, session := range s.sessions {
		if now.Sub(session.lastAccess) > s.timeout {
			delete(s.sessions, id)
			expired++
		}
	}
	s.mu.Unlock()

	for range expired {
		s.metrics.DecrementActiveSessions(context.Background())
	}
	return expired
}

// Stop shuts down the cleanup goroutine.
func (s *SessionStore) Stop() {
	if s.cleanupTicker != nil {
		s.cleanupTicker.Stop()
	}
	if s.cleanupDone != nil {
		close(s.cleanupDone)
	}
}
