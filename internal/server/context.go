// Package server exposes the HTTP API: Google OAuth login, the session
// cookie lifecycle, the email listing endpoint, and the chat endpoint
// that drives the command interpreter.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/postmind-ai/postmind/internal/chat"
	"github.com/postmind-ai/postmind/internal/gmail"
	"github.com/postmind-ai/postmind/internal/google"
	"github.com/postmind-ai/postmind/internal/instrumentation"
)

// Config holds the HTTP server settings.
type Config struct {
	// Addr is the listen address for the API server.
	Addr string

	// ClientURL is the browser front-end origin. It is the CORS allow
	// origin and the redirect target after OAuth completes.
	ClientURL string

	// SessionTimeout is the idle lifetime of a session.
	SessionTimeout time.Duration

	// MaxEmails caps how many emails a listing fetches.
	MaxEmails int64
}

// mailboxFactory builds a mailbox gateway for a user's token source.
// Tests substitute a stub so handlers run without the Gmail API.
type mailboxFactory func(ctx context.Context, ts oauth2.TokenSource) (chat.Mailbox, error)

// ServerContext holds the shared dependencies of all handlers.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	config    Config
	oauth     *google.OAuth
	assistant chat.Assistant
	sessions  *SessionStore
	provider  *instrumentation.Provider
	audit     *instrumentation.AuditLogger
	logger    *slog.Logger

	newMailbox mailboxFactory

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext wires the shared dependencies together.
func NewServerContext(ctx context.Context, config Config, oauth *google.OAuth, assistant chat.Assistant, provider *instrumentation.Provider, logger *slog.Logger) *ServerContext {
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		config:    config,
		oauth:     oauth,
		assistant: assistant,
		provider:  provider,
		logger:    logger,
	}
	sc.sessions = NewSessionStore(config.SessionTimeout, logger, sc.Metrics())
	if provider != nil {
		sc.audit = instrumentation.NewAuditLoggerWithConfig(logger, provider.AuditLogging())
	} else {
		sc.audit = instrumentation.NewAuditLogger(logger)
	}
	sc.newMailbox = func(ctx context.Context, ts oauth2.TokenSource) (chat.Mailbox, error) {
		return gmail.NewClient(ctx, ts)
	}
	return sc
}

// Context returns the server's lifecycle context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Sessions returns the session store.
func (sc *ServerContext) Sessions() *SessionStore {
	return sc.sessions
}

// Metrics returns the metrics recorder. It is a no-op recorder when
// instrumentation is disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	if sc.provider == nil {
		return &instrumentation.Metrics{}
	}
	return sc.provider.Metrics()
}

// Mailbox builds a mailbox gateway for the session's token. The token
// source refreshes the access token as needed; refreshed tokens are kept
// on the session so later requests reuse them.
func (sc *ServerContext) Mailbox(ctx context.Context, session *UserSession) (chat.Mailbox, error) {
	return sc.newMailbox(ctx, sc.oauth.TokenSource(ctx, session.Token))
}

// Interpreter builds the command interpreter for one request.
func (sc *ServerContext) Interpreter(mailbox chat.Mailbox) *chat.Interpreter {
	return chat.NewInterpreter(mailbox, sc.assistant,
		chat.WithLogger(sc.logger),
		chat.WithMetrics(sc.Metrics()),
		chat.WithAuditLogger(sc.audit),
		chat.WithMaxResults(sc.config.MaxEmails),
	)
}

// IsShutdown reports whether shutdown has begun.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown marks the context as shutting down and releases resources.
func (sc *ServerContext) Shutdown() {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return
	}
	sc.shutdown = true
	sc.mu.Unlock()

	sc.sessions.Stop()
	sc.cancel()
}
