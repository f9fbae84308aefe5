package instrumentation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/postmind-ai/postmind/internal/logging"
)

// MailboxAction captures all information about a mailbox mutation (a delete
// or a sent reply) for audit logging. Read-only operations are not audited.
//
// # Privacy Considerations
//
// The UserEmail and To fields contain PII. When logging, the anonymized
// form is used unless IncludePII is enabled, in which case the audit
// stream must be routed to secure storage with access controls.
type MailboxAction struct {
	// Operation is the mutation type: "trash" or "send_reply"
	Operation string

	// User identity (from OAuth)
	UserEmail string

	// Target information
	EmailID  string // Provider message ID the action targeted
	ThreadID string // Thread the action belongs to (replies only)
	To       string // Recipient address (replies only)

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
}

// NewMailboxAction creates a new MailboxAction with timing started.
// Call Complete when the mutation finishes.
func NewMailboxAction(operation, emailID string) *MailboxAction {
	return &MailboxAction{
		Operation: operation,
		EmailID:   emailID,
		StartTime: time.Now(),
	}
}

// WithUser sets the acting user's email.
func (a *MailboxAction) WithUser(email string) *MailboxAction {
	a.UserEmail = email
	return a
}

// WithRecipient sets the reply recipient and thread.
func (a *MailboxAction) WithRecipient(to, threadID string) *MailboxAction {
	a.To = to
	a.ThreadID = threadID
	return a
}

// WithSpanContext extracts trace context from the current span.
func (a *MailboxAction) WithSpanContext(ctx context.Context) *MailboxAction {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		a.TraceID = span.SpanContext().TraceID().String()
	}
	return a
}

// Complete marks the action as finished and calculates duration.
func (a *MailboxAction) Complete(err error) *MailboxAction {
	a.Duration = time.Since(a.StartTime)
	a.Success = err == nil
	if err != nil {
		a.Error = err.Error()
	}
	return a
}

// Status returns "success" or "error" based on the Success field.
func (a *MailboxAction) Status() string {
	if a.Success {
		return StatusSuccess
	}
	return StatusError
}

// UserDomain returns the domain portion of the user's email for
// lower-cardinality logging.
func (a *MailboxAction) UserDomain() string {
	if idx := strings.LastIndex(a.UserEmail, "@"); idx >= 0 {
		return a.UserEmail[idx+1:]
	}
	return ""
}

// logAttrs returns slog attributes for the action. When pii is false the
// user is identified only by an anonymized hash and the recipient address
// is omitted.
func (a *MailboxAction) logAttrs(pii bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("operation", a.Operation),
		slog.String("email_id", a.EmailID),
		slog.Duration("duration", a.Duration),
		slog.Bool("success", a.Success),
	}

	if pii {
		attrs = append(attrs, slog.String("user", a.UserEmail))
		if a.To != "" {
			attrs = append(attrs, slog.String("to", a.To))
		}
	} else {
		attrs = append(attrs, logging.UserHash(a.UserEmail))
	}

	if a.ThreadID != "" {
		attrs = append(attrs, slog.String("thread_id", a.ThreadID))
	}
	if a.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", a.TraceID))
	}
	if a.Error != "" {
		attrs = append(attrs, slog.String("error", a.Error))
	}

	return attrs
}

// AuditLogger provides structured audit logging for mailbox mutations.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, PII is not included (anonymized identifiers are used instead).
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: false,
		enabled:    true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogMailboxAction logs a completed mailbox mutation.
func (al *AuditLogger) LogMailboxAction(a *MailboxAction) {
	if al == nil || !al.enabled {
		return
	}

	attrs := a.logAttrs(al.includePII)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if a.Success {
		al.logger.Info("mailbox_action", args...)
	} else {
		al.logger.Warn("mailbox_action_failed", args...)
	}
}

// GetTraceID extracts the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
