package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/postmind-ai/postmind/internal/instrumentation"
	"github.com/postmind-ai/postmind/internal/logging"
)

const defaultMaxResults = 5

const helpText = "I can help you manage your inbox. Try:\n" +
	"- \"show my emails\" or \"show unread emails\"\n" +
	"- \"summarize the email from <sender>\"\n" +
	"- \"reply to the latest email\"\n" +
	"- \"delete email 2\"\n" +
	"Destructive actions always ask for confirmation first."

var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true, "yo": true,
}

// Words that confirm a pending action. Anything else cancels it.
var affirmatives = map[string]bool{
	"yes": true, "y": true, "confirm": true, "ok": true,
}

// Interpreter turns one chat message into a response, consulting the
// mailbox and the language model as needed. It is cheap to construct and
// is built per turn around the session's mailbox gateway.
type Interpreter struct {
	mailbox    Mailbox
	assistant  Assistant
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	audit      *instrumentation.AuditLogger
	maxResults int64
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interpreter) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(i *Interpreter) {
		if m != nil {
			i.metrics = m
		}
	}
}

// WithAuditLogger sets the audit logger for destructive mailbox actions.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(i *Interpreter) { i.audit = a }
}

// WithMaxResults caps how many emails a fetch lists.
func WithMaxResults(n int64) Option {
	return func(i *Interpreter) {
		if n > 0 {
			i.maxResults = n
		}
	}
}

// NewInterpreter builds an Interpreter over the given gateways.
func NewInterpreter(mailbox Mailbox, assistant Assistant, opts ...Option) *Interpreter {
	i := &Interpreter{
		mailbox:    mailbox,
		assistant:  assistant,
		logger:     slog.Default(),
		metrics:    &instrumentation.Metrics{},
		maxResults: defaultMaxResults,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// HandleTurn processes one user message against the session. The caller
// must hold the session lock for the duration of the call.
func (i *Interpreter) HandleTurn(ctx context.Context, sess *Session, message string) (Response, error) {
	start := time.Now()
	msg := strings.ToLower(strings.TrimSpace(message))

	intent, resp, err := i.dispatch(ctx, sess, msg)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	i.metrics.RecordChatTurn(ctx, intent, status, time.Since(start))
	i.logger.LogAttrs(ctx, slog.LevelInfo, "chat turn",
		logging.Operation("chat_turn"),
		logging.Intent(intent),
		logging.UserHash(sess.User.Email),
		logging.Status(status),
		slog.Duration(logging.KeyDuration, time.Since(start)),
		logging.Err(err),
	)
	return resp, err
}

// ListEmails fetches and summarizes emails outside a chat turn, for the
// REST listing endpoint. It refreshes the session snapshot the same way a
// "show my emails" turn does.
func (i *Interpreter) ListEmails(ctx context.Context, sess *Session, unreadOnly bool) ([]EmailSummary, error) {
	return i.fetchEmails(ctx, sess, unreadOnly)
}

type rule struct {
	name   string
	match  func(msg string) bool
	handle func(ctx context.Context, sess *Session, msg string) (Response, error)
}

func (i *Interpreter) rules() []rule {
	return []rule{
		{"greeting", func(m string) bool { return greetings[m] }, i.handleGreeting},
		{"help", contains("help"), i.handleHelp},
		{"show_emails", containsAny("show", "unread"), i.handleShow},
		{"summarize", containsAny("summarize", "summary"), i.handleSummarize},
		{"delete", containsAny("delete", "remove"), i.handleDelete},
		{"reply", contains("reply"), i.handleReply},
	}
}

func contains(word string) func(string) bool {
	return func(msg string) bool { return strings.Contains(msg, word) }
}

func containsAny(words ...string) func(string) bool {
	return func(msg string) bool {
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}
}

// dispatch routes the message. A pending action always takes precedence:
// whatever the user typed, it is consumed before any rule runs.
func (i *Interpreter) dispatch(ctx context.Context, sess *Session, msg string) (string, Response, error) {
	if sess.Pending != nil {
		return i.handleConfirmation(ctx, sess, msg)
	}
	for _, r := range i.rules() {
		if r.match(msg) {
			resp, err := r.handle(ctx, sess, msg)
			return r.name, resp, err
		}
	}
	return i.handleFallback(ctx, sess, msg)
}

// handleConfirmation resolves a staged action. The pending slot is cleared
// unconditionally so a stale action can never fire on a later turn.
func (i *Interpreter) handleConfirmation(ctx context.Context, sess *Session, msg string) (string, Response, error) {
	pending := sess.Pending
	sess.Pending = nil

	if !affirmatives[msg] {
		return "cancel", TextResponse("Okay, I won't do that."), nil
	}

	switch action := pending.(type) {
	case DeleteAction:
		if err := i.trash(ctx, sess, action); err != nil {
			return "confirm", Response{}, err
		}
		return "confirm", TextResponse("Done, the email has been moved to trash."), nil
	case ReplyAction:
		if err := i.sendReply(ctx, sess, action); err != nil {
			return "confirm", Response{}, err
		}
		return "confirm", TextResponse(fmt.Sprintf("Reply sent to %s.", action.To)), nil
	default:
		return "confirm", TextResponse("Okay, I won't do that."), nil
	}
}

func (i *Interpreter) trash(ctx context.Context, sess *Session, action DeleteAction) error {
	audit := instrumentation.NewMailboxAction("trash", action.EmailID).
		WithUser(sess.User.Email).
		WithSpanContext(ctx)

	start := time.Now()
	err := i.mailbox.Trash(ctx, action.EmailID)
	i.metrics.RecordUpstreamOperation(ctx, instrumentation.ServiceGmail, "trash", statusOf(err), time.Since(start))
	i.audit.LogMailboxAction(audit.Complete(err))

	if err != nil {
		return &UpstreamError{Service: instrumentation.ServiceGmail, Op: "trash", Err: err}
	}
	return nil
}

func (i *Interpreter) sendReply(ctx context.Context, sess *Session, action ReplyAction) error {
	audit := instrumentation.NewMailboxAction("send_reply", action.EmailID).
		WithUser(sess.User.Email).
		WithRecipient(action.To, action.ThreadID).
		WithSpanContext(ctx)

	start := time.Now()
	err := i.mailbox.SendReply(ctx, OutgoingReply{
		To:        action.To,
		Subject:   action.Subject,
		Body:      action.Body,
		ThreadID:  action.ThreadID,
		InReplyTo: action.MessageID,
	})
	i.metrics.RecordUpstreamOperation(ctx, instrumentation.ServiceGmail, "send", statusOf(err), time.Since(start))
	i.audit.LogMailboxAction(audit.Complete(err))

	if err != nil {
		return &UpstreamError{Service: instrumentation.ServiceGmail, Op: "send", Err: err}
	}
	return nil
}

func (i *Interpreter) handleGreeting(ctx context.Context, sess *Session, msg string) (Response, error) {
	name := sess.User.Name
	if name == "" {
		name = "there"
	}
	return TextResponse(fmt.Sprintf("Hi %s! Ask me to show, summarize, reply to or delete your emails.", name)), nil
}

func (i *Interpreter) handleHelp(ctx context.Context, sess *Session, msg string) (Response, error) {
	return TextResponse(helpText), nil
}

func (i *Interpreter) handleShow(ctx context.Context, sess *Session, msg string) (Response, error) {
	unreadOnly := strings.Contains(msg, "unread")
	emails, err := i.fetchEmails(ctx, sess, unreadOnly)
	if err != nil {
		return Response{}, err
	}
	if len(emails) == 0 {
		if unreadOnly {
			return TextResponse("No unread emails, you're all caught up."), nil
		}
		return TextResponse("Your inbox is empty."), nil
	}
	return EmailsResponse(emails), nil
}

func (i *Interpreter) handleSummarize(ctx context.Context, sess *Session, msg string) (Response, error) {
	target, resp, err := i.resolveTarget(ctx, sess, msg)
	if target == nil {
		return resp, err
	}

	full, err := i.getMessage(ctx, target.ID)
	if err != nil {
		return Response{}, err
	}
	summary, err := i.summarize(ctx, full.Body)
	if err != nil {
		return Response{}, err
	}

	sess.LastSelected = target
	return TextResponse(fmt.Sprintf("Here's a summary of \"%s\":\n\n%s", full.Subject, summary)), nil
}

func (i *Interpreter) handleDelete(ctx context.Context, sess *Session, msg string) (Response, error) {
	target, resp, err := i.resolveTarget(ctx, sess, msg)
	if target == nil {
		return resp, err
	}

	sess.Pending = DeleteAction{EmailID: target.ID, From: target.From, Subject: target.Subject}
	sess.LastSelected = target
	return TextResponse(fmt.Sprintf(
		"You're about to delete the email from %s: \"%s\". Reply \"yes\" to confirm.",
		target.From, target.Subject)), nil
}

func (i *Interpreter) handleReply(ctx context.Context, sess *Session, msg string) (Response, error) {
	target, resp, err := i.resolveTarget(ctx, sess, msg)
	if target == nil {
		return resp, err
	}

	full, err := i.getMessage(ctx, target.ID)
	if err != nil {
		return Response{}, err
	}

	start := time.Now()
	draft, err := i.assistant.DraftReply(ctx, full.Body, sess.User.Name)
	i.metrics.RecordUpstreamOperation(ctx, instrumentation.ServiceModel, "draft", statusOf(err), time.Since(start))
	if err != nil {
		return Response{}, &UpstreamError{Service: instrumentation.ServiceModel, Op: "draft", Err: err}
	}

	sess.Pending = ReplyAction{
		EmailID:   full.ID,
		To:        bareAddress(full.From),
		Subject:   replySubject(full.Subject),
		Body:      draft,
		ThreadID:  full.ThreadID,
		MessageID: full.MessageID,
	}
	sess.LastSelected = target
	return PreviewResponse(full.Subject, draft), nil
}

// handleFallback asks the model to classify messages no rule matched.
func (i *Interpreter) handleFallback(ctx context.Context, sess *Session, msg string) (string, Response, error) {
	start := time.Now()
	intent, err := i.assistant.Classify(ctx, msg)
	i.metrics.RecordUpstreamOperation(ctx, instrumentation.ServiceModel, "classify", statusOf(err), time.Since(start))
	if err != nil {
		return "classify", Response{}, &UpstreamError{Service: instrumentation.ServiceModel, Op: "classify", Err: err}
	}

	switch intent {
	case IntentGreeting:
		resp, err := i.handleGreeting(ctx, sess, msg)
		return string(intent), resp, err
	case IntentHelp:
		resp, err := i.handleHelp(ctx, sess, msg)
		return string(intent), resp, err
	case IntentShowEmails:
		resp, err := i.handleShow(ctx, sess, msg)
		return string(intent), resp, err
	case IntentSummarize:
		return string(intent), TextResponse("Which email should I summarize? Try \"summarize the latest email\" or \"summarize email 2\"."), nil
	case IntentDelete:
		return string(intent), TextResponse("Which email should I delete? Try \"delete the email from <sender>\" or \"delete email 2\"."), nil
	case IntentReply:
		return string(intent), TextResponse("Which email should I reply to? Try \"reply to the latest email\"."), nil
	default:
		return string(IntentUnknown), TextResponse("I'm not sure what you mean. Type \"help\" to see what I can do."), nil
	}
}

// resolveTarget finds the email a command refers to, fetching a fresh
// snapshot first if the session has none. A nil target with a nil error
// means the reference did not match anything; resp carries the answer.
func (i *Interpreter) resolveTarget(ctx context.Context, sess *Session, msg string) (*EmailSummary, Response, error) {
	if len(sess.LastEmails) == 0 {
		if _, err := i.fetchEmails(ctx, sess, false); err != nil {
			return nil, Response{}, err
		}
	}
	if len(sess.LastEmails) == 0 {
		return nil, TextResponse("Your inbox is empty."), nil
	}
	target := findEmail(sess, msg)
	if target == nil {
		return nil, TextResponse("I couldn't tell which email you mean. Try \"show my emails\" and refer to one by number or sender."), nil
	}
	return target, Response{}, nil
}

func (i *Interpreter) fetchEmails(ctx context.Context, sess *Session, unreadOnly bool) ([]EmailSummary, error) {
	start := time.Now()
	messages, err := i.mailbox.List(ctx, unreadOnly, i.maxResults)
	i.metrics.RecordUpstreamOperation(ctx, instrumentation.ServiceGmail, "list", statusOf(err), time.Since(start))
	if err != nil {
		return nil, &UpstreamError{Service: instrumentation.ServiceGmail, Op: "list", Err: err}
	}

	emails := make([]EmailSummary, 0, len(messages))
	for _, m := range messages {
		summary, err := i.summarize(ctx, m.Body)
		if err != nil {
			return nil, err
		}
		emails = append(emails, EmailSummary{
			ID:      m.ID,
			Subject: m.Subject,
			From:    m.From,
			Summary: summary,
		})
	}

	sess.LastEmails = emails
	sess.LastSelected = nil
	return emails, nil
}

func (i *Interpreter) getMessage(ctx context.Context, id string) (Message, error) {
	start := time.Now()
	msg, err := i.mailbox.Get(ctx, id)
	i.metrics.RecordUpstreamOperation(ctx, instrumentation.ServiceGmail, "get", statusOf(err), time.Since(start))
	if err != nil {
		return Message{}, &UpstreamError{Service: instrumentation.ServiceGmail, Op: "get", Err: err}
	}
	return msg, nil
}

func (i *Interpreter) summarize(ctx context.Context, body string) (string, error) {
	start := time.Now()
	summary, err := i.assistant.Summarize(ctx, body)
	i.metrics.RecordUpstreamOperation(ctx, instrumentation.ServiceModel, "summarize", statusOf(err), time.Since(start))
	if err != nil {
		return "", &UpstreamError{Service: instrumentation.ServiceModel, Op: "summarize", Err: err}
	}
	return summary, nil
}

func statusOf(err error) string {
	if err != nil {
		return instrumentation.StatusError
	}
	return instrumentation.StatusSuccess
}

// bareAddress extracts the address part of a From header like
// "Jane Doe <jane@example.com>". A header without angle brackets is
// returned trimmed as-is.
func bareAddress(from string) string {
	if open := strings.LastIndex(from, "<"); open >= 0 {
		if end := strings.LastIndex(from, ">"); end > open {
			return strings.TrimSpace(from[open+1 : end])
		}
	}
	return strings.TrimSpace(from)
}

// replySubject prefixes "Re: " unless the subject already carries it.
func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
