// Package chat implements the command interpreter that turns a user's
// free-text message into mailbox and language-model operations. It owns
// the per-session conversation state: the last listed emails and the
// single pending action awaiting confirmation.
package chat

import "context"

// EmailSummary is the read-only projection of a mailbox message that is
// shown to the user and used by the reference resolver. It is rebuilt on
// every fetch and never cached beyond the session snapshot.
type EmailSummary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Summary string `json:"summary"`
}

// Message is a full mailbox message as returned by the mailbox gateway,
// with the body already extracted to plain text.
type Message struct {
	ID        string
	ThreadID  string
	Subject   string
	From      string
	MessageID string // RFC 5322 Message-ID header, used for reply threading
	Unread    bool
	Body      string
}

// OutgoingReply describes a reply to be sent through the mailbox gateway.
// InReplyTo carries the original message's Message-ID so the reply stays
// linked to its thread.
type OutgoingReply struct {
	To        string
	Subject   string
	Body      string
	ThreadID  string
	InReplyTo string
}

// Mailbox is the mailbox gateway the interpreter talks to. It is
// implemented by the Gmail client and by test stubs.
type Mailbox interface {
	List(ctx context.Context, unreadOnly bool, maxResults int64) ([]Message, error)
	Get(ctx context.Context, id string) (Message, error)
	Trash(ctx context.Context, id string) error
	SendReply(ctx context.Context, reply OutgoingReply) error
}

// Intent is a classified user intention, produced by the language model
// when no keyword rule matches.
type Intent string

// The closed label set the classifier may return.
const (
	IntentGreeting   Intent = "greeting"
	IntentShowEmails Intent = "show_emails"
	IntentSummarize  Intent = "summarize"
	IntentReply      Intent = "reply"
	IntentDelete     Intent = "delete"
	IntentHelp       Intent = "help"
	IntentUnknown    Intent = "unknown"
)

// Assistant is the language-model gateway. All operations are stateless
// text-in/text-out calls; tests substitute a deterministic stub.
type Assistant interface {
	Classify(ctx context.Context, text string) (Intent, error)
	Summarize(ctx context.Context, body string) (string, error)
	DraftReply(ctx context.Context, body, userName string) (string, error)
}

// ResponseType tags the three response shapes the interpreter produces.
type ResponseType string

const (
	ResponseText         ResponseType = "text"
	ResponseEmails       ResponseType = "emails"
	ResponseReplyPreview ResponseType = "reply_preview"
)

// Response is the single payload returned for a chat turn.
type Response struct {
	Type ResponseType `json:"type"`
	Data any          `json:"data"`
}

// ReplyPreview is the data payload of a reply_preview response.
type ReplyPreview struct {
	OriginalSubject string `json:"original_subject"`
	Reply           string `json:"reply"`
}

// TextResponse builds a plain text response.
func TextResponse(text string) Response {
	return Response{Type: ResponseText, Data: text}
}

// EmailsResponse builds an email list response.
func EmailsResponse(emails []EmailSummary) Response {
	return Response{Type: ResponseEmails, Data: emails}
}

// PreviewResponse builds a reply preview response.
func PreviewResponse(originalSubject, reply string) Response {
	return Response{Type: ResponseReplyPreview, Data: ReplyPreview{
		OriginalSubject: originalSubject,
		Reply:           reply,
	}}
}
