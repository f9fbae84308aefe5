// Package gmail implements the mailbox gateway on top of the Gmail API.
// All operations act on the authenticated user's inbox ("me") and return
// the chat package's domain types with bodies already extracted to plain
// text.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/postmind-ai/postmind/internal/chat"
)

// Inbox queries. The primary category filter keeps promotions and social
// noise out of the conversational listing.
const (
	inboxQuery  = "in:inbox category:primary"
	unreadQuery = "in:inbox is:unread category:primary"
)

const defaultMaxResults = 5

// Client wraps the Gmail Users service for a single authenticated user.
type Client struct {
	svc *gmail.UsersService
}

// NewClient creates a Gmail client from an OAuth2 token source. The token
// source refreshes expired access tokens transparently.
func NewClient(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// List returns the most recent inbox messages, newest first. Each listed
// message is fetched in full so callers get headers and body in one call,
// matching how the listing is consumed downstream.
func (c *Client) List(ctx context.Context, unreadOnly bool, maxResults int64) ([]chat.Message, error) {
	q := inboxQuery
	if unreadOnly {
		q = unreadQuery
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	res, err := c.svc.Messages.List("me").Q(q).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]chat.Message, 0, len(res.Messages))
	for _, ref := range res.Messages {
		full, err := c.svc.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get message %s: %w", ref.Id, err)
		}
		messages = append(messages, toMessage(full))
	}
	return messages, nil
}

// Get retrieves a single message in full.
func (c *Client) Get(ctx context.Context, id string) (chat.Message, error) {
	if id == "" {
		return chat.Message{}, fmt.Errorf("message id is required")
	}
	full, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return toMessage(full), nil
}

// Trash moves a message to the trash. Gmail keeps trashed messages for
// 30 days, so this stays recoverable from the Gmail UI.
func (c *Client) Trash(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("message id is required")
	}
	if _, err := c.svc.Messages.Trash("me", id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to trash message %s: %w", id, err)
	}
	return nil
}

// SendReply sends a plain text reply on the original message's thread.
// The In-Reply-To and References headers keep the reply attached to the
// conversation in the recipient's client as well.
func (c *Client) SendReply(ctx context.Context, reply chat.OutgoingReply) error {
	if reply.To == "" {
		return fmt.Errorf("recipient is required")
	}
	if reply.Body == "" {
		return fmt.Errorf("body is required")
	}
	if reply.ThreadID == "" {
		return fmt.Errorf("thread id is required")
	}

	var b strings.Builder
	b.WriteString("To: ")
	b.WriteString(reply.To)
	b.WriteString("\r\n")
	b.WriteString("Subject: ")
	b.WriteString(encodeRFC2047(reply.Subject))
	b.WriteString("\r\n")
	if reply.InReplyTo != "" {
		b.WriteString("In-Reply-To: ")
		b.WriteString(reply.InReplyTo)
		b.WriteString("\r\n")
		b.WriteString("References: ")
		b.WriteString(reply.InReplyTo)
		b.WriteString("\r\n")
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(reply.Body)

	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(b.String())),
		ThreadId: reply.ThreadID,
	}
	if _, err := c.svc.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// toMessage converts an API message into the domain type.
func toMessage(m *gmail.Message) chat.Message {
	return chat.Message{
		ID:        m.Id,
		ThreadID:  m.ThreadId,
		Subject:   HeaderValue(m, "Subject"),
		From:      HeaderValue(m, "From"),
		MessageID: HeaderValue(m, "Message-ID"),
		Unread:    hasLabel(m, "UNREAD"),
		Body:      ExtractBody(m),
	}
}

func hasLabel(m *gmail.Message, label string) bool {
	for _, l := range m.LabelIds {
		if l == label {
			return true
		}
	}
	return false
}

// encodeRFC2047 encodes a header value for non-ASCII characters. ASCII
// values pass through unchanged.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
