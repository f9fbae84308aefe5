package gmail

import (
	"encoding/base64"
	"testing"

	gmail "google.golang.org/api/gmail/v1"
)

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestHeaderValue(t *testing.T) {
	msg := &gmail.Message{
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Weekly report"},
				{Name: "From", Value: "Jane Doe <jane@example.com>"},
				{Name: "Message-ID", Value: "<abc@mail.example.com>"},
			},
		},
	}

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"exact case", "Subject", "Weekly report"},
		{"wrong case", "subject", ""},
		{"from header", "From", "Jane Doe <jane@example.com>"},
		{"missing header", "Reply-To", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeaderValue(msg, tt.header); got != tt.want {
				t.Errorf("HeaderValue(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}

	if got := HeaderValue(nil, "Subject"); got != "" {
		t.Errorf("HeaderValue(nil) = %q, want empty", got)
	}
	if got := HeaderValue(&gmail.Message{}, "Subject"); got != "" {
		t.Errorf("HeaderValue with nil payload = %q, want empty", got)
	}
}

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name string
		msg  *gmail.Message
		want string
	}{
		{
			name: "plain text at top level",
			msg: &gmail.Message{
				Payload: &gmail.MessagePart{
					MimeType: "text/plain",
					Body:     &gmail.MessagePartBody{Data: encode("Hello there")},
				},
			},
			want: "Hello there",
		},
		{
			name: "plain text preferred over html",
			msg: &gmail.Message{
				Payload: &gmail.MessagePart{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{
							MimeType: "text/html",
							Body:     &gmail.MessagePartBody{Data: encode("<p>HTML body</p>")},
						},
						{
							MimeType: "text/plain",
							Body:     &gmail.MessagePartBody{Data: encode("Plain body")},
						},
					},
				},
			},
			want: "Plain body",
		},
		{
			name: "html fallback when no plain part",
			msg: &gmail.Message{
				Payload: &gmail.MessagePart{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{
							MimeType: "text/html",
							Body:     &gmail.MessagePartBody{Data: encode("<html><body><p>Rendered text</p></body></html>")},
						},
					},
				},
			},
			want: "Rendered text",
		},
		{
			name: "nested multipart",
			msg: &gmail.Message{
				Payload: &gmail.MessagePart{
					MimeType: "multipart/mixed",
					Parts: []*gmail.MessagePart{
						{
							MimeType: "multipart/alternative",
							Parts: []*gmail.MessagePart{
								{
									MimeType: "text/plain",
									Body:     &gmail.MessagePartBody{Data: encode("Nested plain text")},
								},
							},
						},
						{
							MimeType: "application/pdf",
							Body:     &gmail.MessagePartBody{AttachmentId: "att1"},
						},
					},
				},
			},
			want: "Nested plain text",
		},
		{
			name: "blank line runs collapsed",
			msg: &gmail.Message{
				Payload: &gmail.MessagePart{
					MimeType: "text/plain",
					Body:     &gmail.MessagePartBody{Data: encode("First\n\n\n\n\nSecond")},
				},
			},
			want: "First\n\nSecond",
		},
		{
			name: "surrounding whitespace trimmed",
			msg: &gmail.Message{
				Payload: &gmail.MessagePart{
					MimeType: "text/plain",
					Body:     &gmail.MessagePartBody{Data: encode("\n\n  Trimmed  \n\n")},
				},
			},
			want: "Trimmed",
		},
		{
			name: "empty message",
			msg:  &gmail.Message{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractBody(tt.msg); got != tt.want {
				t.Errorf("ExtractBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"url encoding", base64.URLEncoding.EncodeToString([]byte("Hello")), "Hello"},
		{"raw url encoding", base64.RawURLEncoding.EncodeToString([]byte("Unpadded body!")), "Unpadded body!"},
		{"standard encoding", base64.StdEncoding.EncodeToString([]byte("Std body")), "Std body"},
		{"empty", "", ""},
		{"garbage", "not base64 at all!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeBody(tt.input); got != tt.want {
				t.Errorf("decodeBody(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "simple paragraph",
			html: "<p>Hello world</p>",
			want: "\nHello world\n",
		},
		{
			name: "script stripped",
			html: "<p>Visible</p><script>alert('hidden')</script>",
			want: "\nVisible\n",
		},
		{
			name: "style stripped",
			html: "<style>body { color: red }</style><div>Content</div>",
			want: "\nContent\n",
		},
		{
			name: "inline tags joined with spaces",
			html: "<span>Hello</span> <b>bold</b> world",
			want: "Hello bold world",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlToText(tt.html); got != tt.want {
				t.Errorf("htmlToText(%q) = %q, want %q", tt.html, got, tt.want)
			}
		})
	}
}
