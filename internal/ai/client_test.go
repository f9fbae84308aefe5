package ai

import (
	"strings"
	"testing"

	"github.com/postmind-ai/postmind/internal/chat"
)

func TestConfigValidate(t *testing.T) {
	if err := (&Config{}).Validate(); err == nil {
		t.Error("expected error for missing API key")
	}
	if err := (&Config{APIKey: "gsk_test"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(Config{APIKey: "gsk_test"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.model != DefaultModel {
		t.Errorf("model = %q, want %q", c.model, DefaultModel)
	}
}

func TestNewClientRejectsMissingKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
	}{
		{"short body unchanged", "short email body", len("short email body")},
		{"exact limit unchanged", strings.Repeat("a", maxBodyChars), maxBodyChars},
		{"long body capped", strings.Repeat("a", maxBodyChars*2), maxBodyChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input); len(got) != tt.wantLen {
				t.Errorf("len(truncate()) = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// Position a multi-byte rune across the cut point.
	body := strings.Repeat("a", maxBodyChars-1) + "ü" + strings.Repeat("b", 100)
	got := truncate(body)
	if len(got) > maxBodyChars {
		t.Errorf("len = %d, want <= %d", len(got), maxBodyChars)
	}
	for _, r := range got {
		if r == '�' {
			t.Fatal("truncation split a rune")
		}
	}
}

func TestNormalizeIntent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  chat.Intent
	}{
		{"exact label", "delete", chat.IntentDelete},
		{"upper case", "SHOW_EMAILS", chat.IntentShowEmails},
		{"surrounding whitespace", "  reply\n", chat.IntentReply},
		{"quoted label", `"summarize"`, chat.IntentSummarize},
		{"trailing period", "greeting.", chat.IntentGreeting},
		{"help", "help", chat.IntentHelp},
		{"chatty model output", "The intent is: delete", chat.IntentUnknown},
		{"made up label", "archive", chat.IntentUnknown},
		{"empty", "", chat.IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeIntent(tt.input); got != tt.want {
				t.Errorf("normalizeIntent(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
