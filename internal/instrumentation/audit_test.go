package instrumentation

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestMailboxActionComplete(t *testing.T) {
	a := NewMailboxAction("trash", "msg123")
	a.Complete(nil)

	if !a.Success {
		t.Error("expected Success after Complete(nil)")
	}
	if a.Status() != StatusSuccess {
		t.Errorf("Status() = %q, want %q", a.Status(), StatusSuccess)
	}

	a = NewMailboxAction("send_reply", "msg123")
	a.Complete(errors.New("rate limited"))

	if a.Success {
		t.Error("expected failure after Complete(err)")
	}
	if a.Error != "rate limited" {
		t.Errorf("Error = %q, want %q", a.Error, "rate limited")
	}
	if a.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", a.Status(), StatusError)
	}
}

func TestMailboxActionUserDomain(t *testing.T) {
	a := NewMailboxAction("trash", "msg123").WithUser("jane@example.com")
	if a.UserDomain() != "example.com" {
		t.Errorf("UserDomain() = %q, want %q", a.UserDomain(), "example.com")
	}

	a = NewMailboxAction("trash", "msg123").WithUser("not-an-email")
	if a.UserDomain() != "" {
		t.Errorf("UserDomain() = %q, want empty", a.UserDomain())
	}
}

func TestAuditLoggerOmitsPIIByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	al := NewAuditLogger(logger)
	action := NewMailboxAction("send_reply", "msg123").
		WithUser("jane@example.com").
		WithRecipient("bob@example.com", "thread456").
		Complete(nil)
	al.LogMailboxAction(action)

	out := buf.String()
	if strings.Contains(out, "jane@example.com") {
		t.Errorf("audit log leaked user email: %s", out)
	}
	if strings.Contains(out, "bob@example.com") {
		t.Errorf("audit log leaked recipient email: %s", out)
	}
	if !strings.Contains(out, "thread456") {
		t.Errorf("audit log missing thread id: %s", out)
	}
	if !strings.Contains(out, "mailbox_action") {
		t.Errorf("audit log missing event name: %s", out)
	}
}

func TestAuditLoggerIncludesPIIWhenConfigured(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, IncludePII: true})
	action := NewMailboxAction("send_reply", "msg123").
		WithUser("jane@example.com").
		WithRecipient("bob@example.com", "thread456").
		Complete(nil)
	al.LogMailboxAction(action)

	out := buf.String()
	if !strings.Contains(out, "jane@example.com") {
		t.Errorf("audit log missing user email with PII enabled: %s", out)
	}
	if !strings.Contains(out, "bob@example.com") {
		t.Errorf("audit log missing recipient with PII enabled: %s", out)
	}
}

func TestAuditLoggerDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: false})
	al.LogMailboxAction(NewMailboxAction("trash", "msg123").Complete(nil))

	if buf.Len() != 0 {
		t.Errorf("disabled audit logger wrote output: %s", buf.String())
	}
}
