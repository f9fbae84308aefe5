package chat

import "testing"

func snapshotSession() *Session {
	return &Session{
		LastEmails: []EmailSummary{
			{ID: "m1", Subject: "Project kickoff notes", From: "Alice <alice@example.com>"},
			{ID: "m2", Subject: "Invoice #42 overdue", From: "billing@acme.com"},
			{ID: "m3", Subject: "Lunch on Friday?", From: "Bob <bob@example.com>"},
		},
	}
}

func TestFindEmail(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		wantID string
	}{
		{"latest keyword", "summarize the latest email", "m1"},
		{"last keyword", "delete the last one", "m1"},
		{"ordinal in range", "delete email 2", "m2"},
		{"ordinal first", "reply to email 1", "m1"},
		{"ordinal out of range", "delete email 9", ""},
		{"ordinal zero", "delete email 0", ""},
		{"sender match", "summarize the email from alice", "m1"},
		{"sender match bare address", "delete the mail from billing@acme.com", "m2"},
		{"sender no match", "delete the email from mallory", ""},
		{"subject word", "summarize the invoice email", "m2"},
		{"subject word case insensitive", "reply to the lunch mail", "m3"},
		{"only stop words", "delete the email please", ""},
		{"short words ignored", "rm it", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findEmail(snapshotSession(), tt.text)
			if tt.wantID == "" {
				if got != nil {
					t.Errorf("findEmail(%q) = %v, want no match", tt.text, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("findEmail(%q) = nil, want %s", tt.text, tt.wantID)
			}
			if got.ID != tt.wantID {
				t.Errorf("findEmail(%q) = %s, want %s", tt.text, got.ID, tt.wantID)
			}
		})
	}
}

func TestFindEmailAnaphora(t *testing.T) {
	sess := snapshotSession()

	if got := findEmail(sess, "delete that email"); got != nil {
		t.Errorf("anaphora without selection = %v, want no match", got)
	}

	sess.LastSelected = &EmailSummary{ID: "m3", Subject: "Lunch on Friday?"}
	got := findEmail(sess, "delete that email")
	if got == nil || got.ID != "m3" {
		t.Errorf("anaphora with selection = %v, want m3", got)
	}

	got = findEmail(sess, "reply to this one")
	if got == nil || got.ID != "m3" {
		t.Errorf("\"this\" with selection = %v, want m3", got)
	}
}

func TestFindEmailEmptySnapshot(t *testing.T) {
	sess := &Session{}
	for _, text := range []string{"the latest email", "email 1", "from alice", "that email"} {
		if got := findEmail(sess, text); got != nil {
			t.Errorf("findEmail(%q) on empty snapshot = %v, want nil", text, got)
		}
	}
}

func TestFindEmailReturnsCopy(t *testing.T) {
	sess := snapshotSession()
	got := findEmail(sess, "email 1")
	if got == nil {
		t.Fatal("expected a match")
	}
	got.Subject = "mutated"
	if sess.LastEmails[0].Subject != "Project kickoff notes" {
		t.Error("resolver result aliases the session snapshot")
	}
}
