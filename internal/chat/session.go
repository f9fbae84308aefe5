package chat

import "sync"

// User identifies the authenticated mailbox owner.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session is the per-user conversation state. Turns for the same session
// are serialized by the caller through Lock/Unlock so that the pending
// action and the email snapshot never interleave between turns.
type Session struct {
	mu sync.Mutex

	User User

	// LastEmails is the snapshot from the most recent fetch. Reference
	// resolution only ever looks at this snapshot, never at the mailbox.
	LastEmails []EmailSummary

	// LastSelected is the email most recently acted on, used to resolve
	// "that" and "this".
	LastSelected *EmailSummary

	// Pending is the action awaiting confirmation, if any.
	Pending PendingAction
}

// Lock serializes turns for this session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the turn lock.
func (s *Session) Unlock() { s.mu.Unlock() }
