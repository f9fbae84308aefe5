package chat

// PendingAction is a destructive action staged for confirmation. A session
// holds at most one; staging a new one replaces the old, and any turn that
// arrives while one is set consumes it.
type PendingAction interface {
	pendingAction()
}

// DeleteAction stages moving an email to the trash.
type DeleteAction struct {
	EmailID string
	From    string
	Subject string
}

func (DeleteAction) pendingAction() {}

// ReplyAction stages sending a drafted reply. All fields needed to send
// are captured at staging time so the send does not depend on session
// state that a later fetch might replace.
type ReplyAction struct {
	EmailID   string
	To        string
	Subject   string
	Body      string
	ThreadID  string
	MessageID string
}

func (ReplyAction) pendingAction() {}
