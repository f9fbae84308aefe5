package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/postmind-ai/postmind/internal/chat"
	"github.com/postmind-ai/postmind/internal/logging"
)

// emailsResponse is the payload of GET /api/emails.
type emailsResponse struct {
	Emails []chat.EmailSummary `json:"emails"`
}

// handleEmails lists and summarizes recent inbox emails. ?unread=true
// restricts the listing to unread messages.
func (s *Server) handleEmails(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sc.sessions.FromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	unreadOnly := false
	switch r.URL.Query().Get("unread") {
	case "1", "true", "yes":
		unreadOnly = true
	}

	mailbox, err := s.sc.Mailbox(r.Context(), session)
	if err != nil {
		s.logger.LogAttrs(r.Context(), slog.LevelError, "mailbox init failed",
			logging.Operation("list_emails"), logging.Err(err))
		writeError(w, http.StatusBadGateway, "mailbox unavailable")
		return
	}

	session.Chat.Lock()
	defer session.Chat.Unlock()

	emails, err := s.sc.Interpreter(mailbox).ListEmails(r.Context(), session.Chat, unreadOnly)
	if err != nil {
		var upstream *chat.UpstreamError
		if errors.As(err, &upstream) {
			writeError(w, http.StatusBadGateway, "upstream provider unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if emails == nil {
		emails = []chat.EmailSummary{}
	}
	writeJSON(w, http.StatusOK, emailsResponse{Emails: emails})
}
