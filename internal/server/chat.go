package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/postmind-ai/postmind/internal/chat"
	"github.com/postmind-ai/postmind/internal/logging"
)

// chatRequest is the payload of POST /api/chat.
type chatRequest struct {
	Message string `json:"message"`
}

// handleChat runs one conversation turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sc.sessions.FromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	mailbox, err := s.sc.Mailbox(r.Context(), session)
	if err != nil {
		s.logger.LogAttrs(r.Context(), slog.LevelError, "mailbox init failed",
			logging.Operation("chat"), logging.Err(err))
		writeJSON(w, http.StatusOK, chat.TextResponse(retryMessage))
		return
	}

	session.Chat.Lock()
	defer session.Chat.Unlock()

	resp, err := s.sc.Interpreter(mailbox).HandleTurn(r.Context(), session.Chat, req.Message)
	if err != nil {
		// Upstream outages become a normal chat reply so the
		// conversation keeps flowing; anything else is a server bug.
		var upstream *chat.UpstreamError
		if errors.As(err, &upstream) {
			writeJSON(w, http.StatusOK, chat.TextResponse(retryMessage))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

const retryMessage = "Sorry, I'm having trouble reaching your email right now. Please try again in a moment."
