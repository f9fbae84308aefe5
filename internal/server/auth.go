package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/postmind-ai/postmind/internal/chat"
	"github.com/postmind-ai/postmind/internal/instrumentation"
	"github.com/postmind-ai/postmind/internal/logging"
)

// stateCookieName carries the OAuth CSRF state between the login redirect
// and the provider callback.
const stateCookieName = "postmind_oauth_state"

const stateCookieMaxAge = 10 * time.Minute

// handleLogin starts the OAuth flow: it sets a one-shot state cookie and
// redirects the browser to Google's consent screen.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.sc.oauth.AuthURL(state), http.StatusFound)
}

// handleCallback completes the OAuth flow. On success the browser ends up
// back on the front-end with a session cookie; on any failure it ends up
// there with an error query parameter and no session.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, stateCookieName)

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		s.loginFailed(w, r, "state mismatch", nil)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		s.loginFailed(w, r, "missing authorization code", nil)
		return
	}

	token, err := s.sc.oauth.Exchange(r.Context(), code)
	if err != nil {
		s.loginFailed(w, r, "code exchange failed", err)
		return
	}

	info, err := s.sc.oauth.Userinfo(r.Context(), token)
	if err != nil {
		s.loginFailed(w, r, "userinfo fetch failed", err)
		return
	}

	session := s.sc.sessions.Create(chat.User{Email: info.Email, Name: info.Name}, token)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   int(s.sc.sessions.timeout.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.sc.Metrics().RecordOAuthLogin(r.Context(), instrumentation.OAuthResultSuccess)
	s.logger.LogAttrs(r.Context(), slog.LevelInfo, "user logged in",
		logging.Operation("oauth_callback"),
		logging.UserHash(info.Email),
		logging.SessionID(session.ID),
	)

	http.Redirect(w, r, s.sc.config.ClientURL, http.StatusFound)
}

func (s *Server) loginFailed(w http.ResponseWriter, r *http.Request, reason string, err error) {
	s.sc.Metrics().RecordOAuthLogin(r.Context(), instrumentation.OAuthResultFailure)
	s.logger.LogAttrs(r.Context(), slog.LevelWarn, "login failed",
		logging.Operation("oauth_callback"),
		logging.Status(reason),
		logging.Err(err),
	)

	target := s.sc.config.ClientURL
	if u, parseErr := url.Parse(target); parseErr == nil {
		q := u.Query()
		q.Set("error", "auth_failed")
		u.RawQuery = q.Encode()
		target = u.String()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// handleLogout drops the session and clears the cookie. Logging out
// without a session is not an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		s.sc.sessions.Delete(cookie.Value)
	}
	clearCookie(w, SessionCookieName)
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	Authenticated bool       `json:"authenticated"`
	User          *chat.User `json:"user,omitempty"`
}

// handleMe reports whether the request carries a live session and, if
// so, who the user is.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sc.sessions.FromRequest(r)
	if !ok {
		writeJSON(w, http.StatusOK, meResponse{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Authenticated: true, User: &session.User})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
