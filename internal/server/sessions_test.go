package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/postmind-ai/postmind/internal/chat"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	store := NewSessionStore(time.Hour, nil, nil)
	t.Cleanup(store.Stop)
	return store
}

func TestSessionStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)

	created := store.Create(chat.User{Email: "dana@example.com", Name: "Dana"}, &oauth2.Token{AccessToken: "tok"})
	if created.ID == "" {
		t.Fatal("expected a session ID")
	}
	if created.Chat == nil {
		t.Fatal("expected a chat session")
	}

	got, ok := store.Get(created.ID)
	if !ok {
		t.Fatal("expected session to be found")
	}
	if got.User.Email != "dana@example.com" {
		t.Errorf("user email = %q, want dana@example.com", got.User.Email)
	}
	if store.Count() != 1 {
		t.Errorf("Count() = %d, want 1", store.Count())
	}
}

func TestSessionStoreGetUnknown(t *testing.T) {
	store := newTestStore(t)

	if _, ok := store.Get("missing"); ok {
		t.Error("expected unknown session to be absent")
	}
	if _, ok := store.Get(""); ok {
		t.Error("expected empty ID to be absent")
	}
}

func TestSessionStoreDelete(t *testing.T) {
	store := newTestStore(t)
	created := store.Create(chat.User{Email: "dana@example.com"}, nil)

	store.Delete(created.ID)
	if _, ok := store.Get(created.ID); ok {
		t.Error("expected deleted session to be absent")
	}

	// Deleting again must not panic or go negative.
	store.Delete(created.ID)
	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}
}

func TestSessionStoreRemoveExpired(t *testing.T) {
	store := newTestStore(t)
	stale := store.Create(chat.User{Email: "old@example.com"}, nil)
	fresh := store.Create(chat.User{Email: "new@example.com"}, nil)

	store.mu.Lock()
	store.sessions[stale.ID].lastAccess = time.Now().Add(-2 * time.Hour)
	store.mu.Unlock()

	if removed := store.removeExpired(time.Now()); removed != 1 {
		t.Errorf("removeExpired() = %d, want 1", removed)
	}
	if _, ok := store.Get(stale.ID); ok {
		t.Error("expected stale session to be removed")
	}
	if _, ok := store.Get(fresh.ID); !ok {
		t.Error("expected fresh session to survive")
	}
}

func TestSessionStoreGetRefreshesLastAccess(t *testing.T) {
	store := newTestStore(t)
	created := store.Create(chat.User{Email: "dana@example.com"}, nil)

	store.mu.Lock()
	store.sessions[created.ID].lastAccess = time.Now().Add(-2 * time.Hour)
	store.mu.Unlock()

	// A Get within the timeout window keeps the session alive.
	if _, ok := store.Get(created.ID); !ok {
		t.Fatal("expected session")
	}
	if removed := store.removeExpired(time.Now()); removed != 0 {
		t.Errorf("removeExpired() = %d, want 0 after access refresh", removed)
	}
}

func TestSessionStoreFromRequest(t *testing.T) {
	store := newTestStore(t)
	created := store.Create(chat.User{Email: "dana@example.com"}, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if _, ok := store.FromRequest(r); ok {
		t.Error("expected no session without cookie")
	}

	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: created.ID})
	got, ok := store.FromRequest(r)
	if !ok {
		t.Fatal("expected session from cookie")
	}
	if got.ID != created.ID {
		t.Errorf("session ID = %q, want %q", got.ID, created.ID)
	}
}
