package authgoogle_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hackhub-events/hackhub/internal/app/features/authgoogle"
	uierrors "github.com/hackhub-events/hackhub/internal/app/features/errors"
	loginstore "github.com/hackhub-events/hackhub/internal/app/store/logins"
	"github.com/hackhub-events/hackhub/internal/app/store/oauthstate"
	sessionauth "github.com/hackhub-events/hackhub/internal/app/system/auth"
	"github.com/hackhub-events/hackhub/internal/testutil"
)

func timeAhead() time.Time {
	return time.Now().UTC().Add(10 * time.Minute)
}

func newHandler(t *testing.T, clientID string) *authgoogle.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sm, err := sessionauth.NewSessionManager("test-session-key-32-bytes-long!!", "hackhub_test", "", false, logger)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return authgoogle.NewHandler(db, sm, uierrors.NewErrorLogger(logger),
		loginstore.New(db), oauthstate.New(db),
		clientID, "secret", "http://localhost:8080", logger)
}

func TestServeLogin_NotConfigured(t *testing.T) {
	h := newHandler(t, "")

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rec := httptest.NewRecorder()

	h.ServeLogin(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "google_not_configured") {
		t.Errorf("expected not-configured error redirect, got %q", loc)
	}
}

func TestServeLogin_RedirectsToGoogle(t *testing.T) {
	h := newHandler(t, "client-id")

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rec := httptest.NewRecorder()

	h.ServeLogin(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307 to consent screen, got %d", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.Contains(loc, "accounts.google.com") {
		t.Errorf("expected Google consent URL, got %q", loc)
	}
	if !strings.Contains(loc, "state=") {
		t.Errorf("expected state parameter, got %q", loc)
	}
}

func TestServeCallback_RejectsBadState(t *testing.T) {
	h := newHandler(t, "client-id")

	cases := []struct {
		name string
		url  string
		want string
	}{
		{"provider error", "/auth/google/callback?error=access_denied", "google_denied"},
		{"missing state", "/auth/google/callback?code=abc", "invalid_state"},
		{"unknown state", "/auth/google/callback?code=abc&state=never-stored", "invalid_state"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, c.url, nil)
		rec := httptest.NewRecorder()

		h.ServeCallback(rec, req)

		if rec.Code != http.StatusSeeOther {
			t.Errorf("%s: expected redirect, got %d", c.name, rec.Code)
			continue
		}
		if loc := rec.Header().Get("Location"); !strings.Contains(loc, c.want) {
			t.Errorf("%s: expected %q in redirect, got %q", c.name, c.want, loc)
		}
	}
}

func TestServeCallback_StateIsOneTimeUse(t *testing.T) {
	h := newHandler(t, "client-id")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Store a state as ServeLogin would, then present it without a code.
	if err := h.StateStore.Save(ctx, "known-state", "", timeAhead()); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=known-state", nil)
	rec := httptest.NewRecorder()
	h.ServeCallback(rec, req)
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "invalid_code") {
		t.Errorf("expected invalid_code redirect for missing code, got %q", loc)
	}

	// The state was consumed by the first presentation.
	req = httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=known-state&code=abc", nil)
	rec = httptest.NewRecorder()
	h.ServeCallback(rec, req)
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "invalid_state") {
		t.Errorf("expected invalid_state redirect on replay, got %q", loc)
	}
}
