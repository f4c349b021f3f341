package profile_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	uierrors "github.com/hackhub-events/hackhub/internal/app/features/errors"
	"github.com/hackhub-events/hackhub/internal/app/features/profile"
	"github.com/hackhub-events/hackhub/internal/domain/models"
	"github.com/hackhub-events/hackhub/internal/testutil"
)

func newHandler(t *testing.T) (*profile.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := profile.NewHandler(db, uierrors.NewErrorLogger(logger), logger)
	return h, testutil.NewFixtures(t, db)
}

func TestServeProfile(t *testing.T) {
	h, fixtures := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "alice@test.com", "Alice")

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req = testutil.WithUser(req, testutil.AsUser(u))
	rec := httptest.NewRecorder()

	h.ServeProfile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Email != "alice@test.com" || got.DisplayName != "Alice" {
		t.Errorf("unexpected profile: %+v", got)
	}
	// Credentials never leave the server.
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("response leaks password hash field")
	}
}

func TestServeProfile_NoSession(t *testing.T) {
	h, _ := newHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()

	h.ServeProfile(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandlePatch(t *testing.T) {
	h, fixtures := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "alice@test.com", "Alice")

	req := httptest.NewRequest(http.MethodPatch, "/profile",
		strings.NewReader(`{"display_name":"Alice Cooper","bio":"I build things."}`))
	req = testutil.WithUser(req, testutil.AsUser(u))
	rec := httptest.NewRecorder()

	h.HandlePatch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.DisplayName != "Alice Cooper" || got.Bio != "I build things." {
		t.Errorf("patch not applied: %+v", got)
	}
	if !got.IsProfileComplete {
		t.Error("expected profile marked complete after naming")
	}
}

func TestHandlePatch_SanitizesBio(t *testing.T) {
	h, fixtures := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "alice@test.com", "Alice")

	req := httptest.NewRequest(http.MethodPatch, "/profile",
		strings.NewReader(`{"bio":"hello <script>alert(1)</script>world"}`))
	req = testutil.WithUser(req, testutil.AsUser(u))
	rec := httptest.NewRecorder()

	h.HandlePatch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if strings.Contains(got.Bio, "<script>") {
		t.Errorf("expected markup stripped from bio, got %q", got.Bio)
	}
}

func TestHandlePatch_Rejections(t *testing.T) {
	h, fixtures := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "alice@test.com", "Alice")

	cases := []struct {
		name string
		body string
	}{
		{"empty display name", `{"display_name":""}`},
		{"oversized bio", `{"bio":"` + strings.Repeat("x", 2001) + `"}`},
		{"malformed json", `{`},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPatch, "/profile", strings.NewReader(c.body))
		req = testutil.WithUser(req, testutil.AsUser(u))
		rec := httptest.NewRecorder()

		h.HandlePatch(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", c.name, rec.Code)
		}
	}
}
