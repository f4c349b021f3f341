package submissions_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"

	uierrors "github.com/hackhub-events/hackhub/internal/app/features/errors"
	"github.com/hackhub-events/hackhub/internal/app/features/submissions"

	"github.com/hackhub-events/hackhub/internal/domain/models"
	"github.com/hackhub-events/hackhub/internal/testutil"
)

func newHandler(t *testing.T) (*submissions.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	uploads, err := storage.NewLocal(storage.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "/uploads",
	})
	if err != nil {
		t.Fatalf("storage.NewLocal: %v", err)
	}
	h := submissions.NewHandler(db, uierrors.NewErrorLogger(logger), uploads, logger)
	return h, testutil.NewFixtures(t, db)
}

// multipartBody builds a multipart form with the given text fields and
// optional named files.
func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for field, filename := range files {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create file %s: %v", field, err)
		}
		if _, err := fw.Write([]byte("file-content")); err != nil {
			t.Fatalf("write file %s: %v", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func putSubmission(t *testing.T, h *submissions.Handler, u models.User, fields map[string]string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, files)
	req := httptest.NewRequest(http.MethodPut, "/submissions/mine", body)
	req.Header.Set("Content-Type", contentType)
	req = testutil.WithUser(req, testutil.AsUser(u))
	rec := httptest.NewRecorder()
	h.HandleSave(rec, req)
	return rec
}

func TestHandleSave_CreatesAndMerges(t *testing.T) {
	h, fixtures := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateUser(ctx, "lead@test.com", "Lead")
	team := fixtures.CreateTeam(ctx, "Builders", "BUILD1", leader)
	mate := fixtures.CreateUser(ctx, "mate@test.com", "Mate")
	fixtures.AddMember(ctx, team, mate)

	rec := putSubmission(t, h, leader, map[string]string{
		"title":        "HackBot",
		"summary":      "An assistant for hackathons.",
		"repo_url":     "https://github.com/example/hackbot",
		"technologies": "go, mongodb , react,,",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var sub models.Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if sub.TeamID != team.ID {
		t.Errorf("expected submission keyed by team, got %v", sub.TeamID)
	}
	if len(sub.Technologies) != 3 || sub.Technologies[0] != "go" {
		t.Errorf("expected trimmed technologies, got %v", sub.Technologies)
	}

	// A teammate updating one field leaves the rest intact.
	rec = putSubmission(t, h, mate, map[string]string{
		"demo_url": "https://hackbot.example.com",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("merge save: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if sub.Title != "HackBot" {
		t.Errorf("expected title preserved across merge, got %q", sub.Title)
	}
	if sub.DemoURL != "https://hackbot.example.com" {
		t.Errorf("expected demo url set, got %q", sub.DemoURL)
	}
	if sub.UpdatedBy != mate.ID {
		t.Errorf("expected last editor recorded, got %v", sub.UpdatedBy)
	}
}

func TestHandleSave_FileSlots(t *testing.T) {
	h, fixtures := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "lead@test.com", "Lead")
	fixtures.CreateTeam(ctx, "Uploaders", "UPLD01", u)

	rec := putSubmission(t, h, u,
		map[string]string{"title": "Project"},
		map[string]string{"project_image": "shot.png", "presentation": "deck.pdf"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var sub models.Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(sub.ProjectImageURL, "/uploads/") || !strings.HasSuffix(sub.ProjectImageURL, ".png") {
		t.Errorf("unexpected project image url %q", sub.ProjectImageURL)
	}
	if !strings.HasSuffix(sub.PresentationURL, ".pdf") {
		t.Errorf("unexpected presentation url %q", sub.PresentationURL)
	}

	// A metadata-only save keeps earlier uploads.
	imageURL := sub.ProjectImageURL
	rec = putSubmission(t, h, u, map[string]string{"summary": "Updated."}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second save: expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if sub.ProjectImageURL != imageURL {
		t.Errorf("expected image url preserved, got %q", sub.ProjectImageURL)
	}
}

func TestHandleSave_Rejections(t *testing.T) {
	h, fixtures := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "lead@test.com", "Lead")
	fixtures.CreateTeam(ctx, "Strict", "STRC01", u)

	cases := []struct {
		name   string
		fields map[string]string
		files  map[string]string
	}{
		{"empty title", map[string]string{"title": "  "}, nil},
		{"bad repo url", map[string]string{"repo_url": "not-a-url"}, nil},
		{"javascript url", map[string]string{"demo_url": "javascript:alert(1)"}, nil},
		{"wrong image type", map[string]string{}, map[string]string{"project_image": "malware.exe"}},
		{"wrong deck type", map[string]string{}, map[string]string{"presentation": "deck.html"}},
	}
	for _, c := range cases {
		rec := putSubmission(t, h, u, c.fields, c.files)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", c.name, rec.Code)
		}
	}
}

func TestHandleSave_RequiresTeam(t *testing.T) {
	h, fixtures := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "loner@test.com", "Loner")

	rec := putSubmission(t, h, u, map[string]string{"title": "Solo"}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without a team, got %d", rec.Code)
	}
}

func TestServeMine(t *testing.T) {
	h, fixtures := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "lead@test.com", "Lead")
	fixtures.CreateTeam(ctx, "Readers", "READ01", u)

	req := httptest.NewRequest(http.MethodGet, "/submissions/mine", nil)
	req = testutil.WithUser(req, testutil.AsUser(u))
	rec := httptest.NewRecorder()
	h.ServeMine(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before first save, got %d", rec.Code)
	}

	if rec := putSubmission(t, h, u, map[string]string{"title": "Now"}, nil); rec.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/submissions/mine", nil)
	req = testutil.WithUser(req, testutil.AsUser(u))
	rec = httptest.NewRecorder()
	h.ServeMine(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after save, got %d", rec.Code)
	}
}

func TestServeList(t *testing.T) {
	h, fixtures := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "lead@test.com", "Lead")
	fixtures.CreateTeam(ctx, "Listed", "LIST01", u)
	if rec := putSubmission(t, h, u, map[string]string{"title": "Entry"}, nil); rec.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/submissions", nil)
	req = testutil.WithUser(req, testutil.AdminUser())
	rec := httptest.NewRecorder()
	h.ServeList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var page struct {
		Items   []models.Submission `json:"items"`
		Start   int                 `json:"start"`
		HasNext bool                `json:"has_next"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Title != "Entry" {
		t.Errorf("unexpected listing: %+v", page.Items)
	}
	if page.Start != 1 || page.HasNext {
		t.Errorf("unexpected page envelope: start=%d has_next=%v", page.Start, page.HasNext)
	}
}
