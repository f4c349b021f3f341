// internal/app/features/submissions/handler.go
package submissions

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	uierrors "github.com/hackhub-events/hackhub/internal/app/features/errors"
	submissionstore "github.com/hackhub-events/hackhub/internal/app/store/submissions"
	teamstore "github.com/hackhub-events/hackhub/internal/app/store/teams"
	"github.com/hackhub-events/hackhub/internal/app/system/auth"
	"github.com/hackhub-events/hackhub/internal/app/system/paging"
	"github.com/hackhub-events/hackhub/internal/app/system/timeouts"
)

const (
	// maxUploadBytes bounds a single multipart save (both slots included).
	maxUploadBytes = 16 << 20
	maxTitleLength = 200
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}
var presentationExts = map[string]bool{".pdf": true, ".ppt": true, ".pptx": true, ".key": true}

// Handler owns the project submission endpoints. A submission belongs to a
// team; any member may read or save it.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	Subs     *submissionstore.Store
	Teams    *teamstore.Store
	Storage  storage.Store
	sanitize *bluemonday.Policy
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, store storage.Store, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		Subs:     submissionstore.New(db),
		Teams:    teamstore.New(db),
		Storage:  store,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// ServeMine handles GET /submissions/mine: the caller's team submission.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	teamID, ok := h.callerTeam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sub, err := h.Subs.GetByTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, submissionstore.ErrNotFound) {
			h.ErrLog.LogNotFound(w, r, "no submission for team", "Your team has not submitted a project yet.")
			return
		}
		h.ErrLog.LogServerError(w, r, "DB load submission", err, "A server error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, sub)
}

// HandleSave handles PUT /submissions/mine. The body is multipart form
// data: text fields plus the optional project_image and presentation file
// slots. Saves merge, so teammates editing different fields do not clobber
// each other, and omitting a file keeps the previous upload.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		h.ErrLog.LogUnauthorized(w, r, "no session user", "Sign in required.")
		return
	}
	uid, err := u.UID()
	if err != nil {
		h.ErrLog.LogUnauthorized(w, r, "malformed session user id", "Sign in required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	team, _, err := h.Teams.GetForUser(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "DB load team for submission", err, "A server error occurred.")
		return
	}
	if team == nil {
		h.ErrLog.LogForbidden(w, r, "submission without a team", "Join a team before submitting a project.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse multipart form", err, "Invalid or oversized form data.")
		return
	}

	fields, ok := h.collectFields(w, r)
	if !ok {
		return
	}

	// File slots. Uploaded paths are remembered so a failed database write
	// does not strand files in storage.
	var uploaded []string
	if info, ok, failed := h.saveSlot(w, r, "project_image", imageExts); failed {
		return
	} else if ok {
		fileURL := h.Storage.URL(info.Path)
		fields.ProjectImageURL = &fileURL
		uploaded = append(uploaded, info.Path)
	}
	if info, ok, failed := h.saveSlot(w, r, "presentation", presentationExts); failed {
		return
	} else if ok {
		fileURL := h.Storage.URL(info.Path)
		fields.PresentationURL = &fileURL
		uploaded = append(uploaded, info.Path)
	}

	sub, err := h.Subs.Upsert(ctx, team.ID, uid, fields)
	if err != nil {
		for _, path := range uploaded {
			if delErr := h.Storage.Delete(ctx, path); delErr != nil {
				h.Log.Error("failed to clean up uploaded file",
					zap.Error(delErr),
					zap.String("path", path))
			}
		}
		h.ErrLog.LogServerError(w, r, "DB save submission", err, "A server error occurred.")
		return
	}

	h.Log.Info("submission saved",
		zap.String("team_id", team.ID.Hex()),
		zap.String("user_id", u.ID))
	uierrors.WriteJSON(w, http.StatusOK, sub)
}

// ServeList handles GET /submissions: admin listing of every submission.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	start := paging.ParseStart(r)
	subs, err := h.Subs.List(ctx, paging.Skip(start), paging.LimitPlusOne())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "DB list submissions", err, "A server error occurred.")
		return
	}
	hasNext := paging.Trim(&subs)
	uierrors.WriteJSON(w, http.StatusOK, paging.NewPage(subs, start, hasNext))
}

// collectFields reads the text fields present in the form. Absent fields
// stay nil so the store's merge leaves them untouched.
func (h *Handler) collectFields(w http.ResponseWriter, r *http.Request) (submissionstore.Fields, bool) {
	var fields submissionstore.Fields

	if v, present := formField(r, "title"); present {
		v = strings.TrimSpace(v)
		if v == "" {
			h.ErrLog.LogBadRequest(w, r, "submission with empty title", nil, "Title must not be empty.")
			return fields, false
		}
		if len(v) > maxTitleLength {
			h.ErrLog.LogBadRequest(w, r, "submission title too long", nil, "Title is too long.")
			return fields, false
		}
		fields.Title = &v
	}
	if v, present := formField(r, "summary"); present {
		clean := h.sanitize.Sanitize(v)
		fields.Summary = &clean
	}
	for name, dst := range map[string]**string{
		"repo_url": &fields.RepoURL,
		"demo_url": &fields.DemoURL,
	} {
		v, present := formField(r, name)
		if !present {
			continue
		}
		v = strings.TrimSpace(v)
		if v != "" && !validHTTPURL(v) {
			h.ErrLog.LogBadRequest(w, r, "submission with invalid "+name, nil, "Links must be http or https URLs.")
			return fields, false
		}
		*dst = &v
	}
	if v, present := formField(r, "technologies"); present {
		techs := []string{}
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				techs = append(techs, t)
			}
		}
		fields.Technologies = &techs
	}
	return fields, true
}

// saveSlot stores one named file slot if the form carries it. The bool pair
// is (saved, failed); failed means a response was already written.
func (h *Handler) saveSlot(w http.ResponseWriter, r *http.Request, field string, allowed map[string]bool) (UploadInfo, bool, bool) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return UploadInfo{}, false, false
	}
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "read "+field+" upload", err, "Could not read the uploaded file.")
		return UploadInfo{}, false, true
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowed[ext] {
		h.ErrLog.LogBadRequest(w, r, "unsupported "+field+" file type", nil, "That file type is not supported for this slot.")
		return UploadInfo{}, false, true
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := uploadFile(r.Context(), h.Storage, header.Filename, file, header.Size, contentType)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "store "+field+" upload", err, "Could not store the uploaded file.")
		return UploadInfo{}, false, true
	}
	return info, true, false
}

// callerTeam resolves the caller's team ID, writing the error response when
// they are signed out or unaffiliated.
func (h *Handler) callerTeam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		h.ErrLog.LogUnauthorized(w, r, "no session user", "Sign in required.")
		return primitive.NilObjectID, false
	}
	uid, err := u.UID()
	if err != nil {
		h.ErrLog.LogUnauthorized(w, r, "malformed session user id", "Sign in required.")
		return primitive.NilObjectID, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	team, _, err := h.Teams.GetForUser(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "DB load team", err, "A server error occurred.")
		return primitive.NilObjectID, false
	}
	if team == nil {
		h.ErrLog.LogForbidden(w, r, "submission access without a team", "Join a team first.")
		return primitive.NilObjectID, false
	}
	return team.ID, true
}

func formField(r *http.Request, name string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	vals, ok := r.MultipartForm.Value[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func validHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
