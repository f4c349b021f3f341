// internal/app/features/announcements/handler.go
package announcements

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	uierrors "github.com/hackhub-events/hackhub/internal/app/features/errors"
	announcementstore "github.com/hackhub-events/hackhub/internal/app/store/announcements"
	"github.com/hackhub-events/hackhub/internal/app/system/auth"
	"github.com/hackhub-events/hackhub/internal/app/system/timeouts"
	"github.com/hackhub-events/hackhub/internal/domain/models"
)

const maxContentLength = 10000

// Handler owns the announcement endpoints. Participants see the active
// window; admins author and manage the full set.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	Store    *announcementstore.Store
	sanitize *bluemonday.Policy
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		Store:    announcementstore.New(db),
		// Announcements allow basic formatting; scripts and event handlers
		// are stripped.
		sanitize: bluemonday.UGCPolicy(),
	}
}

// ServeActive handles GET /announcements: what participants see now.
func (h *Handler) ServeActive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Store.ListActive(ctx, time.Now().UTC())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "DB list active announcements", err, "A server error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

// ServeAll handles GET /announcements/all: the admin management view.
func (h *Handler) ServeAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Store.ListAll(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "DB list announcements", err, "A server error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

type createRequest struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Type        string     `json:"type"`
	Active      *bool      `json:"active"`
	Dismissible *bool      `json:"dismissible"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

// HandleCreate handles POST /announcements.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode announcement create", err, "Invalid request body.")
		return
	}
	if req.Title == "" || req.Content == "" {
		h.ErrLog.LogBadRequest(w, r, "announcement without title or content", nil, "Title and content are required.")
		return
	}
	if len(req.Content) > maxContentLength {
		h.ErrLog.LogBadRequest(w, r, "announcement content too long", nil, "Content is too long.")
		return
	}
	annType, ok := parseType(req.Type)
	if !ok {
		h.ErrLog.LogBadRequest(w, r, "unknown announcement type", nil, "Type must be info, warning, or urgent.")
		return
	}
	if req.StartsAt != nil && req.EndsAt != nil && !req.EndsAt.After(*req.StartsAt) {
		h.ErrLog.LogBadRequest(w, r, "announcement window inverted", nil, "The end of the window must be after its start.")
		return
	}

	a := models.Announcement{
		Title:       req.Title,
		Content:     h.sanitize.Sanitize(req.Content),
		Type:        annType,
		Active:      true,
		Dismissible: true,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		CreatedBy:   uid,
	}
	if req.Active != nil {
		a.Active = *req.Active
	}
	if req.Dismissible != nil {
		a.Dismissible = *req.Dismissible
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := h.Store.Create(ctx, a)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "DB create announcement", err, "A server error occurred.")
		return
	}

	h.Log.Info("announcement created",
		zap.String("announcement_id", created.ID.Hex()),
		zap.String("user_id", u.ID))
	uierrors.WriteJSON(w, http.StatusCreated, created)
}

type patchRequest struct {
	Title       *string    `json:"title"`
	Content     *string    `json:"content"`
	Type        *string    `json:"type"`
	Active      *bool      `json:"active"`
	Dismissible *bool      `json:"dismissible"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	ClearWindow bool       `json:"clear_window"`
}

// HandlePatch handles PATCH /announcements/{id}.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode announcement patch", err, "Invalid request body.")
		return
	}

	patch := announcementstore.Patch{
		Title:       req.Title,
		Active:      req.Active,
		Dismissible: req.Dismissible,
	}
	if req.Content != nil {
		if len(*req.Content) > maxContentLength {
			h.ErrLog.LogBadRequest(w, r, "announcement content too long", nil, "Content is too long.")
			return
		}
		clean := h.sanitize.Sanitize(*req.Content)
		patch.Content = &clean
	}
	if req.Type != nil {
		annType, ok := parseType(*req.Type)
		if !ok {
			h.ErrLog.LogBadRequest(w, r, "unknown announcement type", nil, "Type must be info, warning, or urgent.")
			return
		}
		patch.Type = &annType
	}
	if req.ClearWindow {
		var nilTime *time.Time
		patch.StartsAt = &nilTime
		patch.EndsAt = &nilTime
	} else {
		if req.StartsAt != nil {
			patch.StartsAt = &req.StartsAt
		}
		if req.EndsAt != nil {
			patch.EndsAt = &req.EndsAt
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	updated, err := h.Store.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, announcementstore.ErrNotFound) {
			h.ErrLog.LogNotFound(w, r, "announcement not found", "No such announcement.")
			return
		}
		h.ErrLog.LogServerError(w, r, "DB update announcement", err, "A server error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /announcements/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Store.Delete(ctx, id); err != nil {
		if errors.Is(err, announcementstore.ErrNotFound) {
			h.ErrLog.LogNotFound(w, r, "announcement not found", "No such announcement.")
			return
		}
		h.ErrLog.LogServerError(w, r, "DB delete announcement", err, "A server error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "malformed announcement id", err, "Invalid announcement ID.")
		return primitive.NilObjectID, false
	}
	return id, true
}

func parseType(s string) (models.AnnouncementType, bool) {
	switch models.AnnouncementType(s) {
	case "":
		return models.AnnouncementInfo, true
	case models.AnnouncementInfo, models.AnnouncementWarning, models.AnnouncementUrgent:
		return models.AnnouncementType(s), true
	default:
		return "", false
	}
}
