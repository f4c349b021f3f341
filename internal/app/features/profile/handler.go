// internal/app/features/profile/handler.go
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	uierrors "github.com/hackhub-events/hackhub/internal/app/features/errors"
	loginstore "github.com/hackhub-events/hackhub/internal/app/store/logins"
	userstore "github.com/hackhub-events/hackhub/internal/app/store/users"
	"github.com/hackhub-events/hackhub/internal/app/system/auth"
	"github.com/hackhub-events/hackhub/internal/app/system/timeouts"
)

const maxBioLength = 2000

// Handler owns the participant profile endpoints.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	Users    *userstore.Store
	Logins   *loginstore.Store
	sanitize *bluemonday.Policy
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		Users:    userstore.New(db),
		Logins:   loginstore.New(db),
		sanitize: bluemonday.StrictPolicy(),
	}
}

// ServeProfile handles GET /profile: the signed-in user's account.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := h.caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			h.ErrLog.LogUnauthorized(w, r, "session user missing from DB", "Sign in required.")
			return
		}
		h.ErrLog.LogServerError(w, r, "DB load profile", err, "A server error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, u)
}

type patchRequest struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	PhotoURL    *string `json:"photo_url"`
}

// HandlePatch handles PATCH /profile. Fields absent from the body are left
// untouched. A successful patch that carries a display name marks the
// profile complete.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode profile patch", err, "Invalid request body.")
		return
	}

	if req.DisplayName != nil && *req.DisplayName == "" {
		h.ErrLog.LogBadRequest(w, r, "empty display name", nil, "Display name must not be empty.")
		return
	}
	if req.Bio != nil {
		if len(*req.Bio) > maxBioLength {
			h.ErrLog.LogBadRequest(w, r, "bio too long", nil, "Bio is too long.")
			return
		}
		clean := h.sanitize.Sanitize(*req.Bio)
		req.Bio = &clean
	}

	patch := userstore.ProfilePatch{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		PhotoURL:    req.PhotoURL,
	}
	if req.DisplayName != nil {
		complete := true
		patch.IsProfileComplete = &complete
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, uid, patch)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			h.ErrLog.LogUnauthorized(w, r, "session user missing from DB", "Sign in required.")
			return
		}
		h.ErrLog.LogServerError(w, r, "DB update profile", err, "A server error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, u)
}

// ServeLogins handles GET /profile/logins: the user's recent sign-ins.
func (h *Handler) ServeLogins(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := h.caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	recs, err := h.Logins.ListForUser(ctx, uid, 50)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "DB list logins", err, "A server error occurred.")
		return
	}

	type entry struct {
		IP        string `json:"ip"`
		UserAgent string `json:"user_agent,omitempty"`
		Provider  string `json:"provider"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]entry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, entry{
			IP:        rec.IP,
			UserAgent: rec.UserAgent,
			Provider:  rec.Provider,
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (*auth.SessionUser, primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		h.ErrLog.LogUnauthorized(w, r, "no session user", "Sign in required.")
		return nil, primitive.NilObjectID, false
	}
	uid, err := u.UID()
	if err != nil {
		h.ErrLog.LogUnauthorized(w, r, "malformed session user id", "Sign in required.")
		return nil, primitive.NilObjectID, false
	}
	return u, uid, true
}
