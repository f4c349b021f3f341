// internal/app/features/teams/handler.go
package teams

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	uierrors "github.com/hackhub-events/hackhub/internal/app/features/errors"
	submissionstore "github.com/hackhub-events/hackhub/internal/app/store/submissions"
	teamstore "github.com/hackhub-events/hackhub/internal/app/store/teams"
	userstore "github.com/hackhub-events/hackhub/internal/app/store/users"
	"github.com/hackhub-events/hackhub/internal/app/system/auth"
	"github.com/hackhub-events/hackhub/internal/app/system/paging"
	"github.com/hackhub-events/hackhub/internal/app/system/timeouts"
	"github.com/hackhub-events/hackhub/internal/domain/models"
)

// Handler is the feature-level handler for team formation.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
	Teams  *teamstore.Store
	Users  *userstore.Store
	Subs   *submissionstore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Log:    logger,
		ErrLog: errLog,
		Teams:  teamstore.New(db),
		Users:  userstore.New(db),
		Subs:   submissionstore.New(db),
	}
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type joinRequest struct {
	Code string `json:"code"`
}

// HandleCreate handles POST /teams. The caller becomes the team's leader.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, uid, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode create team request", err, "Invalid request body.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	member, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user for team create", err, "A server error occurred.")
		return
	}

	team, err := h.Teams.Create(ctx, uid, member.DisplayName, req.Name, req.Description)
	switch {
	case err == nil:
		h.Log.Info("team created",
			zap.String("team_id", team.ID.Hex()),
			zap.String("user_id", u.ID))
		uierrors.WriteJSON(w, http.StatusCreated, team)
	case errors.Is(err, teamstore.ErrInvalidName):
		h.ErrLog.LogBadRequest(w, r, "create team with empty name", nil, "Team name is required.")
	case errors.Is(err, teamstore.ErrAlreadyOnTeam):
		h.ErrLog.LogConflict(w, r, "create team while on a team", "already_on_team", "You are already on a team. Leave it before creating a new one.")
	case errors.Is(err, teamstore.ErrCodeExhausted):
		h.ErrLog.LogServerError(w, r, "invite code generation exhausted", err, "Could not create the team. Please try again.")
	default:
		h.ErrLog.LogServerError(w, r, "DB create team", err, "A server error occurred.")
	}
}

// HandleJoin handles POST /teams/join. Invite codes are case-insensitive.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	u, uid, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode join team request", err, "Invalid request body.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	member, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user for team join", err, "A server error occurred.")
		return
	}

	team, err := h.Teams.JoinByCode(ctx, uid, member.DisplayName, req.Code)
	switch {
	case err == nil:
		h.Log.Info("team joined",
			zap.String("team_id", team.ID.Hex()),
			zap.String("user_id", u.ID))
		uierrors.WriteJSON(w, http.StatusOK, team)
	case errors.Is(err, teamstore.ErrInvalidCode):
		h.ErrLog.LogConflict(w, r, "join with unknown invite code", "invalid_code", "That invite code does not match any team.")
	case errors.Is(err, teamstore.ErrTeamFull):
		h.ErrLog.LogConflict(w, r, "join a full team", "team_full", "That team is already full.")
	case errors.Is(err, teamstore.ErrAlreadyOnTeam):
		h.ErrLog.LogConflict(w, r, "join while on a team", "already_on_team", "You are already on a team. Leave it before joining another.")
	default:
		h.ErrLog.LogServerError(w, r, "DB join team", err, "A server error occurred.")
	}
}

// HandleLeave handles POST /teams/leave. Leadership moves to the
// earliest-joined remaining member; a team whose last member leaves is
// dissolved along with its submission.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	u, uid, ok := h.caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	// Remember the team so a dissolved team's submission can be cleaned up.
	before, _, err := h.Teams.GetForUser(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load team before leave", err, "A server error occurred.")
		return
	}

	err = h.Teams.Leave(ctx, uid)
	switch {
	case err == nil:
		h.Log.Info("team left", zap.String("user_id", u.ID))
		if before != nil {
			if _, err := h.Teams.GetByID(ctx, before.ID); err == mongo.ErrNoDocuments {
				if err := h.Subs.DeleteByTeam(ctx, before.ID); err != nil {
					h.Log.Warn("delete submission of dissolved team",
						zap.String("team_id", before.ID.Hex()), zap.Error(err))
				}
			}
		}
		uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "left"})
	case errors.Is(err, teamstore.ErrNotOnTeam):
		h.ErrLog.LogConflict(w, r, "leave without a team", "not_on_team", "You are not on a team.")
	case errors.Is(err, teamstore.ErrConflict):
		h.ErrLog.LogServerError(w, r, "leave team contention", err, "The team changed while you were leaving. Please try again.")
	default:
		h.ErrLog.LogServerError(w, r, "DB leave team", err, "A server error occurred.")
	}
}

// ServeMine handles GET /teams/mine: the caller's team, or 404 when they
// have none.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	u, uid, ok := h.caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	team, repaired, err := h.Teams.GetForUser(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "DB load team", err, "A server error occurred.")
		return
	}
	if repaired {
		h.Log.Warn("repaired dangling team reference", zap.String("user_id", u.ID))
	}
	if team == nil {
		h.ErrLog.LogNotFound(w, r, "no team for user", "You are not on a team.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, team)
}

// ServeList handles GET /teams: admin listing of all teams.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	start := paging.ParseStart(r)
	teams, err := h.listPage(ctx, start)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "DB list teams", err, "A server error occurred.")
		return
	}
	hasNext := paging.Trim(&teams)
	uierrors.WriteJSON(w, http.StatusOK, paging.NewPage(teams, start, hasNext))
}

func (h *Handler) listPage(ctx context.Context, start int) ([]models.Team, error) {
	cur, err := h.DB.Collection("teams").Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetSkip(paging.Skip(start)).
			SetLimit(paging.LimitPlusOne()))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	teams := []models.Team{}
	if err := cur.All(ctx, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// caller resolves the signed-in session user and their ObjectID.
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
