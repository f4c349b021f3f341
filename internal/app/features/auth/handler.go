// internal/app/features/auth/handler.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	uierrors "github.com/hackhub-events/hackhub/internal/app/features/errors"
	loginstore "github.com/hackhub-events/hackhub/internal/app/store/logins"
	pwresetstore "github.com/hackhub-events/hackhub/internal/app/store/pwreset"
	userstore "github.com/hackhub-events/hackhub/internal/app/store/users"
	sessionauth "github.com/hackhub-events/hackhub/internal/app/system/auth"
	"github.com/hackhub-events/hackhub/internal/app/system/mailer"
	"github.com/hackhub-events/hackhub/internal/app/system/normalize"
	"github.com/hackhub-events/hackhub/internal/app/system/ratelimit"
	"github.com/hackhub-events/hackhub/internal/app/system/timeouts"
)

const (
	minPasswordLength = 8
	bcryptCost        = 12
)

// Handler owns the password-based authentication endpoints: sign-up,
// sign-in, sign-out, and the password reset pair.
type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *sessionauth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Mailer     *mailer.Mailer
	Users      *userstore.Store
	Resets     *pwresetstore.Store
	Logins     *loginstore.Store
	Limiter    *ratelimit.AuthLimiter
	BaseURL    string
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *sessionauth.SessionManager,
	errLog *uierrors.ErrorLogger,
	mail *mailer.Mailer,
	resets *pwresetstore.Store,
	logins *loginstore.Store,
	baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Mailer:     mail,
		Users:      userstore.New(db),
		Resets:     resets,
		Logins:     logins,
		Limiter:    ratelimit.NewAuthLimiter(),
		BaseURL:    baseURL,
	}
}

type signupRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// HandleSignup handles POST /auth/signup. A successful sign-up also signs
// the new account in.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode signup request", err, "Invalid request body.")
		return
	}

	email := normalize.Email(req.Email)
	name := normalize.Name(req.DisplayName)
	switch {
	case email == "" || !validEmail(email):
		h.ErrLog.LogBadRequest(w, r, "signup with invalid email", nil, "A valid email address is required.")
		return
	case name == "":
		h.ErrLog.LogBadRequest(w, r, "signup without display name", nil, "Display name is required.")
		return
	case len(req.Password) < minPasswordLength:
		h.ErrLog.LogBadRequest(w, r, "signup with short password", nil, "Password must be at least 8 characters.")
		return
	}

	if ok, reason := h.Limiter.Check(r, email); !ok {
		h.Log.Warn("signup rate limited", zap.String("reason", reason))
		uierrors.WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many attempts. Please wait a moment and try again.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password", err, "A server error occurred.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, email, name, string(hash))
	if err != nil {
		if errors.Is(err, userstore.ErrEmailInUse) {
			h.ErrLog.LogConflict(w, r, "signup with taken email", "email_in_use", "An account with this email already exists.")
			return
		}
		h.ErrLog.LogServerError(w, r, "DB create user", err, "A server error occurred.")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, &u); err != nil {
		h.ErrLog.LogServerError(w, r, "create session after signup", err, "A server error occurred.")
		return
	}
	if err := h.Logins.CreateFrom(ctx, r, u.ID, "password"); err != nil {
		h.Log.Warn("record signup login", zap.Error(err))
	}

	h.Log.Info("account created", zap.String("user_id", u.ID.Hex()))
	uierrors.WriteJSON(w, http.StatusCreated, u)
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode login request", err, "Invalid request body.")
		return
	}

	email := normalize.Email(req.Email)
	if email == "" || req.Password == "" {
		h.ErrLog.LogBadRequest(w, r, "login with missing fields", nil, "Email and password are required.")
		return
	}

	if ok, reason := h.Limiter.Check(r, email); !ok {
		h.Log.Warn("login rate limited", zap.String("reason", reason))
		uierrors.WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many attempts. Please wait a moment and try again.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			// Same response as a wrong password; no account enumeration.
			h.ErrLog.LogUnauthorized(w, r, "login for unknown email", "Incorrect email or password.")
			return
		}
		h.ErrLog.LogServerError(w, r, "DB find user", err, "A server error occurred.")
		return
	}
	if u.PasswordHash == "" {
		// Federated account; password sign-in is not available for it.
		h.ErrLog.LogUnauthorized(w, r, "password login for federated account", "Incorrect email or password.")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		h.ErrLog.LogUnauthorized(w, r, "wrong password", "Incorrect email or password.")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, &u); err != nil {
		h.ErrLog.LogServerError(w, r, "create session", err, "A server error occurred.")
		return
	}
	h.Limiter.ResetEmail(email)
	if err := h.Logins.CreateFrom(ctx, r, u.ID, "password"); err != nil {
		h.Log.Warn("record login", zap.Error(err))
	}

	uierrors.WriteJSON(w, http.StatusOK, u)
}

// HandleLogout handles POST /auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.ErrLog.LogServerError(w, r, "clear session", err, "A server error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// ServeMe handles GET /auth/me: the session identity, or 401.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := sessionauth.CurrentUser(r)
	if !ok {
		uierrors.WriteError(w, http.StatusUnauthorized, "unauthorized", "Sign in required.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, u)
}

// HandleForgot handles POST /auth/forgot. The response is the same whether
// or not the email has an account, so the endpoint cannot be used to probe
// for accounts.
func (h *Handler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode forgot request", err, "Invalid request body.")
		return
	}

	email := normalize.Email(req.Email)
	if email == "" {
		h.ErrLog.LogBadRequest(w, r, "forgot without email", nil, "Email is required.")
		return
	}

	if ok, reason := h.Limiter.Check(r, email); !ok {
		h.Log.Warn("forgot rate limited", zap.String("reason", reason))
		uierrors.WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many attempts. Please wait a moment and try again.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	accepted := func() {
		uierrors.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	}

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			accepted()
			return
		}
		h.ErrLog.LogServerError(w, r, "DB find user for reset", err, "A server error occurred.")
		return
	}
	if u.PasswordHash == "" {
		// Federated accounts have no password to reset.
		accepted()
		return
	}

	token, err := h.Resets.Create(ctx, u.ID, u.Email)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create reset token", err, "A server error occurred.")
		return
	}

	resetURL := h.BaseURL + "/reset-password?token=" + token
	expiryMinutes := int(h.Resets.Expiry().Minutes())
	if err := h.Mailer.SendPasswordReset(u.Email, u.DisplayName, resetURL, expiryMinutes); err != nil {
		h.ErrLog.LogServerError(w, r, "send reset email", err, "Could not send the reset email. Please try again.")
		return
	}

	h.Log.Info("password reset issued", zap.String("user_id", u.ID.Hex()))
	accepted()
}

// HandleReset handles POST /auth/reset. A consumed token signs the user in
// with their new password already set.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode reset request", err, "Invalid request body.")
		return
	}
	if req.Token == "" {
		h.ErrLog.LogBadRequest(w, r, "reset without token", nil, "Reset token is required.")
		return
	}
	if len(req.Password) < minPasswordLength {
		h.ErrLog.LogBadRequest(w, r, "reset with short password", nil, "Password must be at least 8 characters.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	uid, err := h.Resets.Consume(ctx, req.Token)
	if err != nil {
		if errors.Is(err, pwresetstore.ErrNotFound) || errors.Is(err, pwresetstore.ErrInvalidToken) {
			h.ErrLog.LogUnauthorized(w, r, "invalid or expired reset token", "This reset link is invalid or has expired.")
			return
		}
		h.ErrLog.LogServerError(w, r, "consume reset token", err, "A server error occurred.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password", err, "A server error occurred.")
		return
	}
	if err := h.Users.SetPassword(ctx, uid, string(hash)); err != nil {
		h.ErrLog.LogServerError(w, r, "DB set password", err, "A server error occurred.")
		return
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "DB load user after reset", err, "A server error occurred.")
		return
	}
	if err := h.SessionMgr.SignIn(w, r, &u); err != nil {
		h.ErrLog.LogServerError(w, r, "create session after reset", err, "A server error occurred.")
		return
	}
	h.Limiter.ResetEmail(u.EmailCI)
	if err := h.Logins.CreateFrom(ctx, r, u.ID, "password"); err != nil {
		h.Log.Warn("record reset login", zap.Error(err))
	}

	h.Log.Info("password reset completed", zap.String("user_id", u.ID.Hex()))
	uierrors.WriteJSON(w, http.StatusOK, u)
}

// validEmail is a light shape check; the mailbox proves itself when the
// reset flow is used.
func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}
