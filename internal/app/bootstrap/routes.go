// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	announcementsfeature "github.com/hackhub-events/hackhub/internal/app/features/announcements"
	authfeature "github.com/hackhub-events/hackhub/internal/app/features/auth"
	authgooglefeature "github.com/hackhub-events/hackhub/internal/app/features/authgoogle"
	uierrors "github.com/hackhub-events/hackhub/internal/app/features/errors"
	healthfeature "github.com/hackhub-events/hackhub/internal/app/features/health"
	profilefeature "github.com/hackhub-events/hackhub/internal/app/features/profile"
	submissionsfeature "github.com/hackhub-events/hackhub/internal/app/features/submissions"
	teamsfeature "github.com/hackhub-events/hackhub/internal/app/features/teams"
	loginstore "github.com/hackhub-events/hackhub/internal/app/store/logins"
	"github.com/hackhub-events/hackhub/internal/app/store/oauthstate"
	pwresetstore "github.com/hackhub-events/hackhub/internal/app/store/pwreset"
	userstore "github.com/hackhub-events/hackhub/internal/app/store/users"
	"github.com/hackhub-events/hackhub/internal/app/system/auth"
	"github.com/hackhub-events/hackhub/internal/app/system/mailer"
)

// BuildHandler constructs the root HTTP handler (router) for the portal.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. It creates the session manager, mounts the feature
// routers, and returns the configured chi router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.HackHubMongoDatabase

	// Re-resolve the signed-in user from the database on every request so
	// role changes and disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	errLog := uierrors.NewErrorLogger(logger)
	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		Username: appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	})

	uploads, err := storage.NewLocal(storage.LocalConfig{
		BasePath: appCfg.StorageLocalPath,
		BaseURL:  appCfg.StorageLocalURL,
	})
	if err != nil {
		return nil, err
	}
	resets := pwresetstore.New(db, appCfg.ResetTokenExpiry)
	logins := loginstore.New(db)
	states := oauthstate.New(db)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.HackHubMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Uploaded submission files (local storage backend)
	if appCfg.StorageType == "local" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	// Authentication: sign-up, sign-in, sign-out, password reset
	authHandler := authfeature.NewHandler(db, sessionMgr, errLog, mail, resets, logins, appCfg.BaseURL, logger)
	r.Mount("/auth", authfeature.Routes(authHandler))

	// Federated sign-in via Google
	googleHandler := authgooglefeature.NewHandler(db, sessionMgr, errLog, logins, states,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	// Participant profile
	profileHandler := profilefeature.NewHandler(db, errLog, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler, sessionMgr))

	// Team formation
	teamsHandler := teamsfeature.NewHandler(db, errLog, logger)
	r.Mount("/teams", teamsfeature.Routes(teamsHandler, sessionMgr))

	// Project submissions
	subsHandler := submissionsfeature.NewHandler(db, errLog, uploads, logger)
	r.Mount("/submissions", submissionsfeature.Routes(subsHandler, sessionMgr))

	// Announcements
	annHandler := announcementsfeature.NewHandler(db, errLog, logger)
	r.Mount("/announcements", announcementsfeature.Routes(annHandler, sessionMgr))

	return r, nil
}
