// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"os"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/hackhub-events/hackhub/internal/app/store/logins"
	"github.com/hackhub-events/hackhub/internal/app/store/oauthstate"
	"github.com/hackhub-events/hackhub/internal/app/store/pwreset"
	"github.com/hackhub-events/hackhub/internal/app/system/tasks"
)

// jobRunner drives periodic cleanup; started here, stopped in Shutdown.
var jobRunner *tasks.Runner

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	// Make sure the local upload directory exists before any submission
	// upload lands.
	if appCfg.StorageType == "local" {
		if err := os.MkdirAll(appCfg.StorageLocalPath, 0o755); err != nil {
			logger.Error("creating upload directory failed",
				zap.String("path", appCfg.StorageLocalPath),
				zap.Error(err))
			return err
		}
	}

	db := deps.HackHubMongoDatabase
	jobRunner = tasks.NewRunner(logger,
		tasks.OAuthStateCleanupJob(oauthstate.New(db), logger),
		tasks.PasswordResetCleanupJob(pwresetstore.New(db, appCfg.ResetTokenExpiry), logger),
		tasks.LoginRecordPruneJob(loginstore.New(db), appCfg.LoginHistoryRetention, logger),
	)
	jobRunner.Start()

	return nil
}
