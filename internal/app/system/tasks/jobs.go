// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hackhub-events/hackhub/internal/app/store/logins"
	"github.com/hackhub-events/hackhub/internal/app/store/oauthstate"
	"github.com/hackhub-events/hackhub/internal/app/store/pwreset"
)

// OAuthStateCleanupJob creates a job that removes expired OAuth state tokens.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func OAuthStateCleanupJob(states *oauthstate.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := states.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// PasswordResetCleanupJob creates a job that removes expired password reset
// records, backing up the collection's TTL index.
func PasswordResetCleanupJob(resets *pwresetstore.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "password-reset-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := resets.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired password resets", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// LoginRecordPruneJob creates a job that prunes login history older than the
// retention window.
func LoginRecordPruneJob(loginRecords *loginstore.Store, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "login-record-prune",
		Interval: 24 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := loginRecords.PruneOlderThan(ctx, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("pruned old login records",
					zap.Int64("count", count),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}
