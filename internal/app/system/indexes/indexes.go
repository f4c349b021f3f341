// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent
(CreateMany on an existing index with the same keys and options is a no-op).
Errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureTeams(ctx, db); err != nil {
		problems = append(problems, "teams: "+err.Error())
	}
	if err := ensureAnnouncements(ctx, db); err != nil {
		problems = append(problems, "announcements: "+err.Error())
	}
	if err := ensurePasswordResets(ctx, db); err != nil {
		problems = append(problems, "password_resets: "+err.Error())
	}
	if err := ensureOAuthStates(ctx, db); err != nil {
		problems = append(problems, "oauth_states: "+err.Error())
	}
	if err := ensureLoginRecords(ctx, db); err != nil {
		problems = append(problems, "login_records: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		// One account per email address; sign-up relies on the duplicate-key
		// error from this index rather than a check-then-insert.
		{
			Keys:    bson.D{{Key: "email_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_users_email_ci"),
		},
		// Federated sign-in lookup.
		{
			Keys: bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().
				SetName("idx_users_google_id").
				SetPartialFilterExpression(bson.M{"google_id": bson.M{"$exists": true}}),
		},
		// Team roster views resolve members through team_id.
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}},
			Options: options.Index().SetName("idx_users_team"),
		},
	})
	return err
}

func ensureTeams(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("teams").Indexes().CreateMany(ctx, []mongo.IndexModel{
		// Invite-code uniqueness is a storage-level constraint, not just a
		// query-before-insert convention. Concurrent creates that draw the
		// same code surface as a duplicate-key error and are retried.
		{
			Keys:    bson.D{{Key: "invite_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_teams_invite_code"),
		},
		{
			Keys:    bson.D{{Key: "members.uid", Value: 1}},
			Options: options.Index().SetName("idx_teams_member_uid"),
		},
	})
	return err
}

func ensureAnnouncements(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("announcements").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "active", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_announcements_active"),
		},
	})
	return err
}

func ensurePasswordResets(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("password_resets").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_password_resets_user"),
		},
		// Token lookup goes through the public selector half.
		{
			Keys:    bson.D{{Key: "selector", Value: 1}},
			Options: options.Index().SetName("idx_password_resets_selector"),
		},
		// TTL cleanup of expired tokens.
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_password_resets_ttl"),
		},
	})
	return err
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("oauth_states").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_oauth_state"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_oauth_ttl"),
		},
	})
	return err
}

func ensureLoginRecords(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("login_records").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_login_records_user"),
		},
	})
	return err
}
