// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/hackhub-events/hackhub/internal/domain/models"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Core collections this app uses
	ensure("users", usersSchema())
	ensure("teams", teamsSchema())
	ensure("submissions", submissionsSchema())
	ensure("announcements", announcementsSchema())

	// These don't strictly need validators; we still ensure the collections exist.
	ensure("login_records", nil)
	ensure("password_resets", nil)
	ensure("oauth_states", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "email_ci", "auth_method", "role"},
			"properties": bson.M{
				"email":         bson.M{"bsonType": "string", "minLength": 3},
				"email_ci":      bson.M{"bsonType": "string", "minLength": 3},
				"display_name":  bson.M{"bsonType": "string"},
				"password_hash": bson.M{"bsonType": "string"},
				"google_id":     bson.M{"bsonType": "string"},
				"auth_method":   bson.M{"enum": bson.A{models.AuthPassword, models.AuthGoogle}},
				"role":          bson.M{"enum": bson.A{models.RoleParticipant, models.RoleAdmin}},
				"status":        bson.M{"enum": bson.A{"active", "disabled"}},
				"team_id":       bson.M{"bsonType": bson.A{"objectId", "null"}},
				"team_role":     bson.M{"enum": bson.A{models.TeamRoleLeader, models.TeamRoleMember, nil}},
			},
		},
	}
}

func teamsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "invite_code", "created_by", "members"},
			"properties": bson.M{
				"name":        bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci":     bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"invite_code": bson.M{"bsonType": "string", "minLength": 6, "maxLength": 6, "pattern": "^[A-Z0-9]{6}$"},
				"created_by":  bson.M{"bsonType": "objectId"},
				"members": bson.M{
					"bsonType": "array",
					"minItems": 1,
					"maxItems": models.MaxTeamSize,
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"uid", "name", "role", "joined_at"},
						"properties": bson.M{
							"uid":       bson.M{"bsonType": "objectId"},
							"name":      bson.M{"bsonType": "string"},
							"role":      bson.M{"enum": bson.A{models.TeamRoleLeader, models.TeamRoleMember}},
							"joined_at": bson.M{"bsonType": "date"},
						},
					},
				},
			},
		},
	}
}

func submissionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title"},
			"properties": bson.M{
				"title":            bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"summary":          bson.M{"bsonType": "string"},
				"repo_url":         bson.M{"bsonType": "string"},
				"demo_url":         bson.M{"bsonType": "string"},
				"technologies":     bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"project_image_url": bson.M{"bsonType": "string"},
				"presentation_url":  bson.M{"bsonType": "string"},
				"updated_by":        bson.M{"bsonType": "objectId"},
				"created_at":        bson.M{"bsonType": "date"},
				"updated_at":        bson.M{"bsonType": "date"},
			},
		},
	}
}

func announcementsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "content", "type", "active", "dismissible"},
			"properties": bson.M{
				"title":       bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"content":     bson.M{"bsonType": "string", "minLength": 1},
				"type":        bson.M{"enum": bson.A{string(models.AnnouncementInfo), string(models.AnnouncementWarning), string(models.AnnouncementUrgent)}},
				"active":      bson.M{"bsonType": "bool"},
				"dismissible": bson.M{"bsonType": "bool"},
				"starts_at":   bson.M{"bsonType": bson.A{"date", "null"}},
				"ends_at":     bson.M{"bsonType": bson.A{"date", "null"}},
				"created_by":  bson.M{"bsonType": "objectId"},
			},
		},
	}
}
