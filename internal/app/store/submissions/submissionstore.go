// internal/app/store/submissions/submissionstore.go
package submissionstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hackhub-events/hackhub/internal/domain/models"
)

// ErrNotFound is returned when a team has no submission yet.
var ErrNotFound = errors.New("submission not found")

// Fields carries the merge-update fields for Upsert. Nil fields are left
// untouched, so a metadata-only save never clears a previously uploaded
// file slot.
type Fields struct {
	Title           *string
	Summary         *string
	RepoURL         *string
	DemoURL         *string
	Technologies    *[]string
	ProjectImageURL *string
	PresentationURL *string
}

// Store owns the submissions collection. Documents are keyed by team ID,
// so a team has at most one submission and concurrent saves by teammates
// merge instead of duplicating.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("submissions")}
}

// Upsert merge-writes the given fields onto the team's submission,
// creating it on first save, and returns the resulting document.
func (s *Store) Upsert(ctx context.Context, teamID primitive.ObjectID, by primitive.ObjectID, f Fields) (models.Submission, error) {
	now := time.Now().UTC()
	set := bson.M{
		"updated_at": now,
		"updated_by": by,
	}
	if f.Title != nil {
		set["title"] = *f.Title
	}
	if f.Summary != nil {
		set["summary"] = *f.Summary
	}
	if f.RepoURL != nil {
		set["repo_url"] = *f.RepoURL
	}
	if f.DemoURL != nil {
		set["demo_url"] = *f.DemoURL
	}
	if f.Technologies != nil {
		set["technologies"] = *f.Technologies
	}
	if f.ProjectImageURL != nil {
		set["project_image_url"] = *f.ProjectImageURL
	}
	if f.PresentationURL != nil {
		set["presentation_url"] = *f.PresentationURL
	}

	var sub models.Submission
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": teamID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	).Decode(&sub)
	if err != nil {
		return models.Submission{}, err
	}
	return sub, nil
}

// GetByTeam returns the team's submission, or ErrNotFound.
func (s *Store) GetByTeam(ctx context.Context, teamID primitive.ObjectID) (models.Submission, error) {
	var sub models.Submission
	err := s.c.FindOne(ctx, bson.M{"_id": teamID}).Decode(&sub)
	if err == mongo.ErrNoDocuments {
		return models.Submission{}, ErrNotFound
	}
	if err != nil {
		return models.Submission{}, err
	}
	return sub, nil
}

// List returns a window of submissions, newest first. Admin review surface.
func (s *Store) List(ctx context.Context, skip, limit int64) ([]models.Submission, error) {
	cur, err := s.c.Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "updated_at", Value: -1}}).
			SetSkip(skip).
			SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var subs []models.Submission
	if err := cur.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// DeleteByTeam removes a team's submission. Missing is not an error; it is
// called when a team is dissolved.
func (s *Store) DeleteByTeam(ctx context.Context, teamID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": teamID})
	return err
}
