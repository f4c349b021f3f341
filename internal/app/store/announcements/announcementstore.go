// internal/app/store/announcements/announcementstore.go
package announcementstore

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

// ErrNotFound is returned when no announcement matches the given ID.
var ErrNotFound = errors.New("announcement not found")

// Store owns the announcements collection.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("announcements")}
}

// Create inserts a new announcement authored by the given admin.
func (s *Store) Create(ctx context.Context, a models.Announcement) (models.Announcement, error) {
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Type == "" {
		a.Type = models.AnnouncementInfo
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Announcement{}, err
	}
	return a, nil
}

// Patch carries the merge-update fields for Update. Nil fields are left
// untouched.
type Patch struct {
	Title       *string
	Content     *string
	Type        *models.AnnouncementType
	Active      *bool
	Dismissible *bool
	StartsAt    **time.Time
	EndsAt      **time.Time
}

// Update merge-writes the given fields and returns the updated document.
// A nil inner pointer on StartsAt/EndsAt clears the window bound.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p Patch) (models.Announcement, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Content != nil {
		set["content"] = *p.Content
	}
	if p.Type != nil {
		set["type"] = *p.Type
	}
	if p.Active != nil {
		set["active"] = *p.Active
	}
	if p.Dismissible != nil {
		set["dismissible"] = *p.Dismissible
	}
	if p.StartsAt != nil {
		if *p.StartsAt == nil {
			unset["starts_at"] = ""
		} else {
			set["starts_at"] = **p.StartsAt
		}
	}
	if p.EndsAt != nil {
		if *p.EndsAt == nil {
			unset["ends_at"] = ""
		} else {
			set["ends_at"] = **p.EndsAt
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var a models.Announcement
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return models.Announcement{}, ErrNotFound
	}
	if err != nil {
		return models.Announcement{}, err
	}
	return a, nil
}

// Delete removes an announcement. Returns ErrNotFound when nothing matched.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive returns announcements that are active and inside their
// visibility window as of now, newest first. This is the participant view.
func (s *Store) ListActive(ctx context.Context, now time.Time) ([]models.Announcement, error) {
	filter := bson.M{
		"active": true,
		"$and": []bson.M{
			{"$or": []bson.M{
				{"starts_at": bson.M{"$exists": false}},
				{"starts_at": bson.M{"$lte": now}},
			}},
			{"$or": []bson.M{
				{"ends_at": bson.M{"$exists": false}},
				{"ends_at": bson.M{"$gt": now}},
			}},
		},
	}
	return s.list(ctx, filter)
}

// ListAll returns every announcement, newest first. Admin view.
func (s *Store) ListAll(ctx context.Context) ([]models.Announcement, error) {
	return s.list(ctx, bson.M{})
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.Announcement, error) {
	cur, err := s.c.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Announcement
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
