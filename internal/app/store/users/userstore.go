// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hackhub-events/hackhub/internal/app/system/normalize"
	"github.com/hackhub-events/hackhub/internal/domain/models"
)

var (
	// ErrEmailInUse is returned when sign-up collides with an existing account.
	ErrEmailInUse = errors.New("an account with this email already exists")
	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("account not found")
)

// Store owns the users collection: account creation, lookup, and profile
// merge-updates. Team linkage fields (team_id/team_role) are written by the
// team store only.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Create inserts a password-authenticated account. Email uniqueness is
// enforced by the unique index on email_ci; a duplicate surfaces as
// ErrEmailInUse rather than being pre-checked.
func (s *Store) Create(ctx context.Context, email, displayName, passwordHash string) (models.User, error) {
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        normalize.Email(email),
		EmailCI:      normalize.EmailCI(email),
		DisplayName:  normalize.Name(displayName),
		PasswordHash: passwordHash,
		AuthMethod:   models.AuthPassword,
		Role:         models.RoleParticipant,
		Status:       models.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrEmailInUse
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID returns the account for uid, or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, uid primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": uid}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByEmail looks an account up by case/diacritic-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email_ci": normalize.EmailCI(email)}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// Identity is what the federated provider asserts about a user.
type Identity struct {
	GoogleID    string
	Email       string
	DisplayName string
	PhotoURL    string
}

// EnsureProfile materializes an account for a federated identity.
//
// On first sign-in it creates the account; on later sign-ins it merge-updates
// only the identity-supplied fields (google_id, photo_url, and display_name
// when we have none yet). Team linkage is never touched, so the call is safe
// to repeat — two calls with the same identity yield one document.
func (s *Store) EnsureProfile(ctx context.Context, id Identity) (models.User, error) {
	// Prefer the stable provider ID; fall back to email for accounts that
	// signed up with a password first and link Google later.
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"google_id": id.GoogleID}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		err = s.c.FindOne(ctx, bson.M{"email_ci": normalize.EmailCI(id.Email)}).Decode(&u)
	}

	switch err {
	case nil:
		set := bson.M{
			"google_id":  id.GoogleID,
			"updated_at": time.Now().UTC(),
		}
		if id.PhotoURL != "" {
			set["photo_url"] = id.PhotoURL
		}
		if u.DisplayName == "" && id.DisplayName != "" {
			set["display_name"] = normalize.Name(id.DisplayName)
		}
		if _, err := s.c.UpdateByID(ctx, u.ID, bson.M{"$set": set}); err != nil {
			return models.User{}, err
		}
		return s.GetByID(ctx, u.ID)

	case mongo.ErrNoDocuments:
		now := time.Now().UTC()
		u = models.User{
			ID:          primitive.NewObjectID(),
			Email:       normalize.Email(id.Email),
			EmailCI:     normalize.EmailCI(id.Email),
			DisplayName: normalize.Name(id.DisplayName),
			PhotoURL:    id.PhotoURL,
			AuthMethod:  models.AuthGoogle,
			GoogleID:    id.GoogleID,
			Role:        models.RoleParticipant,
			Status:      models.StatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err := s.c.InsertOne(ctx, u); err != nil {
			if wafflemongo.IsDup(err) {
				// Lost a race with a concurrent first sign-in; the winner's
				// document is the profile.
				return s.GetByEmail(ctx, id.Email)
			}
			return models.User{}, err
		}
		return u, nil

	default:
		return models.User{}, err
	}
}

// ProfilePatch carries the merge-update fields for UpdateProfile.
// Nil fields are left untouched.
type ProfilePatch struct {
	DisplayName       *string
	Bio               *string
	PhotoURL          *string
	IsProfileComplete *bool
}

// UpdateProfile merge-writes the given fields onto uid's account and
// returns the updated document. Returns ErrNotFound when no account
// exists. Reapplying the same patch is a no-op.
func (s *Store) UpdateProfile(ctx context.Context, uid primitive.ObjectID, p ProfilePatch) (models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if p.DisplayName != nil {
		set["display_name"] = normalize.Name(*p.DisplayName)
	}
	if p.Bio != nil {
		set["bio"] = *p.Bio
	}
	if p.PhotoURL != nil {
		set["photo_url"] = *p.PhotoURL
	}
	if p.IsProfileComplete != nil {
		set["is_profile_complete"] = *p.IsProfileComplete
	}

	var u models.User
	after := options.After
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": uid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(after)).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// SetPassword replaces the stored password hash (used by the reset flow).
func (s *Store) SetPassword(ctx context.Context, uid primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateByID(ctx, uid, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
