// internal/app/store/pwreset/store.go
package pwresetstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenLength is the reset token length in bytes (32 bytes = 64 hex chars).
	TokenLength = 32
	// DefaultExpiry is how long a reset token stays valid.
	DefaultExpiry = 30 * time.Minute
	// BcryptCost for hashing tokens at rest.
	BcryptCost = 10
)

var (
	// ErrNotFound is returned when no live reset exists for the token.
	ErrNotFound = errors.New("reset not found or expired")
	// ErrInvalidToken is returned when the token does not match.
	ErrInvalidToken = errors.New("invalid reset token")
)

// Reset is a pending password reset. Only the bcrypt hash of the token is
// stored; the plain token travels once, in the email link.
type Reset struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Email     string             `bson:"email"`
	TokenHash string             `bson:"token_hash"`
	Selector  string             `bson:"selector"` // lookup key; the token itself is hashed
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Store manages password reset records.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
}

// New creates a Store with the given token lifetime. A zero or negative
// expiry falls back to DefaultExpiry.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{c: db.Collection("password_resets"), expiry: expiry}
}

// Expiry returns the configured token lifetime.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Create issues a fresh reset token for the user, replacing any previous
// pending reset. The returned string is "selector.token" and is the only
// place the plain token ever exists.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, email string) (string, error) {
	selector, err := randomHex(8)
	if err != nil {
		return "", err
	}
	token, err := randomHex(TokenLength)
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), BcryptCost)
	if err != nil {
		return "", err
	}

	// One pending reset per user; a second request invalidates the first.
	if _, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	rec := Reset{
		UserID:    userID,
		Email:     email,
		TokenHash: string(hash),
		Selector:  selector,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return "", err
	}
	return selector + "." + token, nil
}

// Consume validates a "selector.token" string and, on success, deletes the
// record (one-time use) and returns the user it belongs to.
func (s *Store) Consume(ctx context.Context, combined string) (primitive.ObjectID, error) {
	selector, token, ok := splitToken(combined)
	if !ok {
		return primitive.NilObjectID, ErrInvalidToken
	}

	var rec Reset
	err := s.c.FindOne(ctx, bson.M{
		"selector":   selector,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return primitive.NilObjectID, ErrNotFound
	}
	if err != nil {
		return primitive.NilObjectID, err
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.TokenHash), []byte(token)) != nil {
		return primitive.NilObjectID, ErrInvalidToken
	}

	// Delete by ID so a concurrent consume of the same token wins at most
	// once.
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": rec.ID})
	if err != nil {
		return primitive.NilObjectID, err
	}
	if res.DeletedCount == 0 {
		return primitive.NilObjectID, ErrNotFound
	}
	return rec.UserID, nil
}

// CleanupExpired removes resets past their expiry. A backup for when TTL
// index cleanup is delayed.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lt": time.Now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func splitToken(combined string) (selector, token string, ok bool) {
	for i := 0; i < len(combined); i++ {
		if combined[i] == '.' {
			return combined[:i], combined[i+1:], i > 0 && i < len(combined)-1
		}
	}
	return "", "", false
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
