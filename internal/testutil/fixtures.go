// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hackhub-events/hackhub/internal/app/system/normalize"
	"github.com/hackhub-events/hackhub/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that read chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a participant with the given email and display name.
func (f *Fixtures) CreateUser(ctx context.Context, email, name string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, email, name, models.RoleParticipant)
}

// CreateAdmin inserts a user with the admin role.
func (f *Fixtures) CreateAdmin(ctx context.Context, email, name string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, email, name, models.RoleAdmin)
}

func (f *Fixtures) insertUser(ctx context.Context, email, name, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:          primitive.NewObjectID(),
		Email:       normalize.Email(email),
		EmailCI:     normalize.EmailCI(email),
		DisplayName: name,
		AuthMethod:  models.AuthPassword,
		Role:        role,
		Status:      models.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("insert user: %v", err)
	}
	return u
}

// CreateTeam inserts a team led by leader, with the leader's profile linked
// to it the way the team store would leave it.
func (f *Fixtures) CreateTeam(ctx context.Context, name, inviteCode string, leader models.User) models.Team {
	f.t.Helper()

	now := time.Now().UTC()
	t := models.Team{
		ID:         primitive.NewObjectID(),
		Name:       name,
		NameCI:     text.Fold(name),
		InviteCode: inviteCode,
		CreatedBy:  leader.ID,
		Members: []models.Member{{
			UID:      leader.ID,
			Name:     leader.DisplayName,
			Role:     models.TeamRoleLeader,
			JoinedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("teams").InsertOne(ctx, t); err != nil {
		f.t.Fatalf("insert team: %v", err)
	}
	f.LinkUserToTeam(ctx, leader.ID, t.ID, models.TeamRoleLeader)
	return t
}

// AddMember appends a member to the team document and links their profile.
func (f *Fixtures) AddMember(ctx context.Context, team models.Team, u models.User) {
	f.t.Helper()

	m := models.Member{
		UID:      u.ID,
		Name:     u.DisplayName,
		Role:     models.TeamRoleMember,
		JoinedAt: time.Now().UTC(),
	}
	_, err := f.db.Collection("teams").UpdateOne(ctx,
		map[string]any{"_id": team.ID},
		map[string]any{"$push": map[string]any{"members": m}})
	if err != nil {
		f.t.Fatalf("add member: %v", err)
	}
	f.LinkUserToTeam(ctx, u.ID, team.ID, models.TeamRoleMember)
}

// LinkUserToTeam sets the team fields on a user's profile directly.
func (f *Fixtures) LinkUserToTeam(ctx context.Context, uid, teamID primitive.ObjectID, role string) {
	f.t.Helper()

	_, err := f.db.Collection("users").UpdateOne(ctx,
		map[string]any{"_id": uid},
		map[string]any{"$set": map[string]any{"team_id": teamID, "team_role": role}})
	if err != nil {
		f.t.Fatalf("link user to team: %v", err)
	}
}

// CreateAnnouncement inserts an active announcement.
func (f *Fixtures) CreateAnnouncement(ctx context.Context, title, content string) models.Announcement {
	f.t.Helper()

	now := time.Now().UTC()
	a := models.Announcement{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Content:     content,
		Type:        models.AnnouncementInfo,
		Active:      true,
		Dismissible: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("announcements").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("insert announcement: %v", err)
	}
	return a
}
