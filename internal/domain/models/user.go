// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles.
const (
	RoleParticipant = "participant"
	RoleAdmin       = "admin"
)

// Auth methods.
const (
	AuthPassword = "password"
	AuthGoogle   = "google"
)

// Account status. Disabled accounts keep their data but cannot sign in and
// lose their session on the next request.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Team roles. A user holds one of these iff they are on a team.
const (
	TeamRoleLeader = "leader"
	TeamRoleMember = "member"
)

// User represents a portal account: identity, profile, and team linkage.
//
// NOTE:
//   - TeamID and TeamRole are maintained by the team store only. The
//     invariant is: TeamID is nil ⟺ TeamRole is nil.
//   - PasswordHash is empty for federated (Google) accounts.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	EmailCI      string             `bson:"email_ci" json:"-"` // lowercase, diacritics-stripped
	DisplayName  string             `bson:"display_name" json:"display_name"`
	PhotoURL     string             `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	Bio          string             `bson:"bio,omitempty" json:"bio,omitempty"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	AuthMethod   string             `bson:"auth_method" json:"-"` // password | google
	GoogleID     string             `bson:"google_id,omitempty" json:"-"`
	Role         string             `bson:"role" json:"role"` // participant | admin
	Status       string             `bson:"status,omitempty" json:"-"`

	IsProfileComplete bool `bson:"is_profile_complete" json:"is_profile_complete"`

	TeamID   *primitive.ObjectID `bson:"team_id,omitempty" json:"team_id,omitempty"`
	TeamRole *string             `bson:"team_role,omitempty" json:"team_role,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// OnTeam reports whether the user currently belongs to a team.
func (u *User) OnTeam() bool { return u.TeamID != nil }

// LoginRecord captures a successful sign-in for later auditing.
type LoginRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	IP        string             `bson:"ip"`
	UserAgent string             `bson:"user_agent,omitempty"`
	Provider  string             `bson:"provider"` // password | google
	CreatedAt time.Time          `bson:"created_at"`
}
