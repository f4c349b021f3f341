// internal/domain/models/team.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxTeamSize is the member cap enforced on join.
const MaxTeamSize = 4

// Member is embedded on Team. The member list is small and capped, so the
// embedded-array model is used instead of a join collection; each mutation
// of the list is a single-document atomic update.
type Member struct {
	UID      primitive.ObjectID `bson:"uid" json:"uid"`
	Name     string             `bson:"name" json:"name"`
	Role     string             `bson:"role" json:"role"` // leader | member
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
}

// Team represents a hackathon team.
//
// Invariants (enforced by the team store):
//   - 1 <= len(Members) <= MaxTeamSize while the team exists; a team whose
//     last member leaves is deleted rather than left empty.
//   - Exactly one member carries the leader role.
//   - InviteCode is unique across teams (unique index on invite_code).
type Team struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	InviteCode  string             `bson:"invite_code" json:"invite_code"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`
	Members     []Member           `bson:"members" json:"members"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Leader returns the current leader, or nil if the document is mid-repair
// and no leader is present.
func (t *Team) Leader() *Member {
	for i := range t.Members {
		if t.Members[i].Role == TeamRoleLeader {
			return &t.Members[i]
		}
	}
	return nil
}

// HasMember reports whether uid is on the team.
func (t *Team) HasMember(uid primitive.ObjectID) bool {
	for i := range t.Members {
		if t.Members[i].UID == uid {
			return true
		}
	}
	return false
}
