// internal/domain/models/submission.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Submission is a team's project entry. The document is keyed by the team's
// ObjectID, so there is at most one submission per team.
type Submission struct {
	TeamID       primitive.ObjectID `bson:"_id" json:"team_id"`
	Title        string             `bson:"title" json:"title"`
	Summary      string             `bson:"summary,omitempty" json:"summary,omitempty"`
	RepoURL      string             `bson:"repo_url,omitempty" json:"repo_url,omitempty"`
	DemoURL      string             `bson:"demo_url,omitempty" json:"demo_url,omitempty"`
	Technologies []string           `bson:"technologies,omitempty" json:"technologies,omitempty"`

	// URLs filled in when the named file slots are uploaded.
	ProjectImageURL string `bson:"project_image_url,omitempty" json:"project_image_url,omitempty"`
	PresentationURL string `bson:"presentation_url,omitempty" json:"presentation_url,omitempty"`

	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
	UpdatedBy primitive.ObjectID `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}
