// internal/domain/models/announcement.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnnouncementType categorizes announcements for the frontend.
type AnnouncementType string

const (
	AnnouncementInfo    AnnouncementType = "info"
	AnnouncementWarning AnnouncementType = "warning"
	AnnouncementUrgent  AnnouncementType = "urgent"
)

// Announcement is an admin-authored notice shown on the dashboard.
// StartsAt/EndsAt optionally bound its visibility window.
type Announcement struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Content     string             `bson:"content" json:"content"`
	Type        AnnouncementType   `bson:"type" json:"type"`
	Active      bool               `bson:"active" json:"active"`
	Dismissible bool               `bson:"dismissible" json:"dismissible"`
	StartsAt    *time.Time         `bson:"starts_at,omitempty" json:"starts_at,omitempty"`
	EndsAt      *time.Time         `bson:"ends_at,omitempty" json:"ends_at,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
