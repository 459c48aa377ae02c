package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArticleReference is an entry of a track's reading list. It has no identity
// of its own and is stored inline with its track.
type ArticleReference struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

// Track is a user-owned, ordered collection of article references.
type Track struct {
	ID          string             `gorm:"primaryKey;size:36" json:"id"`
	UserID      string             `gorm:"size:255;not null;index" json:"user_id"`
	Title       string             `gorm:"size:255;not null" json:"title"`
	Description *string            `gorm:"type:text" json:"description"`
	IsPublic    bool               `gorm:"not null;default:false;index" json:"is_public"`
	Articles    []ArticleReference `gorm:"serializer:json;type:json" json:"articles"`
	CreatedAt   time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
// UpdatedAt is owned by the caller, so an unset one starts at CreatedAt.
func (t *Track) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.Articles == nil {
		t.Articles = []ArticleReference{}
	}
	return nil
}

// CreatorSummary is the public view of a track's owner.
type CreatorSummary struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// PublicTrackResponse is a track as shown in the explore feed.
// ParticipantCount and IsJoined are placeholders until track participation
// exists; they are always zero/false.
type PublicTrackResponse struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      *string        `json:"description"`
	Creator          CreatorSummary `json:"creator"`
	ArticlesCount    int            `json:"articles_count"`
	CreatedAt        time.Time      `json:"created_at"`
	ParticipantCount int            `json:"participant_count"`
	IsJoined         bool           `json:"is_joined"`
}
