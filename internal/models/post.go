/**
 * @description
 * Community post database model.
 * Maps to the 'community_posts' table in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommunityPost represents one discussion thread in the community feed
type CommunityPost struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index:idx_community_posts_user" json:"user_id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Content      string    `gorm:"not null" json:"content"`
	LikesCount   int       `gorm:"column:likes_count;default:0" json:"likes_count"`
	RepliesCount int       `gorm:"column:replies_count;default:0" json:"replies_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName overrides the table name used by CommunityPost to `community_posts`
func (CommunityPost) TableName() string {
	return "community_posts"
}

func (p *CommunityPost) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
