package community

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Post struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID   uint           `gorm:"not null;index" json:"author_id"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	ImageURL   string         `json:"image_url,omitempty"`
	Likes      int            `gorm:"not null;default:0" json:"likes"`
	Flagged    bool           `gorm:"index" json:"flagged"`
	FlagReason string         `json:"flag_reason,omitempty"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Post) TableName() string { return "community_posts" }

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

const (
	ModerationApprove = "approve"
	ModerationRemove  = "remove"
)
