package content

import "time"

const (
	TypeArticle = "article"
	TypeVideo   = "video"
	TypeAudio   = "audio"
)

type Content struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Title     string `gorm:"not null" json:"title"`
	Summary   string `json:"summary"`
	Body      string `gorm:"type:text" json:"body,omitempty"`
	Type      string `gorm:"type:varchar(20);not null;index" json:"type"`
	MediaURL  string `json:"media_url,omitempty"`
	Category  string `gorm:"index" json:"category"`
	IsPremium bool   `json:"is_premium"`
	Published bool   `gorm:"index" json:"published"`
	AuthorID  uint   `gorm:"not null;index" json:"author_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Interaction is one user's engagement with one content item.
type Interaction struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	UserID     uint `gorm:"not null;uniqueIndex:idx_interactions_user_content" json:"user_id"`
	ContentID  uint `gorm:"not null;uniqueIndex:idx_interactions_user_content" json:"content_id"`
	Liked      bool `json:"liked"`
	Bookmarked bool `json:"bookmarked"`
	Completed  bool `json:"completed"`
	Progress   int  `gorm:"not null;default:0" json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ValidType(t string) bool {
	switch t {
	case TypeArticle, TypeVideo, TypeAudio:
		return true
	}
	return false
}

// Normalize clamps progress to 0..100 and keeps it consistent with Completed.
func (i *Interaction) Normalize() {
	if i.Progress < 0 {
		i.Progress = 0
	}
	if i.Progress > 100 {
		i.Progress = 100
	}
	if i.Completed {
		i.Progress = 100
	} else if i.Progress == 100 {
		i.Completed = true
	}
}
