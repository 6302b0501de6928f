package goals

import "time"

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned"
)

type Goal struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	Target      int        `gorm:"not null" json:"target"`
	Progress    int        `gorm:"not null;default:0" json:"progress"`
	Unit        string     `json:"unit"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Status      string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}

// Reconcile completes an active goal once progress reaches the target.
func (g *Goal) Reconcile() {
	if g.Status == StatusActive && g.Target > 0 && g.Progress >= g.Target {
		g.Status = StatusCompleted
	}
}
