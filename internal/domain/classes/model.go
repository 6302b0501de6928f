package classes

import (
	"time"

	"yoga-studio/internal/domain/users"
)

const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
	LevelAll          = "all"
)

type Class struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	Title           string      `gorm:"not null" json:"title"`
	Description     string      `json:"description"`
	Style           string      `gorm:"not null;index" json:"style"`
	Level           string      `gorm:"type:varchar(20);not null;index" json:"level"`
	DurationMinutes int         `gorm:"not null" json:"duration_minutes"`
	InstructorID    uint        `gorm:"not null;index" json:"instructor_id"`
	Instructor      *users.User `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	Capacity        int         `gorm:"not null;check:capacity > 0" json:"capacity"`
	Booked          int         `gorm:"not null;default:0;check:booked >= 0 AND booked <= capacity" json:"booked"`
	Price           int64       `gorm:"not null;default:0" json:"price"`
	Currency        string      `gorm:"type:varchar(3);not null" json:"currency"`
	ScheduledAt     time.Time   `gorm:"not null;index" json:"scheduled_at"`
	IsOnline        bool        `json:"is_online"`
	MeetingLink     string      `json:"meeting_link,omitempty"`
	Location        string      `json:"location,omitempty"`
	ImageURL        string      `json:"image_url,omitempty"`
	Status          string      `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Enrollment is the booking of one user into one class. ViaSubscription
// marks bookings that drew on the monthly plan allowance.
type Enrollment struct {
	ID              uint  `gorm:"primaryKey" json:"id"`
	ClassID         uint  `gorm:"not null;uniqueIndex:idx_enrollments_class_user" json:"class_id"`
	Class           Class `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID          uint  `gorm:"not null;uniqueIndex:idx_enrollments_class_user;index" json:"user_id"`
	ViaSubscription bool  `gorm:"not null;default:false" json:"via_subscription"`

	CreatedAt time.Time `json:"created_at"`
}

func (c *Class) IsFree() bool { return c.Price <= 0 }

func (c *Class) IsFull() bool { return c.Booked >= c.Capacity }

func (c *Class) SpotsLeft() int {
	if c.Booked >= c.Capacity {
		return 0
	}
	return c.Capacity - c.Booked
}

func (c *Class) EndsAt() time.Time {
	return c.ScheduledAt.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// OwnedBy reports whether userID is the instructor of the class.
func (c *Class) OwnedBy(userID uint) bool { return c.InstructorID == userID }

func ValidLevel(level string) bool {
	switch level {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelAll:
		return true
	}
	return false
}
