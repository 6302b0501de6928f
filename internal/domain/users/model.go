package users

import (
	"strings"
	"time"
)

const (
	RoleUser       = "user"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"

	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	Name         string  `gorm:"not null" json:"name"`
	Lastname     string  `json:"lastname"`
	Tel          string  `json:"tel"`
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email" json:"email"`
	Password     *string `json:"-"`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'" json:"auth_provider"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub" json:"-"`
	Role         string  `gorm:"type:varchar(20);not null;default:'user';index" json:"role"`
	IsVerified   bool    `json:"is_verified"`
	Bio          string  `json:"bio"`
	AvatarURL    string  `json:"avatar_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPassword is false for accounts created through Google sign-in.
func (u *User) HasPassword() bool {
	return u.Password != nil && *u.Password != ""
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.Name + " " + u.Lastname)
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) CanTeach() bool {
	return u.Role == RoleInstructor || u.Role == RoleAdmin
}

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// NormalizeEmail lower-cases and trims an address before lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
