package users

import "time"

const (
	TokenEmailOTP      = "email_otp"
	TokenPasswordReset = "password_reset"

	// MaxCodeAttempts is how many wrong guesses a code survives.
	MaxCodeAttempts = 5
)

// VerificationToken holds at most one live code per user and type.
type VerificationToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_tokens_user_type"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	Type      string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_tokens_user_type"`
	Code      string    `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
	Attempts  int       `gorm:"not null;default:0"`
	CreatedAt time.Time
}

func (t *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *VerificationToken) Exhausted() bool {
	return t.Attempts >= MaxCodeAttempts
}
