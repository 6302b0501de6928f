// Package repository declares the persistence ports used by services and
// their gorm implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/billing"
	"yoga-studio/internal/domain/classes"
	"yoga-studio/internal/domain/community"
	"yoga-studio/internal/domain/content"
	"yoga-studio/internal/domain/goals"
	"yoga-studio/internal/domain/messages"
	"yoga-studio/internal/domain/plans"
	"yoga-studio/internal/domain/subscriptions"
	"yoga-studio/internal/domain/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrClassFull       = apperr.Conflict("Class is full")
	ErrAlreadyEnrolled = apperr.Conflict("Already enrolled in this class")
	ErrNotEnrolled     = apperr.NotFound("Not enrolled in this class")
	ErrEmailTaken      = apperr.Conflict("Email already registered")
	ErrInUse           = apperr.Conflict("Resource is still referenced")
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

type ClassFilter struct {
	Style        string
	Level        string
	Status       string
	InstructorID uint
	UpcomingFrom *time.Time
	Page         Page
}

type ContentFilter struct {
	Type          string
	Category      string
	PublishedOnly bool
	Page          Page
}

type Users interface {
	Create(ctx context.Context, u *users.User) error
	GetByID(ctx context.Context, id uint) (*users.User, error)
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*users.User, error)
	Update(ctx context.Context, u *users.User) error
	List(ctx context.Context, page Page) ([]users.User, int64, error)
	CountByRole(ctx context.Context) (map[string]int64, error)
}

type Tokens interface {
	// Upsert replaces the token of the same user and type.
	Upsert(ctx context.Context, t *users.VerificationToken) error
	Get(ctx context.Context, userID uint, tokenType string) (*users.VerificationToken, error)
	GetByCode(ctx context.Context, tokenType, code string) (*users.VerificationToken, error)
	// RecordAttempt counts one failed guess against the token.
	RecordAttempt(ctx context.Context, userID uint, tokenType string) error
	Delete(ctx context.Context, userID uint, tokenType string) error
}

type Classes interface {
	Create(ctx context.Context, c *classes.Class) error
	GetByID(ctx context.Context, id uint) (*classes.Class, error)
	List(ctx context.Context, f ClassFilter) ([]classes.Class, int64, error)
	Update(ctx context.Context, c *classes.Class) error
	Delete(ctx context.Context, id uint) error

	// Enroll inserts the enrollment and increments booked atomically.
	Enroll(ctx context.Context, e *classes.Enrollment) error
	Unenroll(ctx context.Context, classID, userID uint) error
	IsEnrolled(ctx context.Context, classID, userID uint) (bool, error)
	Roster(ctx context.Context, classID uint) ([]users.User, error)
	EnrolledClasses(ctx context.Context, userID uint) ([]classes.Class, error)
	// CountAllowanceUsedSince counts the user's subscription-backed
	// enrollments created at or after since.
	CountAllowanceUsedSince(ctx context.Context, userID uint, since time.Time) (int64, error)

	ListByStatus(ctx context.Context, statuses ...string) ([]classes.Class, error)
	SetStatus(ctx context.Context, id uint, status string) error
	CountUpcoming(ctx context.Context, now time.Time) (int64, error)
}

type Payments interface {
	Create(ctx context.Context, p *billing.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*billing.Payment, error)
	Update(ctx context.Context, p *billing.Payment) error
	ListByUser(ctx context.Context, userID uint) ([]billing.Payment, error)
	List(ctx context.Context, page Page) ([]billing.Payment, int64, error)
	// Revenue sums completed payments per currency.
	Revenue(ctx context.Context) (map[string]int64, error)
}

type Plans interface {
	Create(ctx context.Context, p *plans.SubscriptionPlan) error
	GetByID(ctx context.Context, id uint) (*plans.SubscriptionPlan, error)
	List(ctx context.Context, activeOnly bool) ([]plans.SubscriptionPlan, error)
	Update(ctx context.Context, p *plans.SubscriptionPlan) error
	Delete(ctx context.Context, id uint) error
}

type Subscriptions interface {
	// ReplaceForUser deletes every subscription of s.UserID and inserts s.
	ReplaceForUser(ctx context.Context, s *subscriptions.Subscription) error
	GetByID(ctx context.Context, id uint) (*subscriptions.Subscription, error)
	GetByUser(ctx context.Context, userID uint) (*subscriptions.Subscription, error)
	Update(ctx context.Context, s *subscriptions.Subscription) error
	CountByUser(ctx context.Context, userID uint) (int64, error)
	List(ctx context.Context, page Page) ([]subscriptions.Subscription, int64, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	CountActive(ctx context.Context, now time.Time) (int64, error)
}

type Contents interface {
	Create(ctx context.Context, c *content.Content) error
	GetByID(ctx context.Context, id uint) (*content.Content, error)
	List(ctx context.Context, f ContentFilter) ([]content.Content, int64, error)
	Update(ctx context.Context, c *content.Content) error
	Delete(ctx context.Context, id uint) error
}

type Interactions interface {
	Get(ctx context.Context, userID, contentID uint) (*content.Interaction, error)
	Upsert(ctx context.Context, i *content.Interaction) error
	ListByUser(ctx context.Context, userID uint) ([]content.Interaction, error)
}

type Goals interface {
	Create(ctx context.Context, g *goals.Goal) error
	GetByID(ctx context.Context, id uint) (*goals.Goal, error)
	ListByUser(ctx context.Context, userID uint) ([]goals.Goal, error)
	Update(ctx context.Context, g *goals.Goal) error
	Delete(ctx context.Context, id uint) error
}

type Messages interface {
	Create(ctx context.Context, m *messages.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*messages.Message, error)
	Inbox(ctx context.Context, userID uint, page Page) ([]messages.Message, error)
	Conversation(ctx context.Context, a, b uint, page Page) ([]messages.Message, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Posts interface {
	Create(ctx context.Context, p *community.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*community.Post, error)
	Feed(ctx context.Context, page Page) ([]community.Post, error)
	Flagged(ctx context.Context, page Page) ([]community.Post, error)
	Update(ctx context.Context, p *community.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	Like(ctx context.Context, id uuid.UUID) error
}

// Store bundles every repository behind one value.
type Store struct {
	Users         Users
	Tokens        Tokens
	Classes       Classes
	Payments      Payments
	Plans         Plans
	Subscriptions Subscriptions
	Contents      Contents
	Interactions  Interactions
	Goals         Goals
	Messages      Messages
	Posts         Posts
}

// NewGormStore wires the gorm implementations over db.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users:         &userRepo{db: db},
		Tokens:        &tokenRepo{db: db},
		Classes:       &classRepo{db: db},
		Payments:      &paymentRepo{db: db},
		Plans:         &planRepo{db: db},
		Subscriptions: &subscriptionRepo{db: db},
		Contents:      &contentRepo{db: db},
		Interactions:  &interactionRepo{db: db},
		Goals:         &goalRepo{db: db},
		Messages:      &messageRepo{db: db},
		Posts:         &postRepo{db: db},
	}
}

// translate maps gorm errors onto the application taxonomy.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, apperr.ErrConflict)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w", op, ErrInUse)
	}
	return fmt.Errorf("%s: %w", op, err)
}
