// Package memstore is an in-memory implementation of the repository ports.
// It backs service tests and local demos without Postgres.
package memstore

import (
	"sort"
	"sync"
	"time"

	"yoga-studio/internal/domain/billing"
	"yoga-studio/internal/domain/classes"
	"yoga-studio/internal/domain/community"
	"yoga-studio/internal/domain/content"
	"yoga-studio/internal/domain/goals"
	"yoga-studio/internal/domain/messages"
	"yoga-studio/internal/domain/plans"
	"yoga-studio/internal/domain/subscriptions"
	"yoga-studio/internal/domain/users"
	"yoga-studio/internal/repository"

	"github.com/google/uuid"
)

type state struct {
	mu  sync.RWMutex
	seq uint

	users         map[uint]*users.User
	tokens        map[tokenKey]*users.VerificationToken
	classes       map[uint]*classes.Class
	enrollments   map[enrollKey]classes.Enrollment
	payments      map[uint]*billing.Payment
	plans         map[uint]*plans.SubscriptionPlan
	subscriptions map[uint]*subscriptions.Subscription
	contents      map[uint]*content.Content
	interactions  map[enrollKey]*content.Interaction
	goals         map[uint]*goals.Goal
	messages      map[uuid.UUID]*messages.Message
	posts         map[uuid.UUID]*community.Post

	// now is swappable so tests can pin timestamps.
	now func() time.Time
}

type tokenKey struct {
	userID uint
	typ    string
}

// enrollKey pairs a parent id with a user id.
type enrollKey struct {
	parentID uint
	userID   uint
}

// New returns a Store whose repositories share one in-memory state.
func New() *repository.Store {
	s := &state{
		users:         map[uint]*users.User{},
		tokens:        map[tokenKey]*users.VerificationToken{},
		classes:       map[uint]*classes.Class{},
		enrollments:   map[enrollKey]classes.Enrollment{},
		payments:      map[uint]*billing.Payment{},
		plans:         map[uint]*plans.SubscriptionPlan{},
		subscriptions: map[uint]*subscriptions.Subscription{},
		contents:      map[uint]*content.Content{},
		interactions:  map[enrollKey]*content.Interaction{},
		goals:         map[uint]*goals.Goal{},
		messages:      map[uuid.UUID]*messages.Message{},
		posts:         map[uuid.UUID]*community.Post{},
		now:           time.Now,
	}

	return &repository.Store{
		Users:         &userRepo{s},
		Tokens:        &tokenRepo{s},
		Classes:       &classRepo{s},
		Payments:      &paymentRepo{s},
		Plans:         &planRepo{s},
		Subscriptions: &subscriptionRepo{s},
		Contents:      &contentRepo{s},
		Interactions:  &interactionRepo{s},
		Goals:         &goalRepo{s},
		Messages:      &messageRepo{s},
		Posts:         &postRepo{s},
	}
}

func (s *state) nextID() uint {
	s.seq++
	return s.seq
}

// paginate slices list for page.
func paginate[T any](list []T, page repository.Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(list) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

func sortByCreatedDesc[T any](list []T, created func(T) time.Time) {
	sort.SliceStable(list, func(i, j int) bool {
		return created(list[i]).After(created(list[j]))
	})
}
