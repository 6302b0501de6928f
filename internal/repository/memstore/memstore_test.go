package memstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/classes"
	"yoga-studio/internal/domain/subscriptions"
	"yoga-studio/internal/domain/users"
	"yoga-studio/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.Users.Create(ctx, &users.User{Name: "Asha", Email: "asha@studio.in"}))
	err := store.Users.Create(ctx, &users.User{Name: "Other", Email: " ASHA@studio.in"})

	assert.ErrorIs(t, err, repository.ErrEmailTaken)
	_, total, err := store.Users.List(ctx, repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestClasses_EnrollIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := New()

	class := &classes.Class{Title: "Sunrise Flow", Capacity: 5, ScheduledAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Classes.Create(ctx, class))

	var (
		wg      sync.WaitGroup
		ok      atomic.Int32
		full    atomic.Int32
		workers = 40
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			err := store.Classes.Enroll(ctx, &classes.Enrollment{ClassID: class.ID, UserID: userID})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, repository.ErrClassFull):
				full.Add(1)
			}
		}(uint(1000 + i))
	}
	wg.Wait()

	assert.EqualValues(t, 5, ok.Load())
	assert.EqualValues(t, workers-5, full.Load())

	got, err := store.Classes.GetByID(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Booked)
}

func TestClasses_EnrollUnenroll(t *testing.T) {
	ctx := context.Background()
	store := New()

	class := &classes.Class{Title: "Yin", Capacity: 2}
	require.NoError(t, store.Classes.Create(ctx, class))

	require.NoError(t, store.Classes.Enroll(ctx, &classes.Enrollment{ClassID: class.ID, UserID: 1}))
	assert.ErrorIs(t, store.Classes.Enroll(ctx, &classes.Enrollment{ClassID: class.ID, UserID: 1}), repository.ErrAlreadyEnrolled)

	enrolled, err := store.Classes.IsEnrolled(ctx, class.ID, 1)
	require.NoError(t, err)
	assert.True(t, enrolled)

	require.NoError(t, store.Classes.Unenroll(ctx, class.ID, 1))
	assert.ErrorIs(t, store.Classes.Unenroll(ctx, class.ID, 1), repository.ErrNotEnrolled)

	got, err := store.Classes.GetByID(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Booked)
}

func TestClasses_CountAllowanceUsedSince(t *testing.T) {
	ctx := context.Background()
	store := New()
	since := time.Now().Add(-time.Minute)

	for i := 0; i < 3; i++ {
		class := &classes.Class{Title: "Hatha", Capacity: 5}
		require.NoError(t, store.Classes.Create(ctx, class))
		require.NoError(t, store.Classes.Enroll(ctx, &classes.Enrollment{ClassID: class.ID, UserID: 7, ViaSubscription: i > 0}))
	}

	n, err := store.Classes.CountAllowanceUsedSince(ctx, 7, since)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = store.Classes.CountAllowanceUsedSince(ctx, 7, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClasses_UpdateKeepsBooked(t *testing.T) {
	ctx := context.Background()
	store := New()

	class := &classes.Class{Title: "Vinyasa", Capacity: 3}
	require.NoError(t, store.Classes.Create(ctx, class))
	require.NoError(t, store.Classes.Enroll(ctx, &classes.Enrollment{ClassID: class.ID, UserID: 1}))
	require.NoError(t, store.Classes.Enroll(ctx, &classes.Enrollment{ClassID: class.ID, UserID: 2}))

	stale := *class
	stale.Title = "Power Vinyasa"
	stale.Booked = 0
	require.NoError(t, store.Classes.Update(ctx, &stale))
	assert.Equal(t, 2, stale.Booked)

	stale.Capacity = 1
	err := store.Classes.Update(ctx, &stale)
	assert.ErrorIs(t, err, repository.ErrCapacityBelowBooked)
}

func TestSubscriptions_ReplaceForUser(t *testing.T) {
	ctx := context.Background()
	store := New()

	first := &subscriptions.Subscription{UserID: 9, PlanID: 1, Status: subscriptions.StatusActive, EndDate: time.Now().AddDate(0, 1, 0)}
	require.NoError(t, store.Subscriptions.ReplaceForUser(ctx, first))
	second := &subscriptions.Subscription{UserID: 9, PlanID: 2, Status: subscriptions.StatusPending}
	require.NoError(t, store.Subscriptions.ReplaceForUser(ctx, second))

	n, err := store.Subscriptions.CountByUser(ctx, 9)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := store.Subscriptions.GetByUser(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = store.Subscriptions.GetByID(ctx, first.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestSubscriptions_ExpireDue(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Now()

	due := &subscriptions.Subscription{UserID: 1, Status: subscriptions.StatusPending}
	require.NoError(t, store.Subscriptions.ReplaceForUser(ctx, due))
	due.Status = subscriptions.StatusActive
	due.EndDate = now.Add(time.Hour)
	require.NoError(t, store.Subscriptions.Update(ctx, due))

	live := &subscriptions.Subscription{UserID: 2, Status: subscriptions.StatusActive, EndDate: now.Add(48 * time.Hour)}
	require.NoError(t, store.Subscriptions.ReplaceForUser(ctx, live))

	n, err := store.Subscriptions.ExpireDue(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := store.Subscriptions.GetByUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, subscriptions.StatusExpired, got.Status)
}
