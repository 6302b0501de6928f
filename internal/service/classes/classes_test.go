package classes

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/access"
	"yoga-studio/internal/domain/billing"
	"yoga-studio/internal/domain/classes"
	"yoga-studio/internal/domain/plans"
	"yoga-studio/internal/domain/subscriptions"
	"yoga-studio/internal/domain/users"
	"yoga-studio/internal/infra/mailer"
	"yoga-studio/internal/logging"
	"yoga-studio/internal/repository"
	"yoga-studio/internal/repository/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

type fixture struct {
	svc        *Service
	store      *repository.Store
	mail       *fakeMailer
	admin      access.Actor
	instructor access.Actor
	other      access.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	mail := &fakeMailer{}
	f := &fixture{
		svc:   New(store, mail, nil, logging.Discard(), "INR"),
		store: store,
		mail:  mail,
	}
	f.admin = f.user(t, "admin@studio.in", users.RoleAdmin)
	f.instructor = f.user(t, "guru@studio.in", users.RoleInstructor)
	f.other = f.user(t, "other@studio.in", users.RoleInstructor)
	return f
}

func (f *fixture) user(t *testing.T, email, role string) access.Actor {
	t.Helper()
	u := &users.User{Name: email, Email: email, Role: role, IsVerified: true}
	require.NoError(t, f.store.Users.Create(context.Background(), u))
	return access.Actor{UserID: u.ID, Role: role}
}

func (f *fixture) class(t *testing.T, capacity int, price int64) *classes.Class {
	t.Helper()
	c, err := f.svc.Create(context.Background(), f.instructor, Input{
		Title:           "Sunrise Flow",
		Style:           "vinyasa",
		Level:           "beginner",
		DurationMinutes: 60,
		Capacity:        capacity,
		Price:           price,
		ScheduledAt:     time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) subscribe(t *testing.T, userID uint, plan plans.SubscriptionPlan) {
	t.Helper()
	ctx := context.Background()
	plan.Name = plan.Name + "-" + time.Now().Format("150405.000000")
	plan.MonthlyPrice = 150000
	plan.Currency = "INR"
	plan.IsActive = true
	require.NoError(t, f.store.Plans.Create(ctx, &plan))

	start := time.Now().Add(-time.Hour)
	require.NoError(t, f.store.Subscriptions.ReplaceForUser(ctx, &subscriptions.Subscription{
		UserID:       userID,
		PlanID:       plan.ID,
		BillingCycle: plans.CycleMonthly,
		Amount:       plan.MonthlyPrice,
		Currency:     "INR",
		Status:       subscriptions.StatusActive,
		StartDate:    start,
		EndDate:      plans.PeriodEnd(start, plans.CycleMonthly),
	}))
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.user(t, "student@studio.in", users.RoleUser)
	at := time.Now().Add(time.Hour).UTC().Format("2006-01-02T15:04")

	base := Input{Title: "Yin", Style: "yin", Level: "all", DurationMinutes: 45, Capacity: 10, ScheduledAt: at}

	c, err := f.svc.Create(ctx, f.instructor, base)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Booked)
	assert.Equal(t, classes.StatusScheduled, c.Status)
	assert.Equal(t, "INR", c.Currency)
	assert.Equal(t, f.instructor.UserID, c.InstructorID)

	_, err = f.svc.Create(ctx, student, base)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	assigned := base
	assigned.InstructorID = f.other.UserID
	_, err = f.svc.Create(ctx, f.instructor, assigned)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	c, err = f.svc.Create(ctx, f.admin, assigned)
	require.NoError(t, err)
	assert.Equal(t, f.other.UserID, c.InstructorID)

	assigned.InstructorID = student.UserID
	_, err = f.svc.Create(ctx, f.admin, assigned)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	invalid := []func(*Input){
		func(in *Input) { in.Title = " " },
		func(in *Input) { in.Style = "" },
		func(in *Input) { in.Level = "expert" },
		func(in *Input) { in.DurationMinutes = 0 },
		func(in *Input) { in.Capacity = 0 },
		func(in *Input) { in.ScheduledAt = "next tuesday" },
		func(in *Input) { in.Price = -1 },
	}
	for _, mutate := range invalid {
		in := base
		mutate(&in)
		_, err := f.svc.Create(ctx, f.instructor, in)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), "input %+v", in)
	}
}

func TestEnrollCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, 2, 0)

	first := f.user(t, "a@studio.in", users.RoleUser)
	second := f.user(t, "b@studio.in", users.RoleUser)
	third := f.user(t, "c@studio.in", users.RoleUser)

	got, err := f.svc.Enroll(ctx, first, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Booked)

	_, err = f.svc.Enroll(ctx, first, c.ID)
	assert.ErrorIs(t, err, repository.ErrAlreadyEnrolled)

	got, err = f.svc.Enroll(ctx, second, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Booked)

	_, err = f.svc.Enroll(ctx, third, c.ID)
	assert.ErrorIs(t, err, repository.ErrClassFull)

	got, err = f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Booked)
	assert.Len(t, f.mail.sent, 2)
}

func TestEnroll_RejectsClosedClass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, 5, 0)

	cancelled := classes.StatusCancelled
	_, err := f.svc.Update(ctx, f.instructor, c.ID, Patch{Status: &cancelled})
	require.NoError(t, err)

	student := f.user(t, "s@studio.in", users.RoleUser)
	_, err = f.svc.Enroll(ctx, student, c.ID)
	assert.ErrorIs(t, err, ErrNotOpen)

	_, err = f.svc.Enroll(ctx, student, 9999)
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestEnroll_PaidClass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, 10, 50000)

	payer := f.user(t, "payer@studio.in", users.RoleUser)
	_, err := f.svc.Enroll(ctx, payer, c.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindPaymentRequired, apperr.KindOf(err))

	classID := c.ID
	require.NoError(t, f.store.Payments.Create(ctx, &billing.Payment{
		UserID: payer.UserID, Purpose: billing.PurposeClass, ClassID: &classID,
		Amount: 50000, Currency: "INR", Provider: "razorpay", OrderID: "order_paid",
		Status: billing.StatusCompleted,
	}))
	_, err = f.svc.Enroll(ctx, payer, c.ID)
	require.NoError(t, err)

	basic := f.user(t, "basic@studio.in", users.RoleUser)
	f.subscribe(t, basic.UserID, plans.SubscriptionPlan{Name: "Basic", ClassesPerMonth: 0})
	_, err = f.svc.Enroll(ctx, basic, c.ID)
	assert.ErrorIs(t, err, ErrPaymentNeeded)

	member := f.user(t, "member@studio.in", users.RoleUser)
	f.subscribe(t, member.UserID, plans.SubscriptionPlan{Name: "Unlimited", ClassesPerMonth: plans.UnlimitedClasses})
	_, err = f.svc.Enroll(ctx, member, c.ID)
	require.NoError(t, err)
}

func TestEnroll_MonthlyAllowance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.class(t, 10, 50000)
	second := f.class(t, 10, 50000)

	member := f.user(t, "member@studio.in", users.RoleUser)
	f.subscribe(t, member.UserID, plans.SubscriptionPlan{Name: "One", ClassesPerMonth: 1})

	_, err := f.svc.Enroll(ctx, member, first.ID)
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, member, second.ID)
	assert.ErrorIs(t, err, ErrAllowanceSpent)
}

func TestEnroll_AllowanceIgnoresFreeAndPaidBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	free := f.class(t, 10, 0)
	bought := f.class(t, 10, 50000)
	covered := f.class(t, 10, 50000)
	extra := f.class(t, 10, 50000)

	member := f.user(t, "member@studio.in", users.RoleUser)
	f.subscribe(t, member.UserID, plans.SubscriptionPlan{Name: "One", ClassesPerMonth: 1})
	require.NoError(t, f.store.Payments.Create(ctx, &billing.Payment{
		UserID: member.UserID, Purpose: billing.PurposeClass, ClassID: &bought.ID,
		Amount: 50000, Currency: "INR", Provider: "razorpay", OrderID: "order_bought", Status: billing.StatusCompleted,
	}))

	_, err := f.svc.Enroll(ctx, member, free.ID)
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, member, bought.ID)
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, member, covered.ID)
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, member, extra.ID)
	assert.ErrorIs(t, err, ErrAllowanceSpent)
}

func TestUnenroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, 3, 0)
	student := f.user(t, "s@studio.in", users.RoleUser)

	assert.ErrorIs(t, f.svc.Unenroll(ctx, student, c.ID), repository.ErrNotEnrolled)

	_, err := f.svc.Enroll(ctx, student, c.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Unenroll(ctx, student, c.ID))

	got, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Booked)
}

func TestDelete_RequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, 3, 0)
	student := f.user(t, "s@studio.in", users.RoleUser)

	tests := []struct {
		name  string
		actor access.Actor
		id    uint
		kind  apperr.Kind
	}{
		{"other instructor", f.other, c.ID, apperr.KindForbidden},
		{"plain user", student, c.ID, apperr.KindForbidden},
		{"unknown class", f.admin, 4242, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.Delete(ctx, tt.actor, tt.id)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	_, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.admin, c.ID))
	_, err = f.svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, 3, 0)
	student := f.user(t, "s@studio.in", users.RoleUser)
	_, err := f.svc.Enroll(ctx, student, c.ID)
	require.NoError(t, err)

	title := "Evening Flow"
	_, err = f.svc.Update(ctx, f.other, c.ID, Patch{Title: &title})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	updated, err := f.svc.Update(ctx, f.instructor, c.ID, Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Evening Flow", updated.Title)
	assert.Equal(t, 1, updated.Booked)

	zero := 0
	_, err = f.svc.Update(ctx, f.instructor, c.ID, Patch{Capacity: &zero})
	assert.ErrorIs(t, err, repository.ErrCapacityBelowBooked)

	completed := classes.StatusCompleted
	_, err = f.svc.Update(ctx, f.instructor, c.ID, Patch{Status: &completed})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	reassign := f.other.UserID
	_, err = f.svc.Update(ctx, f.instructor, c.ID, Patch{InstructorID: &reassign})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	updated, err = f.svc.Update(ctx, f.admin, c.ID, Patch{InstructorID: &reassign})
	require.NoError(t, err)
	assert.Equal(t, f.other.UserID, updated.InstructorID)
}

func TestRosterAndTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, 3, 0)
	student := f.user(t, "s@studio.in", users.RoleUser)

	_, err := f.svc.Ticket(ctx, student, c.ID)
	assert.ErrorIs(t, err, repository.ErrNotEnrolled)

	_, err = f.svc.Enroll(ctx, student, c.ID)
	require.NoError(t, err)

	roster, err := f.svc.Roster(ctx, f.instructor, c.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, student.UserID, roster[0].ID)

	_, err = f.svc.Roster(ctx, student, c.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	png, err := f.svc.Ticket(ctx, student, c.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	mine, err := f.svc.Enrolled(ctx, student.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	teaching, err := f.svc.Teaching(ctx, f.instructor)
	require.NoError(t, err)
	assert.Len(t, teaching, 1)
}

func TestSweepStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, 3, 0)

	f.svc.now = func() time.Time { return c.ScheduledAt.Add(10 * time.Minute) }
	n, err := f.svc.SweepStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, _ := f.svc.Get(ctx, c.ID)
	assert.Equal(t, classes.StatusOngoing, got.Status)

	f.svc.now = func() time.Time { return c.EndsAt().Add(time.Minute) }
	n, err = f.svc.SweepStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, _ = f.svc.Get(ctx, c.ID)
	assert.Equal(t, classes.StatusCompleted, got.Status)

	n, err = f.svc.SweepStatuses(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAllowanceStart(t *testing.T) {
	start := time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"first window", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), start},
		{"second window", time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)},
		{"boundary", time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC), time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)},
		{"before start", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), start},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AllowanceStart(start, tt.now))
		})
	}
}
