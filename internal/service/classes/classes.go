// Package classes runs the class catalog and bookings.
package classes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/access"
	"yoga-studio/internal/domain/billing"
	"yoga-studio/internal/domain/classes"
	"yoga-studio/internal/domain/users"
	"yoga-studio/internal/infra/mailer"
	"yoga-studio/internal/infra/metrics"
	"yoga-studio/internal/repository"

	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

var (
	ErrClassNotFound  = apperr.NotFound("Class not found")
	ErrNotOpen        = apperr.Validation("Class is not open for enrollment")
	ErrPaymentNeeded  = apperr.PaymentRequired("This class requires payment or an active subscription")
	ErrAllowanceSpent = apperr.PaymentRequired("Your plan's monthly class allowance is used up")
)

// DateLayouts are the accepted forms of scheduled_at.
var DateLayouts = []string{time.RFC3339, "2006-01-02T15:04"}

type Service struct {
	store    *repository.Store
	mail     mailer.Mailer
	metrics  *metrics.Metrics
	log      *logrus.Logger
	currency string
	now      func() time.Time
}

func New(store *repository.Store, mail mailer.Mailer, m *metrics.Metrics, log *logrus.Logger, currency string) *Service {
	return &Service{store: store, mail: mail, metrics: m, log: log, currency: currency, now: time.Now}
}

type Input struct {
	Title           string
	Description     string
	Style           string
	Level           string
	DurationMinutes int
	Capacity        int
	Price           int64
	Currency        string
	ScheduledAt     string
	IsOnline        bool
	MeetingLink     string
	Location        string
	ImageURL        string
	InstructorID    uint
}

// Patch holds the fields of a partial update; nil leaves a field unchanged.
type Patch struct {
	Title           *string
	Description     *string
	Style           *string
	Level           *string
	DurationMinutes *int
	Capacity        *int
	Price           *int64
	ScheduledAt     *string
	IsOnline        *bool
	MeetingLink     *string
	Location        *string
	ImageURL        *string
	Status          *string
	InstructorID    *uint
}

func ParseSchedule(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("scheduled_at must be RFC3339 or YYYY-MM-DDTHH:MM")
}

func (s *Service) Create(ctx context.Context, actor access.Actor, in Input) (*classes.Class, error) {
	const op = "classes.Create"

	if actor.Role != users.RoleInstructor && actor.Role != users.RoleAdmin {
		return nil, apperr.Forbidden("Only instructors can create classes")
	}

	c := &classes.Class{
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Style:           strings.TrimSpace(in.Style),
		Level:           strings.ToLower(strings.TrimSpace(in.Level)),
		DurationMinutes: in.DurationMinutes,
		InstructorID:    actor.UserID,
		Capacity:        in.Capacity,
		Price:           in.Price,
		Currency:        strings.ToUpper(in.Currency),
		IsOnline:        in.IsOnline,
		MeetingLink:     in.MeetingLink,
		Location:        in.Location,
		ImageURL:        in.ImageURL,
		Status:          classes.StatusScheduled,
	}
	if c.Currency == "" {
		c.Currency = s.currency
	}

	at, err := ParseSchedule(in.ScheduledAt)
	if err != nil {
		return nil, err
	}
	c.ScheduledAt = at

	if in.InstructorID != 0 && in.InstructorID != actor.UserID {
		if !actor.IsAdmin() {
			return nil, apperr.Forbidden("Only admins can assign another instructor")
		}
		if err := s.checkInstructor(ctx, in.InstructorID); err != nil {
			return nil, err
		}
		c.InstructorID = in.InstructorID
	}

	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.store.Classes.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.Get(ctx, c.ID)
}

func (s *Service) Get(ctx context.Context, id uint) (*classes.Class, error) {
	c, err := s.store.Classes.GetByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("classes.Get: %w", err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, f repository.ClassFilter) ([]classes.Class, int64, error) {
	if f.Level != "" && !classes.ValidLevel(f.Level) {
		return nil, 0, apperr.Validation("Unknown level %q", f.Level)
	}
	if f.Status != "" && !classes.ValidStatus(f.Status) {
		return nil, 0, apperr.Validation("Unknown status %q", f.Status)
	}
	list, total, err := s.store.Classes.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("classes.List: %w", err)
	}
	return list, total, nil
}

// Update applies p to a class the actor manages. Ownership is checked
// before anything is validated or written.
func (s *Service) Update(ctx context.Context, actor access.Actor, id uint, p Patch) (*classes.Class, error) {
	const op = "classes.Update"

	c, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	setString(&c.Title, p.Title)
	setString(&c.Description, p.Description)
	setString(&c.Style, p.Style)
	setString(&c.MeetingLink, p.MeetingLink)
	setString(&c.Location, p.Location)
	setString(&c.ImageURL, p.ImageURL)
	if p.Level != nil {
		c.Level = strings.ToLower(strings.TrimSpace(*p.Level))
	}
	if p.DurationMinutes != nil {
		c.DurationMinutes = *p.DurationMinutes
	}
	if p.Capacity != nil {
		if *p.Capacity < c.Booked {
			return nil, repository.ErrCapacityBelowBooked
		}
		c.Capacity = *p.Capacity
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.IsOnline != nil {
		c.IsOnline = *p.IsOnline
	}
	if p.ScheduledAt != nil {
		at, err := ParseSchedule(*p.ScheduledAt)
		if err != nil {
			return nil, err
		}
		c.ScheduledAt = at
	}
	if p.Status != nil {
		next := strings.ToLower(*p.Status)
		if !classes.ValidStatus(next) {
			return nil, apperr.Validation("Unknown status %q", *p.Status)
		}
		if !classes.CanTransition(c.Status, next) {
			return nil, apperr.Validation("Cannot move a %s class to %s", c.Status, next)
		}
		c.Status = next
	}
	if p.InstructorID != nil && *p.InstructorID != c.InstructorID {
		if !actor.IsAdmin() {
			return nil, apperr.Forbidden("Only admins can reassign a class")
		}
		if err := s.checkInstructor(ctx, *p.InstructorID); err != nil {
			return nil, err
		}
		c.InstructorID = *p.InstructorID
		c.Instructor = nil
	}

	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.store.Classes.Update(ctx, c); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actor access.Actor, id uint) error {
	if _, err := s.managed(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.Classes.Delete(ctx, id); err != nil {
		return fmt.Errorf("classes.Delete: %w", err)
	}
	s.log.WithFields(logrus.Fields{"class_id": id, "user_id": actor.UserID}).Info("Class deleted")
	return nil
}

// Enroll books the actor into a class. Paid classes need a completed
// payment for the class or a subscription whose plan covers classes.
func (s *Service) Enroll(ctx context.Context, actor access.Actor, classID uint) (*classes.Class, error) {
	const op = "classes.Enroll"

	c, err := s.Get(ctx, classID)
	if err != nil {
		return nil, err
	}
	if c.Status != classes.StatusScheduled {
		return nil, ErrNotOpen
	}
	enrolled, err := s.store.Classes.IsEnrolled(ctx, classID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if enrolled {
		s.metrics.Enrollment("duplicate")
		return nil, repository.ErrAlreadyEnrolled
	}
	if c.IsFull() {
		s.metrics.Enrollment("full")
		return nil, repository.ErrClassFull
	}
	e := &classes.Enrollment{ClassID: classID, UserID: actor.UserID}
	if !c.IsFree() {
		via, err := s.checkPaidAccess(ctx, actor.UserID, c)
		if err != nil {
			s.metrics.Enrollment("payment_required")
			return nil, err
		}
		e.ViaSubscription = via
	}

	if err := s.store.Classes.Enroll(ctx, e); err != nil {
		switch {
		case apperr.IsKind(err, apperr.KindConflict):
			s.metrics.Enrollment("rejected")
			return nil, err
		default:
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	s.metrics.Enrollment("booked")
	s.notifyBooking(ctx, actor.UserID, c)
	return s.Get(ctx, classID)
}

// EnrollPaid books a user whose class payment has been captured.
// An existing enrollment counts as success.
func (s *Service) EnrollPaid(ctx context.Context, classID, userID uint) error {
	err := s.store.Classes.Enroll(ctx, &classes.Enrollment{ClassID: classID, UserID: userID})
	switch {
	case err == nil:
		s.metrics.Enrollment("paid")
	case errors.Is(err, repository.ErrAlreadyEnrolled):
		return nil
	default:
		return err
	}
	if c, err := s.store.Classes.GetByID(ctx, classID); err == nil {
		s.notifyBooking(ctx, userID, c)
	}
	return nil
}

func (s *Service) Unenroll(ctx context.Context, actor access.Actor, classID uint) error {
	c, err := s.Get(ctx, classID)
	if err != nil {
		return err
	}
	if c.Status == classes.StatusCompleted {
		return apperr.Validation("Cannot leave a completed class")
	}
	if err := s.store.Classes.Unenroll(ctx, classID, actor.UserID); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return repository.ErrNotEnrolled
		}
		return fmt.Errorf("classes.Unenroll: %w", err)
	}
	return nil
}

func (s *Service) Roster(ctx context.Context, actor access.Actor, classID uint) ([]users.User, error) {
	if _, err := s.managed(ctx, actor, classID); err != nil {
		return nil, err
	}
	list, err := s.store.Classes.Roster(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("classes.Roster: %w", err)
	}
	return list, nil
}

func (s *Service) Enrolled(ctx context.Context, userID uint) ([]classes.Class, error) {
	list, err := s.store.Classes.EnrolledClasses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("classes.Enrolled: %w", err)
	}
	return list, nil
}

func (s *Service) Teaching(ctx context.Context, actor access.Actor) ([]classes.Class, error) {
	if actor.Role != users.RoleInstructor && actor.Role != users.RoleAdmin {
		return nil, apperr.Forbidden("Only instructors teach classes")
	}
	list, _, err := s.store.Classes.List(ctx, repository.ClassFilter{
		InstructorID: actor.UserID,
		Page:         repository.Page{Limit: repository.MaxLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("classes.Teaching: %w", err)
	}
	return list, nil
}

// BookingReference is the value encoded in a ticket QR code.
func BookingReference(classID, userID uint) string {
	return fmt.Sprintf("YOGA-%06d-%06d", classID, userID)
}

// Ticket renders the check-in QR code of an enrolled user as PNG.
func (s *Service) Ticket(ctx context.Context, actor access.Actor, classID uint) ([]byte, error) {
	if _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}
	enrolled, err := s.store.Classes.IsEnrolled(ctx, classID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("classes.Ticket: %w", err)
	}
	if !enrolled {
		return nil, repository.ErrNotEnrolled
	}
	png, err := qrcode.Encode(BookingReference(classID, actor.UserID), qrcode.Medium, 256)
	if err != nil {
		return nil, apperr.Internal("Failed to render ticket", err)
	}
	return png, nil
}

// SweepStatuses moves started classes to ongoing and finished ones to
// completed. It returns the number of classes changed.
func (s *Service) SweepStatuses(ctx context.Context) (int, error) {
	const op = "classes.SweepStatuses"

	now := s.now()
	list, err := s.store.Classes.ListByStatus(ctx, classes.StatusScheduled, classes.StatusOngoing)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	changed := 0
	for i := range list {
		c := &list[i]
		next := classes.StatusAt(c, now)
		if next == c.Status {
			continue
		}
		if err := s.store.Classes.SetStatus(ctx, c.ID, next); err != nil {
			return changed, fmt.Errorf("%s: %w", op, err)
		}
		changed++
	}
	return changed, nil
}

func (s *Service) managed(ctx context.Context, actor access.Actor, id uint) (*classes.Class, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanManageClass(actor.UserID, actor.Role, c) {
		return nil, apperr.Forbidden("You can only manage your own classes")
	}
	return c, nil
}

func (s *Service) checkInstructor(ctx context.Context, id uint) error {
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.Validation("Instructor %d does not exist", id)
		}
		return fmt.Errorf("classes.checkInstructor: %w", err)
	}
	if !u.CanTeach() {
		return apperr.Validation("User %d is not an instructor", id)
	}
	return nil
}

// checkPaidAccess reports whether the booking draws on the plan allowance.
// A completed payment for the class books it without touching the allowance.
func (s *Service) checkPaidAccess(ctx context.Context, userID uint, c *classes.Class) (bool, error) {
	const op = "classes.checkPaidAccess"

	payments, err := s.store.Payments.ListByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	for _, p := range payments {
		if p.Purpose == billing.PurposeClass && p.ClassID != nil && *p.ClassID == c.ID && p.IsCompleted() {
			return false, nil
		}
	}

	sub, err := s.store.Subscriptions.GetByUser(ctx, userID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return false, ErrPaymentNeeded
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	if !sub.IsActive(now) || sub.Plan == nil || !sub.Plan.GrantsClassAccess() {
		return false, ErrPaymentNeeded
	}
	if c.IsOnline && !sub.Plan.OnlineAccess {
		return false, apperr.PaymentRequired("Your plan does not include online classes")
	}
	if sub.Plan.Unlimited() {
		return true, nil
	}

	used, err := s.store.Classes.CountAllowanceUsedSince(ctx, userID, AllowanceStart(sub.StartDate, now))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if used >= int64(sub.Plan.ClassesPerMonth) {
		return false, ErrAllowanceSpent
	}
	return true, nil
}

// AllowanceStart is the start of the monthly window containing now,
// counted in whole months from the subscription start.
func AllowanceStart(start, now time.Time) time.Time {
	if now.Before(start) {
		return start
	}
	window := start
	for months := 1; ; months++ {
		next := start.AddDate(0, months, 0)
		if next.After(now) {
			return window
		}
		window = next
	}
}

func (s *Service) notifyBooking(ctx context.Context, userID uint, c *classes.Class) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("Booking email skipped")
		return
	}
	err = s.mail.Send(ctx, mailer.BookingEmail(u.Email, u.Name, c.Title, c.ScheduledAt))
	s.metrics.Mail("booking", err)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "class_id": c.ID}).Warn("Booking email not sent")
	}
}

func validate(c *classes.Class) error {
	switch {
	case c.Title == "":
		return apperr.Validation("Title is required")
	case c.Style == "":
		return apperr.Validation("Style is required")
	case !classes.ValidLevel(c.Level):
		return apperr.Validation("Level must be one of beginner, intermediate, advanced, all")
	case c.DurationMinutes <= 0:
		return apperr.Validation("Duration must be greater than zero")
	case c.Capacity <= 0:
		return apperr.Validation("Capacity must be greater than zero")
	case c.Price < 0:
		return apperr.Validation("Price cannot be negative")
	case len(c.Currency) != 3:
		return apperr.Validation("Currency must be a 3-letter code")
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
