package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/classes"
	"yoga-studio/internal/domain/users"
	"yoga-studio/internal/repository"
)

type classRepo struct{ s *state }

// withInstructor copies c and attaches its instructor like a gorm Preload.
func (r *classRepo) withInstructor(c *classes.Class) classes.Class {
	cp := *c
	cp.Instructor = nil
	if u, ok := r.s.users[c.InstructorID]; ok {
		uc := *u
		cp.Instructor = &uc
	}
	return cp
}

func (r *classRepo) Create(_ context.Context, c *classes.Class) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c.ID = r.s.nextID()
	if c.Status == "" {
		c.Status = classes.StatusScheduled
	}
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	cp.Instructor = nil
	r.s.classes[c.ID] = &cp
	return nil
}

func (r *classRepo) GetByID(_ context.Context, id uint) (*classes.Class, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.classes[id]
	if !ok {
		return nil, fmt.Errorf("memstore.Classes.GetByID: %w", apperr.ErrNotFound)
	}
	out := r.withInstructor(c)
	return &out, nil
}

func (r *classRepo) List(_ context.Context, f repository.ClassFilter) ([]classes.Class, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []classes.Class{}
	for _, c := range r.s.classes {
		switch {
		case f.Style != "" && c.Style != f.Style:
			continue
		case f.Level != "" && c.Level != f.Level:
			continue
		case f.Status != "" && c.Status != f.Status:
			continue
		case f.InstructorID != 0 && c.InstructorID != f.InstructorID:
			continue
		case f.UpcomingFrom != nil && c.ScheduledAt.Before(*f.UpcomingFrom):
			continue
		}
		list = append(list, r.withInstructor(c))
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].ScheduledAt.Before(list[j].ScheduledAt) })
	return paginate(list, f.Page), int64(len(list)), nil
}

func (r *classRepo) Update(_ context.Context, c *classes.Class) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.classes[c.ID]
	if !ok {
		return fmt.Errorf("memstore.Classes.Update: %w", apperr.ErrNotFound)
	}
	if c.Capacity < existing.Booked {
		return repository.ErrCapacityBelowBooked
	}
	cp := *c
	cp.Instructor = nil
	cp.Booked = existing.Booked
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = r.s.now()
	r.s.classes[c.ID] = &cp
	c.Booked = cp.Booked
	return nil
}

func (r *classRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.classes[id]; !ok {
		return fmt.Errorf("memstore.Classes.Delete: %w", apperr.ErrNotFound)
	}
	for key := range r.s.enrollments {
		if key.parentID == id {
			delete(r.s.enrollments, key)
		}
	}
	delete(r.s.classes, id)
	return nil
}

func (r *classRepo) Enroll(_ context.Context, e *classes.Enrollment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.classes[e.ClassID]
	if !ok {
		return fmt.Errorf("memstore.Classes.Enroll: %w", apperr.ErrNotFound)
	}
	key := enrollKey{parentID: e.ClassID, userID: e.UserID}
	if _, dup := r.s.enrollments[key]; dup {
		return repository.ErrAlreadyEnrolled
	}
	if c.Booked >= c.Capacity {
		return repository.ErrClassFull
	}
	e.ID = r.s.nextID()
	e.CreatedAt = r.s.now()
	r.s.enrollments[key] = *e
	c.Booked++
	return nil
}

func (r *classRepo) Unenroll(_ context.Context, classID, userID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := enrollKey{parentID: classID, userID: userID}
	if _, ok := r.s.enrollments[key]; !ok {
		return repository.ErrNotEnrolled
	}
	delete(r.s.enrollments, key)
	if c, ok := r.s.classes[classID]; ok && c.Booked > 0 {
		c.Booked--
	}
	return nil
}

func (r *classRepo) IsEnrolled(_ context.Context, classID, userID uint) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.enrollments[enrollKey{parentID: classID, userID: userID}]
	return ok, nil
}

func (r *classRepo) Roster(_ context.Context, classID uint) ([]users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	type entry struct {
		u  users.User
		at time.Time
	}
	var entries []entry
	for key, e := range r.s.enrollments {
		if key.parentID != classID {
			continue
		}
		if u, ok := r.s.users[key.userID]; ok {
			entries = append(entries, entry{u: *u, at: e.CreatedAt})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })

	list := make([]users.User, 0, len(entries))
	for _, e := range entries {
		list = append(list, e.u)
	}
	return list, nil
}

func (r *classRepo) EnrolledClasses(_ context.Context, userID uint) ([]classes.Class, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []classes.Class{}
	for key := range r.s.enrollments {
		if key.userID != userID {
			continue
		}
		if c, ok := r.s.classes[key.parentID]; ok {
			list = append(list, r.withInstructor(c))
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].ScheduledAt.Before(list[j].ScheduledAt) })
	return list, nil
}

func (r *classRepo) CountAllowanceUsedSince(_ context.Context, userID uint, since time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for key, e := range r.s.enrollments {
		if key.userID == userID && e.ViaSubscription && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *classRepo) ListByStatus(_ context.Context, statuses ...string) ([]classes.Class, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	want := map[string]bool{}
	for _, st := range statuses {
		want[st] = true
	}
	list := []classes.Class{}
	for _, c := range r.s.classes {
		if want[c.Status] {
			list = append(list, *c)
		}
	}
	return list, nil
}

func (r *classRepo) SetStatus(_ context.Context, id uint, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.classes[id]
	if !ok {
		return fmt.Errorf("memstore.Classes.SetStatus: %w", apperr.ErrNotFound)
	}
	c.Status = status
	c.UpdatedAt = r.s.now()
	return nil
}

func (r *classRepo) CountUpcoming(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, c := range r.s.classes {
		if c.Status == classes.StatusScheduled && c.ScheduledAt.After(now) {
			n++
		}
	}
	return n, nil
}
