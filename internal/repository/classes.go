package repository

import (
	"context"
	"errors"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/classes"
	"yoga-studio/internal/domain/users"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCapacityBelowBooked = apperr.Conflict("Capacity cannot be lower than the number of booked spots")

var classColumns = []string{
	"title", "description", "style", "level", "duration_minutes", "instructor_id",
	"capacity", "price", "currency", "scheduled_at", "is_online", "meeting_link",
	"location", "image_url", "status",
}

type classRepo struct {
	db *gorm.DB
}

func (r *classRepo) Create(ctx context.Context, c *classes.Class) error {
	const op = "repository.Classes.Create"
	return translate(op, r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error)
}

func (r *classRepo) GetByID(ctx context.Context, id uint) (*classes.Class, error) {
	const op = "repository.Classes.GetByID"

	var c classes.Class
	if err := r.db.WithContext(ctx).Preload("Instructor").First(&c, id).Error; err != nil {
		return nil, translate(op, err)
	}
	return &c, nil
}

func (r *classRepo) List(ctx context.Context, f ClassFilter) ([]classes.Class, int64, error) {
	const op = "repository.Classes.List"

	q := r.db.WithContext(ctx).Model(&classes.Class{})
	if f.Style != "" {
		q = q.Where("style = ?", f.Style)
	}
	if f.Level != "" {
		q = q.Where("level = ?", f.Level)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.InstructorID != 0 {
		q = q.Where("instructor_id = ?", f.InstructorID)
	}
	if f.UpcomingFrom != nil {
		q = q.Where("scheduled_at >= ?", *f.UpcomingFrom)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(op, err)
	}

	page := f.Page.Normalize()
	var list []classes.Class
	err := q.Preload("Instructor").
		Order("scheduled_at ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&list).Error
	return list, total, translate(op, err)
}

// Update writes every editable column but never touches booked, and refuses
// to drop capacity below the current bookings.
func (r *classRepo) Update(ctx context.Context, c *classes.Class) error {
	const op = "repository.Classes.Update"

	res := r.db.WithContext(ctx).Model(c).
		Where("booked <= ?", c.Capacity).
		Select(classColumns).
		Updates(c)
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCapacityBelowBooked
	}
	return nil
}

func (r *classRepo) Delete(ctx context.Context, id uint) error {
	const op = "repository.Classes.Delete"

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("class_id = ?", id).Delete(&classes.Enrollment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&classes.Class{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(op, err)
}

func (r *classRepo) Enroll(ctx context.Context, e *classes.Enrollment) error {
	const op = "repository.Classes.Enroll"

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit(clause.Associations).Create(e).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyEnrolled
		}
		if err != nil {
			return err
		}

		res := tx.Model(&classes.Class{}).
			Where("id = ? AND booked < capacity", e.ClassID).
			UpdateColumn("booked", gorm.Expr("booked + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrClassFull
		}
		return nil
	})
	if errors.Is(err, ErrAlreadyEnrolled) || errors.Is(err, ErrClassFull) {
		return err
	}
	return translate(op, err)
}

func (r *classRepo) Unenroll(ctx context.Context, classID, userID uint) error {
	const op = "repository.Classes.Unenroll"

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("class_id = ? AND user_id = ?", classID, userID).Delete(&classes.Enrollment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotEnrolled
		}
		return tx.Model(&classes.Class{}).
			Where("id = ? AND booked > 0", classID).
			UpdateColumn("booked", gorm.Expr("booked - 1")).Error
	})
	if errors.Is(err, ErrNotEnrolled) {
		return err
	}
	return translate(op, err)
}

func (r *classRepo) IsEnrolled(ctx context.Context, classID, userID uint) (bool, error) {
	const op = "repository.Classes.IsEnrolled"

	var n int64
	err := r.db.WithContext(ctx).Model(&classes.Enrollment{}).
		Where("class_id = ? AND user_id = ?", classID, userID).
		Count(&n).Error
	return n > 0, translate(op, err)
}

func (r *classRepo) Roster(ctx context.Context, classID uint) ([]users.User, error) {
	const op = "repository.Classes.Roster"

	var list []users.User
	err := r.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.user_id = users.id").
		Where("enrollments.class_id = ?", classID).
		Order("enrollments.created_at ASC").
		Find(&list).Error
	return list, translate(op, err)
}

func (r *classRepo) EnrolledClasses(ctx context.Context, userID uint) ([]classes.Class, error) {
	const op = "repository.Classes.EnrolledClasses"

	var list []classes.Class
	err := r.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.class_id = classes.id").
		Where("enrollments.user_id = ?", userID).
		Preload("Instructor").
		Order("classes.scheduled_at ASC").
		Find(&list).Error
	return list, translate(op, err)
}

func (r *classRepo) CountAllowanceUsedSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	const op = "repository.Classes.CountAllowanceUsedSince"

	var n int64
	err := r.db.WithContext(ctx).Model(&classes.Enrollment{}).
		Where("user_id = ? AND via_subscription = ? AND created_at >= ?", userID, true, since).
		Count(&n).Error
	return n, translate(op, err)
}

func (r *classRepo) ListByStatus(ctx context.Context, statuses ...string) ([]classes.Class, error) {
	const op = "repository.Classes.ListByStatus"

	var list []classes.Class
	err := r.db.WithContext(ctx).Where("status IN ?", statuses).Find(&list).Error
	return list, translate(op, err)
}

func (r *classRepo) SetStatus(ctx context.Context, id uint, status string) error {
	const op = "repository.Classes.SetStatus"

	err := r.db.WithContext(ctx).Model(&classes.Class{}).
		Where("id = ?", id).
		Update("status", status).Error
	return translate(op, err)
}

func (r *classRepo) CountUpcoming(ctx context.Context, now time.Time) (int64, error) {
	const op = "repository.Classes.CountUpcoming"

	var n int64
	err := r.db.WithContext(ctx).Model(&classes.Class{}).
		Where("status = ? AND scheduled_at > ?", classes.StatusScheduled, now).
		Count(&n).Error
	return n, translate(op, err)
}
