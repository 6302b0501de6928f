package repository

import (
	"context"

	"yoga-studio/internal/domain/content"
	"yoga-studio/internal/domain/goals"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contentRepo struct {
	db *gorm.DB
}

func (r *contentRepo) Create(ctx context.Context, c *content.Content) error {
	const op = "repository.Contents.Create"
	return translate(op, r.db.WithContext(ctx).Create(c).Error)
}

func (r *contentRepo) GetByID(ctx context.Context, id uint) (*content.Content, error) {
	const op = "repository.Contents.GetByID"

	var c content.Content
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(op, err)
	}
	return &c, nil
}

func (r *contentRepo) List(ctx context.Context, f ContentFilter) ([]content.Content, int64, error) {
	const op = "repository.Contents.List"

	q := r.db.WithContext(ctx).Model(&content.Content{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.PublishedOnly {
		q = q.Where("published = ?", true)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(op, err)
	}

	page := f.Page.Normalize()
	var list []content.Content
	// body is only served by the detail endpoint
	err := q.Omit("body").Order("created_at DESC").Limit(page.Limit).Offset(page.Offset()).Find(&list).Error
	return list, total, translate(op, err)
}

func (r *contentRepo) Update(ctx context.Context, c *content.Content) error {
	const op = "repository.Contents.Update"
	return translate(op, r.db.WithContext(ctx).Save(c).Error)
}

func (r *contentRepo) Delete(ctx context.Context, id uint) error {
	const op = "repository.Contents.Delete"

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_id = ?", id).Delete(&content.Interaction{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&content.Content{}, id)
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

type interactionRepo struct {
	db *gorm.DB
}

func (r *interactionRepo) Get(ctx context.Context, userID, contentID uint) (*content.Interaction, error) {
	const op = "repository.Interactions.Get"

	var i content.Interaction
	err := r.db.WithContext(ctx).Where("user_id = ? AND content_id = ?", userID, contentID).First(&i).Error
	if err != nil {
		return nil, translate(op, err)
	}
	return &i, nil
}

func (r *interactionRepo) Upsert(ctx context.Context, i *content.Interaction) error {
	const op = "repository.Interactions.Upsert"

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "content_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"liked", "bookmarked", "completed", "progress", "updated_at"}),
	}).Create(i).Error
	return translate(op, err)
}

func (r *interactionRepo) ListByUser(ctx context.Context, userID uint) ([]content.Interaction, error) {
	const op = "repository.Interactions.ListByUser"

	var list []content.Interaction
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Find(&list).Error
	return list, translate(op, err)
}

type goalRepo struct {
	db *gorm.DB
}

func (r *goalRepo) Create(ctx context.Context, g *goals.Goal) error {
	const op = "repository.Goals.Create"
	return translate(op, r.db.WithContext(ctx).Create(g).Error)
}

func (r *goalRepo) GetByID(ctx context.Context, id uint) (*goals.Goal, error) {
	const op = "repository.Goals.GetByID"

	var g goals.Goal
	if err := r.db.WithContext(ctx).First(&g, id).Error; err != nil {
		return nil, translate(op, err)
	}
	return &g, nil
}

func (r *goalRepo) ListByUser(ctx context.Context, userID uint) ([]goals.Goal, error) {
	const op = "repository.Goals.ListByUser"

	var list []goals.Goal
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, translate(op, err)
}

func (r *goalRepo) Update(ctx context.Context, g *goals.Goal) error {
	const op = "repository.Goals.Update"
	return translate(op, r.db.WithContext(ctx).Save(g).Error)
}

func (r *goalRepo) Delete(ctx context.Context, id uint) error {
	const op = "repository.Goals.Delete"

	res := r.db.WithContext(ctx).Delete(&goals.Goal{}, id)
	if res.Error == nil && res.RowsAffected == 0 {
		return translate(op, gorm.ErrRecordNotFound)
	}
	return translate(op, res.Error)
}
