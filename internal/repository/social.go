package repository

import (
	"context"
	"time"

	"yoga-studio/internal/domain/community"
	"yoga-studio/internal/domain/messages"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type messageRepo struct {
	db *gorm.DB
}

func (r *messageRepo) Create(ctx context.Context, m *messages.Message) error {
	const op = "repository.Messages.Create"
	return translate(op, r.db.WithContext(ctx).Create(m).Error)
}

func (r *messageRepo) GetByID(ctx context.Context, id uuid.UUID) (*messages.Message, error) {
	const op = "repository.Messages.GetByID"

	var m messages.Message
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(op, err)
	}
	return &m, nil
}

func (r *messageRepo) Inbox(ctx context.Context, userID uint, page Page) ([]messages.Message, error) {
	const op = "repository.Messages.Inbox"

	page = page.Normalize()
	var list []messages.Message
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", userID).
		Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset()).
		Find(&list).Error
	return list, translate(op, err)
}

func (r *messageRepo) Conversation(ctx context.Context, a, b uint, page Page) ([]messages.Message, error) {
	const op = "repository.Messages.Conversation"

	page = page.Normalize()
	var list []messages.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset()).
		Find(&list).Error
	return list, translate(op, err)
}

func (r *messageRepo) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	const op = "repository.Messages.MarkRead"

	err := r.db.WithContext(ctx).Model(&messages.Message{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at).Error
	return translate(op, err)
}

type postRepo struct {
	db *gorm.DB
}

func (r *postRepo) Create(ctx context.Context, p *community.Post) error {
	const op = "repository.Posts.Create"
	return translate(op, r.db.WithContext(ctx).Create(p).Error)
}

func (r *postRepo) GetByID(ctx context.Context, id uuid.UUID) (*community.Post, error) {
	const op = "repository.Posts.GetByID"

	var p community.Post
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(op, err)
	}
	return &p, nil
}

func (r *postRepo) Feed(ctx context.Context, page Page) ([]community.Post, error) {
	const op = "repository.Posts.Feed"

	page = page.Normalize()
	var list []community.Post
	err := r.db.WithContext(ctx).
		Where("flagged = ?", false).
		Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset()).
		Find(&list).Error
	return list, translate(op, err)
}

func (r *postRepo) Flagged(ctx context.Context, page Page) ([]community.Post, error) {
	const op = "repository.Posts.Flagged"

	page = page.Normalize()
	var list []community.Post
	err := r.db.WithContext(ctx).
		Where("flagged = ?", true).
		Order("updated_at DESC").
		Limit(page.Limit).Offset(page.Offset()).
		Find(&list).Error
	return list, translate(op, err)
}

func (r *postRepo) Update(ctx context.Context, p *community.Post) error {
	const op = "repository.Posts.Update"
	return translate(op, r.db.WithContext(ctx).Save(p).Error)
}

// Delete soft-deletes the post.
func (r *postRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "repository.Posts.Delete"

	res := r.db.WithContext(ctx).Delete(&community.Post{}, "id = ?", id)
	if res.Error == nil && res.RowsAffected == 0 {
		return translate(op, gorm.ErrRecordNotFound)
	}
	return translate(op, res.Error)
}

func (r *postRepo) Like(ctx context.Context, id uuid.UUID) error {
	const op = "repository.Posts.Like"

	res := r.db.WithContext(ctx).Model(&community.Post{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + 1"))
	if res.Error == nil && res.RowsAffected == 0 {
		return translate(op, gorm.ErrRecordNotFound)
	}
	return translate(op, res.Error)
}
