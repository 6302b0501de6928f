package repository

import (
	"context"
	"errors"

	"yoga-studio/internal/domain/users"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Create(ctx context.Context, u *users.User) error {
	const op = "repository.Users.Create"

	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return translate(op, err)
}

func (r *userRepo) GetByID(ctx context.Context, id uint) (*users.User, error) {
	const op = "repository.Users.GetByID"

	var u users.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(op, err)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	const op = "repository.Users.GetByEmail"

	var u users.User
	if err := r.db.WithContext(ctx).Where("email = ?", users.NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, translate(op, err)
	}
	return &u, nil
}

func (r *userRepo) GetByGoogleSub(ctx context.Context, sub string) (*users.User, error) {
	const op = "repository.Users.GetByGoogleSub"

	var u users.User
	if err := r.db.WithContext(ctx).Where("google_sub = ?", sub).First(&u).Error; err != nil {
		return nil, translate(op, err)
	}
	return &u, nil
}

func (r *userRepo) Update(ctx context.Context, u *users.User) error {
	const op = "repository.Users.Update"
	return translate(op, r.db.WithContext(ctx).Save(u).Error)
}

func (r *userRepo) List(ctx context.Context, page Page) ([]users.User, int64, error) {
	const op = "repository.Users.List"

	page = page.Normalize()
	var (
		list  []users.User
		total int64
	)
	q := r.db.WithContext(ctx).Model(&users.User{}).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(op, err)
	}
	err := q.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset()).Find(&list).Error
	return list, total, translate(op, err)
}

func (r *userRepo) CountByRole(ctx context.Context) (map[string]int64, error) {
	const op = "repository.Users.CountByRole"

	var rows []struct {
		Role  string
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&users.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(op, err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Role] = row.Count
	}
	return out, nil
}

type tokenRepo struct {
	db *gorm.DB
}

func (r *tokenRepo) Upsert(ctx context.Context, t *users.VerificationToken) error {
	const op = "repository.Tokens.Upsert"

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "expires_at", "attempts", "created_at"}),
	}).Create(t).Error
	return translate(op, err)
}

func (r *tokenRepo) Get(ctx context.Context, userID uint, tokenType string) (*users.VerificationToken, error) {
	const op = "repository.Tokens.Get"

	var t users.VerificationToken
	err := r.db.WithContext(ctx).Where("user_id = ? AND type = ?", userID, tokenType).First(&t).Error
	if err != nil {
		return nil, translate(op, err)
	}
	return &t, nil
}

func (r *tokenRepo) GetByCode(ctx context.Context, tokenType, code string) (*users.VerificationToken, error) {
	const op = "repository.Tokens.GetByCode"

	var t users.VerificationToken
	err := r.db.WithContext(ctx).Where("type = ? AND code = ?", tokenType, code).First(&t).Error
	if err != nil {
		return nil, translate(op, err)
	}
	return &t, nil
}

func (r *tokenRepo) RecordAttempt(ctx context.Context, userID uint, tokenType string) error {
	const op = "repository.Tokens.RecordAttempt"

	err := r.db.WithContext(ctx).Model(&users.VerificationToken{}).
		Where("user_id = ? AND type = ?", userID, tokenType).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
	return translate(op, err)
}

func (r *tokenRepo) Delete(ctx context.Context, userID uint, tokenType string) error {
	const op = "repository.Tokens.Delete"

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, tokenType).
		Delete(&users.VerificationToken{}).Error
	return translate(op, err)
}
