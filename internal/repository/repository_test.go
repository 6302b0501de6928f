package repository

import (
	"errors"
	"fmt"
	"testing"

	"yoga-studio/internal/apperr"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         Page
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"zero value", Page{}, 1, DefaultLimit, 0},
		{"second page", Page{Page: 2, Limit: 10}, 2, 10, 10},
		{"limit capped", Page{Page: 3, Limit: 500}, 3, MaxLimit, 200},
		{"negative page", Page{Page: -4, Limit: 5}, 1, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Equal(t, tt.wantOffset, tt.in.Offset())
		})
	}
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate("op", nil))

	err := translate("repository.Users.GetByID", gorm.ErrRecordNotFound)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Contains(t, err.Error(), "repository.Users.GetByID")

	err = translate("repository.Users.Create", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey))
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	err = translate("repository.Plans.Delete", gorm.ErrForeignKeyViolated)
	assert.ErrorIs(t, err, ErrInUse)

	cause := errors.New("connection reset")
	err = translate("repository.Classes.List", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
