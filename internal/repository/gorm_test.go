package repository

import (
	"context"
	"testing"
	"time"

	"yoga-studio/internal/domain/classes"
	"yoga-studio/internal/domain/subscriptions"
	"yoga-studio/internal/domain/users"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

const (
	insertEnrollment = `INSERT INTO "enrollments"`
	bumpBooked       = `UPDATE "classes" SET "booked"=booked \+ 1 WHERE id = \$1 AND booked < capacity`
)

func TestClassesEnroll_SQL(t *testing.T) {
	tests := []struct {
		name    string
		expect  func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "booked",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(insertEnrollment).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
				mock.ExpectExec(bumpBooked).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "no spot left rolls back",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(insertEnrollment).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
				mock.ExpectExec(bumpBooked).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			wantErr: ErrClassFull,
		},
		{
			name: "duplicate enrollment",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(insertEnrollment).WillReturnError(&pgconn.PgError{Code: "23505"})
				mock.ExpectRollback()
			},
			wantErr: ErrAlreadyEnrolled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.expect(mock)

			err := store.Classes.Enroll(context.Background(), &classes.Enrollment{ClassID: 7, UserID: 3, ViaSubscription: true})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClassesUpdate_GuardsCapacity(t *testing.T) {
	const update = `UPDATE "classes" SET .* WHERE booked <= \$\d+ AND "classes"."id" = \$\d+`

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"capacity above bookings", 1, nil},
		{"capacity below bookings", 0, ErrCapacityBelowBooked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectBegin()
			mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()

			c := &classes.Class{ID: 4, Title: "Yin", Capacity: 2, Booked: 0, Status: classes.StatusScheduled}
			err := store.Classes.Update(context.Background(), c)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClassesCountAllowanceUsedSince_SQL(t *testing.T) {
	store, mock := newMockStore(t)
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "enrollments" WHERE user_id = \$1 AND via_subscription = \$2 AND created_at >= \$3`).
		WithArgs(3, true, since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := store.Classes.CountAllowanceUsedSince(context.Background(), 3, since)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionsReplaceForUser_SQL(t *testing.T) {
	const (
		deleteAll = `DELETE FROM "subscriptions" WHERE user_id = \$1`
		insert    = `INSERT INTO "subscriptions"`
	)

	t.Run("replaces in one transaction", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteAll).WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectQuery(insert).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(31))
		mock.ExpectCommit()

		s := &subscriptions.Subscription{UserID: 9, PlanID: 2, Status: subscriptions.StatusPending}
		require.NoError(t, store.Subscriptions.ReplaceForUser(context.Background(), s))
		assert.EqualValues(t, 31, s.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed insert keeps the old row", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteAll).WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(insert).WillReturnError(assert.AnError)
		mock.ExpectRollback()

		s := &subscriptions.Subscription{UserID: 9, PlanID: 2, Status: subscriptions.StatusPending}
		assert.Error(t, store.Subscriptions.ReplaceForUser(context.Background(), s))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTokensUpsert_SQL(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "verification_tokens" .* ON CONFLICT \("user_id","type"\) DO UPDATE SET "code"="excluded"."code","expires_at"="excluded"."expires_at","attempts"="excluded"."attempts","created_at"="excluded"."created_at"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectCommit()

	tok := &users.VerificationToken{UserID: 3, Type: users.TokenEmailOTP, Code: "042917", ExpiresAt: time.Now().Add(10 * time.Minute)}
	require.NoError(t, store.Tokens.Upsert(context.Background(), tok))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokensRecordAttempt_SQL(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "verification_tokens" SET "attempts"=attempts \+ 1 WHERE user_id = \$1 AND type = \$2`).
		WithArgs(3, users.TokenEmailOTP).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Tokens.RecordAttempt(context.Background(), 3, users.TokenEmailOTP))
	assert.NoError(t, mock.ExpectationsWereMet())
}
