package repository

import (
	"context"
	"regexp"
	"testing"

	"conduit/internal/cache"
	"conduit/internal/models"
	"conduit/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return gormDB, mock
}

func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected *models.AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2`)).
			WithArgs("jake@example.com", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username"}).
				AddRow(1, "jake@example.com", "jake"))

		user, err := repo.GetByEmail(ctx, "jake@example.com")
		require.NoError(t, err)
		assert.Equal(t, "jake", user.Username)
	})

	t.Run("missing returns nil without error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
			WithArgs("nobody@example.com", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		user, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateUniqueViolation(t *testing.T) {
	tests := []struct {
		constraint string
		field      string
		message    string
	}{
		{"idx_users_email", "email", "user with this email already exists."},
		{"idx_users_username", "username", "user with this username already exists."},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewUserRepository(db)

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})
			mock.ExpectRollback()

			err := repo.Create(context.Background(), &models.User{Email: "a@b.co", Username: "a", Password: "h"})
			appErr := assertAppError(t, err, models.CodeValidation)
			assert.Equal(t, []string{tt.message}, appErr.Fields[tt.field])
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_SQLite(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Email: "jake@example.com", Username: "jake", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	require.NotZero(t, user.ID)

	t.Run("duplicate email is a field error", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Email: "jake@example.com", Username: "other", Password: "hash"})
		appErr := assertAppError(t, err, models.CodeValidation)
		assert.Contains(t, appErr.Fields, "email")
	})

	t.Run("duplicate username is a field error", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Email: "other@example.com", Username: "jake", Password: "hash"})
		appErr := assertAppError(t, err, models.CodeValidation)
		assert.Contains(t, appErr.Fields, "username")
	})

	t.Run("GetByID missing is not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 9999)
		assertAppError(t, err, models.CodeNotFound)
	})

	t.Run("Update writes only named columns", func(t *testing.T) {
		loaded, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		loaded.Bio = "I work at statefarm"
		loaded.Password = ""
		require.NoError(t, repo.Update(ctx, loaded, "bio"))

		reloaded, err := repo.GetByUsername(ctx, "jake")
		require.NoError(t, err)
		assert.Equal(t, "I work at statefarm", reloaded.Bio)
		assert.Equal(t, "hash", reloaded.Password)
	})
}

func TestUserRepository_GetByIDUsesCache(t *testing.T) {
	mr, _ := testutil.StartRedis(t)
	db := testutil.OpenSQLite(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "cached")
	_, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.UserKey(user.ID)))

	raw, err := mr.Get(cache.UserKey(user.ID))
	require.NoError(t, err)
	assert.NotContains(t, raw, "password")

	require.NoError(t, repo.Update(ctx, user, "bio"))
	assert.False(t, mr.Exists(cache.UserKey(user.ID)))
}
