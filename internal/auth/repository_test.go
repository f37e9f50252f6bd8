package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipes-api/internal/apperr"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database, mock
}

var userColumns = []string{"id", "username", "email", "password_hash", "created_at", "updated_at"}

func TestRepository_Create(t *testing.T) {
	database, mock := newMock(t)
	repo := NewRepository(database)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "kevin", "kevin@example.com", "hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := repo.Create(context.Background(), " Kevin", "KEVIN@example.com ", "hash")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "kevin", user.Username)
	assert.Equal(t, "kevin@example.com", user.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateConflicts(t *testing.T) {
	tests := []struct {
		constraint string
		message    string
	}{
		{"users_username_key", "A user with the same username already exists"},
		{"users_email_key", "A user with the same email already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			database, mock := newMock(t)
			mock.ExpectExec("INSERT INTO users").
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			_, err := NewRepository(database).Create(context.Background(), "kevin", "kevin@example.com", "hash")
			require.ErrorIs(t, err, apperr.ErrConflict)
			assert.Equal(t, tt.message, apperr.Message(err, ""))
		})
	}
}

func TestRepository_CreatePersistenceError(t *testing.T) {
	database, mock := newMock(t)
	mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("conn reset"))

	_, err := NewRepository(database).Create(context.Background(), "kevin", "kevin@example.com", "hash")
	require.ErrorIs(t, err, apperr.ErrPersistence)
	assert.NotErrorIs(t, err, apperr.ErrConflict)
}

func TestRepository_GetByUsername(t *testing.T) {
	database, mock := newMock(t)
	repo := NewRepository(database)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM users").
		WithArgs("kevin").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "kevin", "kevin@example.com", "hash", now, now))

	user, err := repo.GetByUsername(context.Background(), "Kevin ")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "hash", user.PasswordHash)

	mock.ExpectQuery("FROM users").WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)

	mock.ExpectQuery("FROM users").WithArgs("u9").WillReturnError(errors.New("timeout"))
	_, err = repo.GetByID(context.Background(), "u9")
	require.ErrorIs(t, err, apperr.ErrPersistence)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdatePasswordHash(t *testing.T) {
	database, mock := newMock(t)
	repo := NewRepository(database)

	mock.ExpectExec("UPDATE users").WithArgs("u1", "newhash", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePasswordHash(context.Background(), "u1", "newhash"))

	mock.ExpectExec("UPDATE users").WithArgs("u2", "newhash", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.UpdatePasswordHash(context.Background(), "u2", "newhash"), ErrUserNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteCascade(t *testing.T) {
	database, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM recipes").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM categories").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM users").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewRepository(database).DeleteCascade(context.Background(), "u1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteCascadeRollsBack(t *testing.T) {
	database, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM recipes").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM categories").WithArgs("u1").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := NewRepository(database).DeleteCascade(context.Background(), "u1")
	require.ErrorIs(t, err, apperr.ErrPersistence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteCascadeUnknownUser(t *testing.T) {
	database, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM recipes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM categories").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := NewRepository(database).DeleteCascade(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
