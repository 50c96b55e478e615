package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestPostgresStoreGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	store := NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_store WHERE key = $1")).
		WithArgs("all_users").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("[]"))

	v, ok, err := store.Get(context.Background(), "all_users")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	store := NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_store WHERE key = $1")).
		WithArgs("user_W9").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, ok, err := store.Get(context.Background(), "user_W9")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSetUpserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	store := NewPostgresStore(db)

	mock.ExpectExec("INSERT INTO kv_store .* ON CONFLICT \\(key\\) DO UPDATE").
		WithArgs("all_grades", "[]").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(context.Background(), "all_grades", "[]"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDeleteAndKeys(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	store := NewPostgresStore(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv_store WHERE key = $1")).
		WithArgs("user_W1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key FROM kv_store ORDER BY key")).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("all_classrooms").AddRow("all_users"))

	require.NoError(t, store.Delete(context.Background(), "user_W1"))
	keys, err := store.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"all_classrooms", "all_users"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreEnsureSchema(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	store := NewPostgresStore(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_store").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.EnsureSchema(context.Background()))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_store").WillReturnError(errors.New("permission denied"))
	assert.Error(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreBacksRecordStore(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	store := NewRecordStore(NewPostgresStore(db), RecordStoreOptions{})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_store WHERE key = $1")).
		WithArgs("all_classrooms").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[{"id":"1","name":"Math 101","course":"Mathematics","teacher":"W1","teacherName":"Ada","students":[],"createdAt":1700000000}]`))

	classrooms, err := store.Classrooms(context.Background())
	require.NoError(t, err)
	require.Len(t, classrooms, 1)
	assert.Equal(t, "Ada", classrooms[0].TeacherName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
