package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var started = time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

func TestSessionRepo_CreateForTable(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT store_id, is_active FROM tables WHERE id = ? FOR UPDATE")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"store_id", "is_active"}).AddRow(2, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM table_sessions WHERE table_id = ? AND ended_at IS NULL FOR UPDATE")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO table_sessions (table_id, token_hash, started_at)")).
		WithArgs(5, "hash", started).
		WillReturnResult(sqlmock.NewResult(40, 1))
	mock.ExpectCommit()

	sess, replaced, err := repo.CreateForTable(context.Background(), 5, "hash", started, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), sess.ID)
	assert.Equal(t, uint64(5), sess.TableID)
	assert.Equal(t, uint64(2), sess.StoreID)
	assert.True(t, sess.Active())
	assert.Zero(t, replaced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_CreateForTable_RejectsOpenSession(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT store_id, is_active FROM tables")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"store_id", "is_active"}).AddRow(2, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM table_sessions")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectRollback()

	_, _, err := repo.CreateForTable(context.Background(), 5, "hash", started, false)
	assert.ErrorIs(t, err, ErrActiveSession)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_CreateForTable_Takeover(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT store_id, is_active FROM tables")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"store_id", "is_active"}).AddRow(2, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM table_sessions")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE table_sessions SET ended_at = ? WHERE id = ?")).
		WithArgs(started, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO table_sessions")).
		WithArgs(5, "hash", started).
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit()

	sess, replaced, err := repo.CreateForTable(context.Background(), 5, "hash", started, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(41), sess.ID)
	assert.Equal(t, uint64(9), replaced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_CreateForTable_UniqueIndexRace(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT store_id, is_active FROM tables")).
		WillReturnRows(sqlmock.NewRows([]string{"store_id", "is_active"}).AddRow(2, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM table_sessions")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO table_sessions")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '5' for key 'uq_sessions_active_table'"})
	mock.ExpectRollback()

	_, _, err := repo.CreateForTable(context.Background(), 5, "hash", started, false)
	assert.ErrorIs(t, err, ErrActiveSession)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_CreateForTable_InactiveTable(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT store_id, is_active FROM tables")).
		WillReturnRows(sqlmock.NewRows([]string{"store_id", "is_active"}).AddRow(2, false))
	mock.ExpectRollback()

	_, _, err := repo.CreateForTable(context.Background(), 5, "hash", started, false)
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_End(t *testing.T) {
	at := started.Add(time.Hour)

	t.Run("open", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT ended_at FROM table_sessions WHERE id = ? FOR UPDATE")).
			WithArgs(40).
			WillReturnRows(sqlmock.NewRows([]string{"ended_at"}).AddRow(nil))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE table_sessions SET ended_at = ? WHERE id = ?")).
			WithArgs(at, 40).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewSessionRepo(db).End(context.Background(), 40, at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already ended", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT ended_at FROM table_sessions")).
			WillReturnRows(sqlmock.NewRows([]string{"ended_at"}).AddRow(started))
		mock.ExpectRollback()

		assert.ErrorIs(t, NewSessionRepo(db).End(context.Background(), 40, at), ErrSessionEnded)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT ended_at FROM table_sessions")).
			WillReturnRows(sqlmock.NewRows([]string{"ended_at"}))
		mock.ExpectRollback()

		assert.ErrorIs(t, NewSessionRepo(db).End(context.Background(), 40, at), ErrSessionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSessionRepo_GetByTokenHash(t *testing.T) {
	db, mock := newMock(t)
	ended := started.Add(2 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.token_hash = ?")).
		WithArgs("hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_id", "store_id", "token_hash", "started_at", "ended_at"}).
			AddRow(40, 5, 2, "hash", started, ended))

	sess, err := NewSessionRepo(db).GetByTokenHash(context.Background(), "hash")
	require.NoError(t, err)
	require.NotNil(t, sess.EndedAt)
	assert.Equal(t, ended, *sess.EndedAt)
	assert.False(t, sess.Active())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_GetActiveByTable_None(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.table_id = ? AND s.ended_at IS NULL")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_id", "store_id", "token_hash", "started_at", "ended_at"}))

	_, err := NewSessionRepo(db).GetActiveByTable(context.Background(), 5)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepo_EndStartedBefore(t *testing.T) {
	db, mock := newMock(t)
	cutoff := started.Add(-16 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE table_sessions SET ended_at = ? WHERE ended_at IS NULL AND started_at < ?")).
		WithArgs(started, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := NewSessionRepo(db).EndStartedBefore(context.Background(), cutoff, started)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
