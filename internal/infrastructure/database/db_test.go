package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockDB wraps sqlmock in a postgres-flavoured store.
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	return &DB{DB: sqlx.NewDb(raw, "pgx"), driver: DriverPostgres, now: time.Now}, mock
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New("mysql", "whatever")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestMigrate_Dialect(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	db, _ := newMockDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	assert.Equal(t, "migrations/postgres", gotDir)

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	assert.ErrorContains(t, db.Migrate(context.Background()), "failed to migrate schema")
}

func TestSupersede_PostgresLocksAndCommits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	from := time.Now().UTC().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT valid_from FROM users WHERE username = $1 AND valid_until IS NULL FOR UPDATE`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"valid_from"}).AddRow(from))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET valid_until = $1 WHERE username = $2 AND valid_until IS NULL`)).
		WithArgs(sqlmock.AnyArg(), "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	next, err := repo.Supersede(context.Background(), "alice", domain.UserPayload{PasswordHash: "h", Nickname: "A"})
	require.NoError(t, err)
	assert.True(t, next.ValidFrom.After(from))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSupersede_InsertFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT valid_from FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"valid_from"}).AddRow(time.Now().UTC()))
	mock.ExpectExec(`UPDATE users SET valid_until`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Supersede(context.Background(), "alice", domain.UserPayload{})
	assert.True(t, domain.IsKind(err, domain.KindConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClose_LostRaceIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChallengeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT valid_from FROM challenges`).
		WillReturnRows(sqlmock.NewRows([]string{"valid_from"}).AddRow(time.Now().UTC()))
	mock.ExpectExec(`UPDATE challenges SET valid_until`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Close(context.Background(), "ch-1")
	assert.True(t, domain.IsKind(err, domain.KindConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActive_StorageFailureIsInternal(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewParticipantRepository(db)

	mock.ExpectQuery(`SELECT .* FROM challenge_participants`).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindActive(context.Background(), domain.ParticipantKey{ChallengeID: "c", Username: "u"})
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("UNIQUE constraint failed")))
	assert.False(t, isUniqueViolation(nil))
}
