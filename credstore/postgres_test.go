package credstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MrEthical07/authcore"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectByLoginQuery = `(?s)^SELECT\s+user_id,\s*login,\s*password,\s*has_logged_in,\s*role\s+FROM\s+users\s+WHERE\s+login\s*=\s*\$1\s*$`
	selectByIDQuery    = `(?s)^SELECT\s+user_id,\s*login,\s*password,\s*has_logged_in,\s*role\s+FROM\s+users\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	updatePasswordSQL  = `(?s)^UPDATE\s+users\s+SET\s+password\s*=\s*\$2,\s*has_logged_in\s*=\s*TRUE\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	insertUserQuery    = `(?s)^INSERT\s+INTO\s+users\s*\(login,\s*password,\s*has_logged_in,\s*role\)\s*VALUES\s*\(\$1,\s*\$2,\s*FALSE,\s*\$3\)\s*RETURNING\s+user_id\s*$`
)

var userColumns = []string{"user_id", "login", "password", "has_logged_in", "role"}

func newRepoWithMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgres_FindByLogin_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(selectByLoginQuery).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-1", "alice", "$argon2id$hash", true, "admin"))

	got, err := repo.FindByLogin(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, "alice", got.Login)
	assert.Equal(t, "$argon2id$hash", got.PasswordHash)
	assert.Equal(t, "admin", got.Role)
	assert.False(t, got.MustChangePassword)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindByLogin_FirstLoginMustChange(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(selectByLoginQuery).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-2", "bob", "$2b$12$hash", false, "user"))

	got, err := repo.FindByLogin(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, got.MustChangePassword)
}

func TestPostgres_FindByLogin_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(selectByLoginQuery).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.FindByLogin(context.Background(), "ghost")
	assert.ErrorIs(t, err, authcore.ErrCredentialNotFound)
}

func TestPostgres_FindByID_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(selectByIDQuery).
		WithArgs("u-1").
		WillReturnError(errors.New("db down"))

	_, err := repo.FindByID(context.Background(), "u-1")
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())
	assert.NotErrorIs(t, err, authcore.ErrCredentialNotFound)
}

func TestPostgres_FindByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(selectByIDQuery).
		WithArgs("u-404").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "u-404")
	assert.ErrorIs(t, err, authcore.ErrCredentialNotFound)
}

func TestPostgres_UpdatePassword(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(updatePasswordSQL).
		WithArgs("u-1", "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), "u-1", "new-hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdatePassword_NoRows(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(updatePasswordSQL).
		WithArgs("u-404", "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), "u-404", "new-hash")
	assert.ErrorIs(t, err, authcore.ErrCredentialNotFound)
}

func TestPostgres_UpdatePassword_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(updatePasswordSQL).
		WithArgs("u-1", "new-hash").
		WillReturnError(errors.New("conn reset"))

	err := repo.UpdatePassword(context.Background(), "u-1", "new-hash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: conn reset")
}

func TestPostgres_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertUserQuery).
		WithArgs("carol", "hash", "user").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-3"))

	got, err := repo.Create(context.Background(), "carol", "hash", "user")
	require.NoError(t, err)
	assert.Equal(t, "u-3", got.ID)
	assert.True(t, got.MustChangePassword)
}

func TestMigrate_UsesEmbeddedRoot(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	require.NoError(t, Migrate(context.Background(), db))
}

func TestMigrate_Error(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
