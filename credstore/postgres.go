package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/credstore/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DBTX is the subset of *sql.DB and *sql.Tx the store uses.
type DBTX interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Postgres is a CredentialStore over the users table.
type Postgres struct {
	db DBTX
}

// NewPostgres binds a store to db.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// Open opens a pgx-backed *sql.DB and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

// FindByLogin returns the user with the given login.
func (r *Postgres) FindByLogin(ctx context.Context, login string) (*authcore.UserCredential, error) {
	query :=
		`SELECT user_id, login, password, has_logged_in, role FROM users
		 WHERE login = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, login))
}

// FindByID returns the user with the given id.
func (r *Postgres) FindByID(ctx context.Context, id string) (*authcore.UserCredential, error) {
	query :=
		`SELECT user_id, login, password, has_logged_in, role FROM users
		 WHERE user_id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// UpdatePassword stores newHash and marks the user as having logged in.
func (r *Postgres) UpdatePassword(ctx context.Context, id, newHash string) error {
	query :=
		`UPDATE users SET password = $2, has_logged_in = TRUE
		 WHERE user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, newHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return authcore.ErrCredentialNotFound
	}

	return nil
}

// Create inserts a user that must change its password on first login.
func (r *Postgres) Create(ctx context.Context, login, passwordHash, role string) (*authcore.UserCredential, error) {
	query :=
		`INSERT INTO users (login, password, has_logged_in, role)
		 VALUES ($1, $2, FALSE, $3)
		 RETURNING user_id
		 `

	user := &authcore.UserCredential{
		Login:              login,
		PasswordHash:       passwordHash,
		MustChangePassword: true,
		Role:               role,
	}
	if err := r.db.QueryRowContext(ctx, query, login, passwordHash, role).Scan(&user.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *Postgres) scanOne(row *sql.Row) (*authcore.UserCredential, error) {
	var (
		user        authcore.UserCredential
		hasLoggedIn bool
	)

	err := row.Scan(&user.ID, &user.Login, &user.PasswordHash, &hasLoggedIn, &user.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.MustChangePassword = !hasLoggedIn
	return &user, nil
}
