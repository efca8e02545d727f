package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrBadCredentials = errors.New("bad credentials")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, getUser, id)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

const getUser = `SELECT * FROM users WHERE id = $1`

func (r *Repository) ListByRole(ctx context.Context, role Role) ([]User, error) {
	var users []User
	err := r.db.SelectContext(ctx, &users, listByRole, role)
	return users, err
}

const listByRole = `SELECT * FROM users WHERE role = $1 ORDER BY username`

func (r *Repository) ListBlocked(ctx context.Context) ([]User, error) {
	var users []User
	err := r.db.SelectContext(ctx, &users, listBlocked, StateBlocked)
	return users, err
}

const listBlocked = `SELECT * FROM users WHERE state = $1 ORDER BY username`

// Create registers an account with a bcrypt-hashed password. The unique
// constraint on username is the duplicate check, so concurrent
// registrations of the same name cannot both succeed.
func (r *Repository) Create(ctx context.Context, username, password string, role Role) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	var u User
	err = r.db.GetContext(ctx, &u, createUser, uuid.New(), username, string(hash), role, DefaultRentalLimit)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}
	return u, nil
}

// Postgres error code for a unique constraint violation.
const uniqueViolation = "23505"

const createUser = `
INSERT INTO users (id, username, password_hash, role, state, rental_limit, created_at)
VALUES ($1, $2, $3, $4, 'active', $5, now())
RETURNING *
`

// Authenticate resolves a username/password pair to its account.
func (r *Repository) Authenticate(ctx context.Context, username, password string) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, getByUsername, username)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

const getByUsername = `SELECT * FROM users WHERE username = $1`

// Delete removes an account. Only tech accounts are ever deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const deleteUser = `DELETE FROM users WHERE id = $1`

// EnsureAdmin creates the administrator account at boot if it is missing.
func (r *Repository) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := r.Create(ctx, username, password, RoleAdmin)
	if errors.Is(err, ErrUsernameTaken) {
		return nil
	}
	return err
}
