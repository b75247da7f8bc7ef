package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"classmark/internal/apperr"
)

// RoleStudent is the role assigned to newly registered users.
const RoleStudent = 50

// User is a registered account.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	RoleID       int
	AuthProvider string
	AuthID       *string
	CreatedAt    time.Time
}

// Repository persists users in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindByEmail returns the user with the given email, or nil when absent.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, user_name, email, password, role_id, auth_provider, auth_id, created_at
		FROM users WHERE email = $1
	`, email)
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID, &u.AuthProvider, &u.AuthID, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user and returns its id. A uniqueness violation on
// email surfaces as a conflict error rather than a driver error.
func (r *Repository) Create(ctx context.Context, u User) (int64, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (user_name, email, password, role_id, auth_provider, auth_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING user_id
	`, u.Name, u.Email, u.PasswordHash, u.RoleID, u.AuthProvider, u.AuthID)
	var id int64
	if err := row.Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, apperr.Wrap(apperr.Conflict, "User with this email already exists", err)
		}
		return 0, err
	}
	return id, nil
}

// isUniqueViolation reports whether err is SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
