package classes

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"classmark/internal/apperr"
)

// Class is one scheduled class session.
type Class struct {
	ID            int64     `json:"class_id"`
	SubjectCode   string    `json:"subject_code"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Venue         string    `json:"venue"`
	RandomCode    string    `json:"random_code"`
}

// Repository resolves rotating class codes against Postgres. Codes rotate
// across sessions, so results are never cached beyond a single request.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ResolveCode maps a rotating code to its class id. The match is exact;
// no case or whitespace normalization is applied.
func (r *Repository) ResolveCode(ctx context.Context, code string) (int64, error) {
	row := r.db.QueryRowContext(ctx, `SELECT class_id FROM classes WHERE random_code = $1`, code)
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.New(apperr.NotFound, "Class not found")
		}
		return 0, err
	}
	return id, nil
}

// FindByCode returns the full class row for a rotating code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*Class, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT class_id, subject_code, scheduled_time, venue, random_code
		FROM classes WHERE random_code = $1
	`, code)
	var cl Class
	if err := row.Scan(&cl.ID, &cl.SubjectCode, &cl.ScheduledTime, &cl.Venue, &cl.RandomCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "Class not found for the given random code")
		}
		return nil, err
	}
	return &cl, nil
}

// List returns all classes. Administrative view; the class table stays small
// so no pagination is applied.
func (r *Repository) List(ctx context.Context) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT class_id, subject_code, scheduled_time, venue, random_code
		FROM classes
		ORDER BY scheduled_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Class
	for rows.Next() {
		var cl Class
		if err := rows.Scan(&cl.ID, &cl.SubjectCode, &cl.ScheduledTime, &cl.Venue, &cl.RandomCode); err != nil {
			return nil, err
		}
		res = append(res, cl)
	}
	return res, rows.Err()
}
