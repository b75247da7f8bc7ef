package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"classmark/internal/apperr"
)

// Mark is one attendance record for a (class, student) pair.
type Mark struct {
	ID         int64
	ClassID    int64
	RegNo      string
	AttendedAt time.Time
}

// Repository persists attendance marks in Postgres. The schema-level
// UNIQUE (class_id, reg_no) constraint is the safety mechanism for
// concurrent writes; the repo only translates its violation.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindMark returns the existing mark for the pair, or nil when absent.
func (r *Repository) FindMark(ctx context.Context, classID int64, regNo string) (*Mark, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT attendance_id, class_id, reg_no, attended_at
		FROM attendance WHERE class_id = $1 AND reg_no = $2
	`, classID, regNo)
	var m Mark
	if err := row.Scan(&m.ID, &m.ClassID, &m.RegNo, &m.AttendedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// InsertMark writes a new mark with the caller-supplied timestamp. A
// uniqueness violation comes back as a conflict error so callers can treat
// it as "already marked" instead of a failure.
func (r *Repository) InsertMark(ctx context.Context, classID int64, regNo string, attendedAt time.Time) (int64, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (class_id, reg_no, attended_at)
		VALUES ($1, $2, $3)
		RETURNING attendance_id
	`, classID, regNo, attendedAt)
	var id int64
	if err := row.Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, apperr.Wrap(apperr.Conflict, "Attendance already marked for this student", err)
		}
		return 0, err
	}
	return id, nil
}

// ListRegNos returns the registration numbers marked for a class.
func (r *Repository) ListRegNos(ctx context.Context, classID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT reg_no FROM attendance WHERE class_id = $1`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regNos := []string{}
	for rows.Next() {
		var regNo string
		if err := rows.Scan(&regNo); err != nil {
			return nil, err
		}
		regNos = append(regNos, regNo)
	}
	return regNos, rows.Err()
}

// isUniqueViolation reports whether err is SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
