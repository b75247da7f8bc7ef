package roster

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Comments is the instructor feedback attached to a student for a class.
// Either or both fields may be absent; absence is data, not an error.
type Comments struct {
	Comment1 *string `json:"comment_1"`
	Comment2 *string `json:"comment_2"`
}

// Batch is one roster upload bound to a class.
type Batch struct {
	CSVID      string
	ClassID    int64
	FileName   string
	UploadedBy int64
	Payload    []byte
	Processed  bool
	CreatedAt  time.Time
}

// CommentRow is one parsed line of an uploaded roster.
type CommentRow struct {
	RegNo    string
	Comment1 *string
	Comment2 *string
}

// Repository persists upload batches and comments in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindComments returns the first comment row for regNo among the upload
// batches of classID. Runs on every mark-attendance call, so it is a single
// indexed join rather than a batch enumeration.
func (r *Repository) FindComments(ctx context.Context, regNo string, classID int64) (Comments, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT c.comment_1, c.comment_2
		FROM comments c
		JOIN upload_batches b ON b.csv_id = c.csv_id
		WHERE c.reg_no = $1 AND b.class_id = $2
		LIMIT 1
	`, regNo, classID)
	var cm Comments
	if err := row.Scan(&cm.Comment1, &cm.Comment2); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Comments{}, nil
		}
		return Comments{}, err
	}
	return cm, nil
}

// CreateBatch stores a new upload batch with its raw payload.
func (r *Repository) CreateBatch(ctx context.Context, b Batch) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO upload_batches (csv_id, class_id, file_name, uploaded_by, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, b.CSVID, b.ClassID, b.FileName, b.UploadedBy, b.Payload)
	return err
}

// GetBatch returns a batch by id, or nil when absent.
func (r *Repository) GetBatch(ctx context.Context, csvID string) (*Batch, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT csv_id, class_id, file_name, uploaded_by, payload, processed, created_at
		FROM upload_batches WHERE csv_id = $1
	`, csvID)
	var b Batch
	if err := row.Scan(&b.CSVID, &b.ClassID, &b.FileName, &b.UploadedBy, &b.Payload, &b.Processed, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// InsertComments writes parsed comment rows for a batch and marks it
// processed, in one transaction so a crashed ingest can be re-run.
func (r *Repository) InsertComments(ctx context.Context, csvID string, rows []CommentRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO comments (reg_no, csv_id, comment_1, comment_2)
			VALUES ($1, $2, $3, $4)
		`, row.RegNo, csvID, row.Comment1, row.Comment2); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE upload_batches SET processed = TRUE WHERE csv_id = $1`, csvID); err != nil {
		return err
	}
	return tx.Commit()
}
