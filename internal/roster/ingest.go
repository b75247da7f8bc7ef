package roster

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ParseComments reads a roster CSV of reg_no,comment_1,comment_2 lines.
// A header row is skipped when present. Empty comment cells become nil.
func ParseComments(r io.Reader) ([]CommentRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var rows []CommentRow
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "reg_no") {
			continue
		}
		regNo := strings.TrimSpace(record[0])
		if regNo == "" {
			return nil, fmt.Errorf("line %d: missing reg_no", line)
		}
		row := CommentRow{RegNo: regNo}
		if len(record) > 1 {
			row.Comment1 = optional(record[1])
		}
		if len(record) > 2 {
			row.Comment2 = optional(record[2])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Ingestor turns uploaded batches into comment rows. Used by the worker.
type Ingestor struct {
	repo *Repository
}

// NewIngestor creates an ingestor.
func NewIngestor(repo *Repository) *Ingestor {
	return &Ingestor{repo: repo}
}

// Ingest parses and stores the comments of one batch. Already-processed
// batches are skipped so redelivered queue messages are harmless.
func (in *Ingestor) Ingest(ctx context.Context, csvID string) error {
	batch, err := in.repo.GetBatch(ctx, csvID)
	if err != nil {
		return fmt.Errorf("fetch batch %s: %w", csvID, err)
	}
	if batch == nil {
		return fmt.Errorf("batch %s not found", csvID)
	}
	if batch.Processed {
		return nil
	}

	rows, err := ParseComments(bytes.NewReader(batch.Payload))
	if err != nil {
		return fmt.Errorf("parse batch %s: %w", csvID, err)
	}
	return in.repo.InsertComments(ctx, csvID, rows)
}
