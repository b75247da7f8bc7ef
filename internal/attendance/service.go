package attendance

import (
	"context"
	"time"

	"classmark/internal/apperr"
	"classmark/internal/classes"
	"classmark/internal/roster"
)

// Ledger is the persistence surface of the write and report paths.
type Ledger interface {
	FindMark(ctx context.Context, classID int64, regNo string) (*Mark, error)
	InsertMark(ctx context.Context, classID int64, regNo string, attendedAt time.Time) (int64, error)
	ListRegNos(ctx context.Context, classID int64) ([]string, error)
}

// CommentFinder supplies the best-effort feedback enrichment.
type CommentFinder interface {
	FindComments(ctx context.Context, regNo string, classID int64) (roster.Comments, error)
}

// Directory resolves rotating class codes.
type Directory interface {
	FindByCode(ctx context.Context, code string) (*classes.Class, error)
}

// Service coordinates the attendance write and report paths.
type Service struct {
	ledger    Ledger
	comments  CommentFinder
	directory Directory
}

// NewService creates a service.
func NewService(ledger Ledger, comments CommentFinder, directory Directory) *Service {
	return &Service{ledger: ledger, comments: comments, directory: directory}
}

// MarkResult is the outcome of a mark-attendance call. AlreadyMarked results
// carry the timestamp of the persisted mark, not the request's.
type MarkResult struct {
	AlreadyMarked bool
	MarkID        int64
	AttendedAt    time.Time
	Comments      roster.Comments
}

// Mark records attendance for (classID, regNo) at the device-supplied time.
// The timestamp is stored verbatim; its trustworthiness is the caller's
// problem. The insert runs first and a uniqueness violation is re-read as a
// duplicate, so concurrent calls for the same pair can never both insert.
func (s *Service) Mark(ctx context.Context, classID int64, regNo string, deviceTime time.Time) (MarkResult, error) {
	if classID == 0 || regNo == "" || deviceTime.IsZero() {
		return MarkResult{}, apperr.New(apperr.Validation, "Class ID, Registration Number, and Device Time are required")
	}

	// Comments are fetched up front so duplicate responses carry the same
	// enrichment as successful ones.
	comments, err := s.comments.FindComments(ctx, regNo, classID)
	if err != nil {
		return MarkResult{}, apperr.Wrap(apperr.Internal, "Failed to mark attendance", err)
	}

	id, err := s.ledger.InsertMark(ctx, classID, regNo, deviceTime)
	if err != nil {
		if apperr.KindOf(err) == apperr.Conflict {
			return s.existing(ctx, classID, regNo, comments)
		}
		return MarkResult{}, apperr.Wrap(apperr.Internal, "Failed to mark attendance", err)
	}

	return MarkResult{MarkID: id, AttendedAt: deviceTime, Comments: comments}, nil
}

// existing re-reads the persisted mark after a uniqueness violation.
func (s *Service) existing(ctx context.Context, classID int64, regNo string, comments roster.Comments) (MarkResult, error) {
	m, err := s.ledger.FindMark(ctx, classID, regNo)
	if err != nil || m == nil {
		return MarkResult{}, apperr.Wrap(apperr.Internal, "Failed to mark attendance", err)
	}
	return MarkResult{AlreadyMarked: true, MarkID: m.ID, AttendedAt: m.AttendedAt, Comments: comments}, nil
}

// Report is the roster view for one class session.
type Report struct {
	RegNos []string      `json:"reg_nos"`
	Class  classes.Class `json:"class_details"`
}

// GetReport resolves a rotating code and lists the marked registration
// numbers with the class details. An empty roster is a valid result.
func (s *Service) GetReport(ctx context.Context, code string) (Report, error) {
	cl, err := s.directory.FindByCode(ctx, code)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return Report{}, err
		}
		return Report{}, apperr.Wrap(apperr.Internal, "Error fetching attendance records", err)
	}

	regNos, err := s.ledger.ListRegNos(ctx, cl.ID)
	if err != nil {
		return Report{}, apperr.Wrap(apperr.Internal, "Error fetching attendance records", err)
	}
	if regNos == nil {
		regNos = []string{}
	}
	return Report{RegNos: regNos, Class: *cl}, nil
}
