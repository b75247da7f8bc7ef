package handler

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"classmark/internal/apperr"
	"classmark/internal/attendance"
	"classmark/internal/auth"
	"classmark/internal/classes"
	"classmark/internal/queue"
	"classmark/internal/roster"
	"classmark/internal/user"
)

// UserService handles registration and login.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (user.Summary, string, error)
	Login(ctx context.Context, email, password string) (string, string, error)
}

// ClassDirectory resolves rotating codes and lists classes.
type ClassDirectory interface {
	ResolveCode(ctx context.Context, code string) (int64, error)
	List(ctx context.Context) ([]classes.Class, error)
}

// AttendanceService is the mark and report surface.
type AttendanceService interface {
	Mark(ctx context.Context, classID int64, regNo string, deviceTime time.Time) (attendance.MarkResult, error)
	GetReport(ctx context.Context, code string) (attendance.Report, error)
}

// RosterStore accepts new upload batches.
type RosterStore interface {
	CreateBatch(ctx context.Context, b roster.Batch) error
}

// Handler owns the HTTP surface.
type Handler struct {
	users      UserService
	directory  ClassDirectory
	attendance AttendanceService
	rosters    RosterStore
	jobs       queue.Queue
	production bool
}

// New creates a handler.
func New(users UserService, directory ClassDirectory, att AttendanceService, rosters RosterStore, jobs queue.Queue, production bool) *Handler {
	return &Handler{
		users:      users,
		directory:  directory,
		attendance: att,
		rosters:    rosters,
		jobs:       jobs,
		production: production,
	}
}

// fail writes an error response using the taxonomy's status mapping.
// Internal detail is attached only outside production.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	body := gin.H{"message": apperr.MessageOf(err)}
	if status == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		if !h.production {
			body["error"] = err.Error()
		}
	}
	c.JSON(status, body)
}

// ---------- Auth ----------

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide all required fields: name, email, and password"})
		return
	}

	summary, token, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
		"user":    summary,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	token, userName, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// Unknown user and bad password are both client faults here, kept
		// distinct in the taxonomy but not on the wire.
		switch apperr.KindOf(err) {
		case apperr.NotFound, apperr.Auth:
			c.JSON(http.StatusBadRequest, gin.H{"message": apperr.MessageOf(err)})
		default:
			h.fail(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Login successful",
		"token":     token,
		"user_name": userName,
	})
}

// ---------- Classes ----------

func (h *Handler) ListClasses(c *gin.Context) {
	list, err := h.directory.List(c.Request.Context())
	if err != nil {
		h.fail(c, apperr.Wrap(apperr.Internal, "Internal Server Error", err))
		return
	}
	if list == nil {
		list = []classes.Class{}
	}
	c.JSON(http.StatusOK, list)
}

type classIDRequest struct {
	RandomCode string `json:"random_code"`
}

func (h *Handler) GetClassID(c *gin.Context) {
	var req classIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "random_code is required"})
		return
	}

	id, err := h.directory.ResolveCode(c.Request.Context(), req.RandomCode)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			h.fail(c, err)
			return
		}
		h.fail(c, apperr.Wrap(apperr.Internal, "Internal Server Error", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"class_id": id})
}

// ---------- Attendance ----------

type markRequest struct {
	ClassID    int64     `json:"class_id"`
	RegNo      string    `json:"reg_no"`
	DeviceTime time.Time `json:"device_time"`
}

func (h *Handler) MarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Class ID, Registration Number, and Device Time are required"})
		return
	}

	res, err := h.attendance.Mark(c.Request.Context(), req.ClassID, req.RegNo, req.DeviceTime)
	if err != nil {
		h.fail(c, err)
		return
	}

	if res.AlreadyMarked {
		c.JSON(http.StatusConflict, gin.H{
			"error":       "Attendance already marked for this student",
			"attended_at": res.AttendedAt,
			"comment_1":   res.Comments.Comment1,
			"comment_2":   res.Comments.Comment2,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"message":       "Attendance marked successfully",
		"attendance_id": res.MarkID,
		"attended_at":   res.AttendedAt,
		"comment_1":     res.Comments.Comment1,
		"comment_2":     res.Comments.Comment2,
	})
}

func (h *Handler) AttendanceReport(c *gin.Context) {
	report, err := h.attendance.GetReport(c.Request.Context(), c.Param("random_code"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reg_nos": report.RegNos,
		"class_details": gin.H{
			"subject_code":   report.Class.SubjectCode,
			"scheduled_time": report.Class.ScheduledTime,
			"venue":          report.Class.Venue,
		},
	})
}

// ---------- Roster upload ----------

// UploadRoster accepts a multipart CSV bound to a class code, stores the
// batch, and enqueues it for the worker.
func (h *Handler) UploadRoster(c *gin.Context) {
	code := c.PostForm("random_code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "random_code is required"})
		return
	}

	classID, err := h.directory.ResolveCode(c.Request.Context(), code)
	if err != nil {
		h.fail(c, err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "file field required"})
		return
	}
	defer file.Close()
	payload, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, apperr.Wrap(apperr.Internal, "Failed to read upload", err))
		return
	}

	var uploadedBy int64
	if claimsAny, ok := c.Get(auth.ClaimsKey); ok {
		if claims, ok := claimsAny.(auth.Claims); ok {
			uploadedBy = claims.UserID
		}
	}

	batch := roster.Batch{
		CSVID:      uuid.NewString(),
		ClassID:    classID,
		FileName:   header.Filename,
		UploadedBy: uploadedBy,
		Payload:    payload,
	}
	if err := h.rosters.CreateBatch(c.Request.Context(), batch); err != nil {
		h.fail(c, apperr.Wrap(apperr.Internal, "Failed to store upload", err))
		return
	}

	if err := h.jobs.Publish(c.Request.Context(), queue.Message{Type: queue.TypeRosterUpload, Body: []byte(batch.CSVID)}); err != nil {
		log.Printf("queue publish failed for batch %s: %v", batch.CSVID, err)
	}

	c.JSON(http.StatusAccepted, gin.H{"csv_id": batch.CSVID})
}

// NotFound is the catch-all for unknown routes.
func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
}
