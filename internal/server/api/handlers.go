// Package api is the HTTP front end: a thin echo adapter that feeds
// uploaded bytes into the pipeline and relays its result.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fileguard/internal/logging"
	"github.com/dmitrijs2005/fileguard/internal/models"
	"github.com/dmitrijs2005/fileguard/internal/notify"
	"github.com/dmitrijs2005/fileguard/internal/pipeline"
	"github.com/dmitrijs2005/fileguard/internal/upload"
	"github.com/labstack/echo/v4"
)

const defaultAuditLimit = 100

// Processor runs one file through the pipeline.
type Processor interface {
	Process(ctx context.Context, path string) pipeline.Result
}

type AuditReader interface {
	FetchAuditLogs(ctx context.Context, limit int) ([]*models.AuditEvent, error)
}

// Handler contains the HTTP handlers for the FileGuard API.
type Handler struct {
	proc      Processor
	audit     AuditReader
	notifier  notify.Notifier
	recipient string
	inboxDir  string
	maxSize   int64
	log       logging.Logger
}

type HandlerConfig struct {
	InboxDir  string
	MaxSize   int64
	Recipient string
}

func NewHandler(cfg HandlerConfig, p Processor, a AuditReader, n notify.Notifier, log logging.Logger) *Handler {
	return &Handler{
		proc:      p,
		audit:     a,
		notifier:  n,
		recipient: cfg.Recipient,
		inboxDir:  cfg.InboxDir,
		maxSize:   cfg.MaxSize,
		log:       log.With("module", "http_api"),
	}
}

// HandleHealth handles GET /.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "FileGuard API is running"})
}

// HandleUpload handles POST /api/upload.
// Accepts a multipart form with a "file" field.
func (h *Handler) HandleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file exceeds maximum allowed size"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "file is required (use form field 'file')",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to read uploaded file",
		})
	}
	defer src.Close()

	ctx := c.Request().Context()

	path, cleanup, err := upload.Receive(h.inboxDir, fileHeader.Filename, src, h.maxSize)
	if err != nil {
		h.log.Warn(ctx, "failed to receive upload", "filename", fileHeader.Filename, "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	defer cleanup()

	res := h.proc.Process(ctx, path)

	return c.JSON(mapPipelineError(res.Err), res)
}

// HandleNotify handles POST /api/notify/send by sending a test message to
// the configured recipient.
func (h *Handler) HandleNotify(c echo.Context) error {
	ctx := c.Request().Context()

	err := h.notifier.Notify(ctx, "Test Notification", "This is a test notification from FileGuard.", h.recipient)
	if err != nil {
		h.log.Error(ctx, "failed to send test notification", "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"status": "error", "message": "Failed to send notification"})
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "Notification sent successfully"})
}

type auditEvent struct {
	ID        int64     `json:"id"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
	Status    string    `json:"status"`
	Severity  string    `json:"severity"`
}

// HandleAudit handles GET /api/audit?limit=N: the newest N events, oldest first.
func (h *Handler) HandleAudit(c echo.Context) error {
	limit := defaultAuditLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a positive integer"})
		}
		limit = n
	}

	events, err := h.audit.FetchAuditLogs(c.Request().Context(), limit)
	if err != nil {
		h.log.Error(c.Request().Context(), "failed to fetch audit logs", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	out := make([]auditEvent, 0, len(events))
	for _, e := range events {
		out = append(out, auditEvent{
			ID:        e.ID,
			Operation: e.Operation,
			Timestamp: e.Timestamp.UTC(),
			Details:   e.Details,
			Status:    e.Status,
			Severity:  string(e.Severity),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// mapPipelineError picks the HTTP status for a pipeline result. The body is
// always the result itself.
func mapPipelineError(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var (
		ae *upload.AdmissionError
		td *pipeline.ThreatDetected
		se *pipeline.ScanError
	)

	switch {
	case errors.As(err, &ae):
		switch ae.Reason {
		case upload.UnsupportedType:
			return http.StatusUnsupportedMediaType
		case upload.TooLarge:
			return http.StatusRequestEntityTooLarge
		default:
			return http.StatusBadRequest
		}
	case errors.As(err, &td):
		return http.StatusUnprocessableEntity
	case errors.As(err, &se):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
