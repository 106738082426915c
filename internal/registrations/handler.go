package registrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"registration-backend/internal/shared/metrics"
	"registration-backend/internal/shared/server/respond"
	"registration-backend/internal/shared/telemetry"
)

const failedMessage = "Failed to submit registration"

// Creator persists a validated submission.
type Creator interface {
	CreateApplication(ctx context.Context, params CreateParams) (Application, []Document, error)
}

// StatusReader looks up an application by reference.
type StatusReader interface {
	GetStatus(ctx context.Context, ref string) (ApplicationStatus, error)
}

// Handler wires HTTP handlers to the registration store.
type Handler struct {
	Creator         Creator
	Status          StatusReader
	Rules           Rules
	// MaxRequestBytes caps the whole body; 0 leaves it unbounded.
	MaxRequestBytes int64
}

// NewHandler constructs a Handler backed by svc, validating with the same rules svc enforces.
func NewHandler(svc *Service, maxRequestBytes int64) *Handler {
	return &Handler{
		Creator:         svc,
		Status:          svc,
		Rules:           svc.Rules.withDefaults(),
		MaxRequestBytes: maxRequestBytes,
	}
}

// RegisterRoutes attaches registration routes. intake middleware runs only on submissions.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, intake ...gin.HandlerFunc) {
	rg.POST("/register/applications", append(intake, h.submit)...)
	rg.GET("/register/applications/:ref", h.status)
}

func (h *Handler) submit(c *gin.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("registration.panic", map[string]any{
				"panic":      fmt.Sprint(rec),
				"request_id": c.GetString("requestId"),
			})
			metrics.IncSubmission(metrics.OutcomeFailed)
			respond.Error(c, http.StatusInternalServerError, "internal_error", failedMessage, nil)
		}
	}()

	if h.MaxRequestBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxRequestBytes)
	}

	conf, err := h.Submit(c.Request)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Set("applicationRef", conf.ApplicationRef)
	metrics.IncSubmission(metrics.OutcomeCreated)
	respond.JSON(c, http.StatusCreated, conf)
}

// Submit parses and validates r, then hands the submission to the Creator.
// Validation failures never reach the Creator.
func (h *Handler) Submit(r *http.Request) (Confirmation, error) {
	rules := h.Rules.withDefaults()

	form, err := ParseForm(r, rules)
	if err != nil {
		return Confirmation{}, err
	}
	defer form.Cleanup()

	input, err := Validate(form, rules)
	if err != nil {
		return Confirmation{}, err
	}

	app, docs, err := h.Creator.CreateApplication(r.Context(), CreateParams{
		Input:       input,
		FilesByType: form.Files,
		IPAddress:   ClientIP(r),
	})
	if err != nil {
		return Confirmation{}, err
	}
	return toConfirmation(app, docs), nil
}

func (h *Handler) fail(c *gin.Context, err error) {
	var missingField *MissingFieldError
	var oversized *OversizedFileError
	var missingDocs *MissingDocumentsError
	var longField *FieldTooLongError
	var tooLarge *RequestTooLargeError

	switch {
	case errors.As(err, &longField):
		metrics.IncSubmission(metrics.OutcomeFieldTooLong)
		respond.Error(c, http.StatusBadRequest, "field_too_long", longField.Error(), nil)
	case errors.As(err, &tooLarge):
		metrics.IncSubmission(metrics.OutcomeRequestTooLarge)
		respond.Error(c, http.StatusRequestEntityTooLarge, "request_too_large", tooLarge.Error(), nil)
	case errors.As(err, &missingField):
		metrics.IncSubmission(metrics.OutcomeMissingField)
		respond.Error(c, http.StatusBadRequest, "missing_field", missingField.Error(), nil)
	case errors.As(err, &oversized):
		metrics.IncSubmission(metrics.OutcomeOversizedFile)
		respond.Error(c, http.StatusBadRequest, "oversized_file", oversized.Error(), nil)
	case errors.As(err, &missingDocs):
		metrics.IncSubmission(metrics.OutcomeMissingDocuments)
		respond.Error(c, http.StatusBadRequest, "missing_documents", missingDocs.Error(), map[string]any{
			"missingDocuments": missingDocs.Types,
		})
	default:
		metrics.IncSubmission(metrics.OutcomeFailed)
		message := strings.TrimSpace(err.Error())
		if message == "" {
			message = failedMessage
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
	}
}

func (h *Handler) status(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("ref"))

	st, err := h.Status.GetStatus(c.Request.Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Application not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to fetch application", nil)
		}
		return
	}

	respond.OK(c, toStatusResponse(st))
}
