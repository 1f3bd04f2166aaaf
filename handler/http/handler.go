package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/evaluation"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/storage/postgres/reportctrl"
)

var ErrReportNotFound = errors.New("report not found")

// ReportRepository is the report storage used by the API.
type ReportRepository interface {
	Save(ctx context.Context, rep *evaluation.Report) (*reportctrl.Report, error)
	GetByID(ctx context.Context, id int64) (*reportctrl.Report, error)
	List(ctx context.Context, entityType string, limit int, offset int) ([]reportctrl.Report, error)
}

type Handler struct {
	reports ReportRepository
}

// NewHandler creates the evaluation API. reports may be nil, in which case
// evaluations are not stored and the report routes are not registered.
func NewHandler(reports ReportRepository) *Handler {
	return &Handler{
		reports: reports,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	v1.GET("/health", h.CheckHealth)
	v1.POST("/evaluations", h.CreateEvaluation)

	if h.reports != nil {
		v1.GET("/evaluations", h.ListEvaluations)
		v1.GET("/evaluations/:id", h.GetEvaluation)
	}
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

var invalidInput = []error{
	evaluation.ErrMalformedRecord,
	evaluation.ErrMissingField,
	evaluation.ErrCandidateLength,
	evaluation.ErrInvalidLabel,
	evaluation.ErrInvalidScore,
	evaluation.ErrMissingDocumentID,
	evaluation.ErrDuplicateDocumentID,
	evaluation.ErrUnknownDocument,
	evaluation.ErrUnmatchedGroundTruth,
	evaluation.ErrRecordCountMismatch,
	evaluation.ErrInvalidJoin,
	evaluation.ErrMissingType,
}

func sendError(c *gin.Context, status int, err error) {
	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, ErrReportNotFound):
		code = "NOT_FOUND"
		status = http.StatusNotFound
	case isInvalidInput(err):
		code = "INVALID_INPUT"
		status = http.StatusBadRequest
	case status == http.StatusBadRequest:
		code = "BAD_REQUEST"
	default:
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func isInvalidInput(err error) bool {
	for _, target := range invalidInput {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// CheckHealth handles GET /api/v1/health
func (h *Handler) CheckHealth(c *gin.Context) {
	sendJSON(c, http.StatusOK, gin.H{
		"status":  "healthy",
		"storage": h.reports != nil,
	})
}

const maxPageSize = 100

func getPaginationParams(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.Query("offset"))
	limit, _ = strconv.Atoi(c.Query("limit"))

	if limit <= 0 {
		limit = 10 // default limit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	return offset, limit
}
