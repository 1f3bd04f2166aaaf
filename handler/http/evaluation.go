package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/evaluation"
)

type evaluationRequest struct {
	Type        string                        `json:"type" binding:"required"`
	Ranking     bool                          `json:"ranking"`
	Join        string                        `json:"join"`
	Seed        *uint64                       `json:"seed"`
	Classified  []evaluation.ClassifiedRecord `json:"classified"`
	GroundTruth []json.RawMessage             `json:"ground_truth"`
}

type evaluationResponse struct {
	ReportID *int64             `json:"report_id,omitempty"`
	Report   *evaluation.Report `json:"report"`
}

// CreateEvaluation handles POST /api/v1/evaluations
func (h *Handler) CreateEvaluation(c *gin.Context) {
	var req evaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	truth := make([]evaluation.GroundTruthRecord, 0, len(req.GroundTruth))
	for i, raw := range req.GroundTruth {
		rec, err := evaluation.ParseGroundTruth(raw, req.Type)
		if err != nil {
			sendError(c, http.StatusBadRequest, fmt.Errorf("ground truth record %d: %w", i+1, err))
			return
		}
		truth = append(truth, rec)
	}

	ctx := c.Request.Context()
	rep, err := evaluation.RunSources(ctx,
		evaluation.NewClassifiedSlice(req.Classified),
		evaluation.NewGroundTruthSlice(truth),
		evaluation.Options{
			Type:    req.Type,
			Ranking: req.Ranking,
			Join:    evaluation.Join(req.Join),
			Seed:    req.Seed,
		})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	resp := evaluationResponse{Report: rep}
	if h.reports != nil {
		row, err := h.reports.Save(ctx, rep)
		if err != nil {
			sendError(c, http.StatusInternalServerError, err)
			return
		}
		resp.ReportID = &row.ID
	}

	sendJSON(c, http.StatusOK, resp)
}

// GetEvaluation handles GET /api/v1/evaluations/:id
func (h *Handler) GetEvaluation(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid report id: %w", err))
		return
	}

	row, err := h.reports.GetByID(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if row == nil {
		sendError(c, http.StatusNotFound, ErrReportNotFound)
		return
	}

	rep, err := row.Decode()
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, evaluationResponse{ReportID: &row.ID, Report: rep})
}

// ListEvaluations handles GET /api/v1/evaluations
func (h *Handler) ListEvaluations(c *gin.Context) {
	offset, limit := getPaginationParams(c)

	rows, err := h.reports.List(c.Request.Context(), c.Query("type"), limit, offset)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, gin.H{
		"items":  rows,
		"offset": offset,
		"limit":  limit,
	})
}
