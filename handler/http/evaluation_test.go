package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpHdlr "github.com/usc-isi-i2/dig-train-extractions-classifier/handler/http"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/evaluation"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/storage/postgres/reportctrl"
)

type memoryReports struct {
	rows map[int64]*reportctrl.Report
	next int64

	lastLimit, lastOffset int
}

func newMemoryReports() *memoryReports {
	return &memoryReports{rows: make(map[int64]*reportctrl.Report)}
}

func (m *memoryReports) Save(ctx context.Context, rep *evaluation.Report) (*reportctrl.Report, error) {
	row, err := reportctrl.FromEvaluation(rep)
	if err != nil {
		return nil, err
	}
	m.next++
	row.ID = m.next
	m.rows[row.ID] = row
	return row, nil
}

func (m *memoryReports) GetByID(ctx context.Context, id int64) (*reportctrl.Report, error) {
	return m.rows[id], nil
}

func (m *memoryReports) List(ctx context.Context, entityType string, limit int, offset int) ([]reportctrl.Report, error) {
	m.lastLimit, m.lastOffset = limit, offset
	var out []reportctrl.Report
	for _, row := range m.rows {
		if entityType == "" || row.EntityType == entityType {
			out = append(out, *row)
		}
	}
	return out, nil
}

type response struct {
	ReportID *int64             `json:"report_id"`
	Report   *evaluation.Report `json:"report"`
}

func newRouter(reports httpHdlr.ReportRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	httpHdlr.NewHandler(reports).RegisterRoutes(r)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var scenario = map[string]interface{}{
	"type":    "cities",
	"ranking": true,
	"seed":    3,
	"classified": []map[string]interface{}{
		{"doc_id": "1", "accepted": []string{"a", "b"}, "rejected": []string{"c"},
			"entities": []string{"a", "b", "c"}, "negative_probs": []float64{2, 2, 9}, "labels": []int{1, 0, 0}},
		{"doc_id": "2", "accepted": []string{}, "negative_probs": []float64{0.5}, "labels": []int{0}},
	},
	"ground_truth": []map[string]interface{}{
		{"doc_id": "2", "correct_cities": []string{}, "annotated_cities": []string{"z"}},
		{"doc_id": "1", "correct_cities": []string{"a", "c"}, "annotated_cities": []string{"a", "b", "c"}},
	},
}

func TestCreateEvaluation(t *testing.T) {
	r := newRouter(nil)

	w := do(t, r, http.MethodPost, "/api/v1/evaluations", scenario)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.ReportID)
	require.NotNil(t, resp.Report)
	assert.Len(t, resp.Report.Documents, 2)
	require.NotNil(t, resp.Report.Precision)
	assert.Equal(t, 0.5, *resp.Report.Precision)
	require.NotNil(t, resp.Report.Ranking)
	require.NotNil(t, resp.Report.Ranking.Real)
	assert.Equal(t, 1.0, resp.Report.Ranking.Real.Min)
	assert.Equal(t, 1, resp.Report.Ranking.Skipped)
}

func TestCreateEvaluation_StoresAndFetches(t *testing.T) {
	reports := newMemoryReports()
	r := newRouter(reports)

	w := do(t, r, http.MethodPost, "/api/v1/evaluations", scenario)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotNil(t, created.ReportID)

	w = do(t, r, http.MethodGet, "/api/v1/evaluations/1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var fetched response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created.Report.RunID, fetched.Report.RunID)

	w = do(t, r, http.MethodGet, "/api/v1/evaluations?type=cities", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/evaluations/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/evaluations/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateEvaluation_InvalidInput(t *testing.T) {
	r := newRouter(nil)

	tests := []struct {
		name string
		body map[string]interface{}
		code string
	}{
		{
			name: "missing type",
			body: map[string]interface{}{"classified": []interface{}{}},
			code: "BAD_REQUEST",
		},
		{
			name: "unknown document",
			body: map[string]interface{}{
				"type":         "cities",
				"classified":   []map[string]interface{}{{"doc_id": "9"}},
				"ground_truth": []map[string]interface{}{{"doc_id": "1", "correct_cities": []string{}, "annotated_cities": []string{}}},
			},
			code: "INVALID_INPUT",
		},
		{
			name: "missing ground truth field",
			body: map[string]interface{}{
				"type":         "cities",
				"ground_truth": []map[string]interface{}{{"doc_id": "1"}},
			},
			code: "INVALID_INPUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/v1/evaluations", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var errResp httpHdlr.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
			assert.Equal(t, tt.code, errResp.Code)
		})
	}
}

func TestReportRoutesRequireStorage(t *testing.T) {
	r := newRouter(nil)
	w := do(t, r, http.MethodGet, "/api/v1/evaluations/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListEvaluations_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", query: "", wantLimit: 10, wantOffset: 0},
		{name: "explicit", query: "?limit=25&offset=50", wantLimit: 25, wantOffset: 50},
		{name: "limit capped", query: "?limit=100000000", wantLimit: 100, wantOffset: 0},
		{name: "negative values", query: "?limit=-3&offset=-1", wantLimit: 10, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := newMemoryReports()
			w := do(t, newRouter(reports), http.MethodGet, "/api/v1/evaluations"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			assert.Equal(t, tt.wantLimit, reports.lastLimit)
			assert.Equal(t, tt.wantOffset, reports.lastOffset)

			var body struct {
				Limit  int `json:"limit"`
				Offset int `json:"offset"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantLimit, body.Limit)
		})
	}
}
