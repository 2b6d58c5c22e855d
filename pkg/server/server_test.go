package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnoret/retail-data-analysis/pkg/dataprep"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
	"github.com/cnoret/retail-data-analysis/pkg/logger"
	"github.com/cnoret/retail-data-analysis/pkg/metrics"
	"github.com/cnoret/retail-data-analysis/pkg/model"
	"github.com/cnoret/retail-data-analysis/pkg/pipeline"
	"github.com/cnoret/retail-data-analysis/pkg/pipeline/pipelinetest"
	"github.com/cnoret/retail-data-analysis/pkg/runlog"
)

func newTestServer(t *testing.T, f pipelinetest.Fixture) (*Server, *pipeline.Runner) {
	t.Helper()
	dir := t.TempDir()
	runs, err := runlog.Open(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	m := metrics.New()
	runner := &pipeline.Runner{
		Sources:    pipelinetest.Write(t, dir, f),
		MergedPath: filepath.Join(dir, "merged_data.csv"),
		DateLayout: dataprep.DefaultDateLayout,
		ExportRows: 100,
		Defaults: pipeline.TrainRequest{
			Kind: model.KindLinear, Trees: 5, Seed: pipeline.Seed(42), TestRatio: 0.2, Missing: dataprep.MissingDrop,
		},
		Log:     logger.Nop(),
		Metrics: m,
		Runs:    runs,
		Cache:   model.NewCache(4),
	}
	return New(runner, logger.Nop(), m), runner
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestStatusOf(t *testing.T) {
	tests := map[failure.Kind]int{
		failure.NotFound:               http.StatusNotFound,
		failure.Empty:                  http.StatusUnprocessableEntity,
		failure.SchemaViolation:        http.StatusUnprocessableEntity,
		failure.ParseFailure:           http.StatusUnprocessableEntity,
		failure.JoinIntegrityViolation: http.StatusConflict,
		failure.ModelNotFit:            http.StatusConflict,
		failure.PersistenceFailure:     http.StatusInternalServerError,
		failure.Unknown:                http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, statusOf(kind), kind.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, pipelinetest.Default)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")

	rec = do(t, s, http.MethodPost, "/api/processing", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "retail_stage_duration_seconds")
	assert.Contains(t, rec.Body.String(), "retail_merged_rows 72")
}

func TestModelingBeforeProcessing(t *testing.T) {
	s, _ := newTestServer(t, pipelinetest.Default)

	rec := do(t, s, http.MethodPost, "/api/model/train", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var e ErrorResponse
	decode(t, rec, &e)
	assert.Equal(t, "NotFound", e.ErrorCode)
	assert.Contains(t, e.Message, "merged_data.csv")
}

func TestProcessingTrainPredict(t *testing.T) {
	s, _ := newTestServer(t, pipelinetest.Default)

	rec := do(t, s, http.MethodPost, "/api/processing", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var proc ProcessingResponse
	decode(t, rec, &proc)
	assert.True(t, proc.Persisted)
	assert.Nil(t, proc.Error)

	rec = do(t, s, http.MethodPost, "/api/model/train", `{"model":"forest","trees":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var trained pipeline.ModelingResult
	decode(t, rec, &trained)
	assert.Equal(t, "Random Forest Regressor", trained.Model)
	assert.Equal(t, 15, trained.TestRows)
	assert.Equal(t, int64(42), trained.Seed)

	rec = do(t, s, http.MethodPost, "/api/model/train", `{"model":"linear","seed":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var seeded pipeline.ModelingResult
	decode(t, rec, &seeded)
	assert.Equal(t, int64(0), seeded.Seed)

	body := `{"model":"linear","input":{"store":1,"dept":2,"is_holiday":false,"temperature":41,
		"fuel_price":2.51,"cpi":210.5,"unemployment":7.9,"type":"A"}}`
	rec = do(t, s, http.MethodPost, "/api/model/predict", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pred pipeline.ModelingResult
	decode(t, rec, &pred)
	require.NotNil(t, pred.Prediction)
	assert.InDelta(t, 2510, pred.Prediction.Value, 1e-6)
	assert.Equal(t, "$2,510.00", pred.Prediction.Formatted)

	rec = do(t, s, http.MethodGet, "/api/runs?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []runlog.Run
	decode(t, rec, &runs)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, "modeling", r.View)
	}
}

func TestPredictValidation(t *testing.T) {
	s, _ := newTestServer(t, pipelinetest.Default)

	tests := []struct {
		name string
		body string
	}{
		{"no input", `{"model":"linear"}`},
		{"bad model", `{"model":"svm","input":{"store":1,"dept":1,"type":"A"}}`},
		{"no type", `{"input":{"store":1,"dept":1}}`},
		{"store zero", `{"input":{"store":0,"dept":1,"type":"A"}}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/model/predict", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestPredictUnseenType(t *testing.T) {
	s, runner := newTestServer(t, pipelinetest.Default)
	_, err := runner.RunProcessing(context.Background())
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/api/model/predict", `{"input":{"store":1,"dept":1,"type":"Q"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var e ErrorResponse
	decode(t, rec, &e)
	assert.Equal(t, "ParseFailure", e.ErrorCode)
	assert.Contains(t, e.Message, `"Q"`)
}

func TestProcessingJoinDriftKeepsReport(t *testing.T) {
	s, _ := newTestServer(t, pipelinetest.Fixture{Stores: 1, Depts: 2, Weeks: 2, DuplicateFeature: true})

	rec := do(t, s, http.MethodPost, "/api/processing", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp ProcessingResponse
	decode(t, rec, &resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "JoinIntegrityViolation", resp.Error.ErrorCode)
	require.NotNil(t, resp.ProcessingResult)
	assert.Equal(t, 2, resp.Merge.RowDrift)
}

func TestExplorationChartsExport(t *testing.T) {
	s, runner := newTestServer(t, pipelinetest.Default)

	rec := do(t, s, http.MethodGet, "/api/exploration", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ex pipeline.ExplorationResult
	decode(t, rec, &ex)
	require.Len(t, ex.Tables, 4)
	assert.Equal(t, "NotFound", ex.Tables[3].ErrorCode)

	rec = do(t, s, http.MethodGet, "/api/charts/sales-histogram.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := runner.RunProcessing(context.Background())
	require.NoError(t, err)

	rec = do(t, s, http.MethodGet, "/api/visualization", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"correlation"`)

	for _, name := range []string{"sales-histogram", "store-totals"} {
		rec = do(t, s, http.MethodGet, "/api/charts/"+name+".png", "")
		require.Equal(t, http.StatusOK, rec.Code, name)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	}

	rec = do(t, s, http.MethodGet, "/api/charts/pie.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/merged.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}
