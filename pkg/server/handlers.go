package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/cnoret/retail-data-analysis/pkg/dataprep"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
	"github.com/cnoret/retail-data-analysis/pkg/model"
	"github.com/cnoret/retail-data-analysis/pkg/pipeline"
	"github.com/cnoret/retail-data-analysis/pkg/runlog"
)

// TrainRequest is the body of POST /api/model/train. Zero fields take the
// configured defaults.
type TrainRequest struct {
	Model         string  `json:"model" validate:"omitempty,oneof=linear forest"`
	Trees         int     `json:"trees" validate:"omitempty,min=1,max=1000"`
	Seed          *int64  `json:"seed"`
	TestRatio     float64 `json:"test_ratio" validate:"omitempty,gt=0,lt=1"`
	MissingPolicy string  `json:"missing_policy" validate:"omitempty,oneof=drop error"`
}

func (t TrainRequest) toPipeline() pipeline.TrainRequest {
	return pipeline.TrainRequest{
		Kind:      model.Kind(t.Model),
		Trees:     t.Trees,
		Seed:      t.Seed,
		TestRatio: t.TestRatio,
		Missing:   dataprep.MissingPolicy(t.MissingPolicy),
	}
}

// PredictRequest is the body of POST /api/model/predict.
type PredictRequest struct {
	TrainRequest
	Input *dataprep.FeatureRow `json:"input" validate:"required"`
}

// ProcessingResponse carries the reports, with the error when the merge
// failed its integrity check.
type ProcessingResponse struct {
	*pipeline.ProcessingResult
	Error *ErrorResponse `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleExploration(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.RunExploration(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

func (s *Server) handleProcessing(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.RunProcessing(r.Context())
	if err != nil && res == nil {
		s.renderError(w, r, err)
		return
	}
	resp := ProcessingResponse{ProcessingResult: res}
	if err != nil {
		kind := failure.KindOf(err)
		resp.Error = &ErrorResponse{ErrorCode: kind.String(), Message: err.Error()}
		render.Status(r, statusOf(kind))
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleVisualization(w http.ResponseWriter, r *http.Request) {
	v, err := s.runner.RunVisualization(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, v)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.runner.RenderChart(r.Context(), chi.URLParam(r, "name"), &buf); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.runner.ExportMerged(r.Context(), &buf); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="merged_data.xlsx"`)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	// An empty body trains with the defaults.
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		s.renderBadRequest(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.renderBadRequest(w, r, err)
		return
	}
	res, err := s.runner.RunModeling(r.Context(), req.toPipeline(), nil)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.renderBadRequest(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.renderBadRequest(w, r, err)
		return
	}
	res, err := s.runner.RunModeling(r.Context(), req.toPipeline(), req.Input)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runner.Runs == nil {
		render.JSON(w, r, []runlog.Run{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.runner.Runs.List(r.Context(), limit)
	if err != nil {
		s.renderError(w, r, failure.New(failure.PersistenceFailure, "list runs", err))
		return
	}
	if runs == nil {
		runs = []runlog.Run{}
	}
	render.JSON(w, r, runs)
}
