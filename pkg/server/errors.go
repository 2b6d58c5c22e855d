package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// ErrorResponse is the body of every failed request. Message is the failure
// text as produced by the pipeline.
type ErrorResponse struct {
	ErrorCode string   `json:"error_code"`
	Message   string   `json:"message"`
	Fields    []string `json:"fields,omitempty"`
}

// statusOf maps a failure kind to an HTTP status.
func statusOf(kind failure.Kind) int {
	switch kind {
	case failure.NotFound:
		return http.StatusNotFound
	case failure.Empty, failure.SchemaViolation, failure.ParseFailure:
		return http.StatusUnprocessableEntity
	case failure.JoinIntegrityViolation, failure.ModelNotFit:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	kind := failure.KindOf(err)
	status := statusOf(kind)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err.Error())
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{ErrorCode: kind.String(), Message: err.Error()})
}

// renderBadRequest reports a malformed or invalid request body.
func (s *Server) renderBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{ErrorCode: "InvalidRequest", Message: err.Error()}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			resp.Fields = append(resp.Fields, fe.Namespace())
		}
	}
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, resp)
}
