package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aouyang1/go-forecaster-studio/jobs"
	"github.com/aouyang1/go-forecaster-studio/pipeline"
	"github.com/goccy/go-json"
)

var (
	ErrUploadTooLarge = errors.New("upload too large")
	ErrBadRequest     = errors.New("bad request")
)

// ErrorResponse is the JSON body of every failed API request
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// statusCode maps an error to the HTTP status reported to the client
func statusCode(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrNoUpload), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrDatasetNotFound), errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrJobFinished):
		return http.StatusConflict
	case errors.Is(err, jobs.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, jobs.ErrManagerClosed):
		return http.StatusServiceUnavailable
	case pipeline.IsInputError(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// errorMessage hides internal faults from the client
func errorMessage(code int, err error) string {
	if code == http.StatusInternalServerError {
		return "unable to process request"
	}
	if errors.Is(err, pipeline.ErrNoUpload) {
		return pipeline.ErrNoUpload.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("unable to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "code", code, "error", err)
	}
	writeJSON(w, code, ErrorResponse{Code: code, Message: errorMessage(code, err)})
}
