package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	forecaster "github.com/aouyang1/go-forecaster-studio"
	"github.com/aouyang1/go-forecaster-studio/diagnostics"
	"github.com/aouyang1/go-forecaster-studio/jobs"
	"github.com/aouyang1/go-forecaster-studio/pipeline"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

// cvHeadRows is the number of cross validation rows echoed back with the metrics
const cvHeadRows = 5

type ForecastResponse struct {
	DatasetID   string                 `json:"dataset_id"`
	Cutoff      time.Time              `json:"cutoff"`
	Freq        string                 `json:"freq"`
	Horizon     int                    `json:"horizon"`
	Forecast    []pipeline.ForecastRow `json:"forecast"`
	DataURI     string                 `json:"data_uri"`
	SeriesModel string                 `json:"series_model,omitempty"`
}

func newForecastResponse(out *pipeline.Output) ForecastResponse {
	resp := ForecastResponse{
		DatasetID: out.DatasetID,
		Cutoff:    out.Cutoff,
		Freq:      out.Freq.String(),
		Horizon:   out.Horizon,
		Forecast:  out.Forecast,
		DataURI:   out.Export.DataURI,
	}
	if eq, err := out.Forecaster.SeriesModelEq(); err == nil {
		resp.SeriesModel = eq
	}
	return resp
}

type MetricsRequest struct {
	DatasetID string `json:"dataset_id"`
	Horizon   int    `json:"horizon"`
	Initial   string `json:"initial"`
	Period    string `json:"period"`
}

// MetricJSON is a metric row with undefined statistics reported as null
type MetricJSON struct {
	Horizon  string   `json:"horizon"`
	MSE      *float64 `json:"mse"`
	RMSE     *float64 `json:"rmse"`
	MAE      *float64 `json:"mae"`
	MAPE     *float64 `json:"mape"`
	MdAPE    *float64 `json:"mdape"`
	SMAPE    *float64 `json:"smape"`
	Coverage *float64 `json:"coverage"`
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type JobResponse struct {
	ID        string              `json:"id"`
	DatasetID string              `json:"dataset_id"`
	Status    jobs.Status         `json:"status"`
	Done      int                 `json:"done"`
	Total     int                 `json:"total"`
	Error     string              `json:"error,omitempty"`
	Created   time.Time           `json:"created"`
	Finished  *time.Time          `json:"finished,omitempty"`
	Horizon   string              `json:"horizon,omitempty"`
	Initial   string              `json:"initial,omitempty"`
	Period    string              `json:"period,omitempty"`
	CVHead    []diagnostics.CVRow `json:"cv_head,omitempty"`
	Metrics   []MetricJSON        `json:"metrics,omitempty"`
}

func newJobResponse(snap jobs.Snapshot) JobResponse {
	resp := JobResponse{
		ID:        snap.ID,
		DatasetID: snap.DatasetID,
		Status:    snap.Status,
		Done:      snap.Done,
		Total:     snap.Total,
		Created:   snap.Created,
	}
	if snap.Err != nil {
		resp.Error = errorMessage(statusCode(snap.Err), snap.Err)
	}
	if !snap.Finished.IsZero() {
		finished := snap.Finished
		resp.Finished = &finished
	}
	if res := snap.Result; res != nil {
		resp.Horizon = res.Horizon.String()
		resp.Initial = res.Initial.String()
		resp.Period = res.Period.String()
		resp.CVHead = res.Rows[:min(cvHeadRows, len(res.Rows))]
		resp.Metrics = make([]MetricJSON, 0, len(res.Metrics))
		for _, m := range res.Metrics {
			resp.Metrics = append(resp.Metrics, MetricJSON{
				Horizon:  m.Horizon.String(),
				MSE:      nullable(m.MSE),
				RMSE:     nullable(m.RMSE),
				MAE:      nullable(m.MAE),
				MAPE:     nullable(m.MAPE),
				MdAPE:    nullable(m.MdAPE),
				SMAPE:    nullable(m.SMAPE),
				Coverage: nullable(m.Coverage),
			})
		}
	}
	return resp
}

// parseHorizon reads the number of future periods. Empty uses the smallest horizon.
func (s *Server) parseHorizon(v string) (int, error) {
	if v == "" {
		return s.cfg.MinHorizon, nil
	}
	h, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("horizon %q, %w", v, pipeline.ErrHorizonOutOfRange)
	}
	return h, nil
}

// readUpload reads the multipart file and horizon fields
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return nil, 0, fmt.Errorf("limit %d bytes, %w", maxErr.Limit, ErrUploadTooLarge)
		case errors.Is(err, http.ErrNotMultipart):
			return nil, 0, pipeline.ErrNoUpload
		}
		return nil, 0, fmt.Errorf("unable to parse form, %w, %w", ErrBadRequest, err)
	}

	horizon, err := s.parseHorizon(r.FormValue("horizon"))
	if err != nil {
		return nil, 0, err
	}

	file, _, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, horizon, pipeline.ErrNoUpload
	}
	if err != nil {
		return nil, horizon, fmt.Errorf("unable to open upload, %w, %w", ErrBadRequest, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, horizon, fmt.Errorf("unable to read upload, %w", err)
	}
	if len(data) == 0 {
		return nil, horizon, pipeline.ErrNoUpload
	}
	return data, horizon, nil
}

// submitMetrics validates the windows and horizon up front so malformed input is reported on
// the request instead of as a failed job
func (s *Server) submitMetrics(req MetricsRequest) (jobs.Snapshot, error) {
	if _, err := diagnostics.ParseDuration(req.Initial); err != nil {
		return jobs.Snapshot{}, fmt.Errorf("initial %w", err)
	}
	if _, err := diagnostics.ParseDuration(req.Period); err != nil {
		return jobs.Snapshot{}, fmt.Errorf("period %w", err)
	}
	if req.Horizon != 0 {
		if err := s.cache.opt.CheckHorizon(req.Horizon); err != nil {
			return jobs.Snapshot{}, fmt.Errorf("metrics horizon %w", err)
		}
	}
	run, ok := s.cache.get(req.DatasetID)
	if !ok {
		return jobs.Snapshot{}, ErrDatasetNotFound
	}
	out := run.out

	in := pipeline.MetricsInput{
		Initial: req.Initial,
		Period:  req.Period,
		Horizon: req.Horizon,
	}
	if in.Horizon == 0 {
		in.Horizon = out.Horizon
	}
	opt := pipeline.MetricsOptions{
		Parallelism:   s.cfg.CVParallelism,
		RollingWindow: s.cfg.CVRollingWindow,
	}
	return s.jobs.Submit(req.DatasetID, func(ctx context.Context, progress func(done, total int)) (*pipeline.MetricsOutput, error) {
		opt.Progress = progress
		return pipeline.RunMetrics(ctx, out, in, opt)
	})
}

func (s *Server) handleAPIForecast(w http.ResponseWriter, r *http.Request) {
	data, horizon, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.cache.run(r.Context(), data, horizon)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newForecastResponse(out))
}

func (s *Server) handleAPIMetrics(w http.ResponseWriter, r *http.Request) {
	var req MetricsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("invalid metrics request, %w, %w", ErrBadRequest, err))
		return
	}
	snap, err := s.submitMetrics(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/jobs/"+snap.ID)
	writeJSON(w, http.StatusAccepted, newJobResponse(snap))
}

func (s *Server) handleAPIJob(w http.ResponseWriter, r *http.Request) {
	snap, err := s.jobs.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(snap))
}

func (s *Server) handleAPICancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.jobs.Cancel(id); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.jobs.Get(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newJobResponse(snap))
}

// lookupRun resolves the dataset id route variable and the optional horizon query
func (s *Server) lookupRun(r *http.Request) (*pipeline.Output, error) {
	var horizon int
	if v := r.URL.Query().Get("horizon"); v != "" {
		h, err := s.parseHorizon(v)
		if err != nil {
			return nil, err
		}
		horizon = h
	}
	return s.cache.withHorizon(r.Context(), mux.Vars(r)["id"], horizon)
}

func (s *Server) handleAPIForecastCSV(w http.ResponseWriter, r *http.Request) {
	out, err := s.lookupRun(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="forecast.csv"`)
	if _, err := w.Write(out.Export.CSV); err != nil {
		slog.Warn("unable to write forecast csv", "error", err)
	}
}

// handleAPIChart renders the fit with its forecast horizon, the components and the residual as
// a standalone echarts page meant for an iframe
func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	out, err := s.lookupRun(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := out.Forecaster.PlotPage(&forecaster.PlotOpts{
		HorizonCnt:      out.Horizon,
		HorizonInterval: out.Freq,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(w); err != nil {
		slog.Warn("unable to render chart", "error", err)
	}
}
