package server

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aouyang1/go-forecaster-studio/jobs"
	"github.com/aouyang1/go-forecaster-studio/pipeline"
	"github.com/gorilla/mux"
)

// previewRows is the number of uploaded rows shown on the page
const previewRows = 50

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"fmtTime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04:05.999999999")
	},
	"fmtFloat": func(v float64) string {
		if math.IsNaN(v) {
			return "NaN"
		}
		return strconv.FormatFloat(v, 'f', 3, 64)
	},
	"fmtPercent": func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return strconv.FormatFloat(100*(*v), 'f', 2, 64) + "%"
	},
	"fmtOpt": func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return strconv.FormatFloat(*v, 'f', 3, 64)
	},
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

type indexPage struct {
	MinHorizon int
	MaxHorizon int
	Horizon    int
	Error      string
	Result     *indexResult
}

type indexResult struct {
	DatasetID   string
	Filename    string
	Preview     []pipeline.Observation
	TotalRows   int
	Forecast    []pipeline.ForecastRow
	ChartURL    string
	Export      *pipeline.Export
	SeriesModel string
}

type jobPage struct {
	Job     JobResponse
	Refresh bool
	Result  bool
	Rows    int
}

func (s *Server) render(w http.ResponseWriter, code int, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("unable to render page", "template", name, "error", err)
		http.Error(w, "unable to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("unable to write page", "template", name, "error", err)
	}
}

func (s *Server) newIndexPage(horizon int) indexPage {
	return indexPage{
		MinHorizon: s.cfg.MinHorizon,
		MaxHorizon: s.cfg.MaxHorizon,
		Horizon:    horizon,
	}
}

func (s *Server) renderIndexError(w http.ResponseWriter, page indexPage, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		slog.Error("page request failed", "error", err)
	}
	page.Error = errorMessage(code, err)
	s.render(w, code, "index.html", page)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "index.html", s.newIndexPage(s.cfg.MinHorizon))
}

// handleUpload runs the forecast for the uploaded file. Without a file the page is rendered
// without any result section.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	page := s.newIndexPage(s.cfg.MinHorizon)

	data, horizon, err := s.readUpload(w, r)
	if horizon > 0 {
		page.Horizon = horizon
	}
	if errors.Is(err, pipeline.ErrNoUpload) {
		s.render(w, http.StatusOK, "index.html", page)
		return
	}
	if err != nil {
		s.renderIndexError(w, page, err)
		return
	}

	out, err := s.cache.run(r.Context(), data, horizon)
	if err != nil {
		s.renderIndexError(w, page, err)
		return
	}

	res := &indexResult{
		DatasetID: out.DatasetID,
		Preview:   out.Table.Head(previewRows),
		TotalRows: len(out.Table.Rows),
		Forecast:  out.Forecast,
		ChartURL:  "/api/charts/" + out.DatasetID,
		Export:    out.Export,
	}
	if _, header, err := r.FormFile("file"); err == nil {
		res.Filename = header.Filename
	}
	if eq, err := out.Forecaster.SeriesModelEq(); err == nil {
		res.SeriesModel = eq
	}
	page.Result = res
	s.render(w, http.StatusOK, "index.html", page)
}

func (s *Server) handleMetricsForm(w http.ResponseWriter, r *http.Request) {
	page := s.newIndexPage(s.cfg.MinHorizon)
	if err := r.ParseForm(); err != nil {
		s.renderIndexError(w, page, ErrBadRequest)
		return
	}

	req := MetricsRequest{
		DatasetID: r.PostFormValue("dataset_id"),
		Initial:   r.PostFormValue("initial"),
		Period:    r.PostFormValue("period"),
	}
	if v := r.PostFormValue("horizon"); v != "" {
		h, err := s.parseHorizon(v)
		if err != nil {
			s.renderIndexError(w, page, err)
			return
		}
		req.Horizon = h
	}

	snap, err := s.submitMetrics(req)
	if err != nil {
		s.renderIndexError(w, page, err)
		return
	}
	http.Redirect(w, r, "/jobs/"+url.PathEscape(snap.ID), http.StatusSeeOther)
}

func (s *Server) handleJobPage(w http.ResponseWriter, r *http.Request) {
	snap, err := s.jobs.Get(mux.Vars(r)["id"])
	if err != nil {
		s.renderIndexError(w, s.newIndexPage(s.cfg.MinHorizon), err)
		return
	}
	page := jobPage{
		Job:     newJobResponse(snap),
		Refresh: !snap.Status.Terminal(),
		Result:  snap.Status == jobs.StatusSucceeded,
	}
	if snap.Result != nil {
		page.Rows = len(snap.Result.Rows)
	}
	s.render(w, http.StatusOK, "job.html", page)
}

func (s *Server) handleJobCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.jobs.Cancel(id); err != nil && !errors.Is(err, jobs.ErrJobFinished) {
		s.renderIndexError(w, s.newIndexPage(s.cfg.MinHorizon), err)
		return
	}
	http.Redirect(w, r, "/jobs/"+url.PathEscape(id), http.StatusSeeOther)
}
