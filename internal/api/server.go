// Package api serves movement reports, heat maps and sprint maps over HTTP.
package api

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"gonum.org/v1/plot"

	"github.com/banshee-data/movement.report/internal/config"
	"github.com/banshee-data/movement.report/internal/db"
	"github.com/banshee-data/movement.report/internal/heatmap"
	"github.com/banshee-data/movement.report/internal/httputil"
	"github.com/banshee-data/movement.report/internal/kinematics"
	"github.com/banshee-data/movement.report/internal/monitoring"
	"github.com/banshee-data/movement.report/internal/movement"
	"github.com/banshee-data/movement.report/internal/render"
	"github.com/banshee-data/movement.report/internal/report"
	"github.com/banshee-data/movement.report/internal/tracking"
	"github.com/banshee-data/movement.report/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	source MatchSource
	runs   RunStore
	cfg    *config.AnalysisConfig
}

// NewServer serves matches from source using cfg for defaults. runs may be
// nil.
func NewServer(source MatchSource, runs RunStore, cfg *config.AnalysisConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	return &Server{source: source, runs: runs, cfg: cfg}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", s.showConfig)
	mux.HandleFunc("GET /api/matches", s.listMatches)
	mux.HandleFunc("GET /api/matches/{match}/entities", s.listEntities)
	mux.HandleFunc("GET /api/matches/{match}/entities/{entity}/summary", s.entitySummary)
	mux.HandleFunc("GET /api/matches/{match}/entities/{entity}/sprints", s.entitySprints)
	mux.HandleFunc("GET /api/matches/{match}/entities/{entity}/heatmap", s.entityHeatmap)
	mux.HandleFunc("POST /api/matches/{match}/runs", s.createRun)
	mux.HandleFunc("GET /api/matches/{match}/runs/latest", s.latestRun)
	mux.HandleFunc("GET /charts/{match}/{entity}", s.entityDashboard)
	mux.HandleFunc("GET /plots/{match}/{entity}/{plot}", s.entityPlot)
	return mux
}

// analysisParams are the per-request overrides of the configured analysis.
type analysisParams struct {
	threshold  float64
	speedUnits string
}

func (s *Server) params(r *http.Request) (analysisParams, error) {
	p := analysisParams{threshold: s.cfg.GetSprintThreshold(), speedUnits: s.cfg.GetSpeedUnits()}
	q := r.URL.Query()
	if v := q.Get("threshold"); v != "" {
		th, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(th) || math.IsInf(th, 0) {
			return p, fmt.Errorf("invalid threshold %q", v)
		}
		p.threshold = th
	}
	if v := q.Get("units"); v != "" {
		if !units.IsValid(v) {
			return p, fmt.Errorf("invalid units %q, must be one of %s", v, units.GetValidUnitsString())
		}
		p.speedUnits = v
	}
	return p, nil
}

// loadMatch fetches the match named in the path, writing the error response
// itself when it fails.
func (s *Server) loadMatch(w http.ResponseWriter, r *http.Request) (*tracking.Match, bool) {
	id := r.PathValue("match")
	m, err := s.source.LoadMatch(r.Context(), id)
	if errors.Is(err, db.ErrMatchNotFound) {
		httputil.NotFound(w, fmt.Sprintf("match %q not found", id))
		return nil, false
	}
	if msg, ok := malformedExport(err); ok {
		httputil.UnprocessableEntity(w, fmt.Sprintf("match %q: %s", id, msg))
		return nil, false
	}
	if err != nil {
		monitoring.Logf("api: load match %s: %v", id, err)
		httputil.InternalServerError(w, "failed to load match")
		return nil, false
	}
	return m, true
}

// malformedExport reports whether err comes from an unusable export file and
// returns the message to show for it.
func malformedExport(err error) (string, bool) {
	var mf *tracking.MissingFieldError
	if errors.As(err, &mf) {
		return mf.Error(), true
	}
	var pe *tracking.ParseError
	if errors.As(err, &pe) {
		return pe.Error(), true
	}
	var ce *csv.ParseError
	if errors.As(err, &ce) {
		return ce.Error(), true
	}
	return "", false
}

// loadEntity resolves match and entity from the path and derives the
// entity's samples.
func (s *Server) loadEntity(w http.ResponseWriter, r *http.Request) (*tracking.Match, tracking.Entity, []kinematics.DerivedSample, bool) {
	m, ok := s.loadMatch(w, r)
	if !ok {
		return nil, tracking.Entity{}, nil, false
	}
	id := r.PathValue("entity")
	e, ok := m.Roster.Get(id)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("entity %q not found in match %q", id, m.ID))
		return nil, tracking.Entity{}, nil, false
	}
	return m, e, kinematics.Derive(m.EntitySamples(id)), true
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.cfg)
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.source.ListMatches(r.Context())
	if err != nil {
		monitoring.Logf("api: list matches: %v", err)
		httputil.InternalServerError(w, "failed to list matches")
		return
	}
	httputil.WriteJSONOK(w, matches)
}

type entityListItem struct {
	tracking.Entity
	DisplayName string `json:"display_name"`
	Samples     int    `json:"samples"`
}

func (s *Server) listEntities(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMatch(w, r)
	if !ok {
		return
	}
	counts := make(map[string]int)
	for _, smp := range m.Samples {
		counts[smp.EntityID]++
	}
	out := []entityListItem{}
	for _, e := range m.Roster.Entities() {
		out = append(out, entityListItem{Entity: e, DisplayName: e.DisplayName(), Samples: counts[e.ID]})
	}
	httputil.WriteJSONOK(w, out)
}

type displaySpeeds struct {
	Units        string   `json:"units"`
	PeakSpeed    *float64 `json:"peak_speed"`
	AverageSpeed *float64 `json:"average_speed"`
	SpeedP85     *float64 `json:"speed_p85"`
}

type summaryResponse struct {
	*report.EntityReport
	LengthUnit string        `json:"length_unit"`
	Display    displaySpeeds `json:"display"`
}

func (s *Server) convert(v *float64, speedUnits string) *float64 {
	if v == nil {
		return nil
	}
	c := units.ConvertTrackingSpeed(*v, s.cfg.GetLengthUnit(), speedUnits)
	return &c
}

func (s *Server) entitySummary(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	_, e, derived, ok := s.loadEntity(w, r)
	if !ok {
		return
	}
	rep, err := report.FromDerived(derived, e, p.threshold)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	httputil.WriteJSONOK(w, summaryResponse{
		EntityReport: rep,
		LengthUnit:   s.cfg.GetLengthUnit(),
		Display: displaySpeeds{
			Units:        p.speedUnits,
			PeakSpeed:    s.convert(rep.Summary.PeakSpeed, p.speedUnits),
			AverageSpeed: s.convert(rep.AverageSpeed, p.speedUnits),
			SpeedP85:     s.convert(rep.SpeedP85, p.speedUnits),
		},
	})
}

type sprintsResponse struct {
	EntityID    string                  `json:"entity_id"`
	Threshold   float64                 `json:"threshold"`
	Segments    []movement.Segment      `json:"segments"`
	WithBall    []movement.SprintVector `json:"with_ball"`
	WithoutBall []movement.SprintVector `json:"without_ball"`
}

func (s *Server) entitySprints(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	_, e, derived, ok := s.loadEntity(w, r)
	if !ok {
		return
	}
	with, without := movement.SplitByPossession(movement.SprintVectors(derived, e.ID, p.threshold))
	resp := sprintsResponse{
		EntityID:    e.ID,
		Threshold:   p.threshold,
		Segments:    movement.SprintSegments(derived, e.ID, p.threshold),
		WithBall:    with,
		WithoutBall: without,
	}
	if resp.Segments == nil {
		resp.Segments = []movement.Segment{}
	}
	if resp.WithBall == nil {
		resp.WithBall = []movement.SprintVector{}
	}
	if resp.WithoutBall == nil {
		resp.WithoutBall = []movement.SprintVector{}
	}
	httputil.WriteJSONOK(w, resp)
}

type heatmapResponse struct {
	EntityID string      `json:"entity_id"`
	XEdges   []float64   `json:"x_edges"`
	YEdges   []float64   `json:"y_edges"`
	Counts   [][]float64 `json:"counts"` // [y][x]
	Max      float64     `json:"max"`
	Total    int         `json:"total"`
	Outside  int         `json:"outside"`
}

func (s *Server) occupancy(m *tracking.Match, entityID string) (*heatmap.Grid, error) {
	pitch := heatmap.Pitch{Length: s.cfg.GetPitchLength(), Width: s.cfg.GetPitchWidth()}
	return heatmap.Occupancy(m.EntitySamples(entityID), pitch, s.cfg.GetHeatmapBinsX(), s.cfg.GetHeatmapBinsY())
}

func (s *Server) entityHeatmap(w http.ResponseWriter, r *http.Request) {
	m, e, _, ok := s.loadEntity(w, r)
	if !ok {
		return
	}
	g, err := s.occupancy(m, e.ID)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	bx, by := g.Dims()
	counts := make([][]float64, by)
	for y := range counts {
		counts[y] = make([]float64, bx)
		for x := range counts[y] {
			counts[y][x] = g.Count(x, y)
		}
	}
	httputil.WriteJSONOK(w, heatmapResponse{
		EntityID: e.ID,
		XEdges:   g.XEdges,
		YEdges:   g.YEdges,
		Counts:   counts,
		Max:      g.Max(),
		Total:    g.Total,
		Outside:  g.Outside,
	})
}

func (s *Server) entityDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	m, e, derived, ok := s.loadEntity(w, r)
	if !ok {
		return
	}
	sum, err := movement.Summarize(derived, e.ID, p.threshold)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	g, err := s.occupancy(m, e.ID)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	var buf bytes.Buffer
	err = render.DashboardPage(&buf, render.Dashboard{
		Title:      e.DisplayName(),
		Summary:    sum,
		Grid:       g,
		Vectors:    movement.SprintVectors(derived, e.ID, p.threshold),
		LengthUnit: s.cfg.GetLengthUnit(),
		SpeedUnits: p.speedUnits,
	})
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	httputil.WriteBody(w, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) entityPlot(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	kind := r.PathValue("plot")
	if kind != "heatmap.png" && kind != "sprints.png" {
		httputil.NotFound(w, fmt.Sprintf("unknown plot %q", kind))
		return
	}
	m, e, derived, ok := s.loadEntity(w, r)
	if !ok {
		return
	}

	var pl *plot.Plot
	switch kind {
	case "heatmap.png":
		g, gerr := s.occupancy(m, e.ID)
		if gerr != nil {
			httputil.InternalServerError(w, gerr.Error())
			return
		}
		pl, err = render.HeatMapPlot(e.DisplayName()+" - Heat Map", g, s.cfg.GetLengthUnit())
	case "sprints.png":
		pitch := heatmap.Pitch{Length: s.cfg.GetPitchLength(), Width: s.cfg.GetPitchWidth()}
		title := fmt.Sprintf("%s - Sprint Map (>%g %s/s)", e.DisplayName(), p.threshold, units.LengthLabel(s.cfg.GetLengthUnit()))
		pl, err = render.SprintMapPlot(title, pitch, movement.SprintVectors(derived, e.ID, p.threshold), s.cfg.GetSprintVectorScale(), s.cfg.GetLengthUnit())
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("plot error: %v", err))
		return
	}

	var buf bytes.Buffer
	if err := render.WritePNG(pl, &buf); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteBody(w, "image/png", buf.Bytes())
}

type runResponse struct {
	Run       *db.Run            `json:"run"`
	Summaries []movement.Summary `json:"summaries"`
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		httputil.NotImplemented(w, "no run store configured")
		return
	}
	p, err := s.params(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	m, ok := s.loadMatch(w, r)
	if !ok {
		return
	}

	cfg := s.cfg.Merge(&config.AnalysisConfig{SprintThreshold: &p.threshold})
	reports, err := report.BuildAll(r.Context(), m, cfg)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	summaries := make([]movement.Summary, len(reports))
	for i, rep := range reports {
		summaries[i] = rep.Summary
	}

	run, err := s.runs.RecordRun(r.Context(), m.ID, p.threshold, summaries)
	if err != nil {
		monitoring.Logf("api: record run for %s: %v", m.ID, err)
		httputil.InternalServerError(w, "failed to record run")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, runResponse{Run: run, Summaries: summaries})
}

func (s *Server) latestRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		httputil.NotImplemented(w, "no run store configured")
		return
	}
	id := r.PathValue("match")
	run, summaries, err := s.runs.LatestSummaries(r.Context(), id)
	if errors.Is(err, db.ErrNoRuns) {
		httputil.NotFound(w, fmt.Sprintf("no runs for match %q", id))
		return
	}
	if err != nil {
		monitoring.Logf("api: latest run for %s: %v", id, err)
		httputil.InternalServerError(w, "failed to load run")
		return
	}
	if summaries == nil {
		summaries = []movement.Summary{}
	}
	httputil.WriteJSONOK(w, runResponse{Run: run, Summaries: summaries})
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, movement.ErrEmptyInput):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, movement.ErrInvalidThreshold):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}
