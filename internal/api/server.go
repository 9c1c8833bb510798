// Package api serves a finished tailgating analysis over HTTP: JSON views
// of every image, rendered plots and charts, stored runs and Prometheus
// metrics.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"gonum.org/v1/plot"

	"github.com/banshee-data/tailgate.report/internal/db"
	"github.com/banshee-data/tailgate.report/internal/httputil"
	"github.com/banshee-data/tailgate.report/internal/monitoring"
	"github.com/banshee-data/tailgate.report/internal/tailgate"
	"github.com/banshee-data/tailgate.report/internal/units"
	"github.com/banshee-data/tailgate.report/internal/visualiser"
)

// ANSI escape codes for the request log
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves one Analysis. The store and metrics are optional.
type Server struct {
	analysis *tailgate.Analysis
	store    *db.DB
	metrics  *monitoring.Metrics
	units    string
}

// NewServer returns a Server presenting speeds in speedUnits.
func NewServer(a *tailgate.Analysis, store *db.DB, metrics *monitoring.Metrics, speedUnits string) *Server {
	if !units.IsValid(speedUnits) {
		speedUnits = units.KMPH
	}
	return &Server{analysis: a, store: store, metrics: metrics, units: speedUnits}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
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

// LoggingMiddleware logs method, path, status and duration.
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

// ServeMux registers every route.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", s.showConfig)
	mux.HandleFunc("GET /api/summary", s.showSummary)
	mux.HandleFunc("GET /api/images", s.listImages)
	mux.HandleFunc("GET /api/images/{key}", s.showImage)
	mux.HandleFunc("GET /api/images/{key}/roster", s.showRoster)
	mux.HandleFunc("GET /api/images/{key}/pairs", s.showCandidates)
	mux.HandleFunc("GET /api/images/{key}/retained", s.showRetained)
	mux.HandleFunc("GET /api/images/{key}/parameters", s.showParameters)
	mux.HandleFunc("GET /charts/speed", s.speedChart)
	mux.HandleFunc("GET /charts/images/{key}", s.imageChart)
	mux.HandleFunc("GET /plots/images/{key}/{view}", s.imagePlot)
	if s.store != nil {
		mux.HandleFunc("GET /api/runs", s.listRuns)
		mux.HandleFunc("GET /api/runs/{id}/images", s.listRunImages)
		mux.HandleFunc("GET /api/runs/{id}/images/{key}/parameters", s.showRunParameters)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// lookup writes a 404 and returns nil for unknown image keys.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *tailgate.ImageResult {
	res, err := s.analysis.Lookup(r.PathValue("key"))
	if errors.Is(err, tailgate.ErrMissingData) {
		httputil.NotFound(w, err.Error())
		return nil
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return nil
	}
	return res
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	opts := s.analysis.Options()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"lane_threshold_m":      opts.LaneThreshold,
		"angular_threshold_rad": opts.Angular(),
		"pairing_policy":        opts.Policy.String(),
		"units":                 s.units,
	})
}

func (s *Server) showSummary(w http.ResponseWriter, r *http.Request) {
	sum := tailgate.Summarize(s.analysis)
	httputil.WriteJSONOK(w, summaryJSON{
		Summary:               sum,
		P85MaxSpeedDifference: units.ConvertFromKMPH(sum.P85MaxSpeedDifferenceKMH, s.units),
		Units:                 s.units,
	})
}

func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	keys := s.analysis.ImageKeys()
	out := make([]imageJSON, 0, len(keys))
	for _, key := range keys {
		res, _ := s.analysis.Result(key)
		out = append(out, newImageJSON(res))
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) showImage(w http.ResponseWriter, r *http.Request) {
	res := s.lookup(w, r)
	if res == nil {
		return
	}
	httputil.WriteJSONOK(w, imageDetailJSON{
		imageJSON:  newImageJSON(res),
		Roster:     newCarsJSON(res.Roster),
		Candidates: newPairsJSON(res.Candidates),
		Retained:   newPairsJSON(res.Retained),
		Parameters: s.newParametersJSON(res.Parameters),
	})
}

func (s *Server) showRoster(w http.ResponseWriter, r *http.Request) {
	if res := s.lookup(w, r); res != nil {
		httputil.WriteJSONOK(w, listJSON{Image: res.Key, Degenerate: res.Degenerate, Items: newCarsJSON(res.Roster)})
	}
}

func (s *Server) showCandidates(w http.ResponseWriter, r *http.Request) {
	if res := s.lookup(w, r); res != nil {
		httputil.WriteJSONOK(w, listJSON{Image: res.Key, Degenerate: res.Degenerate, Items: newPairsJSON(res.Candidates)})
	}
}

func (s *Server) showRetained(w http.ResponseWriter, r *http.Request) {
	if res := s.lookup(w, r); res != nil {
		httputil.WriteJSONOK(w, listJSON{Image: res.Key, Degenerate: res.Degenerate, Items: newPairsJSON(res.Retained)})
	}
}

func (s *Server) showParameters(w http.ResponseWriter, r *http.Request) {
	if res := s.lookup(w, r); res != nil {
		httputil.WriteJSONOK(w, listJSON{Image: res.Key, Degenerate: res.Degenerate, Items: s.newParametersJSON(res.Parameters)})
	}
}

func (s *Server) speedChart(w http.ResponseWriter, r *http.Request) {
	unit := s.units
	if q := r.URL.Query().Get("units"); q != "" {
		if !units.IsValid(q) {
			httputil.BadRequest(w, "units must be one of "+units.GetValidUnitsString())
			return
		}
		unit = q
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := visualiser.WriteSpeedChart(w, s.analysis, unit); err != nil {
		monitoring.Logf("[api] speed chart: %v", err)
	}
}

func (s *Server) imageChart(w http.ResponseWriter, r *http.Request) {
	res := s.lookup(w, r)
	if res == nil {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := visualiser.WriteImageScatter(w, res); err != nil {
		monitoring.Logf("[api] image chart %s: %v", res.Key, err)
	}
}

func (s *Server) imagePlot(w http.ResponseWriter, r *http.Request) {
	res := s.lookup(w, r)
	if res == nil {
		return
	}
	var p *plot.Plot
	var err error
	switch r.PathValue("view") {
	case "bev.png":
		p, err = visualiser.BEVPlot(res)
	case "pairs.png":
		p, err = visualiser.PairsPlot(res)
	default:
		httputil.NotFound(w, "unknown plot "+r.PathValue("view"))
		return
	}
	if errors.Is(err, tailgate.ErrDegenerateGeometry) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := visualiser.WritePlot(w, p, "png"); err != nil {
		monitoring.Logf("[api] plot %s: %v", res.Key, err)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) listRunImages(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.RunImages(r.Context(), r.PathValue("id"))
	if s.storeError(w, err) {
		return
	}
	httputil.WriteJSONOK(w, rows)
}

func (s *Server) showRunParameters(w http.ResponseWriter, r *http.Request) {
	params, err := s.store.RunParameters(r.Context(), r.PathValue("id"), r.PathValue("key"))
	if s.storeError(w, err) {
		return
	}
	httputil.WriteJSONOK(w, s.newParametersJSON(params))
}

func (s *Server) storeError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, db.ErrNotFound):
		httputil.NotFound(w, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
	return true
}

// ObserveAnalysis adds every image of a to m.
func ObserveAnalysis(m *monitoring.Metrics, a *tailgate.Analysis) {
	for _, key := range a.ImageKeys() {
		res, _ := a.Result(key)
		c := monitoring.ImageCounts{
			Degenerate: res.Degenerate,
			Malformed:  res.Malformed,
			Candidates: len(res.Candidates),
			Retained:   len(res.Retained),
		}
		for _, p := range res.Parameters {
			if p.Lane != nil && !p.Lane.SameLane() {
				c.LaneRejected++
			}
			if p.Heading != nil && !p.Heading.Maintained() {
				c.HeadingExceeded++
			}
		}
		m.ObserveImage(c)
	}
}
