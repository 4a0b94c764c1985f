package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/KaramelBytes/gwastrend/internal/gwas"
)

// parseParams reads pipeline params from the query string, falling back to
// the configured form defaults for absent keys.
func (s *Server) parseParams(q url.Values, requireValue bool) (gwas.Params, error) {
	p := gwas.Params{
		Criteria: gwas.Criteria{
			Trait:    s.cfg.Defaults.Trait,
			Ancestry: s.cfg.Defaults.Ancestry,
		},
		Direction:    s.cfg.Defaults.Direction,
		Model:        s.cfg.Model,
		DatesAsYears: s.cfg.DatesAsYears,
	}
	if q.Has("trait") {
		p.Criteria.Trait = strings.TrimSpace(q.Get("trait"))
	}
	if q.Has("ancestry") {
		p.Criteria.Ancestry = strings.TrimSpace(q.Get("ancestry"))
	}
	if v := q.Get("direction"); v != "" {
		d, err := gwas.ParseDirection(v)
		if err != nil {
			return p, err
		}
		p.Direction = d
	}
	if v := q.Get("field"); v != "" {
		f, err := gwas.ParseField(v)
		if err != nil {
			return p, fmt.Errorf("%w: %v", gwas.ErrInvalidInput, err)
		}
		p.TrendField = f
	}
	raw := strings.TrimSpace(q.Get("value"))
	switch {
	case raw != "":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return p, fmt.Errorf("%w: value %q is not a number", gwas.ErrInvalidInput, raw)
		}
		p.KnownValue = v
	case requireValue:
		return p, fmt.Errorf("%w: missing value", gwas.ErrInvalidInput)
	}
	if v := q.Get("dual"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("%w: dual %q is not a boolean", gwas.ErrInvalidInput, v)
		}
		p.Dual = b
	}
	if v := strings.TrimSpace(q.Get("alt")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("%w: alt %q is not a number", gwas.ErrInvalidInput, v)
		}
		p.AlternateValue = &f
		p.Dual = true
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, fmt.Errorf("%w: seed %q is not an integer", gwas.ErrInvalidInput, v)
		}
		if p.Model == (gwas.ModelOptions{}) {
			p.Model = gwas.DefaultModelOptions()
		}
		p.Model.Seed = seed
	}
	return p, p.Validate()
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	p, err := s.parseParams(r.URL.Query(), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.run(r.Context(), p)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// trend filters the cached dataset and aggregates it without fitting.
func (s *Server) trend(r *http.Request) (*gwas.Trend, int, error) {
	p, err := s.parseParams(r.URL.Query(), false)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	ds, err := s.dataset(r.Context())
	if err != nil {
		return nil, statusFor(err), err
	}
	subset := gwas.Filter(ds.Records, p.Criteria)
	if len(subset) == 0 {
		return nil, http.StatusNotFound, errors.New(gwas.EmptyWarning)
	}
	field := p.TrendField
	if field == "" {
		field = gwas.TrendFieldFor(p.Direction)
	}
	t := gwas.Aggregate(subset, field, p.DatesAsYears)
	if len(t.Points) == 0 {
		return nil, http.StatusNotFound, gwas.ErrEmptyTrend
	}
	return t, http.StatusOK, nil
}

func (s *Server) handleTrendCSV(w http.ResponseWriter, r *http.Request) {
	t, status, err := s.trend(r)
	if err != nil {
		writeError(w, status, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", t.FileName()))
	if err := t.WriteCSV(w); err != nil {
		s.logger.Error("write trend csv", "error", err)
	}
}

func (s *Server) handleTrendPNG(w http.ResponseWriter, r *http.Request) {
	t, status, err := s.trend(r)
	if err != nil {
		writeError(w, status, err)
		return
	}
	var buf bytes.Buffer
	if err := gwas.RenderChart(&buf, t, gwas.DefaultChartOptions()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.cache.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"cache_hits":   st.Hits,
		"cache_misses": st.Misses,
	})
}

// indexView is the data behind templates/index.html.
type indexView struct {
	Trait      string
	Ancestry   string
	Value      string
	Direction  gwas.Direction
	Directions []gwas.Direction
	Result     *gwas.Result
	Message    string
	Alternate  string
	Warnings   []string
	Error      string
	Query      template.URL // pre-encoded query for the chart and CSV links
	TrendTitle string
	TrendFile  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := indexView{
		Trait:      s.cfg.Defaults.Trait,
		Ancestry:   s.cfg.Defaults.Ancestry,
		Value:      q.Get("value"),
		Direction:  s.cfg.Defaults.Direction,
		Directions: []gwas.Direction{gwas.DirectionAssociations, gwas.DirectionSampleSize},
	}
	status := http.StatusOK
	p, err := s.parseParams(q, false)
	view.Trait, view.Ancestry, view.Direction = p.Criteria.Trait, p.Criteria.Ancestry, p.Direction
	switch {
	case err != nil:
		status, view.Error = http.StatusBadRequest, err.Error()
	case strings.TrimSpace(view.Value) != "":
		res, err := s.run(r.Context(), p)
		if err != nil {
			status, view.Error = statusFor(err), err.Error()
			break
		}
		view.Result = res
		view.Warnings = res.Warnings
		if res.Prediction != nil {
			view.Message = res.Prediction.Message()
		}
		if res.Alternate != nil {
			view.Alternate = res.Alternate.Message()
		}
		if res.Trend != nil && len(res.Trend.Points) > 0 {
			view.Query = template.URL(q.Encode())
			view.TrendTitle = res.Trend.Title()
			view.TrendFile = res.Trend.FileName()
		}
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", view); err != nil {
		s.logger.Error("render index", "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
