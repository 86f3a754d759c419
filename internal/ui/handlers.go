package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/crimson-sun/leaf/internal/engine/artifact"
	"github.com/crimson-sun/leaf/internal/model"
	"github.com/crimson-sun/leaf/internal/output/text"
	"github.com/crimson-sun/leaf/internal/report"
)

// pageData feeds templates/index.html.
type pageData struct {
	Fields   []fieldInput
	Error    string
	Artifact *artifact.Info
	Version  string

	HasResult    bool
	Label        string
	Color        string
	Confidence   []confidenceRow
	Slices       []Slice
	Supported    bool
	RankingError string
	Notice       string
	Bars         []Bar
	ChartHeight  float64
}

type fieldInput struct {
	Field model.Field
	Value float64
}

type confidenceRow struct {
	Label       string
	Probability float64
	Selected    bool
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	vals, err := valuesFromQuery(r.URL.Query())
	data := pageData{Fields: fieldInputs(vals), Version: a.cfg.Version, Notice: text.UnsupportedNotice}
	if info, ok := a.engine.Current(); ok {
		data.Artifact = &info
	}

	if err == nil {
		d, derr := a.diagnose(r, vals)
		if derr == nil {
			fillResult(&data, d)
			a.renderTemplate(w, http.StatusOK, "index.html", data)
			return
		}
		err = derr
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("diagnose failed", "error", err)
	}
	data.Error = err.Error()
	a.renderTemplate(w, status, "index.html", data)
}

// predictRequest accepts either named values or a positional vector.
type predictRequest struct {
	Values map[string]float64 `json:"values"`
	Vector []float64          `json:"vector"`
}

func (a *App) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	vals, err := req.resolve()
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}

	d, err := a.diagnose(r, vals)
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}
	a.writeJSON(w, http.StatusOK, report.NewDiagnosis(d))
}

func (a *App) handleImportance(w http.ResponseWriter, r *http.Request) {
	rk, err := a.engine.Rank()
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}
	a.writeJSON(w, http.StatusOK, report.NewRanking(rk))
}

func (a *App) handleFields(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, report.Fields())
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	info, ok := a.engine.Current()
	if !ok {
		a.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no artifact loaded"})
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"kind":    info.Kind,
		"name":    info.Name,
		"version": info.Version,
	})
}

// diagnose validates ranges when configured, runs the engine and records the
// prediction.
func (a *App) diagnose(r *http.Request, vals []float64) (model.Diagnosis, error) {
	v := model.NewFeatureVector(vals...)
	if a.cfg.StrictRanges {
		if err := v.ValidateRanges(); err != nil {
			return model.Diagnosis{}, err
		}
	}

	d, err := a.engine.Diagnose(v)
	if err != nil {
		return model.Diagnosis{}, err
	}

	if a.cfg.Output != nil {
		rec := model.NewRecord("http", d.ArtifactVersion, v, d.Prediction, a.now())
		if err := a.cfg.Output.Write(r.Context(), rec); err != nil {
			a.logger.Warn("record write failed", "id", rec.ID, "error", err)
		}
	}
	return d, nil
}

func (req predictRequest) resolve() ([]float64, error) {
	switch {
	case req.Vector != nil && req.Values != nil:
		return nil, fmt.Errorf("%w: send either values or vector, not both", model.ErrShapeMismatch)
	case req.Vector != nil:
		if len(req.Vector) != model.NumFeatures {
			return nil, fmt.Errorf("%w: vector has %d readings, want %d",
				model.ErrShapeMismatch, len(req.Vector), model.NumFeatures)
		}
		return req.Vector, nil
	}

	vals := model.DefaultVector().Values()
	for k, v := range req.Values {
		i, ok := model.FieldIndex(k)
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", model.ErrShapeMismatch, k)
		}
		vals[i] = v
	}
	return vals, nil
}

// valuesFromQuery starts from the documented defaults and overrides any field
// given as a query parameter.
func valuesFromQuery(q url.Values) ([]float64, error) {
	vals := model.DefaultVector().Values()
	var bad []string
	for i, f := range model.Fields {
		s := strings.TrimSpace(q.Get(f.Key))
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			bad = append(bad, fmt.Sprintf("%s=%q is not a number", f.Key, s))
			continue
		}
		vals[i] = v
	}
	if len(bad) > 0 {
		return vals, fmt.Errorf("%w: %s", model.ErrOutOfRange, strings.Join(bad, "; "))
	}
	return vals, nil
}

func fieldInputs(vals []float64) []fieldInput {
	out := make([]fieldInput, len(model.Fields))
	for i, f := range model.Fields {
		out[i] = fieldInput{Field: f, Value: vals[i]}
	}
	return out
}

func fillResult(data *pageData, d model.Diagnosis) {
	p := d.Prediction
	data.HasResult = true
	data.Label = p.Label.String()
	data.Color = p.Label.Color()
	for _, l := range model.Labels() {
		data.Confidence = append(data.Confidence, confidenceRow{
			Label:       l.String(),
			Probability: p.Distribution.Of(l),
			Selected:    l == p.Label,
		})
	}
	data.Slices = pieSlices(p.Distribution)

	if d.RankingErr != nil {
		data.RankingError = d.RankingErr.Error()
		return
	}
	data.Supported = d.Ranking.Supported
	data.Bars = importanceBars(d.Ranking.Entries)
	data.ChartHeight = barChartHeight(len(data.Bars))
}

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrOutOfRange), errors.Is(err, model.ErrShapeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrArtifactUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) renderTemplate(w http.ResponseWriter, status int, name string, data any) {
	var buf strings.Builder
	if err := a.templates.ExecuteTemplate(&buf, name, data); err != nil {
		a.logger.Error("template error", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}
