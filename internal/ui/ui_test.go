package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/leaf/internal/engine"
	"github.com/crimson-sun/leaf/internal/metrics"
	"github.com/crimson-sun/leaf/internal/model"
	"github.com/crimson-sun/leaf/internal/output/text"
	"github.com/crimson-sun/leaf/internal/report"
)

const fixtures = "../engine/artifact/testdata/"

type recordingOutput struct {
	mu      sync.Mutex
	records []model.Record
}

func (o *recordingOutput) Write(_ context.Context, r model.Record) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, r)
	return nil
}

func (o *recordingOutput) Close() error { return nil }

func newServer(t *testing.T, manifest string, cfg Config) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	e := engine.New(engine.WithMetrics(metrics.New(reg)))
	if manifest != "" {
		_, err := e.Load(fixtures + manifest)
		require.NoError(t, err)
	}
	cfg.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	app, err := NewApp(e, cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return resp, m
}

func TestPredictDefaults(t *testing.T) {
	out := &recordingOutput{}
	srv := newServer(t, "reference_forest.yaml", Config{StrictRanges: true, Output: out})

	resp, m := postJSON(t, srv.URL+"/api/predict", `{"values": {}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "Healthy", m["label"])
	assert.Equal(t, "#4CAF50", m["color"])
	assert.InDelta(t, 0.6, m["confidence"], 1e-9)
	dist := m["distribution"].([]any)
	require.Len(t, dist, model.NumLabels)
	for i, l := range model.Labels() {
		entry := dist[i].(map[string]any)
		assert.Equal(t, l.String(), entry["label"])
		assert.EqualValues(t, l.Code(), entry["code"])
	}
	assert.InDelta(t, 0.3, dist[1].(map[string]any)["probability"], 1e-9)

	imp := m["importance"].(map[string]any)
	assert.Equal(t, true, imp["supported"])
	entries := imp["entries"].([]any)
	require.Len(t, entries, model.NumFeatures)
	first := entries[0].(map[string]any)
	assert.Equal(t, "soil_moisture", first["key"])
	assert.Equal(t, "Soil Moisture", first["name"])
	assert.Equal(t, "%", first["unit"])

	require.Len(t, out.records, 1)
	assert.Equal(t, "http", out.records[0].Source)
	assert.Equal(t, m["artifact_version"], out.records[0].ArtifactVersion)
}

func TestPredictVector(t *testing.T) {
	srv := newServer(t, "reference_forest.yaml", Config{StrictRanges: true})

	resp, m := postJSON(t, srv.URL+"/api/predict",
		`{"vector": [12, 28.5, 17.38, 53.64, 418.43, 6.92, 28.99, 25.16, 36.05, 43.32, 1.3]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "High Stress", m["label"])
}

func TestPredictErrors(t *testing.T) {
	srv := newServer(t, "reference_forest.yaml", Config{StrictRanges: true})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"out of range", `{"values": {"soil_moisture": 95}}`, http.StatusBadRequest},
		{"short vector", `{"vector": [1,2,3,4,5,6,7,8,9,10]}`, http.StatusBadRequest},
		{"long vector", `{"vector": [1,2,3,4,5,6,7,8,9,10,11,12]}`, http.StatusBadRequest},
		{"unknown field", `{"values": {"leaf_color": 3}}`, http.StatusBadRequest},
		{"both forms", `{"values": {}, "vector": []}`, http.StatusBadRequest},
		{"bad json", `{"values":`, http.StatusBadRequest},
		{"unknown key", `{"readings": {}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, m := postJSON(t, srv.URL+"/api/predict", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, m["error"])
		})
	}
}

func TestPermissiveRanges(t *testing.T) {
	srv := newServer(t, "reference_forest.yaml", Config{StrictRanges: false})

	resp, m := postJSON(t, srv.URL+"/api/predict", `{"values": {"soil_moisture": 95}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, m["label"])
}

func TestPredictUnsupportedImportance(t *testing.T) {
	srv := newServer(t, "softmax.yaml", Config{StrictRanges: true})

	resp, m := postJSON(t, srv.URL+"/api/predict", `{"values": {}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	imp := m["importance"].(map[string]any)
	assert.Equal(t, false, imp["supported"])
	assert.Equal(t, text.UnsupportedNotice, imp["notice"])
	assert.Nil(t, imp["entries"])
}

func TestMalformedWeightsDegrade(t *testing.T) {
	srv := newServer(t, "short_weights.yaml", Config{StrictRanges: true})

	resp, m := postJSON(t, srv.URL+"/api/predict", `{"values": {}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, m["label"])
	assert.Contains(t, m["importance_error"], "weights")
	assert.Nil(t, m["importance"])

	r, err := http.Get(srv.URL + "/api/importance")
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, r.StatusCode)
}

func TestNoArtifact(t *testing.T) {
	srv := newServer(t, "", Config{StrictRanges: true})

	resp, _ := postJSON(t, srv.URL+"/api/predict", `{"values": {}}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	r, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, r.StatusCode)

	r, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, r.StatusCode)
}

func TestImportanceAndFields(t *testing.T) {
	srv := newServer(t, "reference_forest.yaml", Config{})

	r, err := http.Get(srv.URL + "/api/importance")
	require.NoError(t, err)
	defer r.Body.Close()
	require.Equal(t, http.StatusOK, r.StatusCode)
	var rk report.Ranking
	require.NoError(t, json.NewDecoder(r.Body).Decode(&rk))
	require.True(t, rk.Supported)
	for i := 1; i < len(rk.Entries); i++ {
		assert.GreaterOrEqual(t, rk.Entries[i-1].Weight, rk.Entries[i].Weight)
	}

	r2, err := http.Get(srv.URL + "/api/fields")
	require.NoError(t, err)
	defer r2.Body.Close()
	var fields []report.Field
	require.NoError(t, json.NewDecoder(r2.Body).Decode(&fields))
	require.Len(t, fields, model.NumFeatures)
	assert.Equal(t, "electrochemical_signal", fields[10].Key)
	assert.Equal(t, 1.3, fields[10].Default)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newServer(t, "reference_forest.yaml", Config{})

	r, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	var h map[string]string
	require.NoError(t, json.NewDecoder(r.Body).Decode(&h))
	r.Body.Close()
	assert.Equal(t, "ok", h["status"])
	assert.Equal(t, "forest", h["kind"])

	postJSON(t, srv.URL+"/api/predict", `{"values": {}}`)

	r, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer r.Body.Close()
	body := new(bytes.Buffer)
	_, err = body.ReadFrom(r.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `leaf_predictions_total{label="Healthy"} 1`)
}

func TestIndexPage(t *testing.T) {
	srv := newServer(t, "reference_forest.yaml", Config{StrictRanges: true, Version: "9.9.9"})

	r, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer r.Body.Close()
	require.Equal(t, http.StatusOK, r.StatusCode)
	body := new(bytes.Buffer)
	body.ReadFrom(r.Body)
	page := body.String()

	for _, want := range []string{
		"Plant Health Status: Healthy",
		"60.00%",
		"30.00%",
		"10.00%",
		"Top Influential Factors",
		"Importance Score",
		`name="soil_moisture"`,
		"leaf 9.9.9",
	} {
		assert.Contains(t, page, want)
	}
}

func TestIndexQueryOverride(t *testing.T) {
	srv := newServer(t, "reference_forest.yaml", Config{StrictRanges: true})

	r, err := http.Get(srv.URL + "/?soil_moisture=12&ambient_temperature=28.5")
	require.NoError(t, err)
	defer r.Body.Close()
	body := new(bytes.Buffer)
	body.ReadFrom(r.Body)
	assert.Contains(t, body.String(), "Plant Health Status: High Stress")
}

func TestIndexRejectsOutOfRange(t *testing.T) {
	srv := newServer(t, "reference_forest.yaml", Config{StrictRanges: true})

	for _, q := range []string{"soil_moisture=95", "soil_ph=acid"} {
		r, err := http.Get(srv.URL + "/?" + q)
		require.NoError(t, err)
		body := new(bytes.Buffer)
		body.ReadFrom(r.Body)
		r.Body.Close()
		assert.Equal(t, http.StatusBadRequest, r.StatusCode, q)
		assert.Contains(t, body.String(), `role="alert"`, q)
		assert.NotContains(t, body.String(), "Plant Health Status", q)
	}
}

func TestIndexUnsupportedNotice(t *testing.T) {
	srv := newServer(t, "softmax.yaml", Config{StrictRanges: true})

	r, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer r.Body.Close()
	body := new(bytes.Buffer)
	body.ReadFrom(r.Body)
	assert.Contains(t, body.String(), text.UnsupportedNotice)
}

func TestPieSlices(t *testing.T) {
	slices := pieSlices(model.Distribution{0.6, 0.3, 0.1})
	require.Len(t, slices, 3)
	assert.Equal(t, "Healthy", slices[0].Legend)
	assert.Equal(t, "#FFC107", slices[1].Color)
	assert.InDelta(t, 60.0, slices[0].Percent, 1e-9)
	assert.Contains(t, slices[0].Path, " 1 1 ", "a 60% wedge uses the large arc")
	assert.Contains(t, slices[1].Path, " 0 1 ")

	// The first wedge starts at twelve o'clock.
	assert.True(t, strings.HasPrefix(slices[0].Path, "M 120.00 120.00 L 120.00 20.00"), slices[0].Path)

	full := pieSlices(model.Distribution{1, 0, 0})
	require.Len(t, full, 1)
	assert.True(t, full[0].Full)
	assert.Empty(t, full[0].Path)
}

func TestImportanceBars(t *testing.T) {
	entries := []model.FeatureImportance{
		{Field: model.Fields[0], Weight: 0.5},
		{Field: model.Fields[1], Weight: 0.25},
		{Field: model.Fields[2], Weight: 0},
	}
	bars := importanceBars(entries)
	require.Len(t, bars, 3)
	assert.Equal(t, barMaxWidth, bars[0].Width)
	assert.InDelta(t, barMaxWidth/2, bars[1].Width, 1e-9)
	assert.Zero(t, bars[2].Width)
	assert.Less(t, bars[0].Y, bars[1].Y)
	assert.False(t, math.IsNaN(barChartHeight(3)))

	assert.Nil(t, importanceBars(nil))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(model.ErrOutOfRange))
	assert.Equal(t, http.StatusBadRequest, statusFor(model.ErrShapeMismatch))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(model.ErrArtifactUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusFor(model.ErrInvalidLabel))
}
