package ui

import (
	"fmt"
	"math"

	"github.com/crimson-sun/leaf/internal/model"
)

// Pie geometry, in SVG user units.
const (
	pieRadius = 100.0
	pieCenter = 120.0
	pieLabelR = 65.0
)

// Bar chart geometry.
const (
	barMaxWidth = 360.0
	barHeight   = 22.0
	barGap      = 8.0
)

// Slice is one wedge of the proportion chart.
type Slice struct {
	Legend  string // short label: Healthy, Moderate, High
	Color   string
	Percent float64
	Path    string // SVG path; empty when Full is set
	Full    bool   // the slice is the whole circle
	LabelX  float64
	LabelY  float64
}

// Bar is one row of the importance chart, top to bottom.
type Bar struct {
	Label  string
	Key    string
	Weight float64
	Width  float64
	Y      float64
}

// pieSlices lays out the distribution clockwise from twelve o'clock. Zero
// probability classes get no wedge.
func pieSlices(d model.Distribution) []Slice {
	var out []Slice
	start := -math.Pi / 2
	for _, l := range model.Labels() {
		p := d.Of(l)
		if p <= 0 {
			continue
		}
		s := Slice{Legend: l.Short(), Color: l.Color(), Percent: p * 100}
		sweep := p * 2 * math.Pi
		mid := start + sweep/2

		if p >= 1-1e-9 {
			s.Full = true
			s.LabelX, s.LabelY = pieCenter, pieCenter
		} else {
			end := start + sweep
			x0, y0 := polar(pieRadius, start)
			x1, y1 := polar(pieRadius, end)
			large := 0
			if sweep > math.Pi {
				large = 1
			}
			s.Path = fmt.Sprintf("M %.2f %.2f L %.2f %.2f A %.0f %.0f 0 %d 1 %.2f %.2f Z",
				pieCenter, pieCenter, x0, y0, pieRadius, pieRadius, large, x1, y1)
			s.LabelX, s.LabelY = polar(pieLabelR, mid)
		}
		out = append(out, s)
		start += sweep
	}
	return out
}

func polar(r, angle float64) (float64, float64) {
	return pieCenter + r*math.Cos(angle), pieCenter + r*math.Sin(angle)
}

// importanceBars scales weights so the largest spans barMaxWidth. Entries
// arrive sorted descending and keep that order top to bottom.
func importanceBars(entries []model.FeatureImportance) []Bar {
	if len(entries) == 0 {
		return nil
	}
	top := entries[0].Weight
	bars := make([]Bar, len(entries))
	for i, e := range entries {
		w := 0.0
		if top > 0 {
			w = e.Weight / top * barMaxWidth
		}
		bars[i] = Bar{
			Label:  e.Field.Label(),
			Key:    e.Field.Key,
			Weight: e.Weight,
			Width:  w,
			Y:      float64(i) * (barHeight + barGap),
		}
	}
	return bars
}

// barChartHeight is the SVG height needed for n bars plus the axis label.
func barChartHeight(n int) float64 {
	return float64(n)*(barHeight+barGap) + 30
}
