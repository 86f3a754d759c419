// Package text renders diagnoses, rankings and the field table as plain text
// for terminals.
package text

import (
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/crimson-sun/leaf/internal/model"
	"github.com/crimson-sun/leaf/internal/report"
)

const (
	barWidth = 30

	// UnsupportedNotice is shown when the artifact exposes no feature weights.
	UnsupportedNotice = report.UnsupportedNotice
)

// Renderer formats numbers for one locale.
type Renderer struct {
	p *message.Printer
}

// New returns a Renderer for tag. The zero tag means English.
func New(tag language.Tag) *Renderer {
	if tag == language.Und {
		tag = language.English
	}
	return &Renderer{p: message.NewPrinter(tag)}
}

// Diagnosis writes the status panel, the confidence list and the importance
// section.
func (r *Renderer) Diagnosis(w io.Writer, d model.Diagnosis) error {
	var b strings.Builder
	r.status(&b, d)
	b.WriteString("\n")
	r.confidence(&b, d.Prediction)
	b.WriteString("\n")
	if d.RankingErr != nil {
		fmt.Fprintf(&b, "Feature importance unavailable: %v\n", d.RankingErr)
	} else {
		r.ranking(&b, d.Ranking)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Ranking writes only the importance section.
func (r *Renderer) Ranking(w io.Writer, rk model.Ranking) error {
	var b strings.Builder
	r.ranking(&b, rk)
	_, err := io.WriteString(w, b.String())
	return err
}

// Fields writes the canonical field table with bounds and defaults.
func (r *Renderer) Fields(w io.Writer) error {
	var b strings.Builder
	width := labelWidth()
	r.p.Fprintf(&b, "%-4s %-*s %-24s %10s %10s %10s\n", "#", width, "Field", "Key", "Min", "Max", "Default")
	for i, f := range model.Fields {
		r.p.Fprintf(&b, "%-4d %-*s %-24s %10.2f %10.2f %10.2f\n", i+1, width, f.Label(), f.Key, f.Min, f.Max, f.Default)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) status(b *strings.Builder, d model.Diagnosis) {
	fmt.Fprintf(b, "Plant Health Status: %s\n", d.Prediction.Label)
	if d.ArtifactVersion != "" {
		fmt.Fprintf(b, "Artifact: %s\n", d.ArtifactVersion)
	}
}

func (r *Renderer) confidence(b *strings.Builder, p model.Prediction) {
	b.WriteString("Prediction Confidence\n")
	for _, l := range model.Labels() {
		pct := p.Distribution.Of(l) * 100
		marker := " "
		if l == p.Label {
			marker = "*"
		}
		r.p.Fprintf(b, "%s %-16s %7.2f%%  %s\n", marker, l.String(), pct, bar(p.Distribution.Of(l), 1))
	}
}

func (r *Renderer) ranking(b *strings.Builder, rk model.Ranking) {
	if !rk.Supported {
		b.WriteString(UnsupportedNotice + "\n")
		return
	}
	b.WriteString("Top Influential Factors (Importance Score)\n")
	if len(rk.Entries) == 0 {
		return
	}
	top := rk.Entries[0].Weight
	width := labelWidth()
	for _, e := range rk.Entries {
		r.p.Fprintf(b, "  %-*s %8.4f  %s\n", width, e.Field.Label(), e.Weight, bar(e.Weight, top))
	}
}

// bar scales v against max into a run of '#'.
func bar(v, max float64) string {
	if max <= 0 || v <= 0 {
		return ""
	}
	n := int(math.Round(v / max * barWidth))
	return strings.Repeat("#", min(n, barWidth))
}

func labelWidth() int {
	w := 0
	for _, f := range model.Fields {
		// Units like °C are multi-byte; pad by rune count.
		w = max(w, len([]rune(f.Label())))
	}
	return w
}
