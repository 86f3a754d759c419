// Package source reads sensor readings from CSV files.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/leaf/internal/model"
)

// Reading is one parsed CSV row.
type Reading struct {
	Line   int // 1-based line number in the file
	Vector model.FeatureVector
}

// Reader decodes readings from a CSV stream with a header row. Header cells
// may be field keys ("soil_moisture") or display names ("Soil Moisture",
// "Soil Moisture (%)"); matching ignores case, Unicode form and surrounding
// space. Extra columns are ignored; all eleven fields are required.
type Reader struct {
	r      *csv.Reader
	strict bool
	cols   [model.NumFeatures]int // field index → column
	line   int
}

// Option configures a Reader.
type Option func(*Reader)

// WithStrictRanges rejects rows with readings outside field bounds.
func WithStrictRanges(strict bool) Option {
	return func(r *Reader) { r.strict = strict }
}

// NewReader reads and resolves the header row.
func NewReader(in io.Reader, opts ...Option) (*Reader, error) {
	cr := csv.NewReader(in)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	r := &Reader{r: cr, strict: true}
	for _, opt := range opts {
		opt(r)
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("source: empty input, want a header row")
		}
		return nil, fmt.Errorf("source: header: %w", err)
	}
	r.line = 1
	if err := r.resolve(header); err != nil {
		return nil, err
	}
	return r, nil
}

// Read returns the next reading, or io.EOF when the input is exhausted.
func (r *Reader) Read() (Reading, error) {
	rec, err := r.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Reading{}, io.EOF
		}
		return Reading{}, fmt.Errorf("source: %w", err)
	}
	r.line++

	vals := make([]float64, model.NumFeatures)
	for i, col := range r.cols {
		cell := strings.TrimSpace(rec[col])
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return Reading{}, fmt.Errorf("source: line %d: %s: %q is not a number", r.line, model.Fields[i].Key, cell)
		}
		vals[i] = v
	}

	v := model.NewFeatureVector(vals...)
	if r.strict {
		if err := v.ValidateRanges(); err != nil {
			return Reading{}, fmt.Errorf("source: line %d: %w", r.line, err)
		}
	}
	return Reading{Line: r.line, Vector: v}, nil
}

// ReadAll reads every remaining row.
func (r *Reader) ReadAll() ([]Reading, error) {
	var out []Reading
	for {
		rd, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rd)
	}
}

func (r *Reader) resolve(header []string) error {
	lookup := make(map[string]int, 3*model.NumFeatures)
	for i, f := range model.Fields {
		lookup[canonical(f.Key)] = i
		lookup[canonical(f.Name)] = i
		lookup[canonical(f.Label())] = i
	}

	for i := range r.cols {
		r.cols[i] = -1
	}
	for col, cell := range header {
		idx, ok := lookup[canonical(cell)]
		if !ok {
			continue
		}
		if r.cols[idx] >= 0 {
			return fmt.Errorf("source: header: %s appears twice", model.Fields[idx].Key)
		}
		r.cols[idx] = col
	}

	var missing []string
	for i, col := range r.cols {
		if col < 0 {
			missing = append(missing, model.Fields[i].Key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("source: header: %w: missing columns %s", model.ErrShapeMismatch, strings.Join(missing, ", "))
	}
	return nil
}

// canonical normalizes a header cell: NFKC, case folded, spaces and hyphens
// collapsed to underscores, BOM stripped.
func canonical(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = norm.NFKC.String(strings.TrimSpace(s))
	s = cases.Fold().String(s)
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	}), "_")
}
