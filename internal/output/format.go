package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/leaf/internal/model"
)

// Verbosity controls how much of a record is emitted.
type Verbosity int

const (
	Minimal  Verbosity = iota // id, time, source, label
	Standard                  // adds confidence, distribution, artifact version
	Full                      // adds the input readings
)

// ParseVerbosity maps "minimal", "standard" or "full" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal, nil
	case "standard", "":
		return Standard, nil
	case "full":
		return Full, nil
	}
	return Standard, fmt.Errorf("output: unknown verbosity %q", s)
}

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Full:
		return "full"
	default:
		return "standard"
	}
}

// FormatRecord returns a copy of the record with fields stripped according to
// verbosity. Stripped fields are omitted from JSON via omitempty.
func FormatRecord(r model.Record, verbosity Verbosity) model.Record {
	switch verbosity {
	case Minimal:
		r.ArtifactVersion = ""
		r.Confidence = 0
		r.Distribution = nil
		r.Inputs = nil
	case Standard:
		r.Inputs = nil
	}
	return r
}
