package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/leaf/internal/model"
)

// Options carries loader settings that do not belong in the manifest.
type Options struct {
	// LibraryPath is the ONNX Runtime shared library. Empty means
	// libonnxruntime.so next to the model file.
	LibraryPath string
}

// Loader builds an Artifact from a manifest. raw is the full manifest
// document; dir is the manifest's directory for resolving relative paths.
// Loaders return the extra files they read so the watcher can follow them.
type Loader func(h Header, raw []byte, dir string, opts Options) (Artifact, []string, error)

var registry = map[string]Loader{}

// Register adds a loader under the given manifest kind.
func Register(kind string, l Loader) {
	registry[kind] = l
}

// Kinds returns the registered manifest kinds, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Header is the part of every manifest shared by all kinds.
type Header struct {
	Kind      string   `yaml:"kind"`
	Name      string   `yaml:"name"`
	Features  []string `yaml:"features"`   // optional declared training order
	NFeatures int      `yaml:"n_features"` // optional declared arity
	Classes   []int64  `yaml:"classes"`    // class code per distribution column; must be [0, 1, 2]
}

// numFeatures resolves the artifact's declared input arity.
func (h Header) numFeatures() int {
	switch {
	case h.NFeatures > 0:
		return h.NFeatures
	case len(h.Features) > 0:
		return len(h.Features)
	default:
		return model.NumFeatures
	}
}

// Open reads the manifest at path and builds the artifact it describes.
// Every failure wraps model.ErrArtifactUnavailable.
func Open(path string, opts Options) (Artifact, Info, error) {
	a, info, err := open(path, opts)
	if err != nil {
		return nil, Info{}, fmt.Errorf("%w: %s: %w", model.ErrArtifactUnavailable, path, err)
	}
	return a, info, nil
}

func open(path string, opts Options) (Artifact, Info, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Info{}, err
	}

	var h Header
	if err := yaml.Unmarshal(raw, &h); err != nil {
		return nil, Info{}, fmt.Errorf("parse manifest: %w", err)
	}
	if err := h.validate(); err != nil {
		return nil, Info{}, err
	}

	load, ok := registry[h.Kind]
	if !ok {
		return nil, Info{}, fmt.Errorf("unknown artifact kind %q (known: %v)", h.Kind, Kinds())
	}

	dir := filepath.Dir(path)
	a, files, err := load(h, raw, dir, opts)
	if err != nil {
		return nil, Info{}, fmt.Errorf("%s: %w", h.Kind, err)
	}

	sum := sha256.Sum256(raw)
	info := Info{
		Path:    path,
		Kind:    h.Kind,
		Name:    h.Name,
		Version: hex.EncodeToString(sum[:])[:12],
		Files:   append([]string{path}, files...),
	}
	return a, info, nil
}

// validate enforces the positional feature contract and defaults classes.
func (h *Header) validate() error {
	if h.Kind == "" {
		return fmt.Errorf("manifest has no kind")
	}
	if n := h.numFeatures(); n != model.NumFeatures {
		return fmt.Errorf("%w: artifact expects %d features, want %d", model.ErrShapeMismatch, n, model.NumFeatures)
	}
	if len(h.Features) > 0 {
		if len(h.Features) != model.NumFeatures {
			return fmt.Errorf("%w: manifest declares %d features, want %d",
				model.ErrShapeMismatch, len(h.Features), model.NumFeatures)
		}
		for i, f := range model.Fields {
			if h.Features[i] != f.Key {
				return fmt.Errorf("%w: feature %d is %q, trained order requires %q",
					model.ErrShapeMismatch, i, h.Features[i], f.Key)
			}
		}
	}
	if len(h.Classes) == 0 {
		h.Classes = []int64{0, 1, 2}
	}
	if len(h.Classes) != model.NumLabels {
		return fmt.Errorf("%w: manifest declares %d classes, want %d",
			model.ErrShapeMismatch, len(h.Classes), model.NumLabels)
	}
	// Distribution columns are read by position, so column j must be code j.
	for j, code := range h.Classes {
		if _, err := model.LabelFromCode(code); err != nil {
			return fmt.Errorf("manifest classes %v: %w", h.Classes, err)
		}
		if code != int64(j) {
			return fmt.Errorf("%w: manifest classes %v, column %d must be class %d",
				model.ErrShapeMismatch, h.Classes, j, j)
		}
	}
	return nil
}

// checkRows verifies every input row has the expected width.
func checkRows(x [][]float64, n int) error {
	for i, row := range x {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d values, want %d", model.ErrShapeMismatch, i, len(row), n)
		}
	}
	return nil
}

// argmax returns the index of the largest value, lowest index on ties.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
