package classifier

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/crimson-sun/leaf/internal/engine/artifact"
	"github.com/crimson-sun/leaf/internal/model"
)

// stubArtifact returns fixed outputs regardless of input.
type stubArtifact struct {
	n     int
	codes []int64
	probs [][]float64
	err   error
	calls int
}

func (s *stubArtifact) NumFeatures() int { return s.n }
func (s *stubArtifact) Predict(x [][]float64) ([]int64, error) {
	s.calls++
	return s.codes, s.err
}
func (s *stubArtifact) PredictProba(x [][]float64) ([][]float64, error) {
	return s.probs, s.err
}
func (s *stubArtifact) Close() error { return nil }

func openFixture(t *testing.T, name string) artifact.Artifact {
	t.Helper()
	a, _, err := artifact.Open("../artifact/testdata/"+name, artifact.Options{})
	if err != nil {
		t.Fatalf("Open(%s) error: %v", name, err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// randomVector draws a reading uniformly inside every field's bounds.
func randomVector(r *rand.Rand) model.FeatureVector {
	vals := make([]float64, model.NumFeatures)
	for i, f := range model.Fields {
		vals[i] = f.Min + r.Float64()*(f.Max-f.Min)
	}
	return model.NewFeatureVector(vals...)
}

func TestGoldenDefaultReading(t *testing.T) {
	a := openFixture(t, "reference_forest.yaml")

	p, err := Classify(a, model.DefaultVector())
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if p.Label != model.Healthy {
		t.Errorf("Label = %v, want Healthy", p.Label)
	}
	want := model.Distribution{0.6, 0.3, 0.1}
	for i := range want {
		if math.Abs(p.Distribution[i]-want[i]) > 1e-9 {
			t.Errorf("Distribution[%d] = %.12f, want %g", i, p.Distribution[i], want[i])
		}
	}
}

func TestDistributionProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for _, name := range []string{"reference_forest.yaml", "softmax.yaml"} {
		a := openFixture(t, name)
		for i := 0; i < 500; i++ {
			v := randomVector(r)
			p, err := Classify(a, v)
			if err != nil {
				t.Fatalf("%s: Classify error: %v", name, err)
			}
			if math.Abs(p.Distribution.Sum()-1) > 1e-6 {
				t.Fatalf("%s: sum = %.12f", name, p.Distribution.Sum())
			}
			if p.Distribution.Of(p.Label) != p.Distribution.Max() {
				t.Fatalf("%s: label %v has %g, max is %g", name, p.Label, p.Distribution.Of(p.Label), p.Distribution.Max())
			}
		}
	}
}

func TestDeterministic(t *testing.T) {
	a := openFixture(t, "softmax.yaml")
	v := model.DefaultVector()
	first, err := Classify(a, v)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, err := Classify(a, v)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("call %d: %+v != %+v", i, again, first)
		}
	}
}

func TestShapeMismatch(t *testing.T) {
	a := openFixture(t, "reference_forest.yaml")
	vals := model.DefaultVector().Values()

	for _, v := range []model.FeatureVector{
		model.NewFeatureVector(vals[:10]...),
		model.NewFeatureVector(append(vals, 1.0)...),
		model.NewFeatureVector(),
	} {
		if _, err := Classify(a, v); !errors.Is(err, model.ErrShapeMismatch) {
			t.Errorf("arity %d: err = %v, want ErrShapeMismatch", v.Len(), err)
		}
	}
}

func TestShapeMismatchDoesNotCallArtifact(t *testing.T) {
	s := &stubArtifact{n: model.NumFeatures}
	Classify(s, model.NewFeatureVector(1, 2, 3))
	if s.calls != 0 {
		t.Errorf("artifact called %d times for a malformed vector", s.calls)
	}
}

func TestNilArtifact(t *testing.T) {
	_, err := Classify(nil, model.DefaultVector())
	if !errors.Is(err, model.ErrArtifactUnavailable) {
		t.Errorf("err = %v, want ErrArtifactUnavailable", err)
	}
}

func TestArtifactDefects(t *testing.T) {
	tests := []struct {
		name  string
		codes []int64
		probs [][]float64
		want  error
	}{
		{"foreign code", []int64{5}, [][]float64{{0.2, 0.3, 0.5}}, model.ErrInvalidLabel},
		{"label disagrees", []int64{0}, [][]float64{{0.1, 0.8, 0.1}}, model.ErrInconsistentPrediction},
		{"negative", []int64{1}, [][]float64{{-0.1, 0.9, 0.2}}, model.ErrInconsistentPrediction},
		{"nan", []int64{1}, [][]float64{{math.NaN(), 0.9, 0.1}}, model.ErrInconsistentPrediction},
		{"sum too small", []int64{1}, [][]float64{{0.1, 0.3, 0.1}}, model.ErrInconsistentPrediction},
		{"two classes", []int64{1}, [][]float64{{0.4, 0.6}}, model.ErrShapeMismatch},
		{"missing rows", []int64{}, [][]float64{}, model.ErrShapeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stubArtifact{n: model.NumFeatures, codes: tt.codes, probs: tt.probs}
			_, err := Classify(s, model.DefaultVector())
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestArtifactErrorPropagates(t *testing.T) {
	boom := errors.New("session crashed")
	s := &stubArtifact{n: model.NumFeatures, err: boom}
	if _, err := Classify(s, model.DefaultVector()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestFloat32DriftIsRenormalized(t *testing.T) {
	s := &stubArtifact{
		n:     model.NumFeatures,
		codes: []int64{2},
		probs: [][]float64{{0.1000001, 0.2, 0.7000002}},
	}
	p, err := Classify(s, model.DefaultVector())
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if math.Abs(p.Distribution.Sum()-1) > 1e-12 {
		t.Errorf("sum = %.15f", p.Distribution.Sum())
	}
	if p.Label != model.HighStress {
		t.Errorf("Label = %v", p.Label)
	}
}

func TestTiedDistributionAcceptsEitherLabel(t *testing.T) {
	for _, code := range []int64{0, 1} {
		s := &stubArtifact{n: model.NumFeatures, codes: []int64{code}, probs: [][]float64{{0.4, 0.4, 0.2}}}
		if _, err := Classify(s, model.DefaultVector()); err != nil {
			t.Errorf("code %d: unexpected error %v", code, err)
		}
	}
}

func TestNearTieRejectsLowerLabel(t *testing.T) {
	s := &stubArtifact{n: model.NumFeatures, codes: []int64{0}, probs: [][]float64{{0.4 - 1e-12, 0.4 + 1e-12, 0.2}}}
	_, err := Classify(s, model.DefaultVector())
	if !errors.Is(err, model.ErrInconsistentPrediction) {
		t.Fatalf("err = %v, want ErrInconsistentPrediction", err)
	}
}

func TestClassifyBatchMatchesSingles(t *testing.T) {
	a := openFixture(t, "reference_forest.yaml")
	r := rand.New(rand.NewPCG(1, 2))
	vs := make([]model.FeatureVector, 25)
	for i := range vs {
		vs[i] = randomVector(r)
	}

	batch, err := ClassifyBatch(a, vs)
	if err != nil {
		t.Fatalf("ClassifyBatch error: %v", err)
	}
	if len(batch) != len(vs) {
		t.Fatalf("got %d predictions, want %d", len(batch), len(vs))
	}
	for i, v := range vs {
		single, err := Classify(a, v)
		if err != nil {
			t.Fatal(err)
		}
		if single != batch[i] {
			t.Errorf("[%d] batch %+v != single %+v", i, batch[i], single)
		}
	}

	if preds, err := ClassifyBatch(a, nil); err != nil || preds != nil {
		t.Errorf("ClassifyBatch(nil) = %v, %v", preds, err)
	}
}
