package artifact

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gopkg.in/yaml.v3"
)

func init() {
	Register("onnx", loadONNX)
}

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Only the first call has
// any effect; the library path of later calls is ignored.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// onnxSpec is the manifest body of an sklearn model exported with
// zipmap disabled: a float input [N, n_features], an int64 label output [N]
// and a float probability output [N, classes].
type onnxSpec struct {
	Model             string `yaml:"model"`
	Importances       string `yaml:"importances"` // optional safetensors sidecar
	LabelOutput       string `yaml:"label_output"`
	ProbabilityOutput string `yaml:"probability_output"`
}

// ONNX runs an exported classifier through ONNX Runtime.
type ONNX struct {
	session   *ort.DynamicAdvancedSession
	inputName string
	nFeatures int
	nClasses  int
}

// weightedONNX is an ONNX artifact with an importance sidecar.
type weightedONNX struct {
	*ONNX
	importances []float64
}

func (w *weightedONNX) FeatureImportances() []float64 {
	return append([]float64(nil), w.importances...)
}

func loadONNX(h Header, raw []byte, dir string, opts Options) (Artifact, []string, error) {
	var spec onnxSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, nil, fmt.Errorf("parse manifest: %w", err)
	}
	if spec.Model == "" {
		return nil, nil, fmt.Errorf("manifest has no model path")
	}
	if spec.LabelOutput == "" {
		spec.LabelOutput = "output_label"
	}
	if spec.ProbabilityOutput == "" {
		spec.ProbabilityOutput = "output_probability"
	}

	modelPath := resolve(dir, spec.Model)
	files := []string{modelPath}

	libPath := opts.LibraryPath
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	}

	o, err := newONNX(modelPath, libPath, spec, h.numFeatures(), len(h.Classes))
	if err != nil {
		return nil, nil, err
	}

	if spec.Importances == "" {
		return o, files, nil
	}
	weightsPath := resolve(dir, spec.Importances)
	weights, err := loadWeights(weightsPath, importancesTensor)
	if err != nil {
		o.Close()
		return nil, nil, err
	}
	return &weightedONNX{ONNX: o, importances: weights}, append(files, weightsPath), nil
}

func newONNX(modelPath, libPath string, spec onnxSpec, nFeatures, nClasses int) (*ONNX, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}

	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input, got %d", len(inputs))
	}
	in := inputs[0]
	if in.DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("onnx: input %q must be float32, got %v", in.Name, in.DataType)
	}
	if dims := in.Dimensions; len(dims) != 2 || dims[1] != int64(nFeatures) {
		return nil, fmt.Errorf("onnx: input %q has shape %v, want [N, %d]", in.Name, dims, nFeatures)
	}

	if err := checkOutput(outputs, spec.LabelOutput, ort.TensorElementDataTypeInt64, 1); err != nil {
		return nil, err
	}
	if err := checkOutput(outputs, spec.ProbabilityOutput, ort.TensorElementDataTypeFloat, 2); err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{in.Name},
		[]string{spec.LabelOutput, spec.ProbabilityOutput},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &ONNX{
		session:   session,
		inputName: in.Name,
		nFeatures: nFeatures,
		nClasses:  nClasses,
	}, nil
}

// checkOutput verifies a named output exists as a tensor of the given type
// and rank. ZipMap outputs (sequences of maps) are rejected here.
func checkOutput(outputs []ort.InputOutputInfo, name string, dt ort.TensorElementDataType, rank int) error {
	for _, o := range outputs {
		if o.Name != name {
			continue
		}
		if o.OrtValueType != ort.ONNXTypeTensor {
			return fmt.Errorf("onnx: output %q is %v, want a tensor (export with zipmap disabled)", name, o.OrtValueType)
		}
		if o.DataType != dt {
			return fmt.Errorf("onnx: output %q has type %v, want %v", name, o.DataType, dt)
		}
		if len(o.Dimensions) != rank {
			return fmt.Errorf("onnx: output %q has shape %v, want rank %d", name, o.Dimensions, rank)
		}
		return nil
	}
	return fmt.Errorf("onnx: model has no output %q", name)
}

func (o *ONNX) NumFeatures() int { return o.nFeatures }

// Predict returns the model's label output.
func (o *ONNX) Predict(x [][]float64) ([]int64, error) {
	labels, _, err := o.run(x)
	return labels, err
}

// PredictProba returns the model's probability output.
func (o *ONNX) PredictProba(x [][]float64) ([][]float64, error) {
	_, probs, err := o.run(x)
	return probs, err
}

// Close releases the ONNX session.
func (o *ONNX) Close() error {
	return o.session.Destroy()
}

// run executes a single inference call over a batch of rows.
func (o *ONNX) run(x [][]float64) ([]int64, [][]float64, error) {
	if err := checkRows(x, o.nFeatures); err != nil {
		return nil, nil, err
	}
	batch := int64(len(x))
	if batch == 0 {
		return nil, nil, nil
	}

	flat := make([]float32, 0, len(x)*o.nFeatures)
	for _, row := range x {
		for _, v := range row {
			flat = append(flat, float32(v))
		}
	}

	tIn, err := ort.NewTensor(ort.NewShape(batch, int64(o.nFeatures)), flat)
	if err != nil {
		return nil, nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer tIn.Destroy()

	tLabel, err := ort.NewEmptyTensor[int64](ort.NewShape(batch))
	if err != nil {
		return nil, nil, fmt.Errorf("onnx: failed to create label tensor: %w", err)
	}
	defer tLabel.Destroy()

	tProb, err := ort.NewEmptyTensor[float32](ort.NewShape(batch, int64(o.nClasses)))
	if err != nil {
		return nil, nil, fmt.Errorf("onnx: failed to create probability tensor: %w", err)
	}
	defer tProb.Destroy()

	if err := o.session.Run([]ort.Value{tIn}, []ort.Value{tLabel, tProb}); err != nil {
		return nil, nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	// Copy data out before the tensors are destroyed.
	labels := append([]int64(nil), tLabel.GetData()...)
	src := tProb.GetData()
	probs := make([][]float64, batch)
	for i := range probs {
		row := make([]float64, o.nClasses)
		for j := range row {
			row[j] = float64(src[i*o.nClasses+j])
		}
		probs[i] = row
	}
	return labels, probs, nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
