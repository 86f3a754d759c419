package artifact

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeSafetensors writes a single 1-D F32 tensor to a temp file.
func writeSafetensors(t *testing.T, name string, values []float32) string {
	t.Helper()
	header := map[string]any{
		name: map[string]any{
			"dtype":        "F32",
			"shape":        []int{len(values)},
			"data_offsets": []int{0, len(values) * 4},
		},
	}
	hb, err := json.Marshal(header)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 8, 8+len(hb)+len(values)*4)
	binary.LittleEndian.PutUint64(buf, uint64(len(hb)))
	buf = append(buf, hb...)
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	path := filepath.Join(t.TempDir(), "weights.safetensors")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWeights(t *testing.T) {
	want := []float32{0.3, 0.1, 0, 0.05, 0.05, 0.1, 0.1, 0.1, 0.05, 0.1, 0.05}
	path := writeSafetensors(t, importancesTensor, want)

	got, err := loadWeights(path, importancesTensor)
	if err != nil {
		t.Fatalf("loadWeights error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d weights, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != float64(want[i]) {
			t.Errorf("weight[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestLoadWeightsMissingTensor(t *testing.T) {
	path := writeSafetensors(t, "linear.weight", []float32{1, 2})
	if _, err := loadWeights(path, importancesTensor); err == nil {
		t.Fatal("expected error for missing tensor")
	}
}

func TestLoadWeightsTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.safetensors")
	os.WriteFile(path, []byte{1, 2, 3}, 0o644)
	if _, err := loadWeights(path, importancesTensor); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

// writeRawSafetensors writes a file with the given JSON header and payload.
func writeRawSafetensors(t *testing.T, header string, payload []byte) string {
	t.Helper()
	buf := make([]byte, 8, 8+len(header)+len(payload))
	binary.LittleEndian.PutUint64(buf, uint64(len(header)))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	path := filepath.Join(t.TempDir(), "bad.safetensors")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWeightsMalformedHeader(t *testing.T) {
	payload := make([]byte, 16)
	tests := []struct {
		name   string
		header string
	}{
		{"negative shape", `{"feature_importances":{"dtype":"F32","shape":[-1],"data_offsets":[8,4]}}`},
		{"inverted offsets", `{"feature_importances":{"dtype":"F32","shape":[0],"data_offsets":[8,4]}}`},
		{"negative offset", `{"feature_importances":{"dtype":"F32","shape":[1],"data_offsets":[-4,0]}}`},
		{"past end", `{"feature_importances":{"dtype":"F32","shape":[8],"data_offsets":[0,32]}}`},
		{"size mismatch", `{"feature_importances":{"dtype":"F64","shape":[3],"data_offsets":[0,16]}}`},
		{"two dimensions", `{"feature_importances":{"dtype":"F32","shape":[2,2],"data_offsets":[0,16]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRawSafetensors(t, tt.header, payload)
			if _, err := loadWeights(path, importancesTensor); err == nil {
				t.Fatal("expected error for malformed header")
			}
		})
	}
}
