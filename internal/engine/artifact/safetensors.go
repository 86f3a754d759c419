package artifact

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// importancesTensor is the tensor name read from importance sidecar files.
const importancesTensor = "feature_importances"

// loadWeights reads a 1-D F32 or F64 tensor from a safetensors file.
func loadWeights(path, tensor string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("safetensors: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("safetensors: file too small: %d bytes", len(data))
	}

	// 8-byte LE header length, then a JSON header, then raw tensor data.
	headerLen := binary.LittleEndian.Uint64(data[:8])
	if uint64(len(data)) < 8+headerLen {
		return nil, fmt.Errorf("safetensors: header length %d exceeds file size", headerLen)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("safetensors: parse header: %w", err)
	}
	raw, ok := header[tensor]
	if !ok {
		return nil, fmt.Errorf("safetensors: tensor %q not found", tensor)
	}

	var meta struct {
		Dtype       string `json:"dtype"`
		Shape       []int  `json:"shape"`
		DataOffsets [2]int `json:"data_offsets"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("safetensors: parse tensor metadata: %w", err)
	}
	if len(meta.Shape) != 1 {
		return nil, fmt.Errorf("safetensors: expected 1-D tensor, got shape %v", meta.Shape)
	}

	var width int
	switch meta.Dtype {
	case "F32":
		width = 4
	case "F64":
		width = 8
	default:
		return nil, fmt.Errorf("safetensors: unsupported dtype %s", meta.Dtype)
	}

	n := meta.Shape[0]
	if n < 0 {
		return nil, fmt.Errorf("safetensors: negative dimension in shape %v", meta.Shape)
	}
	lo, hi := meta.DataOffsets[0], meta.DataOffsets[1]
	if lo < 0 || hi < lo {
		return nil, fmt.Errorf("safetensors: invalid data offsets [%d, %d]", lo, hi)
	}
	start := int(8+headerLen) + lo
	end := int(8+headerLen) + hi
	if end-start != n*width {
		return nil, fmt.Errorf("safetensors: data size %d doesn't match shape %v", end-start, meta.Shape)
	}
	if end > len(data) {
		return nil, fmt.Errorf("safetensors: data range [%d:%d] exceeds file size %d", start, end, len(data))
	}

	out := make([]float64, n)
	buf := data[start:end]
	for i := range out {
		if width == 4 {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
		} else {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
		}
	}
	return out, nil
}
