package domain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/gzip"
)

// EncodeSamples serializes samples as little-endian float64 and gzips them.
func EncodeSamples(samples []float64) ([]byte, error) {
	raw := make([]byte, 8*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress samples: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress samples: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSamples reverses EncodeSamples.
func DecodeSamples(data []byte) ([]float64, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress samples: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress samples: %w", err)
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("decode samples: %d bytes is not a whole number of float64 values", len(raw))
	}
	out := make([]float64, len(raw)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return out, nil
}
