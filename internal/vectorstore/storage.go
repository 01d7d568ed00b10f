// Package vectorstore persists embedding vectors between runs so remote
// embedders are not asked for the same text twice.
package vectorstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"esgalign/internal/embedding"
)

// Storage is a persistent second tier for embedding.Cache.
type Storage interface {
	embedding.Store
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// EncodeVector encodes v as little-endian IEEE 754 float64 values with no
// length prefix.
func EncodeVector(v []float64) []byte {
	b := make([]byte, len(v)*8)
	for i, x := range v {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(x))
	}
	return b
}

// DecodeVector reverses EncodeVector.
func DecodeVector(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("vectorstore: invalid vector blob length %d (not multiple of 8)", len(b))
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v, nil
}
