package manifest

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/mia-cx/docsearch/internal/hnsw"
)

// Read parses manifest.json from dir. It does not touch shard or
// graph files — callers load those lazily via LoadVectors/LoadGraph.
func Read(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// LoadVectors copies every shard into one contiguous row-major fp32
// buffer of size m.Rows*m.Dims. A shard whose on-disk length doesn't
// match its declared rows*stride is a fatal error: the asset loader
// design treats shard/manifest disagreement as unrecoverable rather
// than attempting partial recovery.
func LoadVectors(dir string, m *Manifest) ([]float32, error) {
	out := make([]float32, m.Rows*m.Dims)

	for _, shard := range m.Vectors.Shards {
		raw, err := os.ReadFile(filepath.Join(dir, shard.Path))
		if err != nil {
			return nil, fmt.Errorf("read shard %s: %w", shard.Path, err)
		}
		wantLen := shard.Rows * shard.ByteStride
		if len(raw) != wantLen {
			return nil, fmt.Errorf("shard %s: on-disk length %d, want %d (rows=%d stride=%d)",
				shard.Path, len(raw), wantLen, shard.Rows, shard.ByteStride)
		}

		rowFloats := shard.ByteStride / 4
		base := shard.RowOffset * m.Dims
		for i := 0; i < shard.Rows; i++ {
			srcOff := i * shard.ByteStride
			dstOff := base + i*m.Dims
			for j := 0; j < rowFloats && j < m.Dims; j++ {
				bits := binary.LittleEndian.Uint32(raw[srcOff+j*4:])
				out[dstOff+j] = math.Float32frombits(bits)
			}
		}
	}

	return out, nil
}

// LoadGraph reconstructs the HNSW graph's per-level CSR structures
// from the manifest's recorded byte offsets into the graph blob.
func LoadGraph(dir string, m *Manifest) (*hnsw.Graph, error) {
	raw, err := os.ReadFile(filepath.Join(dir, m.HNSW.Graph.Path))
	if err != nil {
		return nil, fmt.Errorf("read graph blob: %w", err)
	}

	levels := make([]hnsw.Level, len(m.HNSW.Graph.Levels))
	for _, ld := range m.HNSW.Graph.Levels {
		if ld.Level < 0 || ld.Level >= len(levels) {
			return nil, fmt.Errorf("graph level %d out of range [0,%d)", ld.Level, len(levels))
		}
		indptr, err := ReadUint32LE(raw, ld.Indptr)
		if err != nil {
			return nil, fmt.Errorf("level %d indptr: %w", ld.Level, err)
		}
		indices, err := ReadUint32LE(raw, ld.Indices)
		if err != nil {
			return nil, fmt.Errorf("level %d indices: %w", ld.Level, err)
		}
		levels[ld.Level] = hnsw.Level{Indptr: indptr, Indices: indices}
	}

	return &hnsw.Graph{
		M:              m.HNSW.M,
		EfConstruction: m.HNSW.EfConstruction,
		EntryPoint:     m.HNSW.EntryPoint,
		MaxLevel:       m.HNSW.MaxLevel,
		Levels:         levels,
		Rows:           m.Rows,
	}, nil
}

// ReadUint32LE decodes the uint32 array described by desc out of raw,
// validating the offset range and declared element count against the
// blob's actual length.
func ReadUint32LE(raw []byte, desc ArrayDescriptor) ([]uint32, error) {
	end := desc.Offset + desc.ByteLength
	if desc.Offset < 0 || end > int64(len(raw)) {
		return nil, fmt.Errorf("offset range [%d,%d) out of bounds for blob of length %d", desc.Offset, end, len(raw))
	}
	section := raw[desc.Offset:end]
	if len(section) != desc.Elements*4 {
		return nil, fmt.Errorf("section length %d, want %d for %d elements", len(section), desc.Elements*4, desc.Elements)
	}
	out := make([]uint32, desc.Elements)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(section[i*4:])
	}
	return out, nil
}
