package manifest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/mia-cx/docsearch/internal/hnsw"
)

// WriteInput bundles everything the writer needs: the flattened
// vector rows in build order, their ids (and optional titles), chunk
// metadata, the built graph, and shard sizing.
type WriteInput struct {
	Dims          int
	Vectors       [][]float32 // len == rows, each len == Dims
	IDs           []string
	Titles        []string // optional; nil to omit
	ChunkMetadata map[string]ChunkMeta
	Graph         *hnsw.Graph
	ShardSizeRows int
}

// Write emits shards, the graph blob, then the manifest JSON last, so
// the manifest's presence on disk signals a complete build. dir is
// created if missing; files are written via a temp-file-then-rename
// so a reader never observes a partially written artifact.
func Write(dir string, in WriteInput) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	rows := len(in.Vectors)
	shardSize := in.ShardSizeRows
	if shardSize <= 0 {
		shardSize = rows
		if shardSize == 0 {
			shardSize = 1
		}
	}

	shardDescs, err := writeShards(dir, in.Vectors, in.Dims, shardSize)
	if err != nil {
		return fmt.Errorf("write shards: %w", err)
	}

	graphDesc, err := writeGraph(dir, in.Graph)
	if err != nil {
		return fmt.Errorf("write graph: %w", err)
	}

	m := &Manifest{
		Version:       CurrentVersion,
		Dims:          in.Dims,
		Dtype:         "fp32",
		Normalized:    true,
		Rows:          rows,
		ShardSizeRows: shardSize,
		Vectors: VectorsDescriptor{
			Dtype:  "fp32",
			Rows:   rows,
			Dims:   in.Dims,
			Shards: shardDescs,
		},
		IDs:           in.IDs,
		Titles:        in.Titles,
		ChunkMetadata: in.ChunkMetadata,
		HNSW: HNSWDescriptor{
			M:              in.Graph.M,
			EfConstruction: in.Graph.EfConstruction,
			EntryPoint:     in.Graph.EntryPoint,
			MaxLevel:       in.Graph.MaxLevel,
			Graph:          graphDesc,
		},
	}

	return writeManifestJSON(dir, m)
}

func writeShards(dir string, vectors [][]float32, dims, shardSizeRows int) ([]ShardDescriptor, error) {
	rows := len(vectors)
	var shards []ShardDescriptor

	for offset := 0; offset < rows || (rows == 0 && offset == 0); offset += shardSizeRows {
		end := offset + shardSizeRows
		if end > rows {
			end = rows
		}
		shardRows := end - offset

		buf := make([]byte, shardRows*dims*4)
		for i := 0; i < shardRows; i++ {
			row := vectors[offset+i]
			base := i * dims * 4
			for j, v := range row {
				binary.LittleEndian.PutUint32(buf[base+j*4:], math.Float32bits(v))
			}
		}

		name := fmt.Sprintf("shard-%04d.bin", len(shards))
		if err := writeFileAtomic(filepath.Join(dir, name), buf); err != nil {
			return nil, err
		}

		sum := sha256.Sum256(buf)
		shards = append(shards, ShardDescriptor{
			Path:       name,
			Rows:       shardRows,
			RowOffset:  offset,
			ByteLength: int64(len(buf)),
			ByteStride: dims * 4,
			SHA256:     hex.EncodeToString(sum[:]),
		})

		if rows == 0 {
			break
		}
	}

	return shards, nil
}

// writeGraph serializes the graph blob as the concatenation of every
// level's indptr bytes followed by its indices bytes, in ascending
// level order, recording each section's absolute offset.
func writeGraph(dir string, g *hnsw.Graph) (GraphDescriptor, error) {
	var buf []byte
	var levels []LevelDescriptor

	for level, l := range g.Levels {
		indptrOffset := int64(len(buf))
		buf = appendUint32LE(buf, l.Indptr)
		indicesOffset := int64(len(buf))
		buf = appendUint32LE(buf, l.Indices)

		levels = append(levels, LevelDescriptor{
			Level: level,
			Indptr: ArrayDescriptor{
				Offset:     indptrOffset,
				Elements:   len(l.Indptr),
				ByteLength: indicesOffset - indptrOffset,
			},
			Indices: ArrayDescriptor{
				Offset:     indicesOffset,
				Elements:   len(l.Indices),
				ByteLength: int64(len(buf)) - indicesOffset,
			},
		})
	}

	const graphFileName = "graph.bin"
	if err := writeFileAtomic(filepath.Join(dir, graphFileName), buf); err != nil {
		return GraphDescriptor{}, err
	}
	sum := sha256.Sum256(buf)

	return GraphDescriptor{
		Path:   graphFileName,
		SHA256: hex.EncodeToString(sum[:]),
		Levels: levels,
	}, nil
}

func appendUint32LE(buf []byte, values []uint32) []byte {
	for _, v := range values {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}
	return buf
}

func writeManifestJSON(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, "manifest.json"), data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s to %s: %w", tmp, path, err)
	}
	return nil
}
