package queryengine

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mia-cx/docsearch/internal/hnsw"
	"github.com/mia-cx/docsearch/internal/manifest"

	searcherrors "github.com/mia-cx/docsearch/internal/errors"
)

// ProgressFunc receives a loadedRows/totalRows update after each shard.
type ProgressFunc func(loadedRows, totalRows int)

// LoadedAssets is everything the worker needs to serve search after a
// successful Init: the manifest itself, the contiguous vector buffer,
// and the reconstructed HNSW graph.
type LoadedAssets struct {
	Manifest *manifest.Manifest
	Vectors  []float32
	Graph    *hnsw.Graph
}

// Load fetches and parses the manifest at manifestURL, then fetches
// (or serves from cache) every shard and the graph blob, reporting
// progress after each shard. A shard whose declared content hash
// doesn't match the cached bytes is treated as a cache miss and
// re-fetched; a shard whose fetched length disagrees with
// rows*dims*4 is a fatal AssetError, matching the asset loader design.
func Load(ctx context.Context, fetcher Fetcher, cache *AssetCache, manifestURL string, onProgress ProgressFunc) (*LoadedAssets, error) {
	raw, err := fetcher.Fetch(ctx, manifestURL)
	if err != nil {
		return nil, err
	}

	var m manifest.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, searcherrors.Asset("parse manifest", err)
	}
	if m.Dtype != "fp32" {
		return nil, searcherrors.Asset(fmt.Sprintf("unsupported dtype %q, want fp32", m.Dtype), nil)
	}

	vectors := make([]float32, m.Rows*m.Dims)
	loaded := 0
	for _, shard := range m.Vectors.Shards {
		data, err := fetchWithCache(ctx, fetcher, cache, Join(manifestURL, shard.Path), shard.SHA256)
		if err != nil {
			return nil, err
		}
		wantLen := shard.Rows * shard.ByteStride
		if len(data) != wantLen {
			return nil, searcherrors.Asset(
				fmt.Sprintf("shard %s: length %d, want %d", shard.Path, len(data), wantLen), nil)
		}

		rowFloats := shard.ByteStride / 4
		base := shard.RowOffset * m.Dims
		for i := 0; i < shard.Rows; i++ {
			srcOff := i * shard.ByteStride
			dstOff := base + i*m.Dims
			for j := 0; j < rowFloats && j < m.Dims; j++ {
				bits := binary.LittleEndian.Uint32(data[srcOff+j*4:])
				vectors[dstOff+j] = math.Float32frombits(bits)
			}
		}

		loaded += shard.Rows
		if onProgress != nil {
			onProgress(loaded, m.Rows)
		}
	}

	graphData, err := fetchWithCache(ctx, fetcher, cache, Join(manifestURL, m.HNSW.Graph.Path), m.HNSW.Graph.SHA256)
	if err != nil {
		return nil, err
	}

	levels := make([]hnsw.Level, len(m.HNSW.Graph.Levels))
	for _, ld := range m.HNSW.Graph.Levels {
		if ld.Level < 0 || ld.Level >= len(levels) {
			return nil, searcherrors.Asset(fmt.Sprintf("graph level %d out of range", ld.Level), nil)
		}
		indptr, err := manifest.ReadUint32LE(graphData, ld.Indptr)
		if err != nil {
			return nil, searcherrors.Asset(fmt.Sprintf("level %d indptr", ld.Level), err)
		}
		indices, err := manifest.ReadUint32LE(graphData, ld.Indices)
		if err != nil {
			return nil, searcherrors.Asset(fmt.Sprintf("level %d indices", ld.Level), err)
		}
		levels[ld.Level] = hnsw.Level{Indptr: indptr, Indices: indices}
	}

	graph := &hnsw.Graph{
		M:              m.HNSW.M,
		EfConstruction: m.HNSW.EfConstruction,
		EntryPoint:     m.HNSW.EntryPoint,
		MaxLevel:       m.HNSW.MaxLevel,
		Levels:         levels,
		Rows:           m.Rows,
	}

	return &LoadedAssets{Manifest: &m, Vectors: vectors, Graph: graph}, nil
}

// fetchWithCache serves bytes from cache when the content hash
// matches, otherwise fetches and repopulates the cache. Cache read/
// write failures are ignored (a read failure is handled as a miss),
// never fatal, per the CacheError policy.
func fetchWithCache(ctx context.Context, fetcher Fetcher, cache *AssetCache, url, wantHash string) ([]byte, error) {
	if cache != nil {
		if data, ok, err := cache.Get(wantHash); err == nil && ok {
			if sum := sha256.Sum256(data); hex.EncodeToString(sum[:]) == wantHash {
				return data, nil
			}
		}
	}

	data, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		_ = cache.Put(wantHash, data)
	}
	return data, nil
}
