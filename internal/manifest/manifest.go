// Package manifest defines the on-disk wire format written by the
// build pipeline and read by the query-side asset loader: a JSON
// manifest, one or more little-endian fp32 vector shards, and a single
// binary HNSW graph blob, every artifact content-hashed with SHA-256.
package manifest

// Manifest is the root metadata object, the stable wire format named
// in the external interfaces design. Field order and names are fixed
// by that contract — do not rename without a version bump.
type Manifest struct {
	Version       int                  `json:"version"`
	Dims          int                  `json:"dims"`
	Dtype         string               `json:"dtype"`
	Normalized    bool                 `json:"normalized"`
	Rows          int                  `json:"rows"`
	ShardSizeRows int                  `json:"shardSizeRows"`
	Vectors       VectorsDescriptor    `json:"vectors"`
	IDs           []string             `json:"ids"`
	Titles        []string             `json:"titles,omitempty"`
	ChunkMetadata map[string]ChunkMeta `json:"chunkMetadata,omitempty"`
	HNSW          HNSWDescriptor       `json:"hnsw"`
}

// VectorsDescriptor describes the shard set tiling [0, Rows).
type VectorsDescriptor struct {
	Dtype  string            `json:"dtype"`
	Rows   int               `json:"rows"`
	Dims   int               `json:"dims"`
	Shards []ShardDescriptor `json:"shards"`
}

// ShardDescriptor locates one vector shard file and its content hash.
type ShardDescriptor struct {
	Path       string `json:"path"`
	Rows       int    `json:"rows"`
	RowOffset  int    `json:"rowOffset"`
	ByteLength int64  `json:"byteLength"`
	ByteStride int    `json:"byteStride"`
	SHA256     string `json:"sha256"`
}

// ChunkMeta maps a chunk slug back to its parent document and
// within-document position.
type ChunkMeta struct {
	ParentSlug string `json:"parentSlug"`
	ChunkID    int    `json:"chunkId"`
}

// HNSWDescriptor records the graph's construction parameters and the
// location of its binary blob.
type HNSWDescriptor struct {
	M              int             `json:"M"`
	EfConstruction int             `json:"efConstruction"`
	EntryPoint     int             `json:"entryPoint"`
	MaxLevel       int             `json:"maxLevel"`
	Graph          GraphDescriptor `json:"graph"`
}

// GraphDescriptor locates the graph blob and its per-level CSR sections.
type GraphDescriptor struct {
	Path   string            `json:"path"`
	SHA256 string            `json:"sha256"`
	Levels []LevelDescriptor `json:"levels"`
}

// LevelDescriptor gives the absolute byte offsets of one level's
// indptr and indices arrays within the graph blob.
type LevelDescriptor struct {
	Level   int             `json:"level"`
	Indptr  ArrayDescriptor `json:"indptr"`
	Indices ArrayDescriptor `json:"indices"`
}

// ArrayDescriptor locates one uint32 array within a binary blob.
type ArrayDescriptor struct {
	Offset     int64 `json:"offset"`
	Elements   int   `json:"elements"`
	ByteLength int64 `json:"byteLength"`
}

// CurrentVersion is written into every manifest this build produces.
const CurrentVersion = 1

// ParentSlug resolves a chunk slug to its parent document slug via
// ChunkMetadata, falling back to treating the chunk as its own parent
// when absent — the open-question fallback preserved from the
// reference implementation.
func (m *Manifest) ParentSlug(chunkSlug string) string {
	if m.ChunkMetadata != nil {
		if meta, ok := m.ChunkMetadata[chunkSlug]; ok {
			return meta.ParentSlug
		}
	}
	return chunkSlug
}
