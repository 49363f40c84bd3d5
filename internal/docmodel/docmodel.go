// Package docmodel defines the document/chunk data model that flows
// through the build pipeline: documents are chunked, chunks are
// embedded, and the resulting row order becomes the sole chunk
// identity carried into the HNSW graph and manifest.
package docmodel

import "strconv"

// Document is an identified record produced by the site's markdown
// pipeline and treated as an immutable input to build.
type Document struct {
	Slug    string   // stable, unique across the corpus
	Title   string
	Tags    []string
	Aliases []string
	Body    string // full plain-text rendering, no markup
	Chunks  []Chunk
}

// Chunk is a contiguous substring of a document's body. ChunkID is
// 0-based within the parent and, together with ParentSlug, is the
// chunk's stable identity independent of row order.
type Chunk struct {
	ParentSlug string
	ChunkID    int
	Text       string

	// StartOffset/EndOffset are byte offsets into the parent Document's
	// Body, with EndOffset exclusive. They let a splitter reconstruct
	// the body (overlap elided) for invariant checking in tests.
	StartOffset int
	EndOffset   int
}

// Slug returns the chunk's compound identity as it appears in the
// manifest's id array and chunkMetadata map: "<parentSlug>#<chunkID>".
func (c Chunk) Slug() string {
	return c.ParentSlug + "#" + strconv.Itoa(c.ChunkID)
}

// TotalChunks returns the number of chunks across all documents, which
// equals the row count of the embedding matrix the build pipeline
// produces.
func TotalChunks(docs []Document) int {
	n := 0
	for _, d := range docs {
		n += len(d.Chunks)
	}
	return n
}

// Rows flattens docs into an ordered chunk slice; the returned index
// is a row number fixed at build time — the graph and manifest never
// refer to chunks any other way.
func Rows(docs []Document) []Chunk {
	rows := make([]Chunk, 0, TotalChunks(docs))
	for _, d := range docs {
		rows = append(rows, d.Chunks...)
	}
	return rows
}
