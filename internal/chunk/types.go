// Package chunk implements the size+overlap sliding-window splitter
// that turns a document body into an ordered list of chunks. Output
// chunk order defines row order for the rest of the build pipeline.
package chunk

import "github.com/mia-cx/docsearch/internal/docmodel"

// Options configures a Splitter.
type Options struct {
	// Size is the target chunk length C, in runes.
	Size int
	// Overlap is O, the number of runes shared between adjacent
	// chunks; must satisfy 0 < Overlap < Size unless Disabled.
	Overlap int
	// Disabled emits the whole body as a single chunk.
	Disabled bool
}

// DefaultOptions matches the component design's defaults.
func DefaultOptions() Options {
	return Options{Size: 512, Overlap: 128}
}

// Splitter splits a document body into chunks. A header-aware splitter
// could implement this interface alongside SizeOverlapSplitter without
// touching callers.
type Splitter interface {
	Split(parentSlug, body string) []docmodel.Chunk
}
