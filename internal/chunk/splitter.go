package chunk

import (
	"unicode"
	"unicode/utf8"

	"github.com/mia-cx/docsearch/internal/docmodel"
)

// SizeOverlapSplitter implements the sliding-window splitter from the
// component design: a window of length Size slides with stride
// Size-Overlap, snapping its start/end to nearby whitespace when
// possible, and the final chunk is truncated to the body end.
type SizeOverlapSplitter struct {
	opts Options
}

// NewSizeOverlapSplitter validates opts and returns a splitter, or
// falls back to DefaultOptions if opts describes an invalid window
// (the caller is expected to have validated opts via config.Validate,
// but a zero-value Options is still a usable splitter).
func NewSizeOverlapSplitter(opts Options) *SizeOverlapSplitter {
	if !opts.Disabled && (opts.Size <= 0 || opts.Overlap <= 0 || opts.Overlap >= opts.Size) {
		opts = DefaultOptions()
	}
	return &SizeOverlapSplitter{opts: opts}
}

// snapFraction bounds how far a window boundary may move to land on
// whitespace: up to 10% of the target chunk size in either direction.
const snapFraction = 0.10

func (s *SizeOverlapSplitter) Split(parentSlug, body string) []docmodel.Chunk {
	if body == "" {
		return nil
	}
	if s.opts.Disabled {
		return []docmodel.Chunk{{
			ParentSlug:  parentSlug,
			ChunkID:     0,
			Text:        body,
			StartOffset: 0,
			EndOffset:   len(body),
		}}
	}

	runes := []rune(body)
	// byteOffset[i] is the byte offset of runes[i] in body; byteOffset[len(runes)] == len(body).
	byteOffset := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		byteOffset[i] = pos
		pos += utf8.RuneLen(r)
	}
	byteOffset[len(runes)] = pos

	size := s.opts.Size
	stride := size - s.opts.Overlap
	if stride < 1 {
		stride = 1
	}
	snapWindow := int(float64(size) * snapFraction)

	var chunks []docmodel.Chunk
	chunkID := 0
	start := 0
	n := len(runes)

	for start < n {
		end := start + size
		if end > n {
			end = n
		}

		snappedStart := start
		if start > 0 {
			snappedStart = snapToWhitespace(runes, start, snapWindow)
		}
		snappedEnd := end
		if end < n {
			snappedEnd = snapToWhitespace(runes, end, snapWindow)
		}
		if snappedEnd <= snappedStart {
			snappedEnd = end
			snappedStart = start
		}

		text := string(runes[snappedStart:snappedEnd])
		if text != "" {
			chunks = append(chunks, docmodel.Chunk{
				ParentSlug:  parentSlug,
				ChunkID:     chunkID,
				Text:        text,
				StartOffset: byteOffset[snappedStart],
				EndOffset:   byteOffset[snappedEnd],
			})
			chunkID++
		}

		if end >= n {
			break
		}
		start += stride
	}

	return chunks
}

// snapToWhitespace searches outward from target (up to window runes in
// either direction) for the nearest whitespace rune, returning target
// unchanged if none is found within range.
func snapToWhitespace(runes []rune, target, window int) int {
	if window <= 0 {
		return target
	}
	lo, hi := target-window, target+window
	if lo < 0 {
		lo = 0
	}
	if hi > len(runes) {
		hi = len(runes)
	}

	for d := 0; d <= window; d++ {
		if target+d < hi && unicode.IsSpace(runes[target+d]) {
			return target + d
		}
		if target-d >= lo && target-d >= 0 && unicode.IsSpace(runes[target-d]) {
			return target - d
		}
	}
	return target
}
