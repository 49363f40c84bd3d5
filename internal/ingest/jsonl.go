// Package ingest reads the build pipeline's corpus input: one JSON
// object per line, each describing a document to be chunked and
// embedded. The line-per-record shape follows the pack's JSONL
// writers (e.g. allinbits-labs/sidechain's disk.JSONLWriter), read
// back here instead of written.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mia-cx/docsearch/internal/chunk"
	"github.com/mia-cx/docsearch/internal/docmodel"
)

// record is the on-disk JSONL row shape: one document per line. Body
// is the full plain-text rendering the splitter operates on; the
// site's markdown pipeline is expected to have already stripped
// markup before producing the corpus file.
type record struct {
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	Tags    []string `json:"tags"`
	Aliases []string `json:"aliases"`
	Body    string   `json:"body"`
}

// maxLineSize bounds a single JSONL record; bufio.Scanner's default
// 64KB token limit is too small for a long document body.
const maxLineSize = 16 * 1024 * 1024

// ReadDocuments parses path as JSONL and splits each record's body
// into chunks via splitter, returning documents in file order. Row
// order within the returned slice (via docmodel.Rows) becomes the
// build pipeline's sole chunk identity.
func ReadDocuments(path string, splitter chunk.Splitter) ([]docmodel.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus file %s: %w", path, err)
	}
	defer f.Close()
	return readDocuments(f, splitter)
}

func readDocuments(r io.Reader, splitter chunk.Splitter) ([]docmodel.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var docs []docmodel.Document
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(bytesTrimSpace(line)) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parse corpus line %d: %w", lineNo, err)
		}
		if rec.Slug == "" {
			return nil, fmt.Errorf("corpus line %d: missing slug", lineNo)
		}

		docs = append(docs, docmodel.Document{
			Slug:    rec.Slug,
			Title:   rec.Title,
			Tags:    rec.Tags,
			Aliases: rec.Aliases,
			Body:    rec.Body,
			Chunks:  splitter.Split(rec.Slug, rec.Body),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	return docs, nil
}

func bytesTrimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
