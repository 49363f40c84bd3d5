package lexical

import (
	"sort"
	"strings"

	"github.com/mia-cx/docsearch/internal/docmodel"
)

// Field names indexed by Index.
const (
	FieldTitle   = "title"
	FieldContent = "content"
	FieldTags    = "tags"
	FieldAliases = "aliases"
)

var fieldOrder = []string{FieldTitle, FieldContent, FieldTags, FieldAliases}

// fieldIndex is a forward-tokenized inverted index for one field: a
// sorted, deduplicated token list (enabling prefix range queries via
// binary search) and a postings map from token to the document slugs
// that contain it, in first-seen order.
type fieldIndex struct {
	tokens   []string
	postings map[string][]string
}

func newFieldIndex() *fieldIndex {
	return &fieldIndex{postings: make(map[string][]string)}
}

func (f *fieldIndex) add(token, slug string) {
	list, ok := f.postings[token]
	if !ok {
		f.postings[token] = []string{slug}
		return
	}
	if len(list) == 0 || list[len(list)-1] != slug {
		f.postings[token] = append(list, slug)
	}
}

func (f *fieldIndex) finalize() {
	f.tokens = make([]string, 0, len(f.postings))
	for tok := range f.postings {
		f.tokens = append(f.tokens, tok)
	}
	sort.Strings(f.tokens)
}

// prefixMatches returns the union of postings for every indexed token
// beginning with prefix: matching tokens are visited in sorted order,
// each token's slugs in insertion order, and each slug kept once.
func (f *fieldIndex) prefixMatches(prefix string) []string {
	if prefix == "" {
		return nil
	}
	lo := sort.SearchStrings(f.tokens, prefix)
	var out []string
	seen := make(map[string]bool)
	for i := lo; i < len(f.tokens) && strings.HasPrefix(f.tokens[i], prefix); i++ {
		for _, slug := range f.postings[f.tokens[i]] {
			if !seen[slug] {
				seen[slug] = true
				out = append(out, slug)
			}
		}
	}
	return out
}

// Index is the lexical retrieval structure over a document corpus.
type Index struct {
	fields map[string]*fieldIndex
	titles map[string]string // slug -> title, for the title-boost check in fusion
	tags   map[string]map[string]bool
}

// Build indexes every document's title, body content, tags, and aliases.
func Build(docs []docmodel.Document) *Index {
	idx := &Index{
		fields: make(map[string]*fieldIndex, len(fieldOrder)),
		titles: make(map[string]string, len(docs)),
		tags:   make(map[string]map[string]bool, len(docs)),
	}
	for _, name := range fieldOrder {
		idx.fields[name] = newFieldIndex()
	}

	for _, doc := range docs {
		idx.titles[doc.Slug] = doc.Title
		idx.tags[doc.Slug] = make(map[string]bool, len(doc.Tags))
		for _, tag := range doc.Tags {
			idx.tags[doc.Slug][strings.ToLower(tag)] = true
		}

		for _, tok := range Tokenize(doc.Title) {
			idx.fields[FieldTitle].add(tok, doc.Slug)
		}
		for _, tok := range Tokenize(doc.Body) {
			idx.fields[FieldContent].add(tok, doc.Slug)
		}
		for _, tag := range doc.Tags {
			for _, tok := range Tokenize(tag) {
				idx.fields[FieldTags].add(tok, doc.Slug)
			}
		}
		for _, alias := range doc.Aliases {
			for _, tok := range Tokenize(alias) {
				idx.fields[FieldAliases].add(tok, doc.Slug)
			}
		}
	}

	for _, f := range idx.fields {
		f.finalize()
	}
	return idx
}

// FieldHits maps field name to the ordered candidate slug list for
// that field, per the component design's "one candidate id list per
// field" contract.
type FieldHits map[string][]string

// Query evaluates text against every field and returns one ordered
// hit list per field. A leading '#' switches to tag-filter semantics
// via QueryTag instead; callers should route to QueryTag themselves
// when they detect the marker (ParseQuery detects it and splits out
// the tag).
func (idx *Index) Query(text string) FieldHits {
	tokens := Tokenize(text)
	hits := make(FieldHits, len(fieldOrder))
	for _, name := range fieldOrder {
		var fieldHits []string
		seen := make(map[string]bool)
		for _, tok := range tokens {
			for _, slug := range idx.fields[name].prefixMatches(tok) {
				if !seen[slug] {
					seen[slug] = true
					fieldHits = append(fieldHits, slug)
				}
			}
		}
		hits[name] = fieldHits
	}
	return hits
}

// ParsedQuery is the result of splitting a raw query string into its
// optional tag filter and remaining free-text term.
type ParsedQuery struct {
	Tag  string // lowercased, without the leading '#'; empty if no tag filter
	Term string // remaining free text, possibly empty
}

// ParseQuery recognizes the "#tag term" / bare "#tag" syntax.
func ParseQuery(raw string) ParsedQuery {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "#") {
		return ParsedQuery{Term: raw}
	}
	rest := raw[1:]
	parts := strings.SplitN(rest, " ", 2)
	tag := strings.ToLower(strings.TrimSpace(parts[0]))
	term := ""
	if len(parts) == 2 {
		term = strings.TrimSpace(parts[1])
	}
	return ParsedQuery{Tag: tag, Term: term}
}

// QueryTag resolves "#tag term": tag restricts to documents carrying a
// tag with the given prefix, and term (if non-empty) full-text
// searches within that restricted set. A bare "#tag" with no term
// returns every document whose tag set has a matching prefix.
func (idx *Index) QueryTag(pq ParsedQuery) []string {
	var tagged []string
	seen := make(map[string]bool)
	for slug, tags := range idx.tags {
		for tag := range tags {
			if strings.HasPrefix(tag, pq.Tag) && !seen[slug] {
				seen[slug] = true
				tagged = append(tagged, slug)
				break
			}
		}
	}
	sort.Strings(tagged) // stable order; tag sets are unordered maps

	if pq.Term == "" {
		return tagged
	}

	allowed := make(map[string]bool, len(tagged))
	for _, slug := range tagged {
		allowed[slug] = true
	}

	hits := idx.Query(pq.Term)
	seenTerm := make(map[string]bool)
	var out []string
	for _, name := range fieldOrder {
		for _, slug := range hits[name] {
			if allowed[slug] && !seenTerm[slug] {
				seenTerm[slug] = true
				out = append(out, slug)
			}
		}
	}
	return out
}

// Title returns slug's indexed title, or "" if slug is unknown.
func (idx *Index) Title(slug string) string {
	return idx.titles[slug]
}

// TitleMatchesQuery reports whether doc's title shares any token with
// the query text, the condition fusion uses to apply the title boost.
func (idx *Index) TitleMatchesQuery(slug, queryText string) bool {
	title, ok := idx.titles[slug]
	if !ok {
		return false
	}
	titleTokens := make(map[string]bool)
	for _, tok := range Tokenize(title) {
		titleTokens[tok] = true
	}
	for _, tok := range Tokenize(queryText) {
		if titleTokens[tok] {
			return true
		}
	}
	return false
}
