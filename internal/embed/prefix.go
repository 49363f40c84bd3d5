package embed

import "strings"

// prefixPair holds the text prepended before embedding: Query for
// isQuery=true, Passage for isQuery=false. Either half may be empty.
type prefixPair struct {
	Query   string
	Passage string
}

// prefixRule matches a model identifier by substring. Rules are
// checked in order; the first match wins. Driving this from a table
// rather than scattered conditionals keeps new model families a
// one-line addition.
type prefixRule struct {
	markers []string // all must appear in the lowercased model name
	pair    prefixPair
}

var prefixTable = []prefixRule{
	{
		markers: []string{"e5"},
		pair:    prefixPair{Query: "query: ", Passage: "passage: "},
	},
	{
		markers: []string{"qwen", "embedding"},
		pair: prefixPair{
			Query:   "Instruct: Given a web search query, retrieve relevant passages that answer the query\nQuery: ",
			Passage: "",
		},
	},
	{
		markers: []string{"embeddinggemma"},
		pair: prefixPair{
			Query:   "task: search result | query: ",
			Passage: "title: none | text: ",
		},
	},
}

// lookupPrefix returns the prefix pair for model, matching by
// lowercased substring against prefixTable. No match returns the zero
// pair (no prefix applied), which is correct for plain bi-encoder
// models that were never trained with asymmetric markers.
func lookupPrefix(model string) prefixPair {
	lower := strings.ToLower(model)
	for _, rule := range prefixTable {
		matched := true
		for _, marker := range rule.markers {
			if !strings.Contains(lower, marker) {
				matched = false
				break
			}
		}
		if matched {
			return rule.pair
		}
	}
	return prefixPair{}
}

// applyPrefix prepends the query or passage prefix for model onto text,
// per isQuery. This is the single seam where the asymmetry invariant
// (query and passage forms of the same string embed differently) is
// enforced; both local.go and remote.go call through it before
// tokenizing or sending text to a remote endpoint.
func applyPrefix(model, text string, isQuery bool) string {
	pair := lookupPrefix(model)
	if isQuery {
		return pair.Query + text
	}
	return pair.Passage + text
}
