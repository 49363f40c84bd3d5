// Package workerproto defines the fixed message set exchanged between
// the UI thread and the background query worker. Grounded on the
// teacher's internal/daemon JSON-RPC Request/Response/Error shape,
// adapted from generic method dispatch to this domain's closed set of
// message kinds — there is no method routing here, just a worker run
// loop that switches on Kind.
package workerproto

// Kind identifies a message's shape. Both directions (UI -> worker,
// worker -> UI) share this one type so a single channel can carry
// either.
type Kind string

const (
	KindInit         Kind = "init"
	KindProgress     Kind = "progress"
	KindReady        Kind = "ready"
	KindError        Kind = "error"
	KindSearch       Kind = "search"
	KindSearchResult Kind = "search-result"
	KindReset        Kind = "reset"
)

// Init asks the worker to load a manifest and prepare for search.
type Init struct {
	Kind         Kind
	ManifestURL  string
	BaseURL      string // optional; defaults derived from ManifestURL
	DisableCache bool
}

// Progress reports shard-loading progress while a manifest load is in
// flight. The worker may emit zero or more of these before Ready.
type Progress struct {
	Kind       Kind
	LoadedRows int
	TotalRows  int
}

// Ready signals the worker finished loading and can serve Search.
type Ready struct {
	Kind Kind
}

// Error carries a worker-side failure. Seq is zero for init-time
// errors (no query in flight) and the originating query's sequence
// token for per-query errors.
type Error struct {
	Kind    Kind
	Seq     int
	Message string
}

// Search asks the worker to run a semantic query. Seq is the caller's
// monotonic sequence token; responses echo it back so the caller can
// discard superseded results.
type Search struct {
	Kind Kind
	Text string
	K    int
	Seq  int
}

// ScoredID is one semantic hit: a chunk id and its raw cosine score.
type ScoredID struct {
	ID    string
	Score float64
}

// SearchResult answers a Search. Semantic is chunk-granularity; the
// caller is responsible for aggregation and fusion with its own
// lexical results.
type SearchResult struct {
	Kind     Kind
	Seq      int
	Semantic []ScoredID
}

// Reset asks the worker to abort any in-flight fetches and discard
// its loaded state, returning to pre-init.
type Reset struct {
	Kind Kind
}

func NewInit(manifestURL, baseURL string, disableCache bool) Init {
	return Init{Kind: KindInit, ManifestURL: manifestURL, BaseURL: baseURL, DisableCache: disableCache}
}

func NewProgress(loaded, total int) Progress {
	return Progress{Kind: KindProgress, LoadedRows: loaded, TotalRows: total}
}

func NewReady() Ready { return Ready{Kind: KindReady} }

func NewError(seq int, message string) Error {
	return Error{Kind: KindError, Seq: seq, Message: message}
}

func NewSearch(text string, k, seq int) Search {
	return Search{Kind: KindSearch, Text: text, K: k, Seq: seq}
}

func NewSearchResult(seq int, semantic []ScoredID) SearchResult {
	return SearchResult{Kind: KindSearchResult, Seq: seq, Semantic: semantic}
}

func NewReset() Reset { return Reset{Kind: KindReset} }
