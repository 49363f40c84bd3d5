package errors

import "fmt"

// SearchError is the structured error type threaded through the build
// pipeline and the query engine. It carries enough context to decide,
// at the call site, whether to retry, degrade, or silently discard.
type SearchError struct {
	// Kind classifies the error (see codes.go).
	Kind Kind

	// Message is the human-readable description.
	Message string

	// Details carries additional context as key-value pairs (e.g. the
	// stale/current seq for a Supersession, the shard path for an
	// AssetError).
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates whether the caller may retry the operation
	// that produced this error.
	Retryable bool

	// Severity is the propagation policy for this error.
	Severity Severity
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Is enables errors.Is() to match SearchError by Kind.
func (e *SearchError) Is(target error) bool {
	t, ok := target.(*SearchError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail adds a key-value detail to the error and returns it for
// chaining.
func (e *SearchError) WithDetail(key, value string) *SearchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a SearchError of the given kind. Severity and the default
// retryable flag are derived from the kind; both can be overridden after
// construction.
func New(kind Kind, message string, cause error) *SearchError {
	return &SearchError{
		Kind:      kind,
		Message:   message,
		Cause:     cause,
		Retryable: retryableByDefault(kind),
		Severity:  defaultSeverity(kind),
	}
}

// Wrap lifts a plain error into a SearchError of the given kind, reusing
// its message. Returns nil if err is nil.
func Wrap(kind Kind, err error) *SearchError {
	if err == nil {
		return nil
	}
	return New(kind, err.Error(), err)
}

// Config creates a ConfigError: missing model id, invalid dims, and
// similar fatal-at-init conditions.
func Config(message string, cause error) *SearchError {
	return New(KindConfig, message, cause)
}

// Asset creates an AssetError: manifest/shard/graph fetch failure,
// shard length mismatch, or a dtype other than fp32.
func Asset(message string, cause error) *SearchError {
	return New(KindAsset, message, cause)
}

// Cache creates a CacheError: a persistent KV cache read/write failure.
// Never fatal — the caller logs it and bypasses the cache.
func Cache(message string, cause error) *SearchError {
	return New(KindCache, message, cause)
}

// Embed creates an EmbedError: model load failure, or a runtime failure
// mid-query.
func Embed(message string, cause error) *SearchError {
	return New(KindEmbed, message, cause)
}

// Query creates a QueryError: malformed query input. The caller should
// surface an empty result set rather than propagate this as a failure.
func Query(message string, cause error) *SearchError {
	return New(KindQuery, message, cause)
}

// Supersession creates the silent-discard error for a response whose
// sequence token is no longer current.
func Supersession(staleSeq, currentSeq uint64) *SearchError {
	e := New(KindSupersession, "response superseded by a newer query", nil)
	e.Details = map[string]string{
		"stale_seq":   fmt.Sprintf("%d", staleSeq),
		"current_seq": fmt.Sprintf("%d", currentSeq),
	}
	return e
}

// IsRetryable reports whether err is a SearchError with Retryable set.
func IsRetryable(err error) bool {
	se, ok := err.(*SearchError)
	return ok && se.Retryable
}

// IsFatal reports whether err is a SearchError with fatal severity.
func IsFatal(err error) bool {
	se, ok := err.(*SearchError)
	return ok && se.Severity == SeverityFatal
}

// IsSupersession reports whether err represents a stale, superseded
// response — callers should discard it silently rather than log or
// render it.
func IsSupersession(err error) bool {
	se, ok := err.(*SearchError)
	return ok && se.Kind == KindSupersession
}

// GetKind extracts the Kind from a SearchError, or "" if err is not one.
func GetKind(err error) Kind {
	if se, ok := err.(*SearchError); ok {
		return se.Kind
	}
	return ""
}
