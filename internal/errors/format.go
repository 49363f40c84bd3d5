package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for CLI output: a concise message plus
// its kind, suitable for stderr.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	se, ok := err.(*SearchError)
	if !ok {
		se = Wrap(KindAsset, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("error: %s\n", se.Message))
	sb.WriteString(fmt.Sprintf("  kind: %s\n", se.Kind))
	for k, v := range se.Details {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", k, v))
	}
	return sb.String()
}

// jsonError is the JSON representation of a SearchError, used by the
// worker protocol's error{message} message.
type jsonError struct {
	Kind      string            `json:"kind"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Cause     string            `json:"cause,omitempty"`
	Retryable bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error, suitable for
// the worker protocol's error{message} message or structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	se, ok := err.(*SearchError)
	if !ok {
		se = Wrap(KindAsset, err)
	}

	je := jsonError{
		Kind:      string(se.Kind),
		Message:   se.Message,
		Details:   se.Details,
		Retryable: se.Retryable,
	}
	if se.Cause != nil {
		je.Cause = se.Cause.Error()
	}
	return json.Marshal(je)
}

// FormatForLog formats an error as structured key-value pairs suitable
// for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	se, ok := err.(*SearchError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_kind": string(se.Kind),
		"message":    se.Message,
		"severity":   string(se.Severity),
		"retryable":  se.Retryable,
	}
	if se.Cause != nil {
		result["cause"] = se.Cause.Error()
	}
	for k, v := range se.Details {
		result["detail_"+k] = v
	}
	return result
}
