package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI(t *testing.T) {
	err := Asset("shard fetch failed", nil).WithDetail("path", "shard-0.bin")
	out := FormatForCLI(err)
	assert.Contains(t, out, "shard fetch failed")
	assert.Contains(t, out, "ASSET")
	assert.Contains(t, out, "shard-0.bin")
}

func TestFormatForCLI_nil(t *testing.T) {
	assert.Equal(t, "", FormatForCLI(nil))
}

func TestFormatForCLI_plainError(t *testing.T) {
	out := FormatForCLI(errors.New("boom"))
	assert.Contains(t, out, "boom")
}

func TestFormatJSON(t *testing.T) {
	err := Embed("model load failed", errors.New("timeout"))
	b, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var je jsonError
	require.NoError(t, json.Unmarshal(b, &je))
	assert.Equal(t, "EMBED", je.Kind)
	assert.Equal(t, "model load failed", je.Message)
	assert.Equal(t, "timeout", je.Cause)
	assert.True(t, je.Retryable)
}

func TestFormatJSON_nil(t *testing.T) {
	b, err := FormatJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestFormatForLog(t *testing.T) {
	err := Query("malformed", nil)
	attrs := FormatForLog(err)
	assert.Equal(t, "QUERY", attrs["error_kind"])
	assert.Equal(t, "malformed", attrs["message"])
}

func TestFormatForLog_nil(t *testing.T) {
	assert.Nil(t, FormatForLog(nil))
}

func TestFormatForLog_plainError(t *testing.T) {
	attrs := FormatForLog(errors.New("boom"))
	assert.Equal(t, "boom", attrs["error"])
}
