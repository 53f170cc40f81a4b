package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("45s")))
	assert.Equal(t, 45*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("not-a-duration")))
	assert.Error(t, d.UnmarshalText([]byte("-5s")), "negative durations rejected")
}

func TestDuration_UnmarshalText_BareSeconds(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("300")))
	assert.Equal(t, 5*time.Minute, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-300")))
}

func TestDuration_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("sk-something-sensitive")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "sk-something-sensitive", s.Value())
	assert.True(t, s.IsSet())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(out))
}

func TestSecret_Empty(t *testing.T) {
	var s Secret
	assert.Equal(t, "", s.String())
	assert.False(t, s.IsSet())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `""`, string(out))
}

func TestSecret_UnmarshalRoundTrip(t *testing.T) {
	var s Secret
	require.NoError(t, json.Unmarshal([]byte(`"raw-token"`), &s))
	assert.Equal(t, "raw-token", s.Value())
}
