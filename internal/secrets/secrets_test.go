package secrets

import (
	"testing"

	"github.com/fyrsmithlabs/ensemble/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_LoadsFromEnv(t *testing.T) {
	t.Setenv("API_KEY_ANTHROPIC", "sk-ant-test-12345")
	t.Setenv("TOKEN_GITHUB", "ghp_example")
	t.Setenv("UNRELATED_VAR", "not-a-secret")

	m := NewManager()

	got, ok := m.Get("API_KEY_ANTHROPIC")
	require.True(t, ok)
	assert.Equal(t, "sk-ant-test-12345", got.Value())

	_, ok = m.Get("TOKEN_GITHUB")
	assert.True(t, ok)

	_, ok = m.Get("UNRELATED_VAR")
	assert.False(t, ok, "non-secret env vars must not be loaded")
}

func TestManager_SetAndGet(t *testing.T) {
	m := NewManager()

	m.Set("API_KEY_CUSTOM", config.Secret("custom-value"))

	got, ok := m.Get("API_KEY_CUSTOM")
	require.True(t, ok)
	assert.Equal(t, "custom-value", got.Value())
}

func TestManager_GetMissing(t *testing.T) {
	m := NewManager()

	_, ok := m.Get("API_KEY_DOES_NOT_EXIST")
	assert.False(t, ok)
}

func TestManager_Keys(t *testing.T) {
	m := &Manager{secrets: map[string]config.Secret{
		"TOKEN_B":   "2",
		"API_KEY_A": "1",
		"SECRET_C":  "3",
	}}

	assert.Equal(t, []string{"API_KEY_A", "SECRET_C", "TOKEN_B"}, m.Keys())
}

func TestManager_SecretsRedactInLogs(t *testing.T) {
	m := NewManager()
	m.Set("PASSWORD_DB", config.Secret("hunter2hunter2"))

	got, ok := m.Get("PASSWORD_DB")
	require.True(t, ok)
	assert.Equal(t, "[REDACTED]", got.String())
}

func TestMask(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{name: "empty", secret: "", want: ""},
		{name: "short", secret: "abc", want: "***"},
		{name: "exactly eight", secret: "12345678", want: "********"},
		{name: "long", secret: "sk-ant-api-key-9876", want: "sk-a***********9876"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mask(tt.secret))
		})
	}
}
