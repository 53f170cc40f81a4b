// Package secrets loads API credentials from the environment and masks
// them for display. Values are held as config.Secret so accidental
// logging stays redacted.
package secrets

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/ensemble/internal/config"
)

// secretPrefixes are the environment variable prefixes treated as secrets.
var secretPrefixes = []string{"API_KEY_", "SECRET_", "TOKEN_", "PASSWORD_"}

// Manager holds secrets loaded from the environment.
type Manager struct {
	mu      sync.RWMutex
	secrets map[string]config.Secret
}

// NewManager creates a manager populated from the current environment.
func NewManager() *Manager {
	m := &Manager{secrets: make(map[string]config.Secret)}
	m.loadFromEnv()
	return m
}

func (m *Manager) loadFromEnv() {
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		for _, prefix := range secretPrefixes {
			if strings.HasPrefix(key, prefix) {
				m.secrets[key] = config.Secret(value)
				break
			}
		}
	}
}

// Get returns the secret for key.
func (m *Manager) Get(key string) (config.Secret, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.secrets[key]
	return s, ok
}

// Set stores a secret under key.
func (m *Manager) Set(key string, value config.Secret) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[key] = value
}

// Keys returns all secret keys in sorted order. Values are never exposed.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.secrets))
	for k := range m.secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Mask obscures a secret for display. Short secrets are fully starred;
// longer ones keep the first and last four characters.
func Mask(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
