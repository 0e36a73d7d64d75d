// Process-wide default credential holder.
//
// Credential resolution order everywhere in spindle: explicit key,
// then this holder, then the provider's environment variable. The holder
// is the only implicit global in the library; it exists purely for
// ergonomics in applications that configure one key at startup.

package llm

import (
	"fmt"
	"os"
	"sync"
)

var (
	defaultKeysMu sync.RWMutex
	defaultKeys   = make(map[ProviderType]string)
)

// SetDefaultAPIKey installs a process-wide default API key for a provider.
func SetDefaultAPIKey(providerType ProviderType, apiKey string) {
	defaultKeysMu.Lock()
	defer defaultKeysMu.Unlock()
	defaultKeys[providerType] = apiKey
}

// DefaultAPIKey returns the process-wide default API key for a provider,
// or the empty string if none is set.
func DefaultAPIKey(providerType ProviderType) string {
	defaultKeysMu.RLock()
	defer defaultKeysMu.RUnlock()
	return defaultKeys[providerType]
}

// ClearDefaultAPIKeys removes all process-wide default keys.
func ClearDefaultAPIKeys() {
	defaultKeysMu.Lock()
	defer defaultKeysMu.Unlock()
	defaultKeys = make(map[ProviderType]string)
}

// ResolveAPIKey resolves a credential: explicit argument first, then the
// process-wide default holder, then the provider's environment variable.
func ResolveAPIKey(providerType ProviderType, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if key := DefaultAPIKey(providerType); key != "" {
		return key, nil
	}
	if key := os.Getenv(providerType.EnvVar()); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no API key for %s: pass one explicitly, call llm.SetDefaultAPIKey, or set %s",
		providerType, providerType.EnvVar())
}
