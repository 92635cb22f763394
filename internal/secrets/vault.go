// Package secrets loads credentials from the environment and .env files and
// resolves fallback chains over them.
package secrets

import (
	"fmt"
	"sync"
)

// Loader retrieves secrets from a source (env vars, .env file).
type Loader func() (map[string]string, error)

// Vault holds loaded secret values.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewVault calls loader once and keeps its values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	if vals == nil {
		vals = map[string]string{}
	}
	return &Vault{values: vals}, nil
}

// Get returns the secret for key, or "".
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// First walks a fallback chain and returns the first non-empty value together
// with the key it came from. Both are empty when no key is set.
func (v *Vault) First(keys ...string) (value, key string) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, k := range keys {
		if s := v.values[k]; s != "" {
			return s, k
		}
	}
	return "", ""
}

// Redacted masks the secret for key for logging. Values of four characters
// or fewer are fully masked.
func (v *Vault) Redacted(key string) string {
	val := v.Get(key)
	switch {
	case val == "":
		return ""
	case len(val) <= 4:
		return "****"
	default:
		return val[:2] + "****"
	}
}
