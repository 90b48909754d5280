// Package env reads CTFTOOLS_* settings, falling back to the names used by
// the older xortools releases.
package env

import (
	"log/slog"
	"os"
	"sync"
)

var (
	warnLogger func(oldKey, newKey string) = func(oldKey, newKey string) {
		slog.Warn("deprecated environment variable", "variable", oldKey, "replacement", newKey)
	}
	warnMu     sync.Mutex
	warnedKeys sync.Map
)

// Lookup returns the value of newKey if it exists. When only the legacy
// oldKey is present it is returned instead and a deprecation warning is
// logged once per key.
func Lookup(newKey, oldKey string) (string, bool) {
	if v, ok := os.LookupEnv(newKey); ok {
		return v, true
	}
	if oldKey == "" {
		return "", false
	}
	if v, ok := os.LookupEnv(oldKey); ok {
		logDeprecated(oldKey, newKey)
		return v, true
	}
	return "", false
}

func logDeprecated(oldKey, newKey string) {
	onceIface, _ := warnedKeys.LoadOrStore(oldKey, &sync.Once{})
	once := onceIface.(*sync.Once)
	once.Do(func() {
		warnMu.Lock()
		logger := warnLogger
		warnMu.Unlock()
		logger(oldKey, newKey)
	})
}

// ResetWarningsForTesting clears the cached once guards so tests can verify
// warning behaviour deterministically.
func ResetWarningsForTesting() {
	warnMu.Lock()
	warnedKeys = sync.Map{}
	warnMu.Unlock()
}

// SetWarnLoggerForTesting swaps the deprecation logger. The returned
// function restores the previous one and should be deferred in tests.
func SetWarnLoggerForTesting(fn func(oldKey, newKey string)) (restore func()) {
	warnMu.Lock()
	previous := warnLogger
	warnLogger = fn
	warnMu.Unlock()
	return func() {
		warnMu.Lock()
		warnLogger = previous
		warnMu.Unlock()
	}
}
