package cipher

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Global combiner registry
var (
	combinerRegistry = make(map[string]Combiner)
	registryMu       sync.RWMutex
)

// RegisterCombiner adds a combiner to the global registry
func RegisterCombiner(c Combiner) error {
	if c == nil {
		return fmt.Errorf("cannot register nil combiner")
	}

	name := strings.ToLower(strings.TrimSpace(c.Name()))
	if name == "" {
		return fmt.Errorf("combiner name cannot be empty")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := combinerRegistry[name]; exists {
		return fmt.Errorf("combiner %s is already registered", name)
	}

	combinerRegistry[name] = c
	return nil
}

// GetCombiner retrieves a combiner from the registry by name. Lookup is
// case-insensitive.
func GetCombiner(name string) (Combiner, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	c, exists := combinerRegistry[strings.ToLower(strings.TrimSpace(name))]
	return c, exists
}

// LookupCombiner is GetCombiner with an error for unknown names. An empty
// name selects the default combiner.
func LookupCombiner(name string) (Combiner, error) {
	if strings.TrimSpace(name) == "" {
		return Default(), nil
	}
	c, ok := GetCombiner(name)
	if !ok {
		return nil, fmt.Errorf("unknown combiner %q", name)
	}
	return c, nil
}

// ListCombiners returns all registered combiners sorted by name
func ListCombiners() []Combiner {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Combiner, 0, len(combinerRegistry))
	for _, c := range combinerRegistry {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})

	return out
}

// UnregisterCombiner removes a combiner from the registry (mainly for testing)
func UnregisterCombiner(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	delete(combinerRegistry, strings.ToLower(strings.TrimSpace(name)))
}
