package core

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	registry   = make(map[string]ViewDefinition)
	registryMu sync.RWMutex
)

// Register adds a view definition to the registry.
// Panics if a view with the same key is already registered.
func Register(def ViewDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("view already registered: %s", def.Info.Key))
	}

	// Populate Columns from FieldSpecs if not set
	if len(def.Info.Columns) == 0 && len(def.FieldSpecs) > 0 {
		def.Info.Columns = make([]string, len(def.FieldSpecs))
		for i, spec := range def.FieldSpecs {
			def.Info.Columns[i] = spec.Name
		}
	}
	if def.Info.Path == "" {
		def.Info.Path = def.Info.Key
	}

	registry[def.Info.Key] = def
}

// Get returns a view definition by key.
func Get(key string) (ViewDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// update replaces a registered definition in place. Used by view overrides.
func update(key string, fn func(*ViewDefinition)) bool {
	registryMu.Lock()
	defer registryMu.Unlock()

	def, ok := registry[key]
	if !ok {
		return false
	}
	fn(&def)
	registry[key] = def
	return true
}

// All returns all registered view definitions, sorted by group then key.
func All() []ViewDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ViewDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	slices.SortFunc(result, func(a, b ViewDefinition) int {
		if c := strings.Compare(a.Info.Group, b.Info.Group); c != 0 {
			return c
		}
		return strings.Compare(a.Info.Key, b.Info.Key)
	})

	return result
}

// ByGroup returns the view definitions of a group, sorted by key.
func ByGroup(group string) []ViewDefinition {
	var result []ViewDefinition
	for _, def := range All() {
		if def.Info.Group == group {
			result = append(result, def)
		}
	}
	return result
}

// Groups returns all unique group names, sorted.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	groups := make([]string, 0, len(registry))
	for _, def := range registry {
		if !slices.Contains(groups, def.Info.Group) {
			groups = append(groups, def.Info.Group)
		}
	}

	slices.Sort(groups)
	return groups
}

// ViewCount returns the number of registered views.
func ViewCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered views.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]ViewDefinition)
}
