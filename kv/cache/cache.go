// Package cache memoizes decoded catalog objects by their storage key.
//
// A DefinitionCache belongs to one transaction and lives as long as it does. The Shared cache belongs to a datastore
// and spans transactions. Neither invalidates itself: whoever writes a catalog row clears its key, and the prefix of
// any collection it belongs to.
package cache

import (
	"bytes"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
)

// ErrEntryMismatch is returned when a cached entry is not of the requested type.
var ErrEntryMismatch = errors.New("cached definition has an unexpected type")

// DefinitionCache maps encoded keys to decoded definitions. It is used by a single goroutine.
type DefinitionCache struct {
	entries map[string]catalog.Definition
}

func NewDefinitionCache() *DefinitionCache {
	return &DefinitionCache{entries: make(map[string]catalog.Definition)}
}

func (c *DefinitionCache) Len() int {
	return len(c.entries)
}

// Lookup returns the entry stored under key, whatever its type.
func (c *DefinitionCache) Lookup(key []byte) (catalog.Definition, bool) {
	def, ok := c.entries[string(key)]
	return def, ok
}

func (c *DefinitionCache) Set(key []byte, def catalog.Definition) {
	c.entries[string(key)] = def
}

func (c *DefinitionCache) Del(key []byte) {
	delete(c.entries, string(key))
}

// ClearPrefix drops every entry whose key starts with prefix.
func (c *DefinitionCache) ClearPrefix(prefix []byte) {
	for k := range c.entries {
		if bytes.HasPrefix([]byte(k), prefix) {
			delete(c.entries, k)
		}
	}
}

// Get returns the entry stored under key as a T. A present entry of another type yields ErrEntryMismatch.
func Get[T catalog.Definition](c *DefinitionCache, key []byte) (T, bool, error) {
	var zero T
	def, ok := c.Lookup(key)
	if !ok {
		return zero, false, nil
	}
	v, ok := def.(T)
	if !ok {
		return zero, false, errors.Annotatef(ErrEntryMismatch, "key %q holds a %s, want %T", key, def.Kind(), zero)
	}
	return v, true, nil
}
