package cache

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
)

// Shared is a bounded, concurrency safe cache of definitions used across transactions of one datastore. Least
// recently used entries are evicted once it is full.
type Shared struct {
	lru *lru.Cache
}

func NewShared(size int) (*Shared, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Shared{lru: l}, nil
}

func (s *Shared) Len() int {
	return s.lru.Len()
}

func (s *Shared) Lookup(key []byte) (catalog.Definition, bool) {
	v, ok := s.lru.Get(string(key))
	if !ok {
		return nil, false
	}
	return v.(catalog.Definition), true
}

func (s *Shared) Set(key []byte, def catalog.Definition) {
	s.lru.Add(string(key), def)
}

func (s *Shared) Del(key []byte) {
	s.lru.Remove(string(key))
}

// ClearPrefix drops every entry whose key starts with prefix.
func (s *Shared) ClearPrefix(prefix []byte) {
	p := string(prefix)
	for _, k := range s.lru.Keys() {
		if strings.HasPrefix(k.(string), p) {
			s.lru.Remove(k)
		}
	}
}

func (s *Shared) Clear() {
	s.lru.Purge()
}

// GetShared is Get for the shared cache.
func GetShared[T catalog.Definition](s *Shared, key []byte) (T, bool, error) {
	var zero T
	def, ok := s.Lookup(key)
	if !ok {
		return zero, false, nil
	}
	v, ok := def.(T)
	if !ok {
		return zero, false, errors.Annotatef(ErrEntryMismatch, "key %q holds a %s, want %T", key, def.Kind(), zero)
	}
	return v, true, nil
}
