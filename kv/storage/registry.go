package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/config"
)

// Opener constructs an engine from the target part of a connection string, i.e. what follows "scheme://".
type Opener func(ctx context.Context, target string, conf *config.Config) (Storage, error)

// knownSchemes maps the connection schemes of every engine this module ships to the engine name. A scheme in this
// table whose engine did not register is reported as disabled rather than unknown.
var knownSchemes = map[string]string{
	"memory":  "memory",
	"mem":     "memory",
	"badger":  "badger",
	"file":    "badger",
	"leveldb": "leveldb",
	"etcd":    "etcd",
	"redis":   "redis",
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Opener)
)

// Register makes an engine available under its name. It is called from the init function of each engine package.
func Register(engine string, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[engine]; dup {
		panic("storage: Register called twice for engine " + engine)
	}
	registry[engine] = open
}

// Engines lists the registered engines.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParsePath splits a connection string into its scheme and target. "memory" has no target.
func ParsePath(path string) (scheme, target string) {
	if i := strings.Index(path, "://"); i >= 0 {
		return path[:i], path[i+3:]
	}
	if i := strings.Index(path, ":"); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

// Open dispatches a connection string to the engine registered for its scheme.
func Open(ctx context.Context, path string, conf *config.Config) (Storage, error) {
	scheme, target := ParsePath(path)
	engine, known := knownSchemes[scheme]
	if !known {
		return nil, errors.Annotatef(ErrDatastore, "unknown scheme in %q", path)
	}
	registryMu.RLock()
	open, ok := registry[engine]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.WithStack(&DisabledEngineError{Engine: engine})
	}
	s, err := open(ctx, target, conf)
	if err != nil {
		return nil, errors.Annotatef(err, "open %s storage at %q", engine, target)
	}
	return s, nil
}
