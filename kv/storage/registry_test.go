package storage

import (
	"context"
	"testing"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"

	"github.com/pingcap-incubator/tinydb/kv/config"
)

func TestParsePath(t *testing.T) {
	scheme, target := ParsePath("memory")
	assert.Equal(t, "memory", scheme)
	assert.Equal(t, "", target)
	scheme, target = ParsePath("badger:///var/lib/tinydb")
	assert.Equal(t, "badger", scheme)
	assert.Equal(t, "/var/lib/tinydb", target)
	scheme, target = ParsePath("redis://127.0.0.1:6379/0")
	assert.Equal(t, "redis", scheme)
	assert.Equal(t, "127.0.0.1:6379/0", target)
}

func TestOpenUnknownAndDisabled(t *testing.T) {
	ctx := context.Background()
	conf := config.NewTestConfig()
	_, err := Open(ctx, "tape://drive0", conf)
	assert.Equal(t, ErrDatastore, errors.Cause(err))

	// no engine package is linked into this test binary
	_, err = Open(ctx, "leveldb:///tmp/x", conf)
	disabled, ok := errors.Cause(err).(*DisabledEngineError)
	if assert.True(t, ok) {
		assert.Equal(t, "leveldb", disabled.Engine)
	}
	assert.Contains(t, err.Error(), "not enabled in this build")
}
