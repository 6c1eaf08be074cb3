package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	assert.Nil(t, NewDefaultConfig().Validate())
	assert.Nil(t, NewTestConfig().Validate())
}

func TestValidateRejects(t *testing.T) {
	c := NewDefaultConfig()
	c.Path = ""
	assert.NotNil(t, c.Validate())

	c = NewDefaultConfig()
	c.NotificationCapacity = 0
	assert.NotNil(t, c.Validate())

	c = NewDefaultConfig()
	c.IndexBuildRate = -1
	assert.NotNil(t, c.Validate())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tinydb.toml")
	data := `
Path = "badger:///tmp/data"
NodeID = "9f8b1c1e-7d1f-4c9a-9a2e-0d6f0c0c5d11"
Strict = true
NodeMembershipExpiry = "45s"

IndexBuildRate = 2.5

[Badger]
SyncWrites = false
`
	require.Nil(t, os.WriteFile(path, []byte(data), 0644))

	c, err := LoadFile(path)
	require.Nil(t, err)
	assert.Equal(t, "badger:///tmp/data", c.Path)
	assert.True(t, c.Strict)
	assert.Equal(t, 45*time.Second, c.NodeMembershipExpiry.Duration)
	assert.False(t, c.Badger.SyncWrites)
	assert.Equal(t, 2.5, c.IndexBuildRate)
	// untouched fields keep defaults
	assert.Equal(t, 100, c.NotificationCapacity)
	assert.True(t, c.LevelDB.SyncWrites)
}

func TestEngineSectionsAreSeparate(t *testing.T) {
	c := NewDefaultConfig()
	c.Badger.SyncWrites = false
	assert.True(t, c.LevelDB.SyncWrites)
	assert.False(t, NewTestConfig().LevelDB.SyncWrites)
}
