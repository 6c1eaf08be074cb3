package cache

import (
	"sync"
	"testing"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
)

func TestDefinitionCacheSetGetDel(t *testing.T) {
	c := NewDefinitionCache()
	tb := &catalog.Table{Name: "person"}
	c.Set([]byte("k"), tb)

	got, ok, err := Get[*catalog.Table](c, []byte("k"))
	require.Nil(t, err)
	require.True(t, ok)
	assert.Same(t, tb, got)

	c.Del([]byte("k"))
	_, ok, err = Get[*catalog.Table](c, []byte("k"))
	require.Nil(t, err)
	assert.False(t, ok)
}

func TestDefinitionCacheMismatch(t *testing.T) {
	c := NewDefinitionCache()
	c.Set([]byte("k"), &catalog.Namespace{Name: "test"})
	_, ok, err := Get[*catalog.Database](c, []byte("k"))
	assert.False(t, ok)
	assert.Equal(t, ErrEntryMismatch, errors.Cause(err))

	c.Set([]byte("all"), catalog.Fields{{Name: "a"}})
	fds, ok, err := Get[catalog.Fields](c, []byte("all"))
	require.Nil(t, err)
	require.True(t, ok)
	assert.Len(t, fds, 1)
}

func TestDefinitionCacheClearPrefix(t *testing.T) {
	c := NewDefinitionCache()
	c.Set([]byte("a/1"), &catalog.Param{Name: "1"})
	c.Set([]byte("a/2"), &catalog.Param{Name: "2"})
	c.Set([]byte("b/1"), &catalog.Param{Name: "3"})
	c.ClearPrefix([]byte("a/"))
	assert.Equal(t, 1, c.Len())
	_, ok := c.Lookup([]byte("b/1"))
	assert.True(t, ok)
}

func TestSharedEviction(t *testing.T) {
	s, err := NewShared(2)
	require.Nil(t, err)
	s.Set([]byte("a"), &catalog.Index{Name: "a"})
	s.Set([]byte("b"), &catalog.Index{Name: "b"})
	// touch a so b is the least recently used
	_, ok := s.Lookup([]byte("a"))
	require.True(t, ok)
	s.Set([]byte("c"), &catalog.Index{Name: "c"})
	_, ok = s.Lookup([]byte("b"))
	assert.False(t, ok)
	ix, ok, err := GetShared[*catalog.Index](s, []byte("a"))
	require.Nil(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", ix.Name)

	_, _, err = GetShared[*catalog.Table](s, []byte("a"))
	assert.NotNil(t, err)
}

func TestSharedConcurrentInvalidation(t *testing.T) {
	s, err := NewShared(1000)
	require.Nil(t, err)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := []byte{byte('a' + i), byte(j)}
				s.Set(key, &catalog.Param{Name: "p"})
				s.ClearPrefix(key[:1])
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, s.Len())

	s.Set([]byte("x"), &catalog.Param{Name: "x"})
	s.Clear()
	assert.Equal(t, 0, s.Len())
}
