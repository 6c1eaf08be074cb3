package etcd_storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/storage/storagetest"
)

// endpointsEnv names a running etcd cluster for the engine suite, e.g. "127.0.0.1:2379".
const endpointsEnv = "TINYDB_ETCD_ENDPOINTS"

func TestParseTarget(t *testing.T) {
	endpoints, ns := ParseTarget("127.0.0.1:2379,127.0.0.1:22379/tinydb/")
	assert.Equal(t, []string{"127.0.0.1:2379", "127.0.0.1:22379"}, endpoints)
	assert.Equal(t, "tinydb/", ns)

	endpoints, ns = ParseTarget("localhost:2379")
	assert.Equal(t, []string{"localhost:2379"}, endpoints)
	assert.Equal(t, "", ns)
}

func TestKeyLayout(t *testing.T) {
	s := &EtcdStorage{namespace: "ns/"}
	assert.Equal(t, "ns/d/abc", s.dataKey([]byte("abc")))
	assert.Equal(t, []byte("abc"), s.userKey([]byte("ns/d/abc")))
	assert.Equal(t, "ns/d0", s.dataEnd(nil))
	assert.Equal(t, "ns/l/616263", s.lockKey([]byte("abc")))
}

func TestEtcdStorageSuite(t *testing.T) {
	endpoints := os.Getenv(endpointsEnv)
	if endpoints == "" {
		t.Skipf("%s is not set", endpointsEnv)
	}
	storagetest.RunSuite(t, storagetest.Traits{Snapshot: true, Pessimistic: true}, func(t *testing.T) storage.Storage {
		target := fmt.Sprintf("%s/test-%s/", endpoints, uuid.NewString())
		s, err := NewEtcdStorage(target, 5*time.Second)
		require.Nil(t, err)
		t.Cleanup(func() {
			s2, err := NewEtcdStorage(target, 5*time.Second)
			if err == nil {
				_, ns := ParseTarget(target)
				_, _ = s2.cli.Delete(context.Background(), ns, clientv3.WithPrefix())
				_ = s2.Close()
			}
		})
		return s
	})
}
