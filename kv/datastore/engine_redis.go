//go:build !notinydb_redis

package datastore

import (
	_ "github.com/pingcap-incubator/tinydb/kv/storage/redis_storage"
)
