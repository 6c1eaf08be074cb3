//go:build !notinydb_leveldb

package datastore

import (
	_ "github.com/pingcap-incubator/tinydb/kv/storage/leveldb_storage"
)
