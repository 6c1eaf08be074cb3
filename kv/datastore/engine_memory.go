//go:build !notinydb_memory

package datastore

import (
	_ "github.com/pingcap-incubator/tinydb/kv/storage/mem_storage"
)
