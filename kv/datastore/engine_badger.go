//go:build !notinydb_badger

package datastore

import (
	_ "github.com/pingcap-incubator/tinydb/kv/storage/badger_storage"
)
