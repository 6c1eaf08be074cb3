//go:build !notinydb_etcd

package datastore

import (
	_ "github.com/pingcap-incubator/tinydb/kv/storage/etcd_storage"
)
