package engine_util

import (
	"os"

	"github.com/Connor1996/badger"
	"github.com/pingcap/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/pingcap-incubator/tinydb/kv/config"
)

// CreateDB opens (creating if needed) a badger database in dir.
func CreateDB(dir string, conf *config.BadgerConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions
	opts.NumCompactors = conf.NumCompactors
	opts.ValueThreshold = conf.ValueThreshold
	opts.SyncWrites = conf.SyncWrites
	opts.Dir = dir
	opts.ValueDir = dir
	if err := os.MkdirAll(opts.Dir, os.ModePerm); err != nil {
		return nil, errors.WithStack(err)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return db, nil
}

// CreateLevelDB opens (creating if needed) a goleveldb database in dir.
func CreateLevelDB(dir string, sync bool) (*leveldb.DB, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, errors.WithStack(err)
	}
	db, err := leveldb.OpenFile(dir, &opt.Options{NoSync: !sync})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return db, nil
}
