package datastore

import (
	"context"
	"encoding/binary"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/keys"
	"github.com/pingcap-incubator/tinydb/kv/transaction"
	"github.com/pingcap-incubator/tinydb/log"
)

// Version is the storage format version of a datastore.
type Version uint16

const (
	// VersionV1 is assumed for volumes written before the version key existed.
	VersionV1 Version = 1
	VersionV2 Version = 2

	LatestVersion = VersionV2
)

var (
	ErrInvalidStorageVersion  = errors.New("the stored storage version is invalid")
	ErrOutdatedStorageVersion = errors.New("the storage version is outdated, the datastore must be migrated")
)

func (v Version) Bytes() []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return b
}

func VersionFromBytes(b []byte) (Version, error) {
	if len(b) != 2 {
		return 0, errors.Annotatef(ErrInvalidStorageVersion, "%d bytes", len(b))
	}
	return Version(binary.BigEndian.Uint16(b)), nil
}

func (v Version) IsLatest() bool {
	return v == LatestVersion
}

// GetVersion returns the storage version, recording it first when the volume has none. A volume holding nothing but
// the version key is new and gets the latest version, any other key means it predates versioning.
func (ds *Datastore) GetVersion(ctx context.Context) (Version, error) {
	var v Version
	err := ds.run(ctx, transaction.Write, transaction.Pessimistic, func(tx *transaction.Transaction) error {
		val, err := tx.Get(ctx, keys.Version())
		if err != nil {
			return err
		}
		if val != nil {
			v, err = VersionFromBytes(val)
			return err
		}
		kvs, err := tx.Scan(ctx, nil, nil, 2)
		if err != nil {
			return err
		}
		v = LatestVersion
		for _, kv := range kvs {
			if string(kv.Key) != string(keys.Version()) {
				v = VersionV1
				break
			}
		}
		log.Infof("recording storage version %d", v)
		return tx.Set(ctx, keys.Version(), v.Bytes())
	})
	if err != nil {
		return 0, err
	}
	return v, nil
}

// CheckVersion fails unless the storage version is the latest one. Older volumes must be migrated first.
func (ds *Datastore) CheckVersion(ctx context.Context) (Version, error) {
	v, err := ds.GetVersion(ctx)
	if err != nil {
		return v, err
	}
	if !v.IsLatest() {
		return v, errors.Annotatef(ErrOutdatedStorageVersion, "found version %d, latest is %d", v, LatestVersion)
	}
	return v, nil
}
