package keys

import (
	"github.com/pingcap-incubator/tinydb/kv/clock"
)

// NsPrefix bounds every row stored under namespace ns.
func NsPrefix(ns string) []byte {
	return appendName([]byte{rootByte, scopeByte}, ns)
}

func NsUserPrefix(ns string) []byte {
	return marker(NsPrefix(ns), "us")
}

func NsUser(ns, name string) []byte {
	return appendName(NsUserPrefix(ns), name)
}

func NsAccessPrefix(ns string) []byte {
	return marker(NsPrefix(ns), "ac")
}

func NsAccess(ns, name string) []byte {
	return appendName(NsAccessPrefix(ns), name)
}

func DatabaseDefPrefix(ns string) []byte {
	return marker(NsPrefix(ns), "db")
}

func DatabaseDef(ns, db string) []byte {
	return appendName(DatabaseDefPrefix(ns), db)
}

// DbPrefix bounds every row stored under database db, change feed included.
func DbPrefix(ns, db string) []byte {
	b := append(NsPrefix(ns), scopeByte)
	return appendName(b, db)
}

func dbMarker(ns, db, m string) []byte {
	return marker(DbPrefix(ns, db), m)
}

func FunctionPrefix(ns, db string) []byte { return dbMarker(ns, db, "fn") }

func Function(ns, db, name string) []byte { return appendName(FunctionPrefix(ns, db), name) }

func ParamPrefix(ns, db string) []byte { return dbMarker(ns, db, "pa") }

func Param(ns, db, name string) []byte { return appendName(ParamPrefix(ns, db), name) }

func TableDefPrefix(ns, db string) []byte { return dbMarker(ns, db, "tb") }

func TableDef(ns, db, tb string) []byte { return appendName(TableDefPrefix(ns, db), tb) }

func AnalyzerPrefix(ns, db string) []byte { return dbMarker(ns, db, "az") }

func Analyzer(ns, db, name string) []byte { return appendName(AnalyzerPrefix(ns, db), name) }

func DbUserPrefix(ns, db string) []byte { return dbMarker(ns, db, "us") }

func DbUser(ns, db, name string) []byte { return appendName(DbUserPrefix(ns, db), name) }

func DbAccessPrefix(ns, db string) []byte { return dbMarker(ns, db, "ac") }

func DbAccess(ns, db, name string) []byte { return appendName(DbAccessPrefix(ns, db), name) }

func SequencePrefix(ns, db string) []byte { return dbMarker(ns, db, "sq") }

func Sequence(ns, db, name string) []byte { return appendName(SequencePrefix(ns, db), name) }

// Versionstamp holds the last versionstamp handed out to the change feed of a database.
func Versionstamp(ns, db string) []byte { return dbMarker(ns, db, "vs") }

// TimestampPrefix bounds the timestamp to versionstamp mapping of a database, ordered by timestamp.
func TimestampPrefix(ns, db string) []byte { return dbMarker(ns, db, "ts") }

func Timestamp(ns, db string, ts clock.Timestamp) []byte {
	return appendUint64(TimestampPrefix(ns, db), uint64(ts))
}

// DecodeTimestamp extracts the timestamp from a key built by Timestamp.
func DecodeTimestamp(key []byte) (clock.Timestamp, error) {
	d := decoder{b: key}
	d.expect(rootByte)
	d.expect(scopeByte)
	d.name()
	d.expect(scopeByte)
	d.name()
	d.expectMarker("ts")
	v := d.uint64()
	return clock.Timestamp(v), d.finish(key)
}

// ChangePrefix bounds the change feed of a database. Entries of all its tables are ordered by versionstamp.
func ChangePrefix(ns, db string) []byte {
	return append(DbPrefix(ns, db), changeByte)
}

// ChangeAt is the first key of versionstamp vs in the change feed. Every entry older than vs sorts before it.
func ChangeAt(ns, db string, vs clock.Versionstamp) []byte {
	return append(ChangePrefix(ns, db), vs[:]...)
}

func Change(ns, db string, vs clock.Versionstamp, tb string) []byte {
	b := append(ChangeAt(ns, db, vs), scopeByte)
	return appendName(b, tb)
}

// DecodeChange extracts the versionstamp and table from a key built by Change.
func DecodeChange(key []byte) (clock.Versionstamp, string, error) {
	d := decoder{b: key}
	d.expect(rootByte)
	d.expect(scopeByte)
	d.name()
	d.expect(scopeByte)
	d.name()
	d.expect(changeByte)
	var vs clock.Versionstamp
	copy(vs[:], d.raw(clock.VersionstampSize))
	d.expect(scopeByte)
	tb := d.name()
	return vs, tb, d.finish(key)
}
