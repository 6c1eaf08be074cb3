// Package transaction implements the unit of work every other part of the datastore uses.
//
// A Transaction wraps one storage.Txn opened by a Factory. On top of the raw key/value operations of the engine it
// adds range and prefix helpers which scan in batches, typed and cached access to the catalog, records, cluster nodes
// and live queries, change feed bookkeeping, and export.
//
// Engines never promise to return an unbounded number of rows from one Scan. The range helpers therefore ask for at
// most NormalFetchSize rows at a time and continue from the successor of the last key they saw, until a batch comes
// back empty or the caller's limit is reached. Every batch runs in the same engine transaction, so a range delete is
// as atomic as the transaction it belongs to.
//
// Catalog reads go through a DefinitionCache owned by the transaction. The cache does not invalidate itself: every
// Put or Del of a catalog object clears the object's key and the key of the collection it belongs to. Objects read
// through the GetAndCache helpers also land in the datastore's shared cache, which writers clear both when they write
// and again once they commit.
//
// A Transaction is not safe for concurrent use. Parallel work opens several transactions.
package transaction
