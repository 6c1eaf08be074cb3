package tinydb

/*
TinyDB is the storage core of an embeddable document database. It turns any ordered, transactional key/value engine
into a catalog of namespaces, databases, tables and records, with change feeds, cluster node membership and export.

Every engine is reached through the same transaction contract, and one is picked at runtime from a connection string:
`memory`, `badger://path`, `leveldb://path`, `etcd://host:port/prefix` or `redis://host:port/db`. Building the
`tinydb-ctl` binary gives a command line tool to check the storage version, bootstrap a node, export a database and
garbage collect change feeds.

The `tinydb` module is organized into the following packages:

* `kv/storage`: the engine contract and one package per engine.
* `kv/keys`: the layout of catalog, record, index and change feed keys.
* `kv/catalog`: definitions stored in the catalog and the statements recreating them.
* `kv/transaction`: transactions with batched range helpers, catalog accessors, records, change feeds and export.
* `kv/datastore`: the long lived handle opening transactions and running cluster tasks.
* `kv/tinydb-ctl`: the command line tool.
* `log`: leveled logging.
*/
