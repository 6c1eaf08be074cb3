// Package redis_storage is a remote engine on redis.
//
// Connection target: "host:port[/db][?prefix=p]". Values are stored under "<p>v:<key>" and every key is a member of
// the sorted set "<p>k", which gives ordered range scans through ZRANGEBYLEX.
//
// Lock modes: optimistic only. A write transaction holds a dedicated connection, WATCHes every key it touches, buffers
// its writes and applies them with MULTI/EXEC at commit. EXEC is refused when a watched key changed, and commit then
// fails with ErrTxConflict. A pessimistic request runs optimistically. Reads are not snapshotted: a read transaction
// sees each committed write as soon as it happens, and range scans do not guard against keys inserted concurrently
// into the scanned range.
package redis_storage

import (
	"context"
	"strings"

	"github.com/pingcap/errors"
	"github.com/redis/go-redis/v9"

	"github.com/pingcap-incubator/tinydb/kv/config"
	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/util/engine_util"
	"github.com/pingcap-incubator/tinydb/log"
)

func init() {
	storage.Register("redis", func(ctx context.Context, target string, conf *config.Config) (storage.Storage, error) {
		poolSize := 0
		if conf != nil {
			poolSize = conf.Redis.PoolSize
		}
		return NewRedisStorage(ctx, target, poolSize)
	})
}

type RedisStorage struct {
	cli    *redis.Client
	prefix string
}

// ParseTarget extracts the key prefix from a target and returns redis client options for the rest.
func ParseTarget(target string) (*redis.Options, string, error) {
	prefix := ""
	if i := strings.Index(target, "?"); i >= 0 {
		var rest []string
		for _, kv := range strings.Split(target[i+1:], "&") {
			if strings.HasPrefix(kv, "prefix=") {
				prefix = strings.TrimPrefix(kv, "prefix=")
			} else if kv != "" {
				rest = append(rest, kv)
			}
		}
		target = target[:i]
		if len(rest) > 0 {
			target += "?" + strings.Join(rest, "&")
		}
	}
	opts, err := redis.ParseURL("redis://" + target)
	if err != nil {
		return nil, "", errors.WithStack(err)
	}
	return opts, prefix, nil
}

func NewRedisStorage(ctx context.Context, target string, poolSize int) (*RedisStorage, error) {
	opts, prefix, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		cli.Close()
		return nil, errors.WithStack(err)
	}
	log.Infof("redis storage connected to %s, prefix %q", opts.Addr, prefix)
	return NewRedisStorageWithClient(cli, prefix), nil
}

// NewRedisStorageWithClient uses an existing client, which the storage closes on Close.
func NewRedisStorageWithClient(cli *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{cli: cli, prefix: prefix}
}

func (s *RedisStorage) valueKey(key []byte) string {
	return s.prefix + "v:" + string(key)
}

func (s *RedisStorage) indexKey() string {
	return s.prefix + "k"
}

func (s *RedisStorage) Begin(ctx context.Context, write, _ bool) (storage.Txn, error) {
	txn := &redisTxn{s: s, write: write}
	if write {
		txn.conn = s.cli.Conn()
		txn.batch = engine_util.NewWriteBatch()
	}
	return txn, nil
}

func (s *RedisStorage) Close() error {
	return errors.WithStack(s.cli.Close())
}

type redisTxn struct {
	s     *RedisStorage
	write bool
	done  bool
	conn  *redis.Conn
	batch *engine_util.WriteBatch
}

func (t *redisTxn) Closed() bool    { return t.done }
func (t *redisTxn) Writeable() bool { return t.write }

// watch adds keys to the connection's WATCH set. Only write transactions watch.
func (t *redisTxn) watch(ctx context.Context, keys ...string) error {
	if t.conn == nil || len(keys) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(keys)+1)
	args = append(args, "watch")
	for _, k := range keys {
		args = append(args, k)
	}
	cmd := redis.NewStatusCmd(ctx, args...)
	_ = t.conn.Process(ctx, cmd)
	return errors.WithStack(cmd.Err())
}

func (t *redisTxn) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := storage.CheckOpen(t.done); err != nil {
		return nil, err
	}
	if t.batch != nil {
		if e, ok := t.batch.Get(key); ok {
			if e.Deleted {
				return nil, nil
			}
			return e.Value, nil
		}
	}
	vk := t.s.valueKey(key)
	var cmd *redis.StringCmd
	if t.conn != nil {
		if err := t.watch(ctx, vk); err != nil {
			return nil, err
		}
		cmd = t.conn.Get(ctx, vk)
	} else {
		cmd = t.s.cli.Get(ctx, vk)
	}
	val, err := cmd.Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, errors.WithStack(err)
}

func (t *redisTxn) Exists(ctx context.Context, key []byte) (bool, error) {
	val, err := t.Get(ctx, key)
	return val != nil, err
}

func (t *redisTxn) Set(ctx context.Context, key, val []byte) error {
	if err := t.checkWrite(ctx, key); err != nil {
		return err
	}
	t.batch.Set(append([]byte{}, key...), append([]byte{}, val...))
	return nil
}

func (t *redisTxn) Del(ctx context.Context, key []byte) error {
	if err := t.checkWrite(ctx, key); err != nil {
		return err
	}
	t.batch.Delete(append([]byte{}, key...))
	return nil
}

func (t *redisTxn) Put(ctx context.Context, key, val []byte) error {
	if err := t.checkWrite(ctx, key); err != nil {
		return err
	}
	return storage.PutIfAbsent(ctx, t, key, val)
}

func (t *redisTxn) Putc(ctx context.Context, key, val, chk []byte) error {
	if err := t.checkWrite(ctx, key); err != nil {
		return err
	}
	return storage.PutIfEqual(ctx, t, key, val, chk)
}

func (t *redisTxn) Delc(ctx context.Context, key, chk []byte) error {
	if err := t.checkWrite(ctx, key); err != nil {
		return err
	}
	return storage.DelIfEqual(ctx, t, key, chk)
}

// checkWrite validates a write and watches its key, so that a concurrent commit of the same key fails EXEC.
func (t *redisTxn) checkWrite(ctx context.Context, key []byte) error {
	if err := storage.CheckWritable(t.done, t.write); err != nil {
		return err
	}
	if len(key) == 0 {
		return errors.WithStack(storage.ErrTxKeyEmpty)
	}
	return t.watch(ctx, t.s.valueKey(key))
}

func (t *redisTxn) Scan(ctx context.Context, beg, end []byte, limit uint32) ([]storage.KV, error) {
	if err := storage.CheckOpen(t.done); err != nil {
		return nil, err
	}
	return engine_util.MergeScan(t.batch, beg, end, limit, func(beg, end []byte, limit uint32) ([]storage.KV, error) {
		return t.fetch(ctx, beg, end, limit)
	})
}

func (t *redisTxn) fetch(ctx context.Context, beg, end []byte, limit uint32) ([]storage.KV, error) {
	max := "+"
	if len(end) > 0 {
		max = "(" + string(end)
	}
	min := "-"
	if len(beg) > 0 {
		min = "[" + string(beg)
	}
	by := &redis.ZRangeBy{Min: min, Max: max, Count: int64(limit)}
	var members []string
	var err error
	if t.conn != nil {
		members, err = t.conn.ZRangeByLex(ctx, t.s.indexKey(), by).Result()
	} else {
		members, err = t.s.cli.ZRangeByLex(ctx, t.s.indexKey(), by).Result()
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	vks := make([]string, len(members))
	for i, m := range members {
		vks[i] = t.s.valueKey([]byte(m))
	}
	if err := t.watch(ctx, vks...); err != nil {
		return nil, err
	}
	var vals []interface{}
	if t.conn != nil {
		vals, err = t.conn.MGet(ctx, vks...).Result()
	} else {
		vals, err = t.s.cli.MGet(ctx, vks...).Result()
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	out := make([]storage.KV, 0, len(members))
	for i, m := range members {
		v, ok := vals[i].(string)
		if !ok {
			// removed between the two reads
			continue
		}
		out = append(out, storage.KV{Key: []byte(m), Value: []byte(v)})
	}
	return out, nil
}

func (t *redisTxn) Commit(ctx context.Context) error {
	if err := storage.CheckOpen(t.done); err != nil {
		return err
	}
	t.done = true
	if !t.write {
		return errors.WithStack(storage.ErrTxReadonly)
	}
	defer t.closeConn()
	if t.batch.Len() == 0 {
		return t.unwatch(ctx)
	}
	_, err := t.conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		t.batch.Range(nil, nil, func(e *engine_util.Entry) bool {
			vk := t.s.valueKey(e.Key)
			if e.Deleted {
				pipe.Del(ctx, vk)
				pipe.ZRem(ctx, t.s.indexKey(), string(e.Key))
			} else {
				pipe.Set(ctx, vk, e.Value, 0)
				pipe.ZAdd(ctx, t.s.indexKey(), redis.Z{Score: 0, Member: string(e.Key)})
			}
			return true
		})
		return nil
	})
	if err == redis.TxFailedErr {
		return errors.WithStack(storage.ErrTxConflict)
	}
	return errors.WithStack(err)
}

func (t *redisTxn) Cancel(ctx context.Context) error {
	if err := storage.CheckOpen(t.done); err != nil {
		return err
	}
	t.done = true
	if t.write {
		defer t.closeConn()
		return t.unwatch(ctx)
	}
	return nil
}

func (t *redisTxn) unwatch(ctx context.Context) error {
	cmd := redis.NewStatusCmd(ctx, "unwatch")
	_ = t.conn.Process(ctx, cmd)
	return errors.WithStack(cmd.Err())
}

func (t *redisTxn) closeConn() {
	if err := t.conn.Close(); err != nil {
		log.Warnf("redis storage: close connection: %v", err)
	}
	t.batch = nil
}
