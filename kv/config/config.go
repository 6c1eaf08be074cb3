package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/log"
)

type Config struct {
	// Connection string of the storage engine, e.g. "memory" or "badger:///var/lib/tinydb".
	Path     string
	NodeID   string
	LogLevel string

	// Strict mode turns catalog get-or-create helpers into hard not-found errors.
	Strict      bool
	AuthEnabled bool

	QueryTimeout       Duration
	TransactionTimeout Duration

	// Nodes whose heartbeat is older than this are archived.
	NodeMembershipExpiry Duration
	ChangefeedGCInterval Duration
	// How long a node owns a background task once it acquired its lease.
	TaskLeaseDuration Duration

	NotificationCapacity int
	SharedCacheSize      int
	// Record batches an index build writes per second, 0 for no limit.
	IndexBuildRate float64

	Badger  BadgerConfig
	LevelDB LevelDBConfig
	Etcd    EtcdConfig
	Redis   RedisConfig
}

type BadgerConfig struct {
	SyncWrites     bool
	NumCompactors  int
	ValueThreshold int
}

type LevelDBConfig struct {
	SyncWrites bool
}

type EtcdConfig struct {
	DialTimeout Duration
}

type RedisConfig struct {
	PoolSize int
}

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Trace(err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (c *Config) Validate() error {
	if len(c.Path) == 0 {
		return errors.New("datastore path must not be empty")
	}
	if c.NodeMembershipExpiry.Duration <= 0 {
		return errors.New("node membership expiry must be greater than 0")
	}
	if c.NotificationCapacity <= 0 {
		return errors.New("notification capacity must be greater than 0")
	}
	if c.SharedCacheSize <= 0 {
		return errors.New("shared cache size must be greater than 0")
	}
	if c.IndexBuildRate < 0 {
		return errors.New("index build rate must not be negative")
	}
	if c.TaskLeaseDuration.Duration < c.ChangefeedGCInterval.Duration {
		log.Warnf("task lease duration %v is shorter than changefeed gc interval %v, "+
			"the lease may move between nodes on every run", c.TaskLeaseDuration, c.ChangefeedGCInterval)
	}
	return nil
}

// LoadFile reads a TOML file over the default configuration.
func LoadFile(path string) (*Config, error) {
	c := NewDefaultConfig()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, errors.Annotatef(err, "load config %s", path)
	}
	return c, nil
}

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		Path:                 "memory",
		LogLevel:             getLogLevel(),
		NodeMembershipExpiry: Duration{30 * time.Second},
		ChangefeedGCInterval: Duration{10 * time.Second},
		TaskLeaseDuration:    Duration{30 * time.Second},
		NotificationCapacity: 100,
		SharedCacheSize:      1000,
		Badger: BadgerConfig{
			SyncWrites:     true,
			NumCompactors:  3,
			ValueThreshold: 32,
		},
		LevelDB: LevelDBConfig{SyncWrites: true},
		Etcd:    EtcdConfig{DialTimeout: Duration{5 * time.Second}},
		Redis:   RedisConfig{PoolSize: 16},
	}
}

func NewTestConfig() *Config {
	c := NewDefaultConfig()
	c.Badger.SyncWrites = false
	c.LevelDB.SyncWrites = false
	c.ChangefeedGCInterval = Duration{100 * time.Millisecond}
	c.TaskLeaseDuration = Duration{time.Second}
	c.SharedCacheSize = 64
	return c
}
