// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (node identity, datalake, replication, message bus,
// distributed index, search, Postgres metadata store, Redis, logging).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	bcerrors "github.com/bookcluster/platform/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration shared by every
// cmd/ binary in the cluster.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Server    ServerConfig    `yaml:"server"`
	Datalake  DatalakeConfig  `yaml:"datalake"`
	Bus       BusConfig       `yaml:"bus"`
	IndexRing IndexRingConfig `yaml:"indexRing"`
	Search    SearchConfig    `yaml:"search"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// NodeConfig identifies this node within the cluster and lists its peers.
type NodeConfig struct {
	ID   string   `yaml:"id"`
	Addr string   `yaml:"addr"` // this node's RPC listen address, e.g. ":9300"
	Ring []string `yaml:"ring"` // ordered peer ring (replication endpoints), includes self
}

// ServerConfig holds HTTP server settings for the search/ingestion
// front doors.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DatalakeConfig controls the local content-addressed partition (C2) and
// the replication transport (C4).
type DatalakeConfig struct {
	RootDir             string        `yaml:"rootDir"`
	ReplicationFactor   int           `yaml:"replicationFactor"`
	ReplicaConnTimeout  time.Duration `yaml:"replicaConnTimeout"`
	ReplicaTotalTimeout time.Duration `yaml:"replicaTotalTimeout"`
}

// BusConfig controls the Kafka-backed message bus client (C5).
type BusConfig struct {
	Brokers               []string      `yaml:"brokers"`
	ConsumerGroup         string        `yaml:"consumerGroup"`
	Topics                BusTopics     `yaml:"topics"`
	ReconnectInitialDelay time.Duration `yaml:"reconnectInitialDelay"`
	ReconnectMaxDelay     time.Duration `yaml:"reconnectMaxDelay"`
	ReconnectCeiling      int           `yaml:"reconnectCeiling"`
}

// BusTopics maps the two logical queues from §4.5 to concrete topic names.
type BusTopics struct {
	IndexRequest string `yaml:"indexRequest"`
	DocIngested  string `yaml:"docIngested"`
}

// IndexRingConfig controls the distributed inverted index (C6): partition
// count, backup factor, and the RPC addresses of index-cluster nodes.
type IndexRingConfig struct {
	Partitions       int           `yaml:"partitions"`
	BackupCount      int           `yaml:"backupCount"`
	Nodes            []string      `yaml:"nodes"` // RPC addresses, ordered; index into this slice is the node's ring position
	SnapshotDir      string        `yaml:"snapshotDir"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// SearchConfig controls query execution limits (C8).
type SearchConfig struct {
	DefaultLimit int           `yaml:"defaultLimit"`
	MaxLimit     int           `yaml:"maxLimit"`
	CacheTTL     time.Duration `yaml:"cacheTTL"`
}

// PostgresConfig holds connection parameters for the external metadata
// store (bookId -> title/author/language/year).
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters, backing the C9 work queue
// and the C8 search result cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment
// variable overrides. It returns a Config populated with sensible defaults
// for any missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w: %w", path, err, bcerrors.ErrFatal)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w: %w", path, err, bcerrors.ErrFatal)
		}
	}
	applyEnvOverrides(cfg)
	if cfg.Node.ID == "" {
		return nil, fmt.Errorf("node.id is required: %w", bcerrors.ErrFatal)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			Addr: ":9300",
			Ring: []string{"localhost:9300"},
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Datalake: DatalakeConfig{
			RootDir:             "./data/datalake",
			ReplicationFactor:   1,
			ReplicaConnTimeout:  5 * time.Second,
			ReplicaTotalTimeout: 30 * time.Second,
		},
		Bus: BusConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "bookcluster-indexer",
			Topics: BusTopics{
				IndexRequest: "index.request",
				DocIngested:  "doc.ingested",
			},
			ReconnectInitialDelay: 1 * time.Second,
			ReconnectMaxDelay:     30 * time.Second,
			ReconnectCeiling:      10,
		},
		IndexRing: IndexRingConfig{
			Partitions:       271,
			BackupCount:      1,
			Nodes:            []string{"localhost:9300"},
			SnapshotDir:      "./data/index-snapshots",
			SnapshotInterval: 5 * time.Minute,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
			CacheTTL:     60 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "bookcluster",
			User:            "bookcluster",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads BC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BC_NODE_ID"); v != "" {
		cfg.Node.ID = v
	}
	if v := os.Getenv("BC_NODE_ADDR"); v != "" {
		cfg.Node.Addr = v
	}
	if v := os.Getenv("BC_NODE_RING"); v != "" {
		cfg.Node.Ring = strings.Split(v, ",")
	}
	if v := os.Getenv("BC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BC_DATALAKE_ROOT"); v != "" {
		cfg.Datalake.RootDir = v
	}
	if v := os.Getenv("BC_DATALAKE_REPLICATION_FACTOR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Datalake.ReplicationFactor = n
		}
	}
	if v := os.Getenv("BC_BUS_BROKERS"); v != "" {
		cfg.Bus.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("BC_INDEX_NODES"); v != "" {
		cfg.IndexRing.Nodes = strings.Split(v, ",")
	}
	if v := os.Getenv("BC_INDEX_PARTITIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IndexRing.Partitions = n
		}
	}
	if v := os.Getenv("BC_INDEX_BACKUP_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IndexRing.BackupCount = n
		}
	}
	if v := os.Getenv("BC_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("BC_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("BC_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("BC_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("BC_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("BC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("BC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
