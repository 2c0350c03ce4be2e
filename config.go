package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Supported storage drivers.
const (
	RedisDriver    = "redis"
	PostgresDriver = "postgres"
	BoltDriver     = "bolt"
	MongoDriver    = "mongo"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string         `yaml:"git_commit" envconfig:"BOOKS_GIT_COMMIT"`
	GitTag                  string         `yaml:"git_tag" envconfig:"BOOKS_GIT_TAG"`
	BuildTime               string         `yaml:"build_time" envconfig:"BOOKS_BUILD_TIME"`
	IsProduction            bool           `yaml:"is_production" envconfig:"BOOKS_IS_PRODUCTION"`
	LogLevel                zapcore.Level  `yaml:"log_level" envconfig:"BOOKS_LOG_LEVEL"`
	LogFolder               string         `yaml:"log_folder" envconfig:"BOOKS_LOG_FOLDER"`
	LogMaxSize              int            `yaml:"log_max_size" envconfig:"BOOKS_LOG_MAX_SIZE"` // in megabytes
	OpsEndpointsEnable      bool           `yaml:"ops_endpoints_enable" envconfig:"BOOKS_OPS_ENDPOINTS_ENABLE"`
	ProfilerEndpointsEnable bool           `yaml:"profiler_endpoints_enable" envconfig:"BOOKS_PROFILER_ENDPOINTS_ENABLE"`
	Server                  ServerConfig   `yaml:"server"`
	Storage                 StorageConfig  `yaml:"storage"`
	Redis                   RedisConfig    `yaml:"redis"`
	Postgres                PostgresConfig `yaml:"postgres"`
	Mongo                   MongoConfig    `yaml:"mongo"`
	BoltDB                  BoltDBConfig   `yaml:"boltdb"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"BOOKS_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"BOOKS_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"BOOKS_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"BOOKS_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"BOOKS_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"BOOKS_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig selects the primary book store. When Replicate is
// set, every mutation is also queued to redis and applied to boltdb.
type StorageConfig struct {
	Driver    string `yaml:"driver" envconfig:"BOOKS_STORAGE_DRIVER"`
	Replicate bool   `yaml:"replicate" envconfig:"BOOKS_STORAGE_REPLICATE"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BOOKS_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"BOOKS_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BOOKS_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BOOKS_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BOOKS_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BOOKS_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BOOKS_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"BOOKS_REDIS_USERNAME" json:"-"`
	Password      string        `yaml:"password" envconfig:"BOOKS_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BOOKS_REDIS_DATABASE_INDEX"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn" envconfig:"BOOKS_POSTGRES_DSN" json:"-"`
	MaxConns        int32         `yaml:"max_conns" envconfig:"BOOKS_POSTGRES_MAX_CONNS"`
	MinConns        int32         `yaml:"min_conns" envconfig:"BOOKS_POSTGRES_MIN_CONNS"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" envconfig:"BOOKS_POSTGRES_MAX_CONN_LIFETIME"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" envconfig:"BOOKS_POSTGRES_CONNECT_TIMEOUT"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri" envconfig:"BOOKS_MONGO_URI" json:"-"`
	Database       string        `yaml:"database" envconfig:"BOOKS_MONGO_DATABASE"`
	Collection     string        `yaml:"collection" envconfig:"BOOKS_MONGO_COLLECTION"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"BOOKS_MONGO_CONNECT_TIMEOUT"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BOOKS_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BOOKS_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"BOOKS_BOLTDB_BUCKET_NAME"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and overrides the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Port) == 0 {
		config.Server.Port = "8080"
	}

	if len(config.Server.Host) == 0 {
		return errors.New("make sure to set valid server address in configuration file")
	}

	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 30 * time.Second
	}

	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 100
	}

	if len(config.LogFolder) == 0 {
		config.LogFolder = "./logs"
	}

	if len(config.Storage.Driver) == 0 {
		config.Storage.Driver = RedisDriver
	}

	if len(config.BoltDB.BucketName) == 0 {
		config.BoltDB.BucketName = "books"
	}

	if len(config.Mongo.Database) == 0 {
		config.Mongo.Database = "books"
	}

	if len(config.Mongo.Collection) == 0 {
		config.Mongo.Collection = "books"
	}

	switch config.Storage.Driver {
	case RedisDriver:
	case PostgresDriver:
		if len(config.Postgres.DSN) == 0 {
			return errors.New("make sure to set a valid postgres dsn in configuration file")
		}
	case BoltDriver:
		if len(config.BoltDB.FilePath) == 0 {
			return errors.New("make sure to set a valid boltdb file path in configuration file")
		}
	case MongoDriver:
		if len(config.Mongo.URI) == 0 {
			return errors.New("make sure to set a valid mongodb uri in configuration file")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	if config.Storage.Replicate && config.Storage.Driver == BoltDriver {
		return errors.New("replication to boltdb cannot be enabled when boltdb is the primary storage")
	}

	if config.Storage.Replicate && len(config.BoltDB.FilePath) == 0 {
		return errors.New("replication requires a boltdb file path in configuration file")
	}

	if config.RedisRequired() && (len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0) {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}

	return nil
}

// RedisRequired tells if the redis server is needed either as
// primary storage or as the replication queue broker.
func (c *Config) RedisRequired() bool {
	return c.Storage.Driver == RedisDriver || c.Storage.Replicate
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The dotenv file is optional.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %w", err)
	}

	err = godotenv.Load("./config.env")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %w", err)
	}

	// Use environment variables with prefix `BOOKS`.
	err = LoadConfigEnvs("BOOKS", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %w", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %w", err)
	}
	return config, nil
}
