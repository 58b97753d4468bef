package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backend names accepted by storage.backend.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Storage    StorageConfig    `mapstructure:"storage"`
	S3         S3Config         `mapstructure:"s3"`
	Tracking   TrackingConfig   `mapstructure:"tracking"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Diet       DietConfig       `mapstructure:"diet"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Address            string  `mapstructure:"address"`
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type StorageConfig struct {
	Backend string      `mapstructure:"backend"`
	File    FileConfig  `mapstructure:"file"`
	SQL     SQLConfig   `mapstructure:"sql"`
	Mongo   MongoConfig `mapstructure:"mongo"`
}

type FileConfig struct {
	Dir        string `mapstructure:"dir"`
	SingleUser bool   `mapstructure:"single_user"`
}

type SQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MongoConfig struct {
	URI          string `mapstructure:"uri"`
	Name         string `mapstructure:"name"`
	Transactions bool   `mapstructure:"transactions"` // needs a replica set
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// EndpointURL returns Endpoint with a scheme. A bare host:port gets https
// when UseSSL is set and http otherwise.
func (c S3Config) EndpointURL() string {
	if c.Endpoint == "" || strings.Contains(c.Endpoint, "://") {
		return c.Endpoint
	}
	if c.UseSSL {
		return "https://" + c.Endpoint
	}
	return "http://" + c.Endpoint
}

// Enabled reports whether snapshot exports have somewhere to go.
func (c S3Config) Enabled() bool {
	return c.BucketName != ""
}

// TrackingConfig controls logical dates and duplicate suppression.
type TrackingConfig struct {
	Timezone             string        `mapstructure:"timezone"`
	RolloverHour         int           `mapstructure:"rollover_hour"`
	RolloverShift        time.Duration `mapstructure:"rollover_shift"`
	DedupeWindow         time.Duration `mapstructure:"dedupe_window"`
	MaxIdempotencyKeyLen int           `mapstructure:"max_idempotency_key_len"`
}

type ClassifierConfig struct {
	URL     string        `mapstructure:"url"` // empty disables remote classification
	Timeout time.Duration `mapstructure:"timeout"`
}

// DietConfig holds optional daily targets used in auto-generated notes. Zero means unset.
type DietConfig struct {
	CalorieTarget  float64 `mapstructure:"calorie_target"`
	ProteinTargetG float64 `mapstructure:"protein_target_g"`
	FiberTargetG   float64 `mapstructure:"fiber_target_g"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in path is loaded into the environment first when present.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load(path + "/.env") // optional

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// storage.file.dir -> STORAGE_FILE_DIR
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		err = nil // env vars and defaults are enough
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	return config, config.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.rate_limit_per_second", 10)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "1h")

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.file.dir", "./data")
	v.SetDefault("storage.file.single_user", false)
	v.SetDefault("storage.sql.dsn", "")
	v.SetDefault("storage.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("storage.mongo.name", "health_tracker")
	v.SetDefault("storage.mongo.transactions", false)

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)

	v.SetDefault("tracking.timezone", "America/Los_Angeles")
	v.SetDefault("tracking.rollover_hour", 5)
	v.SetDefault("tracking.rollover_shift", "6h")
	v.SetDefault("tracking.dedupe_window", "15s")
	v.SetDefault("tracking.max_idempotency_key_len", 128)

	v.SetDefault("classifier.url", "")
	v.SetDefault("classifier.timeout", "8s")

	v.SetDefault("diet.calorie_target", 0)
	v.SetDefault("diet.protein_target_g", 0)
	v.SetDefault("diet.fiber_target_g", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate rejects settings the services cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendPostgres, BackendSQLite, BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if (c.Storage.Backend == BackendPostgres || c.Storage.Backend == BackendSQLite) && c.Storage.SQL.DSN == "" {
		return fmt.Errorf("storage.sql.dsn is required for the %s backend", c.Storage.Backend)
	}
	if _, err := time.LoadLocation(c.Tracking.Timezone); err != nil {
		return fmt.Errorf("tracking.timezone: %w", err)
	}
	if c.Tracking.RolloverHour < 0 || c.Tracking.RolloverHour > 23 {
		return fmt.Errorf("tracking.rollover_hour must be 0-23, got %d", c.Tracking.RolloverHour)
	}
	if c.Tracking.DedupeWindow < 0 {
		return errors.New("tracking.dedupe_window must not be negative")
	}
	if c.Tracking.MaxIdempotencyKeyLen <= 0 {
		return errors.New("tracking.max_idempotency_key_len must be positive")
	}
	return nil
}
