package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. WINISORTS_LOG_LEVEL
const EnvPrefix = "WINISORTS"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Model    ModelConfig    `mapstructure:"model"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ModelConfig holds the export bundle and inference runtime settings
type ModelConfig struct {
	ExportDir       string `mapstructure:"export_dir"`
	ModelFile       string `mapstructure:"model_file"`
	OnnxLibrary     string `mapstructure:"onnx_library"`
	SessionPoolSize int    `mapstructure:"session_pool_size"`
	IntraOpThreads  int    `mapstructure:"intra_op_threads"`
	InterOpThreads  int    `mapstructure:"inter_op_threads"`
	ParallelHeads   bool   `mapstructure:"parallel_heads"`
	Warmup          bool   `mapstructure:"warmup"`
}

// CacheConfig holds the classification result cache settings
type CacheConfig struct {
	LocalEnabled    bool          `mapstructure:"local_enabled"`
	LocalMaxEntries int64         `mapstructure:"local_max_entries"`
	TTL             time.Duration `mapstructure:"ttl"`
	Namespace       string        `mapstructure:"namespace"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL settings for the paper library
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxIdle  int    `mapstructure:"max_idle"`
	MaxOpen  int    `mapstructure:"max_open"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from defaults, an optional config.yaml and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by container platforms and the ONNX runtime
	bindings := map[string][]string{
		"server.port":        {"PORT", EnvPrefix + "_SERVER_PORT"},
		"model.export_dir":   {"EXPORT_DIR", EnvPrefix + "_MODEL_EXPORT_DIR"},
		"model.onnx_library": {"ONNXRUNTIME_SHARED_LIBRARY_PATH", EnvPrefix + "_MODEL_ONNX_LIBRARY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Model.ExportDir) == "" {
		return errors.New("model export directory is required")
	}
	if c.Model.SessionPoolSize <= 0 {
		return fmt.Errorf("invalid session pool size %d", c.Model.SessionPoolSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("model.export_dir", "winisorts_export")
	v.SetDefault("model.model_file", "model.onnx")
	v.SetDefault("model.onnx_library", "")
	v.SetDefault("model.session_pool_size", 1)
	v.SetDefault("model.intra_op_threads", 1)
	v.SetDefault("model.inter_op_threads", 1)
	v.SetDefault("model.parallel_heads", false)
	v.SetDefault("model.warmup", true)

	v.SetDefault("cache.local_enabled", true)
	v.SetDefault("cache.local_max_entries", 10000)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.namespace", "winisorts:classify")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "winisorts")
	v.SetDefault("database.password", "winisorts")
	v.SetDefault("database.dbname", "winisorts")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_open", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
