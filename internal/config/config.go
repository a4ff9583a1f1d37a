package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Transform TransformConfig `mapstructure:"transform"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Gallery   GalleryConfig   `mapstructure:"gallery"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Batch     BatchConfig     `mapstructure:"batch"`
}

type ServerConfig struct {
	Port        int        `mapstructure:"port"`
	Mode        string     `mapstructure:"mode"`
	MaxUploadMB int        `mapstructure:"max_upload_mb"`
	CORS        CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig selects the gallery record store. Enabled=false runs the
// service without persistence; the gallery then reads the results directory.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // local, s3, r2, s3compatible, minio
	BaseDir   string `mapstructure:"base_dir"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type TransformConfig struct {
	RequireDisplayName bool          `mapstructure:"require_display_name"`
	MinDisplayNameLen  int           `mapstructure:"min_display_name_len"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	FirstBackoffCap    time.Duration `mapstructure:"first_backoff_cap"`
	SecondBackoff      time.Duration `mapstructure:"second_backoff"`
	MaxSide            int           `mapstructure:"max_side"`
	ByteBudget         int           `mapstructure:"byte_budget"`
	Qualities          []int         `mapstructure:"qualities"`
}

type CacheConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

type GalleryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment knobs keep their conventional names
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("gemini.image_model", "GEMINI_IMAGE_MODEL")
	v.BindEnv("gemini.text_model", "GEMINI_TEXT_MODEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Gemini.ResolveEnvVars()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_upload_mb", 16)
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/gallery.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.bucket", "ghostbooth")
	v.SetDefault("gemini.base_url", DefaultGeminiBaseURL)
	v.SetDefault("gemini.image_model", "imagen-3.0-fast")
	v.SetDefault("gemini.text_model", "gemini-1.5-flash")
	v.SetDefault("gemini.timeout", 120*time.Second)
	v.SetDefault("transform.require_display_name", true)
	v.SetDefault("transform.min_display_name_len", 5)
	v.SetDefault("transform.max_attempts", 3)
	v.SetDefault("transform.first_backoff_cap", 300*time.Second)
	v.SetDefault("transform.second_backoff", 180*time.Second)
	v.SetDefault("transform.max_side", 1024)
	v.SetDefault("transform.byte_budget", 900*1024)
	v.SetDefault("transform.qualities", []int{80, 70, 60, 50})
	v.SetDefault("cache.max_entries", 1024)
	v.SetDefault("gallery.default_limit", 24)
	v.SetDefault("gallery.max_limit", 100)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("batch.workers", 2)
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database: unsupported driver %q", c.Database.Driver)
	}
	if c.Database.Enabled && c.Database.Driver == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("database: url is required for postgres")
	}
	if c.Transform.MaxAttempts < 1 {
		return fmt.Errorf("transform: max_attempts must be at least 1")
	}
	if c.Transform.MaxSide <= 0 || c.Transform.ByteBudget <= 0 {
		return fmt.Errorf("transform: max_side and byte_budget must be positive")
	}
	if len(c.Transform.Qualities) == 0 {
		return fmt.Errorf("transform: qualities must not be empty")
	}
	if c.Gallery.MaxLimit < c.Gallery.DefaultLimit {
		return fmt.Errorf("gallery: max_limit %d is below default_limit %d", c.Gallery.MaxLimit, c.Gallery.DefaultLimit)
	}
	return c.Gemini.Validate()
}
