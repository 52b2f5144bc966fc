package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/memes"
	"github.com/sagarc03/memes/database"
	memeshttp "github.com/sagarc03/memes/http"
	"github.com/sagarc03/memes/objectstore"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for the meme service.
type Config struct {
	Server   ServerConfig         `mapstructure:"server"`
	Memes    MemesConfig          `mapstructure:"memes"`
	Service  ServiceConfig        `mapstructure:"service"`
	Database database.Config      `mapstructure:"database"`
	Storage  StorageConfig        `mapstructure:"storage"`
	CORS     memeshttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig            `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int   `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize int64 `mapstructure:"max_upload_size" validate:"min=0"`
	Compress      bool  `mapstructure:"compress"`
}

// MemesConfig holds the upload rules.
type MemesConfig struct {
	AllowedFileTypes []string `mapstructure:"allowed_file_types" validate:"required,min=1,dive,required"`
	// MaxFileSize is in MiB.
	MaxFileSize int64 `mapstructure:"max_file_size" validate:"min=1"`
	PageSize    int   `mapstructure:"page_size" validate:"min=1"`
}

// ServiceConfig holds service-level timeouts in seconds.
type ServiceConfig struct {
	StoreTimeout   int `mapstructure:"store_timeout" validate:"min=1"`
	CleanupTimeout int `mapstructure:"cleanup_timeout" validate:"min=1"`
}

// StorageConfig selects and configures the blob backend.
type StorageConfig struct {
	Type   string `mapstructure:"type" validate:"required,oneof=minio filesystem"`
	Bucket string `mapstructure:"bucket" validate:"required"`
	// URLExpiry is the presigned URL lifetime in seconds.
	URLExpiry  int              `mapstructure:"url_expiry" validate:"min=1,max=604800"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Filesystem FilesystemConfig `mapstructure:"filesystem"`
}

// MinIOConfig holds the S3 endpoint settings used when storage.type is minio.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Secure    bool   `mapstructure:"secure"`
	Region    string `mapstructure:"region"`
}

// FilesystemConfig holds the local store settings used when storage.type is
// filesystem. Presigned URLs point at BaseURL and are signed with the key pair.
type FilesystemConfig struct {
	Path      string `mapstructure:"path"`
	BaseURL   string `mapstructure:"base_url" validate:"omitempty,url"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json charm"`
}

// ServiceConfig converts the upload rules and timeouts for memes.NewMemeService.
func (c *Config) ServiceConfig() memes.ServiceConfig {
	return memes.ServiceConfig{
		Rules: memes.ValidationRules{
			AllowedContentTypes: c.Memes.AllowedFileTypes,
			MaxFileSize:         c.Memes.MaxFileSize << 20,
		},
		PageSize:       c.Memes.PageSize,
		StoreTimeout:   time.Duration(c.Service.StoreTimeout) * time.Second,
		CleanupTimeout: time.Duration(c.Service.CleanupTimeout) * time.Second,
	}
}

// Expiry returns the presigned URL lifetime.
func (s StorageConfig) Expiry() time.Duration {
	return time.Duration(s.URLExpiry) * time.Second
}

// ObjectStore returns the objectstore settings for the minio backend.
func (s StorageConfig) ObjectStore() objectstore.Config {
	return objectstore.Config{
		Endpoint:  s.MinIO.Endpoint,
		AccessKey: s.MinIO.AccessKey,
		SecretKey: s.MinIO.SecretKey,
		Region:    s.MinIO.Region,
		Secure:    s.MinIO.Secure,
		Bucket:    s.Bucket,
		URLExpiry: s.Expiry(),
	}
}

// validateStorage checks the fields the selected backend needs.
func validateStorage(s StorageConfig) error {
	var missing []string

	switch s.Type {
	case "minio":
		if s.MinIO.Endpoint == "" {
			missing = append(missing, "storage.minio.endpoint")
		}
		if s.MinIO.AccessKey == "" {
			missing = append(missing, "storage.minio.access_key")
		}
		if s.MinIO.SecretKey == "" {
			missing = append(missing, "storage.minio.secret_key")
		}
	case "filesystem":
		if s.Filesystem.Path == "" {
			missing = append(missing, "storage.filesystem.path")
		}
		if s.Filesystem.BaseURL == "" {
			missing = append(missing, "storage.filesystem.base_url")
		}
		if s.Filesystem.AccessKey == "" {
			missing = append(missing, "storage.filesystem.access_key")
		}
		if s.Filesystem.SecretKey == "" {
			missing = append(missing, "storage.filesystem.secret_key")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s storage requires %s", s.Type, strings.Join(missing, ", "))
	}
	return nil
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"port":         "server.port",
	"storage-type": "storage.type",
	"storage-path": "storage.filesystem.path",
	"bucket":       "storage.bucket",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit
	v.SetDefault("server.compress", false)

	v.SetDefault("memes.allowed_file_types", []string{"image/jpeg", "image/png"})
	v.SetDefault("memes.max_file_size", 5) // MiB
	v.SetDefault("memes.page_size", 10)

	v.SetDefault("service.store_timeout", 10)   // seconds
	v.SetDefault("service.cleanup_timeout", 30) // seconds

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "memes.db")
	v.SetDefault("database.tables.memes", "memes")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.type", "minio")
	v.SetDefault("storage.bucket", "memes-storage")
	v.SetDefault("storage.url_expiry", memes.MaxExpiresSeconds)
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.access_key", "minioadmin")
	v.SetDefault("storage.minio.secret_key", "minioadmin")
	v.SetDefault("storage.minio.secure", false)
	v.SetDefault("storage.minio.region", "us-east-1")
	v.SetDefault("storage.filesystem.path", "./data")
	v.SetDefault("storage.filesystem.base_url", "http://localhost:8000/blobs")
	v.SetDefault("storage.filesystem.access_key", "memes")
	v.SetDefault("storage.filesystem.secret_key", "")

	v.SetDefault("cors.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix("MEMES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := cfg.Database.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := validateStorage(cfg.Storage); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
