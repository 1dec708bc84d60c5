package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name searched for when no path is given.
	ConfigFileName = "fetchkit"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "FETCHKIT"

	DefaultAddr       = ":8080"
	DefaultBaseURL    = "http://localhost:8080/api"
	DefaultTimeout    = 10 * time.Second
	DefaultRetryMax   = 3
	DefaultInterval   = 5 * time.Second
	DefaultLimit      = 10
	DefaultRateLimit  = 120
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultS3Region   = "us-east-1"
	DefaultS3StatsKey = "stats.json"
)

// ErrInvalid is wrapped by validation failures.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete CLI configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Client     ClientConfig     `mapstructure:"client" yaml:"client"`
	Polling    PollingConfig    `mapstructure:"polling" yaml:"polling"`
	Pagination PaginationConfig `mapstructure:"pagination" yaml:"pagination"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	S3         S3Config         `mapstructure:"s3" yaml:"s3"`
}

// ServerConfig configures the admin API server.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" validate:"required,hostname_port"`

	// RateLimitPerMinute is the per-client request budget. 0 disables limiting.
	RateLimitPerMinute int `mapstructure:"rateLimitPerMinute" yaml:"rateLimitPerMinute" validate:"gte=0"`

	// AllowedOrigins are the origins allowed to open the state stream.
	AllowedOrigins []string `mapstructure:"allowedOrigins" yaml:"allowedOrigins,omitempty"`
}

// ClientConfig configures the HTTP source used by client commands.
type ClientConfig struct {
	BaseURL  string        `mapstructure:"baseUrl" yaml:"baseUrl" validate:"required,url"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	RetryMax int           `mapstructure:"retryMax" yaml:"retryMax" validate:"gte=0,lte=10"`
}

// PollingConfig configures polling resources.
type PollingConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"gt=0"`
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
}

// PaginationConfig configures paginated resources.
type PaginationConfig struct {
	Limit int `mapstructure:"limit" yaml:"limit" validate:"gte=1,lte=100"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// S3Config locates the stats report in S3. Bucket empty disables S3.
type S3Config struct {
	Bucket   string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Key      string `mapstructure:"key" yaml:"key,omitempty" validate:"required_with=Bucket"`
	Region   string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty" validate:"omitempty,url"`

	AccessKeyID     string `mapstructure:"accessKeyId" yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `mapstructure:"secretAccessKey" yaml:"secretAccessKey,omitempty" validate:"required_with=AccessKeyID"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               DefaultAddr,
			RateLimitPerMinute: DefaultRateLimit,
		},
		Client: ClientConfig{
			BaseURL:  DefaultBaseURL,
			Timeout:  DefaultTimeout,
			RetryMax: DefaultRetryMax,
		},
		Polling: PollingConfig{
			Interval: DefaultInterval,
			Enabled:  true,
		},
		Pagination: PaginationConfig{Limit: DefaultLimit},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		S3: S3Config{
			Region: DefaultS3Region,
			Key:    DefaultS3StatsKey,
		},
	}
}

// Load reads configuration from path, or from fetchkit.yaml in the working
// directory when path is empty. A missing file is only an error when path
// was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.rateLimitPerMinute", d.Server.RateLimitPerMinute)
	v.SetDefault("client.baseUrl", d.Client.BaseURL)
	v.SetDefault("client.timeout", d.Client.Timeout)
	v.SetDefault("client.retryMax", d.Client.RetryMax)
	v.SetDefault("polling.interval", d.Polling.Interval)
	v.SetDefault("polling.enabled", d.Polling.Enabled)
	v.SetDefault("pagination.limit", d.Pagination.Limit)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("s3.bucket", d.S3.Bucket)
	v.SetDefault("s3.key", d.S3.Key)
	v.SetDefault("s3.region", d.S3.Region)
	v.SetDefault("s3.endpoint", d.S3.Endpoint)
	v.SetDefault("s3.accessKeyId", d.S3.AccessKeyID)
	v.SetDefault("s3.secretAccessKey", d.S3.SecretAccessKey)
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fieldPath(fe.Namespace()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// fieldPath turns "Config.Client.BaseURL" into "client.baseurl".
func fieldPath(namespace string) string {
	namespace = strings.TrimPrefix(namespace, "Config.")
	return strings.ToLower(namespace)
}

// Save writes c to path as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// NewLogger builds the logger described by c, writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
