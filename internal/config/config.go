package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Input       InputConfig       `mapstructure:"input"`
	Output      OutputConfig      `mapstructure:"output"`
	Verify      VerifyConfig      `mapstructure:"verify"`
	SMTP        SMTPConfig        `mapstructure:"smtp"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Log         LogConfig         `mapstructure:"log"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type InputConfig struct {
	Path string `mapstructure:"path"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

type VerifyConfig struct {
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	TLSTimeout  time.Duration `mapstructure:"tls_timeout"`
	Workers     int           `mapstructure:"workers"`
	RateLimit   float64       `mapstructure:"rate_limit"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	From     string `mapstructure:"from"`
	Password string `mapstructure:"password"`
	To       string `mapstructure:"to"`
}

// Recipients splits the comma separated To list.
func (c SMTPConfig) Recipients() []string {
	var out []string
	for _, r := range strings.Split(c.To, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

type CredentialsConfig struct {
	CacheFile string `mapstructure:"cache_file"`
	KeyFile   string `mapstructure:"key_file"`
}

type LogConfig struct {
	Dir       string        `mapstructure:"dir"`
	Level     string        `mapstructure:"level"`
	Retention time.Duration `mapstructure:"retention"`
}

type ServerConfig struct {
	Port      string `mapstructure:"port"`
	Mode      string `mapstructure:"mode"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

type MetricsConfig struct {
	RemoteWriteURL string        `mapstructure:"remote_write_url"`
	AuthToken      string        `mapstructure:"auth_token"`
	TenantHeader   string        `mapstructure:"tenant_header"`
	Tenant         string        `mapstructure:"tenant"`
	Job            string        `mapstructure:"job"`
	BatchSize      int           `mapstructure:"batch_size"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

var defaults = map[string]any{
	"input.path":               "data/domains.csv",
	"output.dir":               "relatorios_ssl",
	"verify.http_timeout":      "3s",
	"verify.tls_timeout":       "5s",
	"verify.workers":           1,
	"verify.rate_limit":        0,
	"smtp.host":                "smtp.gmail.com",
	"smtp.port":                587,
	"smtp.from":                "",
	"smtp.password":            "",
	"smtp.to":                  "",
	"credentials.cache_file":   ".credentials_cache",
	"credentials.key_file":     ".credentials_key",
	"log.dir":                  "logs",
	"log.level":                "info",
	"log.retention":            "720h",
	"server.port":              "8080",
	"server.mode":              "release",
	"server.jwt_secret":        "",
	"database.url":             "",
	"database.max_connections": 25,
	"database.max_idle_conns":  5,
	"redis.url":                "",
	"redis.ttl":                "168h",
	"metrics.remote_write_url": "",
	"metrics.auth_token":       "",
	"metrics.tenant_header":    "X-Scope-OrgID",
	"metrics.tenant":           "",
	"metrics.job":              "sslverify",
	"metrics.batch_size":       1000,
	"metrics.timeout":          "10s",
}

// Load reads an optional .env file, then config.yaml from the working
// directory or ./config (or the explicit path), then SSLVERIFY_* variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("SSLVERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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

func (c *Config) Validate() error {
	var errs []error
	if c.Verify.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("verify.http_timeout must be positive, got %s", c.Verify.HTTPTimeout))
	}
	if c.Verify.TLSTimeout <= 0 {
		errs = append(errs, fmt.Errorf("verify.tls_timeout must be positive, got %s", c.Verify.TLSTimeout))
	}
	if c.Verify.Workers <= 0 {
		errs = append(errs, fmt.Errorf("verify.workers must be positive, got %d", c.Verify.Workers))
	}
	if c.Verify.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("verify.rate_limit must not be negative, got %v", c.Verify.RateLimit))
	}
	if c.SMTP.Port <= 0 {
		errs = append(errs, fmt.Errorf("smtp.port must be positive, got %d", c.SMTP.Port))
	}
	return errors.Join(errs...)
}
