// Package config loads and validates harvester configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone lookups must not depend on the host zoneinfo

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Timezone string        `mapstructure:"timezone"`
	Crawler  CrawlerConfig `mapstructure:"crawler"`
	Output   OutputConfig  `mapstructure:"output"`
	Storage  StorageConfig `mapstructure:"storage"`
	PubSub   PubSubConfig  `mapstructure:"pubsub"`
	Loader   LoaderConfig  `mapstructure:"loader"`
	Logging  LoggingConfig `mapstructure:"logging"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
}

// CrawlerConfig governs the upstream endpoints and fetch pacing.
type CrawlerConfig struct {
	APIBaseURL     string        `mapstructure:"api_base_url"`
	SiteBaseURL    string        `mapstructure:"site_base_url"`
	Platform       string        `mapstructure:"platform"`
	WindowSize     int           `mapstructure:"window_size"`
	WindowDelay    time.Duration `mapstructure:"window_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgents     []string      `mapstructure:"user_agents"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// OutputConfig locates the local result document.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Filename string `mapstructure:"filename"`
}

// StorageConfig sets the bucket and key prefix for uploaded documents.
type StorageConfig struct {
	GCSBucket   string `mapstructure:"gcs_bucket"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// PubSubConfig holds metadata for object notifications.
type PubSubConfig struct {
	ProjectID        string `mapstructure:"project_id"`
	TopicName        string `mapstructure:"topic_name"`
	SubscriptionName string `mapstructure:"subscription_name"`
}

// LoaderConfig controls the listing database the loader writes to.
type LoaderConfig struct {
	Driver     string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"db_name"`
	TableName  string `mapstructure:"table_name"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
	MaxConns   int32  `mapstructure:"max_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig enables the Prometheus endpoint when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Loader drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// LoadDotEnv exports the variables in a dotenv file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timezone", "Asia/Seoul")
	v.SetDefault("crawler.api_base_url", "https://api.jumpit.co.kr")
	v.SetDefault("crawler.site_base_url", "https://www.jumpit.co.kr")
	v.SetDefault("crawler.platform", "jumpit")
	v.SetDefault("crawler.window_size", 100)
	v.SetDefault("crawler.window_delay", 1500*time.Millisecond)
	v.SetDefault("crawler.request_timeout", 15*time.Second)
	v.SetDefault("crawler.user_agents", []string{})
	v.SetDefault("crawler.rate_limit_rps", 0.0)
	v.SetDefault("crawler.rate_limit_burst", 1)
	v.SetDefault("output.dir", "jumpit_data")
	v.SetDefault("output.filename", "jumpit")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "jumpit")
	v.SetDefault("storage.content_type", "application/json")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("pubsub.subscription_name", "")
	v.SetDefault("loader.driver", DriverPostgres)
	v.SetDefault("loader.dsn", "")
	v.SetDefault("loader.port", 5432)
	v.SetDefault("loader.sslmode", "prefer")
	v.SetDefault("loader.sqlite_path", "jumpit.db")
	v.SetDefault("loader.max_conns", 4)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
	v.SetDefault("metrics.listen_addr", "")
}

// bindLegacyEnv accepts the unprefixed variable names the RDS loader was
// deployed with, after the HARVESTER_ ones.
func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range map[string]string{
		"loader.host":       "RDS_HOST",
		"loader.user":       "USER_NAME",
		"loader.password":   "PASSWORD",
		"loader.db_name":    "DB_NAME",
		"loader.table_name": "TABLE_NAME",
	} {
		prefixed := "HARVESTER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate enforces required values and reasonable limits for crawling.
// Loader settings are checked separately by ValidateLoader.
func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Crawler.APIBaseURL == "" {
		return errors.New("crawler.api_base_url is required")
	}
	if c.Crawler.SiteBaseURL == "" {
		return errors.New("crawler.site_base_url is required")
	}
	if c.Crawler.Platform == "" {
		return errors.New("crawler.platform is required")
	}
	if c.Crawler.WindowSize <= 0 {
		return fmt.Errorf("crawler.window_size must be > 0")
	}
	if c.Crawler.WindowDelay < 0 {
		return fmt.Errorf("crawler.window_delay must be >= 0")
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.Crawler.RateLimitRPS < 0 {
		return fmt.Errorf("crawler.rate_limit_rps must be >= 0")
	}
	if c.Output.Filename == "" || strings.ContainsAny(c.Output.Filename, `/\`) {
		return fmt.Errorf("output.filename must be a bare file name")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// ValidateLoader checks the settings the load command depends on.
func (c Config) ValidateLoader() error {
	l := c.Loader
	switch l.Driver {
	case DriverMemory:
		return nil
	case DriverSQLite:
		if l.SQLitePath == "" {
			return errors.New("loader.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if l.DSN == "" && (l.Host == "" || l.DBName == "") {
			return errors.New("loader.dsn or loader.host and loader.db_name are required for the postgres driver")
		}
	default:
		return fmt.Errorf("loader.driver %q is not supported", l.Driver)
	}
	if !validTableName.MatchString(l.TableName) {
		return fmt.Errorf("loader.table_name %q is invalid", l.TableName)
	}
	return nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	name := c.Timezone
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

// PostgresDSN returns loader.dsn, or a connection URL assembled from the
// individual connection fields.
func (l LoaderConfig) PostgresDSN() string {
	if l.DSN != "" {
		return l.DSN
	}
	port := l.Port
	if port <= 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(l.Host, strconv.Itoa(port)),
		Path:   "/" + l.DBName,
	}
	if l.User != "" {
		if l.Password != "" {
			u.User = url.UserPassword(l.User, l.Password)
		} else {
			u.User = url.User(l.User)
		}
	}
	if l.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {l.SSLMode}}.Encode()
	}
	return u.String()
}
