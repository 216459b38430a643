package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Reminders  RemindersConfig  `mapstructure:"reminders"`
	Store      StoreConfig      `mapstructure:"store"`
	MySQL      DatabaseConfig   `mapstructure:"mysql"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Firebase   FirebaseConfig   `mapstructure:"firebase"`
	Push       PushConfig       `mapstructure:"push"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // json|console
}

type RemindersConfig struct {
	ReferenceZone  string `mapstructure:"reference_zone"`
	Concurrency    int    `mapstructure:"concurrency"`
	DeliveryPolicy string `mapstructure:"delivery_policy"` // any_attempt|require_success
	DryRun         bool   `mapstructure:"dry_run"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"` // mysql|firebase
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type ClickHouseConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	DatabaseConfig `mapstructure:",squash"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	LockKey     string        `mapstructure:"lock_key"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type FirebaseConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	DatabaseURL     string `mapstructure:"database_url"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type PushConfig struct {
	MaxAttempts int              `mapstructure:"max_attempts"`
	FCM         FCMConfig        `mapstructure:"fcm"`
	Providers   []ProviderConfig `mapstructure:"providers"`
}

type FCMConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	MaxBatch int           `mapstructure:"max_batch"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

// ProviderConfig is an HTTP push gateway.
type ProviderConfig struct {
	Name      string        `mapstructure:"name"`
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	Path      string        `mapstructure:"path"`
	APIKey    string        `mapstructure:"api_key"`
	TimeoutMs int           `mapstructure:"timeout_ms"`
	MaxBatch  int           `mapstructure:"max_batch"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies
// env overrides (REMINDERS_*, e.g. REMINDERS_MYSQL_DSN). SA_PATH and
// DATABASE_URL are honoured for the Firebase credentials and database.
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read %s: %w", path, err)
			}
		}
	}

	// env override (REMINDERS_*)
	v.SetEnvPrefix("REMINDERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("firebase.credentials_file", "REMINDERS_FIREBASE_CREDENTIALS_FILE", "SA_PATH")
	_ = v.BindEnv("firebase.database_url", "REMINDERS_FIREBASE_DATABASE_URL", "DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c Config) Validate() error {
	if _, err := time.LoadLocation(c.Reminders.ReferenceZone); err != nil {
		return fmt.Errorf("reminders.reference_zone: %w", err)
	}
	switch c.Store.Backend {
	case "mysql", "firebase":
	default:
		return fmt.Errorf("store.backend %q: want mysql or firebase", c.Store.Backend)
	}
	switch c.Reminders.DeliveryPolicy {
	case "", "any_attempt", "require_success":
	default:
		return fmt.Errorf("reminders.delivery_policy %q: want any_attempt or require_success", c.Reminders.DeliveryPolicy)
	}
	if !c.Push.FCM.Enabled && !c.anyHTTPProvider() {
		return errors.New("no push providers enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka enabled without brokers")
	}
	return nil
}

// NeedsFirebase reports whether a Firebase app must be initialised.
func (c Config) NeedsFirebase() bool {
	return c.Store.Backend == "firebase" || c.Push.FCM.Enabled
}

func (c Config) anyHTTPProvider() bool {
	for _, p := range c.Push.Providers {
		if p.Enabled && strings.TrimSpace(p.BaseURL) != "" {
			return true
		}
	}
	return false
}
