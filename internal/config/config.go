// Package config loads the server configuration from defaults, an optional
// YAML file, THEATER_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/database"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/logging"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/messaging"
)

// EnvPrefix prefixes every environment variable, e.g. THEATER_DATABASE_URL.
const EnvPrefix = "THEATER"

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "theater.yaml"

// Token lifetimes outside this range are rejected.
const (
	MinTokenTTL = time.Hour
	MaxTokenTTL = 7 * 24 * time.Hour
)

const minSecretLen = 32

// Config is the resolved server configuration.
type Config struct {
	HTTP     HTTPConfig       `mapstructure:"http" yaml:"http"`
	Database database.Config  `mapstructure:"database" yaml:"database"`
	Auth     AuthConfig       `mapstructure:"auth" yaml:"auth"`
	Bookings BookingsConfig   `mapstructure:"bookings" yaml:"bookings"`
	Payments PaymentsConfig   `mapstructure:"payments" yaml:"payments"`
	Store    StoreConfig      `mapstructure:"store" yaml:"store"`
	RabbitMQ messaging.Config `mapstructure:"rabbitmq" yaml:"rabbitmq"`
	Outbox   OutboxConfig     `mapstructure:"outbox" yaml:"outbox"`
	Log      logging.Config   `mapstructure:"log" yaml:"log"`
}

// HTTPConfig holds listener timeouts and allowed CORS origins.
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// AuthConfig holds the token signing secret, lifetime and issuer.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
}

// BookingsConfig sets the seat hold window and the sweep batch size.
type BookingsConfig struct {
	HoldTTL    time.Duration `mapstructure:"hold_ttl" yaml:"hold_ttl"`
	SweepBatch int           `mapstructure:"sweep_batch" yaml:"sweep_batch"`
}

// PaymentsConfig configures the Stripe processor and charge verification.
type PaymentsConfig struct {
	StripeKey      string        `mapstructure:"stripe_key" yaml:"stripe_key"`
	Currency       string        `mapstructure:"currency" yaml:"currency"`
	VerifyCharges  bool          `mapstructure:"verify_charges" yaml:"verify_charges"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" yaml:"confirm_timeout"`
}

// StoreConfig bounds retries of transient store failures.
type StoreConfig struct {
	Retries int `mapstructure:"retries" yaml:"retries"`
}

// OutboxConfig paces the outbox relay.
type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size" yaml:"batch_size"`
}

var defaults = map[string]any{
	"http.addr":          ":5000",
	"http.read_timeout":  15 * time.Second,
	"http.write_timeout": 15 * time.Second,
	"http.idle_timeout":  60 * time.Second,
	"http.cors_origins":  []string{"*"},

	"database.url":             "",
	"database.host":            "localhost",
	"database.port":            "5432",
	"database.user":            "postgres",
	"database.password":        "postgres",
	"database.name":            "theater",
	"database.sslmode":         "disable",
	"database.max_conns":       20,
	"database.min_conns":       2,
	"database.connect_retries": 5,

	"auth.secret":    "",
	"auth.token_ttl": time.Hour,
	"auth.issuer":    "theater-seat-server",

	"bookings.hold_ttl":    15 * time.Minute,
	"bookings.sweep_batch": 100,

	"payments.stripe_key":      "",
	"payments.currency":        "usd",
	"payments.verify_charges":  true,
	"payments.confirm_timeout": 10 * time.Second,

	"store.retries": 3,

	"rabbitmq.url":              "",
	"rabbitmq.delayed_exchange": "theater.delayed",
	"rabbitmq.expiry_queue":     "theater.booking.expiry",
	"rabbitmq.events_exchange":  "theater.events",
	"rabbitmq.prefetch":         16,

	"outbox.poll_interval": 2 * time.Second,
	"outbox.batch_size":    50,

	"log.level":  "info",
	"log.format": "json",
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":         "http.addr",
	"database-url": "database.url",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file (default ./"+DefaultFile+" if present)")
	fs.String("addr", ":5000", "HTTP listen address")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "json", "log format (json or console)")
}

// Load resolves the configuration. path names a YAML file; when empty the
// default file is used if it exists. fs may be nil. Only flags that were
// set on the command line override other sources.
func Load(fs *pflag.FlagSet, path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readFile(v, path); err != nil {
		return nil, err
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
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

func readFile(v *viper.Viper, path string) error {
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Auth.Secret) < minSecretLen {
		errs = append(errs, fmt.Errorf("auth.secret must be at least %d bytes", minSecretLen))
	}
	if c.Auth.TokenTTL < MinTokenTTL || c.Auth.TokenTTL > MaxTokenTTL {
		errs = append(errs, fmt.Errorf("auth.token_ttl %s outside %s..%s", c.Auth.TokenTTL, MinTokenTTL, MaxTokenTTL))
	}
	if c.Bookings.HoldTTL <= 0 {
		errs = append(errs, errors.New("bookings.hold_ttl must be positive"))
	}
	if len(c.Payments.Currency) != 3 {
		errs = append(errs, fmt.Errorf("payments.currency %q must be a 3-letter code", c.Payments.Currency))
	}
	if c.Store.Retries < 1 {
		errs = append(errs, errors.New("store.retries must be at least 1"))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

const mask = "********"

// Redacted returns a copy with secrets masked, suitable for printing.
func (c Config) Redacted() Config {
	out := c
	out.HTTP.CORSOrigins = append([]string(nil), c.HTTP.CORSOrigins...)
	if out.Auth.Secret != "" {
		out.Auth.Secret = mask
	}
	if out.Payments.StripeKey != "" {
		out.Payments.StripeKey = mask
	}
	if out.Database.Password != "" {
		out.Database.Password = mask
	}
	out.Database.URL = redactURL(out.Database.URL)
	out.RabbitMQ.URL = redactURL(out.RabbitMQ.URL)
	return out
}

// redactURL masks the password of a URL with userinfo.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
