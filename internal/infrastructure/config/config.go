package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Ledger    LedgerConfig
	Bonus     BonusConfig
	Currency  CurrencyConfig
	Scheduler SchedulerConfig
	Tasks     TasksConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// LedgerConfig bounds the atomic write unit and governs how schedule
// recomputation failures are handled
type LedgerConfig struct {
	// WriteTimeout caps one atomic multi-statement write. Sale creation
	// performs a dozen sequential statements, so this sits well above a
	// single-query budget.
	WriteTimeout time.Duration
	// FailOnRecomputeError surfaces recompute failures instead of
	// swallowing them. Off by default; the reconciliation pass heals
	// silent drift either way.
	FailOnRecomputeError bool
}

// BonusConfig holds bonus calculation settings
type BonusConfig struct {
	// Delay is the grace period between a sale committing and the bonus
	// calculation reading its giveaway associations. Skipped when the
	// sale carries the associations in its own payload.
	Delay time.Duration
}

// CurrencyConfig holds exchange rate settings. Rates are source currency
// units per settlement unit.
type CurrencyConfig struct {
	GlobalRate  float64
	BranchRates map[string]float64
}

// SchedulerConfig holds the reconciliation pass configuration
type SchedulerConfig struct {
	ReconcileEnabled  bool
	ReconcileInterval time.Duration
	ReconcileBatch    int
}

// TasksConfig holds the external task collaborator settings
type TasksConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with POS_ prefix (e.g., POS_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Ledger: LedgerConfig{
			WriteTimeout:         v.GetDuration("ledger.write_timeout"),
			FailOnRecomputeError: v.GetBool("ledger.fail_on_recompute_error"),
		},
		Bonus: BonusConfig{
			Delay: v.GetDuration("bonus.delay"),
		},
		Currency: CurrencyConfig{
			GlobalRate:  v.GetFloat64("currency.global_rate"),
			BranchRates: toRateMap(v.GetStringMapString("currency.branch_rates")),
		},
		Scheduler: SchedulerConfig{
			ReconcileEnabled:  v.GetBool("scheduler.reconcile_enabled"),
			ReconcileInterval: v.GetDuration("scheduler.reconcile_interval"),
			ReconcileBatch:    v.GetInt("scheduler.reconcile_batch"),
		},
		Tasks: TasksConfig{
			Endpoint: v.GetString("tasks.endpoint"),
			Timeout:  v.GetDuration("tasks.timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// toRateMap parses branch rate strings into floats, skipping bad entries
func toRateMap(raw map[string]string) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	rates := make(map[string]float64, len(raw))
	for branch, value := range raw {
		var rate float64
		if _, err := fmt.Sscanf(value, "%f", &rate); err == nil && rate > 0 {
			rates[branch] = rate
		}
	}
	return rates
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "pos-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "pos"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Ledger.WriteTimeout == 0 {
		cfg.Ledger.WriteTimeout = 15 * time.Second
	}
	if cfg.Bonus.Delay == 0 {
		cfg.Bonus.Delay = 30 * time.Second
	}
	if cfg.Currency.GlobalRate == 0 {
		cfg.Currency.GlobalRate = 1
	}
	if cfg.Scheduler.ReconcileInterval == 0 {
		cfg.Scheduler.ReconcileInterval = 10 * time.Minute
	}
	if cfg.Scheduler.ReconcileBatch == 0 {
		cfg.Scheduler.ReconcileBatch = 50
	}
	if cfg.Tasks.Timeout == 0 {
		cfg.Tasks.Timeout = 10 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Currency.GlobalRate <= 0 {
		return fmt.Errorf("currency.global_rate must be positive")
	}
	for branch, rate := range c.Currency.BranchRates {
		if rate <= 0 {
			return fmt.Errorf("currency.branch_rates[%s] must be positive", branch)
		}
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
