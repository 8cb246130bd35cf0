package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Stripe    StripeConfig
	Geocoding GeocodingConfig
	Warehouse WarehouseConfig
	Checkout  CheckoutConfig
	Cron      CronConfig
	Flags     FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BRICKFIELD_APP_ENV" required:"true"`
	Port         string `envconfig:"BRICKFIELD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BRICKFIELD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRICKFIELD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BRICKFIELD_DB_DSN"`
	Driver string `envconfig:"BRICKFIELD_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BRICKFIELD_DB_HOST"`
	Port     int    `envconfig:"BRICKFIELD_DB_PORT" default:"5432"`
	User     string `envconfig:"BRICKFIELD_DB_USER"`
	Password string `envconfig:"BRICKFIELD_DB_PASSWORD"`
	Name     string `envconfig:"BRICKFIELD_DB_NAME"`
	SSLMode  string `envconfig:"BRICKFIELD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRICKFIELD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRICKFIELD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRICKFIELD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRICKFIELD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRICKFIELD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BRICKFIELD_REDIS_ADDR"`
	Password     string        `envconfig:"BRICKFIELD_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRICKFIELD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRICKFIELD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRICKFIELD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRICKFIELD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRICKFIELD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRICKFIELD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BRICKFIELD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BRICKFIELD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BRICKFIELD_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"BRICKFIELD_STRIPE_API_KEY"`
	Secret   string `envconfig:"BRICKFIELD_STRIPE_SECRET"`
	Env      string `envconfig:"BRICKFIELD_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"BRICKFIELD_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GeocodingConfig struct {
	APIKey string `envconfig:"BRICKFIELD_GEOCODING_API_KEY"`
}

// WarehouseConfig fixes the dispatch origin all delivery zones radiate from.
type WarehouseConfig struct {
	Lat float64 `envconfig:"BRICKFIELD_WAREHOUSE_LAT" required:"true"`
	Lng float64 `envconfig:"BRICKFIELD_WAREHOUSE_LNG" required:"true"`
}

type CheckoutConfig struct {
	// HoldingPeriod is the default reservation window; products may
	// override it per variant.
	HoldingPeriod      time.Duration `envconfig:"BRICKFIELD_CHECKOUT_HOLDING_PERIOD" default:"30m"`
	StockEventsChannel string        `envconfig:"BRICKFIELD_STOCK_EVENTS_CHANNEL" default:"stock.events"`
	WebhookEventTTL    time.Duration `envconfig:"BRICKFIELD_WEBHOOK_EVENT_TTL" default:"720h"`
	// PendingOrderTTL bounds how long an unpaid order may sit before the
	// sweeper cancels it and returns its stock.
	PendingOrderTTL time.Duration `envconfig:"BRICKFIELD_CHECKOUT_PENDING_ORDER_TTL" default:"24h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BRICKFIELD_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"BRICKFIELD_CRON_LOCK_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BRICKFIELD_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BRICKFIELD_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
