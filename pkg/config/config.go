package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	CheckoutStoreRedis = "redis"
	CheckoutStoreSQL   = "sql"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

type Config struct {
	App       AppConfig
	Redis     RedisConfig
	DB        DBConfig
	Checkout  CheckoutConfig
	Backend   BackendConfig
	Shipping  ShippingConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Checkout.UsesSQL() {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if _, err := cfg.Shipping.CourierEntries(); err != nil {
		return nil, err
	}
	if _, err := cfg.RateLimit.TrustedProxyNets(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SIXSTREET_APP_ENV" required:"true"`
	Port         string `envconfig:"SIXSTREET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SIXSTREET_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SIXSTREET_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SIXSTREET_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string      `envconfig:"SIXSTREET_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout    time.Duration `envconfig:"SIXSTREET_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"SIXSTREET_REDIS_URL"`
	Address      string        `envconfig:"SIXSTREET_REDIS_ADDR"`
	Password     string        `envconfig:"SIXSTREET_REDIS_PASSWORD"`
	DB           int           `envconfig:"SIXSTREET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SIXSTREET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SIXSTREET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SIXSTREET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SIXSTREET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SIXSTREET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// DBConfig is only consulted when the checkout session store is SQL backed.
type DBConfig struct {
	DSN    string `envconfig:"SIXSTREET_DB_DSN"`
	Driver string `envconfig:"SIXSTREET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SIXSTREET_DB_HOST"`
	LegacyPort     int    `envconfig:"SIXSTREET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SIXSTREET_DB_USER"`
	LegacyPassword string `envconfig:"SIXSTREET_DB_PASSWORD"`
	LegacyName     string `envconfig:"SIXSTREET_DB_NAME"`
	LegacySSLMode  string `envconfig:"SIXSTREET_DB_SSLMODE" default:"disable"`

	AutoMigrate     bool          `envconfig:"SIXSTREET_DB_AUTO_MIGRATE" default:"true"`
	MaxOpenConns    int           `envconfig:"SIXSTREET_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"SIXSTREET_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"SIXSTREET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SIXSTREET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type CheckoutConfig struct {
	Store              string        `envconfig:"SIXSTREET_CHECKOUT_STORE" default:"redis"`
	SessionTTL         time.Duration `envconfig:"SIXSTREET_CHECKOUT_SESSION_TTL" default:"720h"`
	CookieName         string        `envconfig:"SIXSTREET_CHECKOUT_COOKIE_NAME" default:"checkout_session"`
	CookieSecure       bool          `envconfig:"SIXSTREET_CHECKOUT_COOKIE_SECURE" default:"true"`
	CalculationTimeout time.Duration `envconfig:"SIXSTREET_CHECKOUT_CALCULATION_TIMEOUT" default:"20s"`
	NotificationLimit  int           `envconfig:"SIXSTREET_CHECKOUT_NOTIFICATION_LIMIT" default:"20"`
	PurgeInterval      time.Duration `envconfig:"SIXSTREET_CHECKOUT_PURGE_INTERVAL" default:"1h"`
}

// UsesSQL reports whether checkout sessions are persisted through gorm.
func (c CheckoutConfig) UsesSQL() bool {
	return strings.EqualFold(strings.TrimSpace(c.Store), CheckoutStoreSQL)
}

type BackendConfig struct {
	BaseURL string        `envconfig:"SIXSTREET_BACKEND_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"SIXSTREET_BACKEND_TIMEOUT" default:"10s"`
}

type ShippingConfig struct {
	BaseURL        string        `envconfig:"SIXSTREET_SHIPPING_BASE_URL"`
	APIKey         string        `envconfig:"SIXSTREET_SHIPPING_API_KEY"`
	OriginID       string        `envconfig:"SIXSTREET_SHIPPING_ORIGIN_ID" required:"true"`
	WeightGrams    int           `envconfig:"SIXSTREET_SHIPPING_WEIGHT_GRAMS" default:"1000"`
	Couriers       string        `envconfig:"SIXSTREET_SHIPPING_COURIERS" default:"jne:JNE,pos:POS Indonesia,tiki:TIKI"`
	Timeout        time.Duration `envconfig:"SIXSTREET_SHIPPING_TIMEOUT" default:"10s"`
	RegionCacheTTL time.Duration `envconfig:"SIXSTREET_SHIPPING_REGION_CACHE_TTL" default:"24h"`
}

// CourierEntry is one configured courier in registry order.
type CourierEntry struct {
	Code        string
	DisplayName string
}

// CourierEntries parses the "code:Display Name" list, preserving order.
func (s ShippingConfig) CourierEntries() ([]CourierEntry, error) {
	raw := strings.TrimSpace(s.Couriers)
	if raw == "" {
		return nil, fmt.Errorf("%s must list at least one courier", EnvShippingCouriers)
	}
	seen := map[string]struct{}{}
	entries := []CourierEntry{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, name, _ := strings.Cut(part, ":")
		code = strings.ToLower(strings.TrimSpace(code))
		name = strings.TrimSpace(name)
		if code == "" {
			return nil, fmt.Errorf("%s: empty courier code in %q", EnvShippingCouriers, part)
		}
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("%s: duplicate courier %q", EnvShippingCouriers, code)
		}
		seen[code] = struct{}{}
		if name == "" {
			name = strings.ToUpper(code)
		}
		entries = append(entries, CourierEntry{Code: code, DisplayName: name})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s must list at least one courier", EnvShippingCouriers)
	}
	return entries, nil
}

// ResolvedBaseURL falls back to the backend host, which proxies the rate provider.
func (s ShippingConfig) ResolvedBaseURL(backend BackendConfig) string {
	if trimmed := strings.TrimSpace(s.BaseURL); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(backend.BaseURL)
}

type RateLimitConfig struct {
	ShippingWindow       time.Duration `envconfig:"SIXSTREET_RATE_LIMIT_SHIPPING_WINDOW" default:"1m"`
	ShippingIPLimit      int           `envconfig:"SIXSTREET_RATE_LIMIT_SHIPPING_IP_LIMIT" default:"60"`
	ShippingSessionLimit int           `envconfig:"SIXSTREET_RATE_LIMIT_SHIPPING_SESSION_LIMIT" default:"10"`
	TrustedProxies       []string      `envconfig:"SIXSTREET_RATE_LIMIT_TRUSTED_PROXIES"`
}

// TrustedProxyNets parses TrustedProxies; bare IPs become single-host networks.
// Forwarding headers are honoured only from these peers.
func (r RateLimitConfig) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(r.TrustedProxies))
	for _, raw := range r.TrustedProxies {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, cidr, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		nets = append(nets, cidr)
	}
	return nets, nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, DBDriverSQLite) {
		db.DSN = "file:sixstreet.db?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
