package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Checkout      CheckoutConfig
	Captcha       CaptchaConfig
	GuestCart     GuestCartConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"FRESHMART_APP_ENV" required:"true"`
	Port         string `envconfig:"FRESHMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FRESHMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FRESHMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FRESHMART_DB_DSN"`
	Driver string `envconfig:"FRESHMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FRESHMART_DB_HOST"`
	LegacyPort     int    `envconfig:"FRESHMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FRESHMART_DB_USER"`
	LegacyPassword string `envconfig:"FRESHMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"FRESHMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"FRESHMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FRESHMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FRESHMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FRESHMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FRESHMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FRESHMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FRESHMART_REDIS_ADDR"`
	Password     string        `envconfig:"FRESHMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"FRESHMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FRESHMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FRESHMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FRESHMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FRESHMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FRESHMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FRESHMART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FRESHMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"FRESHMART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"FRESHMART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FRESHMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FRESHMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FRESHMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FRESHMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FRESHMART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"FRESHMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"FRESHMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"FRESHMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"FRESHMART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"FRESHMART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"FRESHMART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CheckoutConfig struct {
	FlatShippingFee       string `envconfig:"FRESHMART_CHECKOUT_FLAT_SHIPPING_FEE" default:"5.00"`
	FreeShippingThreshold string `envconfig:"FRESHMART_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"25.00"`
}

// ShippingFee parses the configured flat fee.
func (c CheckoutConfig) ShippingFee() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(c.FlatShippingFee)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid flat shipping fee %q: %w", c.FlatShippingFee, err)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("flat shipping fee cannot be negative")
	}
	return fee, nil
}

// Threshold parses the configured free-shipping threshold.
func (c CheckoutConfig) Threshold() (decimal.Decimal, error) {
	threshold, err := decimal.NewFromString(c.FreeShippingThreshold)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid free shipping threshold %q: %w", c.FreeShippingThreshold, err)
	}
	if threshold.IsNegative() {
		return decimal.Zero, fmt.Errorf("free shipping threshold cannot be negative")
	}
	return threshold, nil
}

type CaptchaConfig struct {
	TTL           time.Duration `envconfig:"FRESHMART_CAPTCHA_TTL" default:"5m"`
	ChallengeLen  int           `envconfig:"FRESHMART_CAPTCHA_CHALLENGE_LEN" default:"6"`
	RequiredOnReg bool          `envconfig:"FRESHMART_CAPTCHA_REQUIRED_ON_REGISTER" default:"true"`
}

type GuestCartConfig struct {
	TTL time.Duration `envconfig:"FRESHMART_GUEST_CART_TTL" default:"168h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FRESHMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FRESHMART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
