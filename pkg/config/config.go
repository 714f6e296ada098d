package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Reconcile    ReconcileConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	Env          string `envconfig:"COMMONROOM_APP_ENV" required:"true"`
	Port         string `envconfig:"COMMONROOM_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COMMONROOM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COMMONROOM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"COMMONROOM_DB_DSN"`
	Driver string `envconfig:"COMMONROOM_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"COMMONROOM_DB_HOST"`
	Port     int    `envconfig:"COMMONROOM_DB_PORT" default:"5432"`
	User     string `envconfig:"COMMONROOM_DB_USER"`
	Password string `envconfig:"COMMONROOM_DB_PASSWORD"`
	Name     string `envconfig:"COMMONROOM_DB_NAME"`
	SSLMode  string `envconfig:"COMMONROOM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COMMONROOM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COMMONROOM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COMMONROOM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COMMONROOM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COMMONROOM_REDIS_URL" required:"true"`
	Password     string        `envconfig:"COMMONROOM_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMMONROOM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COMMONROOM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COMMONROOM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COMMONROOM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMMONROOM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMMONROOM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COMMONROOM_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COMMONROOM_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COMMONROOM_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COMMONROOM_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COMMONROOM_AUTO_MIGRATE" default:"false"`
}

// ReconcileConfig drives the counter reconcile worker cadence and locking.
type ReconcileConfig struct {
	Interval time.Duration `envconfig:"COMMONROOM_RECONCILE_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"COMMONROOM_RECONCILE_LOCK_TTL" default:"55m"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"COMMONROOM_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	MembershipTopic string `envconfig:"COMMONROOM_PUBSUB_MEMBERSHIP_TOPIC" default:"cr-membership-events"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	discrete := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if discrete[env] == "" {
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
