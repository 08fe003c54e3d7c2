package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type SecurityConfig struct {
	SessionTTL   time.Duration
	CookieName   string
	CookieSecure bool
	FlashSecret  string
	BcryptCost   int
}

// AuthConfig holds the verification policy knobs.
type AuthConfig struct {
	VerificationTTL       time.Duration
	ResendOnLogin         bool
	ReportAlreadyVerified bool
	ResendCooldown        time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type MailConfig struct {
	Transport string
	From      string
	BaseURL   string
	Stream    string
	SMTP      SMTPConfig
}

type JobsConfig struct {
	SessionSweepInterval time.Duration
	PurgeUnverifiedAfter time.Duration
}

type UploadsConfig struct {
	MaxBytes int64
}

type AppConfig struct {
	Environment    string
	HTTP           HTTPConfig
	Postgres       PostgresConfig
	Redis          RedisConfig
	Storage        StorageConfig
	Security       SecurityConfig
	Auth           AuthConfig
	Mail           MailConfig
	Jobs           JobsConfig
	Uploads        UploadsConfig
	AllowedOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// SecureCookies reports whether session and flash cookies carry the Secure flag.
func (c *AppConfig) SecureCookies() bool {
	return c.IsProduction() || c.Security.CookieSecure
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("BLOOGLE")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if c.IsProduction() && c.Security.FlashSecret == "" {
		return fmt.Errorf("security.flashsecret is required in production")
	}
	if c.Auth.VerificationTTL <= 0 {
		return fmt.Errorf("auth.verificationttl must be positive")
	}
	if c.Security.SessionTTL <= 0 {
		return fmt.Errorf("security.sessionttl must be positive")
	}
	switch c.Mail.Transport {
	case "queue", "smtp", "log":
	default:
		return fmt.Errorf("mail.transport %q is not one of queue, smtp, log", c.Mail.Transport)
	}
	return nil
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.TagName = "mapstructure"
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 4)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucket", "bloogle-images")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.sessionttl", "24h")
	v.SetDefault("security.cookiename", "bloogle_session")
	v.SetDefault("security.cookiesecure", false)
	v.SetDefault("security.flashsecret", "")
	v.SetDefault("security.bcryptcost", 10)

	v.SetDefault("auth.verificationttl", "24h")
	v.SetDefault("auth.resendonlogin", true)
	v.SetDefault("auth.reportalreadyverified", false)
	v.SetDefault("auth.resendcooldown", "5m")

	v.SetDefault("mail.transport", "queue")
	v.SetDefault("mail.from", "Team Bloogle <no-reply@bloogle.local>")
	v.SetDefault("mail.baseurl", "http://localhost:8080")
	v.SetDefault("mail.stream", "mail:outbound")
	v.SetDefault("mail.smtp.host", "127.0.0.1")
	v.SetDefault("mail.smtp.port", 587)
	v.SetDefault("mail.smtp.username", "")
	v.SetDefault("mail.smtp.password", "")

	v.SetDefault("jobs.sessionsweepinterval", "600s")
	v.SetDefault("jobs.purgeunverifiedafter", "0s")

	v.SetDefault("uploads.maxbytes", 5<<20)

	v.SetDefault("allowedorigins", []string{})
}
