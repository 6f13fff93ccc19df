package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"3306"`
	DBUser     string `env:"DB_USER" envDefault:"workspaceuser"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"workspacepassword"`
	DBName     string `env:"DB_NAME" envDefault:"workspaces"`

	RedisHost          string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort          string `env:"REDIS_PORT" envDefault:"6379"`
	RedisEventsChannel string `env:"REDIS_EVENTS_CHANNEL" envDefault:"workspaces:events"`

	SessionSecret string `env:"SESSION_SECRET" envDefault:"default-secret-key-change-me"`
	GinMode       string `env:"GIN_MODE" envDefault:"debug"`
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@localhost"`

	AppOrigin     string `env:"APP_ORIGIN" envDefault:"http://localhost:8080"`
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en"`

	InviteTTL            time.Duration `env:"INVITE_TTL" envDefault:"720h"`
	InviteResendCooldown time.Duration `env:"INVITE_RESEND_COOLDOWN" envDefault:"0s"`
	InvitePurgeSchedule  string        `env:"INVITE_PURGE_SCHEDULE" envDefault:"@every 1h"`

	MailWorkers   int `env:"MAIL_WORKERS" envDefault:"2"`
	MailQueueSize int `env:"MAIL_QUEUE_SIZE" envDefault:"256"`

	WorkspacesEnabled bool `env:"FF_WORKSPACES_MODULE_ENABLED" envDefault:"true"`
	ServerInviteOnly  bool `env:"SERVER_INVITE_ONLY" envDefault:"false"`
}

// Load reads an optional .env file (path from ENV_FILE, default ".env") and then
// parses the process environment.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env parsing can't.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.MailWorkers < 1 {
		return fmt.Errorf("MAIL_WORKERS must be at least 1")
	}
	if c.InviteTTL < 0 || c.InviteResendCooldown < 0 {
		return fmt.Errorf("invite durations must not be negative")
	}
	return nil
}

// SMTPEnabled reports whether outgoing mail should go through SMTP.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
