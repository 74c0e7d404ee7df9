package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the runtime configuration of the service.
type Config struct {
	AppPort     string
	Environment string

	DBDriver    string // sqlite, postgres or memory
	DatabaseDSN string

	RabbitMQURL     string // empty disables event publishing
	RabbitMQQueue   string
	RabbitMQConsume bool

	CSRFSecret  string
	CSRFEnabled bool
	CSRFTTL     time.Duration

	NearExpiryDays int
	SweepInterval  time.Duration // zero disables the sweep job
	Location       *time.Location
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "products.db")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_QUEUE", "product_events")
	v.SetDefault("RABBITMQ_CONSUME", false)
	v.SetDefault("CSRF_SECRET", "")
	v.SetDefault("CSRF_ENABLED", true)
	v.SetDefault("CSRF_TTL", "2h")
	v.SetDefault("NEAR_EXPIRY_DAYS", 7)
	v.SetDefault("SWEEP_INTERVAL", "1h")
	v.SetDefault("TIMEZONE", "Local")
	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:         v.GetString("APP_PORT"),
		Environment:     v.GetString("APP_ENV"),
		DBDriver:        v.GetString("DB_DRIVER"),
		DatabaseDSN:     v.GetString("DATABASE_DSN"),
		RabbitMQURL:     v.GetString("RABBITMQ_URL"),
		RabbitMQQueue:   v.GetString("RABBITMQ_QUEUE"),
		RabbitMQConsume: v.GetBool("RABBITMQ_CONSUME"),
		CSRFSecret:      v.GetString("CSRF_SECRET"),
		CSRFEnabled:     v.GetBool("CSRF_ENABLED"),
		CSRFTTL:         v.GetDuration("CSRF_TTL"),
		NearExpiryDays:  v.GetInt("NEAR_EXPIRY_DAYS"),
		SweepInterval:   v.GetDuration("SWEEP_INTERVAL"),
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres", "memory":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want sqlite, postgres or memory)", cfg.DBDriver)
	}

	if cfg.NearExpiryDays < 0 {
		return nil, fmt.Errorf("NEAR_EXPIRY_DAYS must not be negative, got %d", cfg.NearExpiryDays)
	}

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.CSRFEnabled && cfg.CSRFSecret == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("CSRF_SECRET is required in production")
		}
		cfg.CSRFSecret = "dev-csrf-secret"
		log.Println("[INFO] CSRF_SECRET not set, using a development secret")
	}
	if cfg.CSRFTTL <= 0 {
		cfg.CSRFTTL = 2 * time.Hour
	}

	return cfg, nil
}
