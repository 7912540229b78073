// Package config reads the relay's settings from the environment once at
// startup. The resulting Config is immutable and passed to constructors.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	FrontendURL string
	LogLevel    string
	CORSOrigins []string

	Processor Processor
	DB        DB
	Archive   Archive
}

type Processor struct {
	StoreID       string
	StorePassword string
	Live          bool
	BaseURL       string
	Timeout       time.Duration
}

type DB struct {
	Driver string // mysql|postgres|memory
	DSN    string
}

type Archive struct {
	Driver   string // none|local|s3
	LocalDir string
	S3Region string
	S3Bucket string
	S3Prefix string
}

// Load builds a Config from environment variables. A .env file, if any, must
// already have been loaded into the environment.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("PROCESSOR_TIMEOUT", "8s")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("ARCHIVE_DRIVER", "local")
	v.SetDefault("ARCHIVE_LOCAL_DIR", "./storage/callbacks")
	v.SetDefault("S3_PREFIX", "callbacks")

	live := strings.EqualFold(v.GetString("APP_ENV"), "production")
	if v.IsSet("SSLCOMMERZ_IS_LIVE") {
		live = v.GetBool("SSLCOMMERZ_IS_LIVE")
	}

	cfg := Config{
		Port:        v.GetString("PORT"),
		FrontendURL: strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		LogLevel:    strings.ToLower(v.GetString("LOG_LEVEL")),
		CORSOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		Processor: Processor{
			StoreID:       v.GetString("SSLCOMMERZ_STORE_ID"),
			StorePassword: v.GetString("SSLCOMMERZ_STORE_PASSWORD"),
			Live:          live,
			BaseURL:       v.GetString("SSLCOMMERZ_BASE_URL"),
			Timeout:       v.GetDuration("PROCESSOR_TIMEOUT"),
		},
		DB: DB{
			Driver: strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:    v.GetString("DB_DSN"),
		},
		Archive: Archive{
			Driver:   strings.ToLower(v.GetString("ARCHIVE_DRIVER")),
			LocalDir: v.GetString("ARCHIVE_LOCAL_DIR"),
			S3Region: v.GetString("S3_REGION"),
			S3Bucket: v.GetString("S3_BUCKET"),
			S3Prefix: v.GetString("S3_PREFIX"),
		},
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var missing []string
	if c.Processor.StoreID == "" {
		missing = append(missing, "SSLCOMMERZ_STORE_ID")
	}
	if c.Processor.StorePassword == "" {
		missing = append(missing, "SSLCOMMERZ_STORE_PASSWORD")
	}
	if c.FrontendURL == "" {
		missing = append(missing, "FRONTEND_URL")
	}
	if c.DB.Driver != "memory" && c.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if c.Processor.Timeout <= 0 || c.Processor.Timeout > 30*time.Second {
		return fmt.Errorf("config: PROCESSOR_TIMEOUT must be in (0s, 30s], got %s", c.Processor.Timeout)
	}
	switch c.DB.Driver {
	case "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DB.Driver)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
