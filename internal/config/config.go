package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURI string `yaml:"database_uri"`
	HTTPAddr    string `yaml:"http_addr"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // console | json

	HijriCalendar string `yaml:"hijri_calendar"` // ummalqura | tabular
	Language      string `yaml:"language"`       // en | ar, used for rendered Hijri dates

	Email     EmailConfig     `yaml:"email"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type EmailConfig struct {
	ResendAPIKey string        `yaml:"resend_api_key"`
	From         string        `yaml:"from"`
	RatePerSec   int           `yaml:"rate_per_sec"`
	SendTimeout  time.Duration `yaml:"send_timeout"`
}

type SchedulerConfig struct {
	DispatchInterval  time.Duration `yaml:"dispatch_interval"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	GenerationTime    string        `yaml:"generation_time"` // HH:MM in Timezone
	Timezone          string        `yaml:"timezone"`
	DispatchBatchSize int           `yaml:"dispatch_batch_size"`
}

func Default() *Config {
	return &Config{
		HTTPAddr:      ":3002",
		LogLevel:      "info",
		LogFormat:     "console",
		HijriCalendar: "ummalqura",
		Language:      "en",
		Email: EmailConfig{
			From:        "Hilal Calendar <noreply@hilalshaban.com>",
			RatePerSec:  2,
			SendTimeout: 30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			DispatchInterval:  time.Minute,
			CleanupInterval:   time.Hour,
			GenerationTime:    "03:00",
			Timezone:          "UTC",
			DispatchBatchSize: 100,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, an optional .env file and finally the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// config file is optional
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DatabaseURI = getEnvOrDefault("DATABASE_URI", c.DatabaseURI)
	if v, ok := os.LookupEnv("HTTP_ADDR"); ok {
		c.HTTPAddr = v
	}
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault("LOG_FORMAT", c.LogFormat)
	c.HijriCalendar = getEnvOrDefault("HIJRI_CALENDAR", c.HijriCalendar)
	c.Language = getEnvOrDefault("HIJRI_LANGUAGE", c.Language)

	c.Email.ResendAPIKey = getEnvOrDefault("RESEND_API_KEY", c.Email.ResendAPIKey)
	c.Email.From = getEnvOrDefault("EMAIL_FROM", c.Email.From)
	c.Scheduler.GenerationTime = getEnvOrDefault("GENERATION_TIME", c.Scheduler.GenerationTime)
	c.Scheduler.Timezone = getEnvOrDefault("SCHEDULER_TIMEZONE", c.Scheduler.Timezone)

	var err error
	if c.Email.RatePerSec, err = getEnvInt("EMAIL_RATE_PER_SEC", c.Email.RatePerSec); err != nil {
		return err
	}
	if c.Email.SendTimeout, err = getEnvDuration("EMAIL_SEND_TIMEOUT", c.Email.SendTimeout); err != nil {
		return err
	}
	if c.Scheduler.DispatchInterval, err = getEnvDuration("DISPATCH_INTERVAL", c.Scheduler.DispatchInterval); err != nil {
		return err
	}
	if c.Scheduler.CleanupInterval, err = getEnvDuration("CLEANUP_INTERVAL", c.Scheduler.CleanupInterval); err != nil {
		return err
	}
	if c.Scheduler.DispatchBatchSize, err = getEnvInt("DISPATCH_BATCH_SIZE", c.Scheduler.DispatchBatchSize); err != nil {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURI) == "" {
		return errors.New("DATABASE_URI is required")
	}
	if c.Language != "en" && c.Language != "ar" {
		return fmt.Errorf("invalid language %q: want en or ar", c.Language)
	}
	if c.Scheduler.DispatchInterval <= 0 {
		return errors.New("dispatch interval must be positive")
	}
	if c.Scheduler.CleanupInterval <= 0 {
		return errors.New("cleanup interval must be positive")
	}
	if _, err := time.Parse("15:04", c.Scheduler.GenerationTime); err != nil {
		return fmt.Errorf("invalid generation time %q: want HH:MM", c.Scheduler.GenerationTime)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}
	if c.Scheduler.DispatchBatchSize <= 0 {
		return errors.New("dispatch batch size must be positive")
	}
	if c.Email.RatePerSec <= 0 {
		return errors.New("email rate must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
