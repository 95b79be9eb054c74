package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	// Lifecycle holds every deadline the sweeper enforces. All durations
	// must be positive; Load fails fast otherwise.
	Lifecycle struct {
		ClaimTimeoutHours     int    `yaml:"claim_timeout_hours"`
		AutoAcceptDays        int    `yaml:"auto_accept_days"`
		DisputeWindowDays     int    `yaml:"dispute_window_days"`
		SweepIntervalMinutes  int    `yaml:"sweep_interval_minutes"`
		ExpiredDisputeOutcome string `yaml:"expired_dispute_outcome"` // requester_favored | reviewer_favored
		AbandonHistoryDays    int    `yaml:"abandon_history_days"`
		WeeklyGoalReviews     int    `yaml:"weekly_goal_reviews"`
	} `yaml:"lifecycle"`

	Payments struct {
		GatewayURL         string  `yaml:"gateway_url"`
		APIKey             string  `yaml:"api_key"`
		WebhookSecret      string  `yaml:"webhook_secret"`
		PlatformFeePercent float64 `yaml:"platform_fee_percent"`
		TimeoutSeconds     int     `yaml:"timeout_seconds"`
	} `yaml:"payments"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		UseTLS       bool   `yaml:"use_tls"`
	} `yaml:"email"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"`
	} `yaml:"jwt"`

	FirstAdminEmail    string `yaml:"first_admin_email"`
	FirstAdminPassword string `yaml:"first_admin_password"`
}

var AppConfig *Config

func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
		AppConfig = &cfg
		return
	}

	// Env-driven mode (tests and container deploys).
	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.Payments.GatewayURL = os.Getenv("PAYMENT_GATEWAY_URL")
	cfg.Payments.APIKey = os.Getenv("PAYMENT_GATEWAY_KEY")
	cfg.Payments.WebhookSecret = os.Getenv("PAYMENT_WEBHOOK_SECRET")
	cfg.FirstAdminEmail = os.Getenv("FIRST_ADMIN_EMAIL")
	cfg.FirstAdminPassword = os.Getenv("FIRST_ADMIN_PASSWORD")

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Lifecycle.ClaimTimeoutHours == 0 {
		cfg.Lifecycle.ClaimTimeoutHours = 72
	}
	if cfg.Lifecycle.AutoAcceptDays == 0 {
		cfg.Lifecycle.AutoAcceptDays = 7
	}
	if cfg.Lifecycle.DisputeWindowDays == 0 {
		cfg.Lifecycle.DisputeWindowDays = 3
	}
	if cfg.Lifecycle.SweepIntervalMinutes == 0 {
		cfg.Lifecycle.SweepIntervalMinutes = 15
	}
	if cfg.Lifecycle.ExpiredDisputeOutcome == "" {
		cfg.Lifecycle.ExpiredDisputeOutcome = "requester_favored"
	}
	if cfg.Lifecycle.AbandonHistoryDays == 0 {
		cfg.Lifecycle.AbandonHistoryDays = 90
	}
	if cfg.Lifecycle.WeeklyGoalReviews == 0 {
		cfg.Lifecycle.WeeklyGoalReviews = 5
	}
	if cfg.Payments.PlatformFeePercent == 0 {
		cfg.Payments.PlatformFeePercent = 15
	}
	if cfg.Payments.TimeoutSeconds == 0 {
		cfg.Payments.TimeoutSeconds = 10
	}
}

func (c *Config) Validate() error {
	if c.Lifecycle.ClaimTimeoutHours <= 0 {
		return fmt.Errorf("lifecycle.claim_timeout_hours must be positive, got %d", c.Lifecycle.ClaimTimeoutHours)
	}
	if c.Lifecycle.AutoAcceptDays <= 0 {
		return fmt.Errorf("lifecycle.auto_accept_days must be positive, got %d", c.Lifecycle.AutoAcceptDays)
	}
	if c.Lifecycle.DisputeWindowDays <= 0 {
		return fmt.Errorf("lifecycle.dispute_window_days must be positive, got %d", c.Lifecycle.DisputeWindowDays)
	}
	if c.Lifecycle.SweepIntervalMinutes <= 0 {
		return fmt.Errorf("lifecycle.sweep_interval_minutes must be positive, got %d", c.Lifecycle.SweepIntervalMinutes)
	}
	switch c.Lifecycle.ExpiredDisputeOutcome {
	case "requester_favored", "reviewer_favored":
	default:
		return fmt.Errorf("lifecycle.expired_dispute_outcome must be requester_favored or reviewer_favored, got %q", c.Lifecycle.ExpiredDisputeOutcome)
	}
	if c.Payments.PlatformFeePercent < 0 || c.Payments.PlatformFeePercent >= 100 {
		return fmt.Errorf("payments.platform_fee_percent must be in [0, 100), got %f", c.Payments.PlatformFeePercent)
	}
	return nil
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
