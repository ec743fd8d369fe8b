package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"` // empty disables rate limiting
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	LoginLimit   int           `yaml:"login_limit"`  // per origin per window
	RedeemLimit  int           `yaml:"redeem_limit"` // per origin per window
	RateLimitWin time.Duration `yaml:"rate_limit_window"`
}

type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"` // IANA name; calendar days are computed here

	Location *time.Location `yaml:"-"`
}

type VoucherConfig struct {
	StaffWiFiHours     int     `yaml:"staff_wifi_hours"`
	TierRewardHours    int     `yaml:"tier_reward_hours"`
	TierRewardValue    float64 `yaml:"tier_reward_value"`
	QRSize             int     `yaml:"qr_size"`
	BarcodeWidth       int     `yaml:"barcode_width"`
	BarcodeHeight      int     `yaml:"barcode_height"`
	MaxCodeGenAttempts int     `yaml:"max_code_attempts"`
}

type AuditConfig struct {
	RetentionDays        int           `yaml:"retention_days"`
	FailedLoginThreshold int           `yaml:"failed_login_threshold"`
	FailedLoginWindow    time.Duration `yaml:"failed_login_window"`
	DailyRedeemThreshold int           `yaml:"daily_redeem_threshold"`
}

type AlertsConfig struct {
	Workers  int    `yaml:"workers"`
	Language string `yaml:"language"` // locale for alert messages; en|fa
	Telegram struct {
		Token   string  `yaml:"token"`
		ChatIDs []int64 `yaml:"chat_ids"`
	} `yaml:"telegram"`
}

type MailConfig struct {
	SMTPHost string `yaml:"smtp_host"` // empty writes customer mail to the log instead
	SMTPPort int    `yaml:"smtp_port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSL      bool   `yaml:"ssl"` // implicit TLS (port 465); otherwise STARTTLS when offered
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

type EventsConfig struct {
	NATSURL string `yaml:"nats_url"` // empty disables event publishing
}

type SchedulerConfig struct {
	RetentionCron       string        `yaml:"retention_cron"`
	ExpirySweepInterval time.Duration `yaml:"expiry_sweep_interval"`
	PoolStatsInterval   time.Duration `yaml:"pool_stats_interval"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Site      SiteConfig      `yaml:"site"`
	Vouchers  VoucherConfig   `yaml:"vouchers"`
	Audit     AuditConfig     `yaml:"audit"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Mail      MailConfig      `yaml:"mail"`
	Events    EventsConfig    `yaml:"events"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies .env and environment overrides,
// fills defaults and validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw YAML and runs the same override/default/validate steps as LoadConfig.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Alerts.Telegram.Token = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.Events.NATSURL = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Mail.SMTPHost = v
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		cfg.Mail.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		cfg.Mail.From = v
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 12 * time.Hour
	}
	if cfg.Auth.LoginLimit <= 0 {
		cfg.Auth.LoginLimit = 20
	}
	if cfg.Auth.RedeemLimit <= 0 {
		cfg.Auth.RedeemLimit = 60
	}
	if cfg.Auth.RateLimitWin <= 0 {
		cfg.Auth.RateLimitWin = time.Minute
	}
	if cfg.Site.Name == "" {
		cfg.Site.Name = "WiFi Portal"
	}
	if cfg.Site.ID == "" {
		cfg.Site.ID = "default"
	}
	loc := time.Local
	if cfg.Site.Timezone != "" {
		l, err := time.LoadLocation(cfg.Site.Timezone)
		if err != nil {
			return fmt.Errorf("site.timezone: %w", err)
		}
		loc = l
	}
	cfg.Site.Location = loc

	if cfg.Vouchers.StaffWiFiHours <= 0 {
		cfg.Vouchers.StaffWiFiHours = 24
	}
	if cfg.Vouchers.TierRewardHours <= 0 {
		cfg.Vouchers.TierRewardHours = 30 * 24
	}
	if cfg.Vouchers.QRSize <= 0 {
		cfg.Vouchers.QRSize = 256
	}
	if cfg.Vouchers.BarcodeWidth <= 0 {
		cfg.Vouchers.BarcodeWidth = 384 // 48mm at 203dpi
	}
	if cfg.Vouchers.BarcodeHeight <= 0 {
		cfg.Vouchers.BarcodeHeight = 80
	}
	if cfg.Vouchers.MaxCodeGenAttempts <= 0 {
		cfg.Vouchers.MaxCodeGenAttempts = 5
	}

	if cfg.Audit.RetentionDays <= 0 {
		cfg.Audit.RetentionDays = 90
	}
	if cfg.Audit.FailedLoginThreshold <= 0 {
		cfg.Audit.FailedLoginThreshold = 10
	}
	if cfg.Audit.FailedLoginWindow <= 0 {
		cfg.Audit.FailedLoginWindow = time.Hour
	}
	if cfg.Audit.DailyRedeemThreshold <= 0 {
		cfg.Audit.DailyRedeemThreshold = 5
	}
	if cfg.Alerts.Workers <= 0 {
		cfg.Alerts.Workers = 2
	}
	if cfg.Alerts.Language == "" {
		cfg.Alerts.Language = "en"
	}

	if cfg.Mail.SMTPPort <= 0 {
		cfg.Mail.SMTPPort = 587
	}
	if cfg.Mail.FromName == "" {
		cfg.Mail.FromName = cfg.Site.Name
	}

	if strings.TrimSpace(cfg.Scheduler.RetentionCron) == "" {
		cfg.Scheduler.RetentionCron = "0 3 * * *"
	}
	if cfg.Scheduler.ExpirySweepInterval <= 0 {
		cfg.Scheduler.ExpirySweepInterval = 15 * time.Minute
	}
	if cfg.Scheduler.PoolStatsInterval <= 0 {
		cfg.Scheduler.PoolStatsInterval = 30 * time.Second
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if len(cfg.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwt_secret must be at least 16 characters")
	}
	if cfg.Mail.SMTPHost != "" && cfg.Mail.From == "" {
		return errors.New("mail.from is required when mail.smtp_host is set")
	}
	return nil
}
