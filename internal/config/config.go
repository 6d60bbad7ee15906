package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr         string
	CORSAllowedOrigins []string

	DBDriver          string
	DBDSN             string
	DBPath            string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	Roles             []string
	ActivationBaseURL string
	PasswordMinLength int
	PasswordMaxLength int

	InviteSender     string
	InviteFrom       string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPassword     string
	SMTPTLS          bool
	SMTPStartTLS     bool
	NotifyTimeoutSec int

	SLALocale        string
	ProbeTargetURL   string
	ProbeIntervalSec int

	HTTPReadTimeoutSec       int
	HTTPReadHeaderTimeoutSec int
	HTTPWriteTimeoutSec      int
	HTTPIdleTimeoutSec       int

	TrustProxy bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:               env("LISTEN_ADDR", ":3001"),
		CORSAllowedOrigins:       envCSV("CORS_ALLOWED_ORIGINS"),
		DBDriver:                 strings.ToLower(env("APP_DB_DRIVER", "sqlite")),
		DBDSN:                    env("APP_DB_DSN", ""),
		DBPath:                   env("APP_DB_PATH", "./data/app.db"),
		DBMaxOpenConns:           envInt("APP_DB_MAX_OPEN_CONNS", 4),
		DBMaxIdleConns:           envInt("APP_DB_MAX_IDLE_CONNS", 2),
		DBConnMaxLifetime:        time.Duration(envInt("APP_DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		Roles:                    envCSVDefault("INVITE_ROLES", []string{"admin", "analyst", "viewer"}),
		ActivationBaseURL:        env("ACTIVATION_BASE_URL", "http://localhost:3000"),
		PasswordMinLength:        envInt("PASSWORD_MIN_LENGTH", 8),
		PasswordMaxLength:        envInt("PASSWORD_MAX_LENGTH", 128),
		InviteSender:             strings.ToLower(env("INVITE_SENDER", "log")),
		InviteFrom:               env("INVITE_FROM", "SOC Dashboard <noreply@example.com>"),
		SMTPHost:                 env("SMTP_HOST", "127.0.0.1"),
		SMTPPort:                 envInt("SMTP_PORT", 587),
		SMTPUser:                 env("SMTP_USER", ""),
		SMTPPassword:             env("SMTP_PASSWORD", ""),
		SMTPTLS:                  envBool("SMTP_TLS", false),
		SMTPStartTLS:             envBool("SMTP_STARTTLS", true),
		NotifyTimeoutSec:         envInt("NOTIFY_TIMEOUT_SEC", 10),
		SLALocale:                strings.ToLower(env("SLA_LOCALE", "id")),
		ProbeTargetURL:           env("PROBE_TARGET_URL", ""),
		ProbeIntervalSec:         envInt("PROBE_INTERVAL_SEC", 60),
		HTTPReadTimeoutSec:       envInt("HTTP_READ_TIMEOUT_SEC", 10),
		HTTPReadHeaderTimeoutSec: envInt("HTTP_READ_HEADER_TIMEOUT_SEC", 5),
		HTTPWriteTimeoutSec:      envInt("HTTP_WRITE_TIMEOUT_SEC", 30),
		HTTPIdleTimeoutSec:       envInt("HTTP_IDLE_TIMEOUT_SEC", 60),
		TrustProxy:               envBool("TRUST_PROXY", false),
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return Config{}, fmt.Errorf("APP_DB_DRIVER must be one of: sqlite, postgres, mysql")
	}
	if cfg.DBDriver != "sqlite" && strings.TrimSpace(cfg.DBDSN) == "" {
		return Config{}, fmt.Errorf("APP_DB_DSN is required for driver %s", cfg.DBDriver)
	}
	if cfg.DBMaxOpenConns <= 0 || cfg.DBMaxIdleConns < 0 {
		return Config{}, fmt.Errorf("invalid DB pool config")
	}
	if len(cfg.Roles) == 0 {
		return Config{}, fmt.Errorf("INVITE_ROLES must not be empty")
	}
	if cfg.PasswordMinLength < 8 {
		return Config{}, fmt.Errorf("password min length must be >= 8")
	}
	if cfg.PasswordMaxLength < cfg.PasswordMinLength {
		return Config{}, fmt.Errorf("password max length must be >= min length")
	}
	switch cfg.InviteSender {
	case "log", "smtp":
	default:
		return Config{}, fmt.Errorf("INVITE_SENDER must be one of: log, smtp")
	}
	if cfg.InviteSender == "smtp" && cfg.SMTPPort <= 0 {
		return Config{}, fmt.Errorf("invalid SMTP port")
	}
	switch cfg.SLALocale {
	case "id", "en":
	default:
		return Config{}, fmt.Errorf("SLA_LOCALE must be one of: id, en")
	}
	if cfg.ProbeTargetURL != "" && cfg.ProbeIntervalSec <= 0 {
		return Config{}, fmt.Errorf("PROBE_INTERVAL_SEC must be positive")
	}
	if cfg.NotifyTimeoutSec <= 0 {
		return Config{}, fmt.Errorf("NOTIFY_TIMEOUT_SEC must be positive")
	}
	return cfg, nil
}

func (c Config) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutSec) * time.Second
}

func (c Config) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSec) * time.Second
}

func (c Config) RoleAllowed(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func env(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envCSV(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envCSVDefault(k string, d []string) []string {
	if v := envCSV(k); v != nil {
		return v
	}
	return d
}
