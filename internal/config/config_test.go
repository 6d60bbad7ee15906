package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":3001" {
		t.Fatalf("expected default listen addr :3001, got %q", cfg.ListenAddr)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("expected default driver sqlite, got %q", cfg.DBDriver)
	}
	if cfg.SLALocale != "id" {
		t.Fatalf("expected default locale id, got %q", cfg.SLALocale)
	}
	if !cfg.RoleAllowed("admin") || cfg.RoleAllowed("superuser") {
		t.Fatalf("unexpected role set: %v", cfg.Roles)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("APP_DB_DRIVER", "oracle")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail for unknown driver")
	}
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("APP_DB_DRIVER", "postgres")
	t.Setenv("APP_DB_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail without DSN for postgres")
	}
}

func TestLoadPasswordBounds(t *testing.T) {
	t.Setenv("PASSWORD_MIN_LENGTH", "16")
	t.Setenv("PASSWORD_MAX_LENGTH", "12")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail for invalid password bounds")
	}
}

func TestLoadRejectsUnknownSender(t *testing.T) {
	t.Setenv("INVITE_SENDER", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail for unknown INVITE_SENDER")
	}
}

func TestLoadRejectsUnknownLocale(t *testing.T) {
	t.Setenv("SLA_LOCALE", "fr")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail for unknown SLA_LOCALE")
	}
}

func TestLoadCSVRoles(t *testing.T) {
	t.Setenv("INVITE_ROLES", " admin , operator ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Roles) != 2 || cfg.Roles[0] != "admin" || cfg.Roles[1] != "operator" {
		t.Fatalf("unexpected roles: %v", cfg.Roles)
	}
}
