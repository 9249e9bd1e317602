package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveSecretKey(t *testing.T) {
	for _, raw := range []string{
		"",
		"change_me_in_production",
		"replace_with_at_least_32_random_characters",
		"too-short-secret",
	} {
		if _, err := resolveSecretKey(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}

	valid := "0123456789abcdef0123456789abcdef"
	secret, err := resolveSecretKey(" " + valid + " ")
	if err != nil {
		t.Fatalf("expected valid secret, got error: %v", err)
	}
	if secret != valid {
		t.Fatalf("expected %q, got %q", valid, secret)
	}
}

func TestResolvePort(t *testing.T) {
	port, err := resolvePort("")
	if err != nil {
		t.Fatalf("expected default port, got error: %v", err)
	}
	if port != "8080" {
		t.Fatalf("expected default port 8080, got %q", port)
	}

	port, err = resolvePort("9090")
	if err != nil || port != "9090" {
		t.Fatalf("expected port 9090, got %q (%v)", port, err)
	}

	for _, raw := range []string{"0", "70000", "not-a-number"} {
		if _, err := resolvePort(raw); err == nil {
			t.Fatalf("expected port %q to fail", raw)
		}
	}
}

func TestLoadReadsEnvironmentOverDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9191")
	t.Setenv("DATA_DIR", "/srv/dairyforms")
	t.Setenv("SESSION_TTL", "12h")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Port != "9191" || cfg.DataDir != "/srv/dairyforms" {
		t.Fatalf("unexpected config %#v", cfg)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("expected 12h session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.AdminUser != "admin" || !cfg.AccessLog {
		t.Fatalf("expected defaults for admin user and access log, got %#v", cfg)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dairyforms.yaml")
	content := "port: \"7070\"\nsecret_key: 0123456789abcdef0123456789abcdef\nadmin_user: coop\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("ValidateServe() unexpected error: %v", err)
	}
	if cfg.Port != "7070" || cfg.AdminUser != "coop" {
		t.Fatalf("unexpected config %#v", cfg)
	}
}

func TestLoadFailsOnMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an explicit missing config file to fail")
	}
}

func TestValidateServeRejectsMissingSecret(t *testing.T) {
	cfg := &Config{Port: "8080", SessionTTL: time.Hour}
	if err := cfg.ValidateServe(); err == nil {
		t.Fatal("expected missing secret key to fail")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir on older toolchains).
func chdir(t *testing.T, dir string) {
	t.Helper()
	previous, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(previous); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
