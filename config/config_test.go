package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/voxmeter/domain/eligibility"
	"github.com/artpar/voxmeter/domain/resource"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestDefault_Rates(t *testing.T) {
	cfg := Default()
	table, err := cfg.RateTable()
	if err != nil {
		t.Fatalf("rate table: %v", err)
	}
	// 15 micros per char with 100% markup = 30 micros per char.
	if got := table.EffectiveRate(resource.TTSChars); got != 30 {
		t.Errorf("effective TTS rate = %d, want 30", got)
	}
	if got := table.EffectiveRate(resource.STTSeconds); got != 200 {
		t.Errorf("effective STT rate = %d, want 200", got)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxmeter.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
quotas:
  mode: cost
  fail_open: true
  trial:
    days: 14
  shared_pool:
    enabled: true
    budget_cents: 500
vip_users: [7, 42]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Mode() != eligibility.ModeCost {
		t.Errorf("mode = %q, want cost", cfg.Mode())
	}
	if !cfg.Quotas.FailOpen {
		t.Error("fail_open not applied")
	}
	if cfg.Quotas.Trial.Days != 14 {
		t.Errorf("trial days = %d, want 14", cfg.Quotas.Trial.Days)
	}
	// Unset fields keep defaults.
	if cfg.Quotas.Trial.TTSChars != 10_000 {
		t.Errorf("trial tts chars = %d, want default 10000", cfg.Quotas.Trial.TTSChars)
	}
	if cfg.SharedPoolBudget().Cents() != 500 {
		t.Errorf("pool budget = %d cents, want 500", cfg.SharedPoolBudget().Cents())
	}
	if len(cfg.VIPUsers) != 2 || cfg.VIPUsers[0] != 7 {
		t.Errorf("vip users = %v", cfg.VIPUsers)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	t.Setenv("VOXMETER_SERVER_PORT", "7070")
	t.Setenv("VOXMETER_QUOTA_MODE", "cost")
	t.Setenv("VOXMETER_VIP_USERS", "1, 2,3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, env must override the file", cfg.Server.Port)
	}
	if cfg.Mode() != eligibility.ModeCost {
		t.Errorf("mode = %q, want cost", cfg.Mode())
	}
	if len(cfg.VIPUsers) != 3 || cfg.VIPUsers[2] != 3 {
		t.Errorf("vip users = %v, want [1 2 3]", cfg.VIPUsers)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VOXMETER_DATABASE_DSN", "/tmp/test.db")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load from env: %v", err)
	}
	if cfg.Database.DSN != "/tmp/test.db" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
}

func TestHasEnvConfig(t *testing.T) {
	t.Setenv("VOXMETER_LOG_LEVEL", "debug")
	if !HasEnvConfig() {
		t.Error("expected HasEnvConfig with VOXMETER_ variable set")
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad driver", func(c *Config) { c.Database.Driver = "postgres" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"bad mode", func(c *Config) { c.Quotas.Mode = "bananas" }},
		{"zero trial days", func(c *Config) { c.Quotas.Trial.Days = 0 }},
		{"pool enabled without budget", func(c *Config) {
			c.Quotas.SharedPool.Enabled = true
			c.Quotas.SharedPool.BudgetCents = 0
		}},
		{"pool in quantity mode", func(c *Config) {
			// The pool has only a monetary budget; quantity mode could
			// never enforce it.
			c.Quotas.Mode = string(eligibility.ModeQuantity)
			c.Quotas.SharedPool.Enabled = true
		}},
		{"zero rate", func(c *Config) { c.Rates.TTSMicrosPerChar = 0 }},
		{"negative markup", func(c *Config) { c.Rates.MarkupPct = -5 }},
	}
	for _, c := range cases {
		cfg := Default()
		c.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}
