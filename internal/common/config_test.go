package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8086 {
		t.Errorf("Server.Port default = %d, want 8086", cfg.Server.Port)
	}
	if cfg.Provider.FundBaseURL != "https://fundmobapi.eastmoney.com" {
		t.Errorf("unexpected fund base URL %s", cfg.Provider.FundBaseURL)
	}
	if got := cfg.Refresh.GetFundInterval(); got != time.Minute {
		t.Errorf("fund interval = %v, want 1m", got)
	}
	if got := cfg.Refresh.GetFastIndexInterval(); got != 10*time.Second {
		t.Errorf("fast index interval = %v, want 10s", got)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("FUNDWATCH_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want 9090", cfg.Server.Port)
	}
}

func TestLoadConfig_FileAndMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fundwatch.toml")
	content := []byte("[server]\nport = 9000\n\n[refresh]\nfund_interval = \"30s\"\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(filepath.Join(dir, "missing.toml"), path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if got := cfg.Refresh.GetFundInterval(); got != 30*time.Second {
		t.Errorf("fund interval = %v, want 30s", got)
	}
	// Untouched sections keep their defaults.
	if cfg.Provider.RateLimit != 5 {
		t.Errorf("Provider.RateLimit = %d, want 5", cfg.Provider.RateLimit)
	}
}

func TestProviderConfig_TimeoutFallback(t *testing.T) {
	cfg := ProviderConfig{Timeout: "garbage"}
	if got := cfg.GetTimeout(); got != 15*time.Second {
		t.Errorf("GetTimeout = %v, want 15s fallback", got)
	}
}
