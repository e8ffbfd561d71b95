package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.LLM.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", cfg.LLM.Temperature)
	}
	if got := strings.Join(cfg.Scraper.Periods, ","); got != "Mar 2023,Mar 2024" {
		t.Errorf("periods = %q", got)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, "run.yaml", `
scraper:
  periods: []
  latest_periods: 3
llm:
  provider: deepseek
  model: deepseek-chat
  timeout: 45s
run:
  workers: 4
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.LLM.Provider != "deepseek" || cfg.LLM.Model != "deepseek-chat" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout.Std() != 45*time.Second {
		t.Errorf("timeout = %v, want 45s", cfg.LLM.Timeout)
	}
	if len(cfg.Scraper.Periods) != 0 || cfg.Scraper.LatestPeriods != 3 {
		t.Errorf("scraper = %+v", cfg.Scraper)
	}
	if cfg.Run.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Run.Workers)
	}
	// untouched keys keep their defaults
	if cfg.Output.Path != "company_data.xlsx" {
		t.Errorf("output.path = %q", cfg.Output.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadFileTOML(t *testing.T) {
	path := writeFile(t, "run.toml", `
[site]
requests_per_second = 0.5
request_timeout = "10s"

[output]
path = "out.xlsx"
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Site.RequestsPerSecond != 0.5 {
		t.Errorf("rps = %v, want 0.5", cfg.Site.RequestsPerSecond)
	}
	if cfg.Site.RequestTimeout.Std() != 10*time.Second {
		t.Errorf("request_timeout = %v", cfg.Site.RequestTimeout)
	}
	if cfg.Output.Path != "out.xlsx" {
		t.Errorf("output.path = %q", cfg.Output.Path)
	}
}

func TestLoadFileRejectsBadInput(t *testing.T) {
	if _, err := LoadFile(writeFile(t, "run.ini", "x=1")); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := LoadFile(writeFile(t, "run.yaml", "llm:\n  timeout: soon\n")); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Site.BaseURL = "" }},
		{"no sections", func(c *Config) { c.Scraper.Sections = nil }},
		{"section without prompt", func(c *Config) { c.Scraper.Sections[0].PromptID = "" }},
		{"no periods", func(c *Config) { c.Scraper.Periods = nil; c.Scraper.LatestPeriods = 0 }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openai" }},
		{"zero attempts", func(c *Config) { c.LLM.MaxAttempts = 0 }},
		{"zero workers", func(c *Config) { c.Run.Workers = 0 }},
		{"no input column", func(c *Config) { c.Input.Column = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("USERNAME", "analyst@example.com")
	t.Setenv("PASSWORD", "secret")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SCREENER_OUTPUT", "custom.xlsx")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.Credentials.Username != "analyst@example.com" || cfg.Credentials.Password != "secret" {
		t.Errorf("credentials = %+v", cfg.Credentials)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Cache.RedisAddr)
	}
	if cfg.Output.Path != "custom.xlsx" {
		t.Errorf("output path = %q", cfg.Output.Path)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("SCREENER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("Load() with a missing explicit file should fail")
	}
}
