// Package config loads run configuration from an optional YAML or TOML file
// plus environment variables. Credentials are only ever read from the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"
)

// DefaultPath is used when SCREENER_CONFIG is not set.
const DefaultPath = "config/screener.yaml"

type Config struct {
	Site       SiteConfig       `yaml:"site" toml:"site"`
	Scraper    ScraperConfig    `yaml:"scraper" toml:"scraper"`
	LLM        LLMConfig        `yaml:"llm" toml:"llm"`
	Input      InputConfig      `yaml:"input" toml:"input"`
	Output     OutputConfig     `yaml:"output" toml:"output"`
	Cache      CacheConfig      `yaml:"cache" toml:"cache"`
	Checkpoint CheckpointConfig `yaml:"checkpoint" toml:"checkpoint"`
	Run        RunConfig        `yaml:"run" toml:"run"`
	Log        LogConfig        `yaml:"log" toml:"log"`

	Credentials Credentials `yaml:"-" toml:"-"`
}

type SiteConfig struct {
	BaseURL            string   `yaml:"base_url" toml:"base_url"`
	LoginPath          string   `yaml:"login_path" toml:"login_path"`
	SearchPath         string   `yaml:"search_path" toml:"search_path"`
	LoginFailureMarker string   `yaml:"login_failure_marker" toml:"login_failure_marker"`
	UserAgent          string   `yaml:"user_agent" toml:"user_agent"`
	RequestsPerSecond  float64  `yaml:"requests_per_second" toml:"requests_per_second"`
	RequestTimeout     Duration `yaml:"request_timeout" toml:"request_timeout"`
}

// Section identifies one statement table on the company page.
type Section struct {
	Key        string `yaml:"key" toml:"key"`
	SectionID  string `yaml:"section_id" toml:"section_id"`
	TableClass string `yaml:"table_class" toml:"table_class"`
	PromptID   string `yaml:"prompt_id" toml:"prompt_id"`
}

type ScraperConfig struct {
	Sections         []Section `yaml:"sections" toml:"sections"`
	Periods          []string  `yaml:"periods" toml:"periods"`
	LatestPeriods    int       `yaml:"latest_periods" toml:"latest_periods"`
	FirstColumnLabel string    `yaml:"first_column_label" toml:"first_column_label"`
}

type LLMConfig struct {
	Provider    string   `yaml:"provider" toml:"provider"`
	Model       string   `yaml:"model" toml:"model"`
	Temperature float64  `yaml:"temperature" toml:"temperature"`
	Timeout     Duration `yaml:"timeout" toml:"timeout"`
	MaxAttempts int      `yaml:"max_attempts" toml:"max_attempts"`
	PromptDir   string   `yaml:"prompt_dir" toml:"prompt_dir"`
}

type InputConfig struct {
	Path   string `yaml:"path" toml:"path"`
	Sheet  string `yaml:"sheet" toml:"sheet"`
	Column string `yaml:"column" toml:"column"`
}

type OutputConfig struct {
	Path        string `yaml:"path" toml:"path"`
	TitleSuffix string `yaml:"title_suffix" toml:"title_suffix"`
	ReportPath  string `yaml:"report_path" toml:"report_path"`
}

type CacheConfig struct {
	RedisAddr string   `yaml:"redis_addr" toml:"redis_addr"`
	TTL       Duration `yaml:"ttl" toml:"ttl"`
}

type CheckpointConfig struct {
	Dir    string `yaml:"dir" toml:"dir"`
	Resume bool   `yaml:"resume" toml:"resume"`
}

type RunConfig struct {
	Workers        int      `yaml:"workers" toml:"workers"`
	CompanyTimeout Duration `yaml:"company_timeout" toml:"company_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	Dev   bool   `yaml:"dev" toml:"dev"`
}

// Credentials are filled from the environment only.
type Credentials struct {
	Username    string
	Password    string
	DatabaseURL string
}

// Default returns the built-in configuration: screener.in, both statements,
// Mar 2023 and Mar 2024, Groq at temperature 0.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:            "https://www.screener.in",
			LoginPath:          "/login/",
			SearchPath:         "/api/company/search/",
			LoginFailureMarker: "Invalid username or password",
			UserAgent:          "Mozilla/5.0",
			RequestsPerSecond:  1,
			RequestTimeout:     Duration(30 * time.Second),
		},
		Scraper: ScraperConfig{
			Sections: []Section{
				{Key: "profit_loss", SectionID: "profit-loss", TableClass: "data-table", PromptID: "summary.profit_loss"},
				{Key: "balance_sheet", SectionID: "balance-sheet", TableClass: "data-table", PromptID: "summary.balance_sheet"},
			},
			Periods:          []string{"Mar 2023", "Mar 2024"},
			LatestPeriods:    2,
			FirstColumnLabel: "Type",
		},
		LLM: LLMConfig{
			Provider:    "groq",
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0,
			Timeout:     Duration(2 * time.Minute),
			MaxAttempts: 2,
		},
		Input: InputConfig{
			Path:   "companies.xlsx",
			Column: "Companies",
		},
		Output: OutputConfig{
			Path:        "company_data.xlsx",
			TitleSuffix: "(values are in INR Crores)",
			ReportPath:  "company_data.report.json",
		},
		Cache: CacheConfig{
			TTL: Duration(12 * time.Hour),
		},
		Checkpoint: CheckpointConfig{
			Dir: filepath.Join(".cache", "screener", "results"),
		},
		Run: RunConfig{
			Workers:        1,
			CompanyTimeout: Duration(5 * time.Minute),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads .env, then the config file named by SCREENER_CONFIG (or
// DefaultPath), then environment overrides. A missing config file is not an
// error; defaults are used.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	path := os.Getenv("SCREENER_CONFIG")
	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}

	cfg, err := LoadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg = Default()
		} else {
			return nil, err
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML or TOML file on top of Default().
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv copies credentials and connection strings from the environment.
func (c *Config) ApplyEnv() {
	c.Credentials.Username = os.Getenv("USERNAME")
	c.Credentials.Password = os.Getenv("PASSWORD")
	c.Credentials.DatabaseURL = os.Getenv("DATABASE_URL")

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("SCREENER_INPUT"); v != "" {
		c.Input.Path = v
	}
	if v := os.Getenv("SCREENER_OUTPUT"); v != "" {
		c.Output.Path = v
	}
}

var knownProviders = map[string]bool{"groq": true, "deepseek": true, "gemini": true}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	if len(c.Scraper.Sections) == 0 {
		return fmt.Errorf("scraper.sections must list at least one statement")
	}
	for i, s := range c.Scraper.Sections {
		if s.Key == "" || s.SectionID == "" || s.PromptID == "" {
			return fmt.Errorf("scraper.sections[%d]: key, section_id and prompt_id are required", i)
		}
	}
	if len(c.Scraper.Periods) == 0 && c.Scraper.LatestPeriods <= 0 {
		return fmt.Errorf("scraper.periods is empty and scraper.latest_periods is %d", c.Scraper.LatestPeriods)
	}
	if !knownProviders[c.LLM.Provider] {
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be >= 1")
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("run.workers must be >= 1")
	}
	if c.Input.Path == "" || c.Input.Column == "" {
		return fmt.Errorf("input.path and input.column are required")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	return nil
}
