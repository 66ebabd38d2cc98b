// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "SSI_"

// #region config
// Config holds all application configuration.
type Config struct {
	// Storage.
	HistoryPath string `env:"HISTORY_PATH" envDefault:"ssi_history.csv"`
	LedgerPath  string `env:"LEDGER_PATH" envDefault:"ssi_autopilot.db"`

	// Regulation.
	TierTablePath       string  `env:"TIER_TABLE"` // YAML override of the tier ranges
	AutoRegulate        bool    `env:"AUTO_REGULATE" envDefault:"true"`
	CooldownProbability float64 `env:"COOLDOWN_PROBABILITY" envDefault:"0.10"`
	SkipProbability     float64 `env:"SKIP_PROBABILITY" envDefault:"0.125"`
	SpeedFactor         float64 `env:"SPEED_FACTOR" envDefault:"1.5"`
	Seed                uint64  `env:"SEED"` // 0 draws a fresh seed per run

	// Logging.
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	// Text generation.
	OpenAIAPIKey     string   `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string   `env:"OPENAI_BASE_URL"`
	Models           []string `env:"MODELS" envSeparator:"," envDefault:"gpt-4o-mini"`
	PersonaRole      string   `env:"PERSONA_ROLE"`
	PersonaExpertise string   `env:"PERSONA_EXPERTISE"`

	// Browser.
	BrowserControlURL string        `env:"BROWSER_CONTROL_URL"`
	BrowserBin        string        `env:"BROWSER_BIN"`
	Headless          bool          `env:"HEADLESS"`
	UserDataDir       string        `env:"USER_DATA_DIR" envDefault:".chrome-profile"`
	ActionTimeout     time.Duration `env:"ACTION_TIMEOUT" envDefault:"3s"`

	// Targeting.
	GroupURLs   []string `env:"GROUP_URLS" envSeparator:","`
	TargetRoles []string `env:"TARGET_ROLES" envSeparator:","` // empty keeps the stock list
	EnglishOnly bool     `env:"ENGLISH_ONLY" envDefault:"true"`

	// Session stages.
	BrowseProbability   float64 `env:"BROWSE_PROBABILITY" envDefault:"0.4"`
	WithdrawProbability float64 `env:"WITHDRAW_PROBABILITY" envDefault:"0.3"`
	Endorse             bool    `env:"ENDORSE" envDefault:"true"`

	// Reporting.
	DashboardAddr string `env:"DASHBOARD_ADDR" envDefault:":8080"`
	OTLPEndpoint  string `env:"OTLP_ENDPOINT"`
}

// #endregion config

// #region load
// Load reads an optional .env file, then the environment, then validates.
func Load() (Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom parses the given variables instead of the process environment.
// Keys carry the prefix.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// #endregion load

// #region validate
// Validate checks that the required configuration is present and in range.
func (c Config) Validate() error {
	var errs []error
	if c.HistoryPath == "" {
		errs = append(errs, fmt.Errorf("config: %sHISTORY_PATH is required", Prefix))
	}
	for name, p := range map[string]float64{
		"COOLDOWN_PROBABILITY": c.CooldownProbability,
		"SKIP_PROBABILITY":     c.SkipProbability,
		"BROWSE_PROBABILITY":   c.BrowseProbability,
		"WITHDRAW_PROBABILITY": c.WithdrawProbability,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("config: %s%s must be within [0, 1], got %v", Prefix, name, p))
		}
	}
	if c.SpeedFactor <= 0 {
		errs = append(errs, fmt.Errorf("config: %sSPEED_FACTOR must be positive", Prefix))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("config: %sLOG_FORMAT must be console or json", Prefix))
	}
	if c.OpenAIAPIKey != "" && len(c.Models) == 0 {
		errs = append(errs, fmt.Errorf("config: %sMODELS must list at least one model", Prefix))
	}
	if c.ActionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config: %sACTION_TIMEOUT must be positive", Prefix))
	}
	return errors.Join(errs...)
}

// #endregion validate
