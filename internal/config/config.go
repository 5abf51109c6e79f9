package config

import (
	"os"
	"strconv"
	"strings"

	"sanepanel/internal/errors"
)

// Config represents the complete pipeline configuration
type Config struct {
	Data      DataConfig
	Model     ModelConfig
	Inference InferenceConfig
	Export    ExportConfig
}

// DataConfig holds the input dataset column contract. Column names are
// contractual: absence of any referenced column is a load-time failure.
type DataConfig struct {
	InputFile  string
	EntityCol  string
	YearCol    string
	Outcomes   []string
	Covariates []string
}

// ModelConfig holds estimation and selection settings
type ModelConfig struct {
	Alpha float64
	// FinalEffects is "fixed" (always finalize on fixed effects, as the
	// governance literature favors) or "auto" (apply the Hausman
	// recommendation). The recommendation is reported either way.
	FinalEffects string
}

// InferenceConfig holds robust covariance settings
type InferenceConfig struct {
	// MaxLags is the Driscoll-Kraay kernel bandwidth; 0 selects
	// floor(4*(T/100)^(2/9)) from the panel's time dimension.
	MaxLags int
}

// ExportConfig holds result export settings
type ExportConfig struct {
	// Dir receives CSV tables and the results workbook; empty disables export.
	Dir string
}

// Defaults for the SNIS municipal sanitation dataset.
var (
	DefaultOutcomes   = []string{"AG001", "ES001"}
	DefaultCovariates = []string{"FN002", "FN003", "FN015", "FN017", "FN026", "FN030", "FN033", "FN041"}
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Data: DataConfig{
			InputFile:  os.Getenv("PANEL_INPUT_FILE"),
			EntityCol:  getEnvOrDefault("PANEL_ENTITY_COL", "COD_MUN"),
			YearCol:    getEnvOrDefault("PANEL_YEAR_COL", "ANO_REF"),
			Outcomes:   getEnvListOrDefault("PANEL_OUTCOMES", DefaultOutcomes),
			Covariates: getEnvListOrDefault("PANEL_COVARIATES", DefaultCovariates),
		},
		Model: ModelConfig{
			Alpha:        getEnvFloatOrDefault("ALPHA", 0.05),
			FinalEffects: getEnvOrDefault("FINAL_EFFECTS", "fixed"),
		},
		Inference: InferenceConfig{
			MaxLags: getEnvIntOrDefault("DK_MAX_LAGS", 0),
		},
		Export: ExportConfig{
			Dir: os.Getenv("EXPORT_DIR"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Data.EntityCol == "" || cfg.Data.YearCol == "" {
		return errors.ConfigInvalid("entity and year columns are required")
	}
	if len(cfg.Data.Outcomes) == 0 {
		return errors.ConfigInvalid("at least one outcome column is required")
	}
	if len(cfg.Data.Covariates) == 0 {
		return errors.ConfigInvalid("at least one covariate column is required")
	}
	if cfg.Model.Alpha <= 0 || cfg.Model.Alpha >= 1 {
		return errors.ConfigInvalid("ALPHA must be in (0, 1)")
	}
	switch cfg.Model.FinalEffects {
	case "fixed", "auto":
	default:
		return errors.ConfigInvalid("FINAL_EFFECTS must be \"fixed\" or \"auto\"")
	}
	if cfg.Inference.MaxLags < 0 {
		return errors.ConfigInvalid("DK_MAX_LAGS cannot be negative")
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
