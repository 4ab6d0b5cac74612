package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/insightdelivered/broker-statement-converter/internal/parser"
)

// Config is the process configuration. It is read once at start-up and
// passed to the components that need it.
type Config struct {
	StatementsDir string
	Workers       int
	OverridesPath string
	DatabaseURL   string
	ServerPort    string
	LogLevel      string
	Overrides     Overrides
}

// Overrides is the optional YAML calibration file.
type Overrides struct {
	Thresholds struct {
		Tolerance          *float64 `yaml:"tolerance"`
		SmallAmount        *float64 `yaml:"small_amount"`
		PriceCeiling       *float64 `yaml:"price_ceiling"`
		FractionalQuantity *float64 `yaml:"fractional_quantity"`
		TieEpsilon         *float64 `yaml:"tie_epsilon"`
	} `yaml:"thresholds"`
	// StopWords and DisclaimerMarkers extend the built-in lists.
	StopWords         []string `yaml:"stop_words"`
	DisclaimerMarkers []string `yaml:"disclaimer_markers"`
}

// DefaultWorkers leaves one CPU for the coordinator.
func DefaultWorkers() int {
	return max(runtime.NumCPU()-1, 1)
}

// Load reads .env (if present), the environment and the overrides file
// named by BSC_CONFIG.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StatementsDir: getenv("BSC_STATEMENTS_DIR", "Statements"),
		Workers:       DefaultWorkers(),
		OverridesPath: os.Getenv("BSC_CONFIG"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		ServerPort:    getenv("SERVER_PORT", "8080"),
		LogLevel:      getenv("BSC_LOG_LEVEL", "info"),
	}

	if v := os.Getenv("BSC_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("BSC_WORKERS must be a positive integer, got %q", v)
		}
		cfg.Workers = n
	}

	if cfg.OverridesPath != "" {
		data, err := os.ReadFile(cfg.OverridesPath)
		if err != nil {
			return nil, fmt.Errorf("reading overrides: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg.Overrides); err != nil {
			return nil, fmt.Errorf("parsing overrides %s: %w", cfg.OverridesPath, err)
		}
	}
	return cfg, nil
}

// Parser returns the parser settings: the defaults with any overrides
// applied.
func (c *Config) Parser() parser.Settings {
	s := parser.DefaultSettings()
	o := c.Overrides

	set := func(dst *decimal.Decimal, v *float64) {
		if v != nil {
			*dst = decimal.NewFromFloat(*v)
		}
	}
	set(&s.Thresholds.Tolerance, o.Thresholds.Tolerance)
	set(&s.Thresholds.SmallAmount, o.Thresholds.SmallAmount)
	set(&s.Thresholds.PriceCeiling, o.Thresholds.PriceCeiling)
	set(&s.Thresholds.FractionalQuantity, o.Thresholds.FractionalQuantity)
	set(&s.Thresholds.TieEpsilon, o.Thresholds.TieEpsilon)

	if len(o.StopWords) > 0 {
		s.StopWords = append(append([]string{}, s.StopWords...), o.StopWords...)
	}
	if len(o.DisclaimerMarkers) > 0 {
		s.DisclaimerMarkers = append(append([]string{}, s.DisclaimerMarkers...), o.DisclaimerMarkers...)
	}
	return s
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
