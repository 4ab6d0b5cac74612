package parser

import (
	"github.com/rs/zerolog"
)

// Settings is the read-only calibration shared by every parser.
type Settings struct {
	Thresholds        Thresholds
	StopWords         []string
	DisclaimerMarkers []string
}

// DefaultSettings returns the built-in thresholds, stop words and markers.
func DefaultSettings() Settings {
	return Settings{
		Thresholds:        DefaultThresholds(),
		StopWords:         DefaultStopWords,
		DisclaimerMarkers: DefaultDisclaimerMarkers,
	}
}

// Engine bundles the broker-agnostic extraction components. It holds no
// per-statement state and is safe for concurrent use.
type Engine struct {
	Symbols    *SymbolExtractor
	Noise      *NoiseFilter
	Reconciler *Reconciler

	log zerolog.Logger
}

// NewEngine builds the components from s.
func NewEngine(s Settings, log zerolog.Logger) *Engine {
	return &Engine{
		Symbols:    NewSymbolExtractor(s.StopWords),
		Noise:      NewNoiseFilter(s.DisclaimerMarkers),
		Reconciler: NewReconciler(s.Thresholds),
		log:        log,
	}
}

// DefaultEngine is an engine with default settings and logging disabled.
func DefaultEngine() *Engine {
	return NewEngine(DefaultSettings(), zerolog.Nop())
}
