package config

import (
	"sort"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/constants"
)

// Default detector thresholds
const (
	DefaultMaxParams         = 4
	DefaultMaxPositionalArgs = 4
	DefaultMaxMethods        = 15
	DefaultMaxClassLines     = 500
	DefaultMaxFunctionLines  = 60
	DefaultMaxPointerDepth   = 1
	DefaultMinStringLength   = 4
	DefaultMaxGlobals        = 5
)

// Default clustering settings
const (
	DefaultMECEThreshold       = 0.8
	DefaultMECEMinStatements   = 3
	DefaultMECELSHMinFunctions = 500
)

// DefaultFailOn is the default gate threshold
const DefaultFailOn = string(domain.SeverityHigh)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Policy: constants.ProfileDefault,
		Analysis: AnalysisConfig{
			IncludePatterns:  []string{"**/*.py", "**/*.pyi", "**/*.c", "**/*.h"},
			ExcludePatterns:  append([]string(nil), constants.DefaultExcludePatterns...),
			Recursive:        true,
			RespectGitignore: true,
			Workers:          0,
		},
		Detectors: DetectorsConfig{
			MagicLiteral: MagicLiteralConfig{
				Enabled:         true,
				Allowlist:       []string{"0", "1", "-1"},
				MinStringLength: DefaultMinStringLength,
			},
			Position: PositionConfig{
				Enabled:           true,
				MaxParams:         DefaultMaxParams,
				MaxPositionalArgs: DefaultMaxPositionalArgs,
			},
			Timing: TimingConfig{Enabled: true},
			GodObject: GodObjectConfig{
				Enabled:       true,
				MaxMethods:    DefaultMaxMethods,
				MaxClassLines: DefaultMaxClassLines,
			},
			GlobalState: GlobalStateConfig{
				Enabled:    true,
				MaxGlobals: DefaultMaxGlobals,
			},
			Safety: SafetyConfig{
				Enabled:          false,
				MaxFunctionLines: DefaultMaxFunctionLines,
				MaxPointerDepth:  DefaultMaxPointerDepth,
			},
			SeverityOverrides: map[string]string{},
		},
		MECE: MECEConfig{
			Enabled:         true,
			Threshold:       DefaultMECEThreshold,
			MinStatements:   DefaultMECEMinStatements,
			LSHMinFunctions: DefaultMECELSHMinFunctions,
			EmitViolations:  true,
		},
		Scoring: ScoringConfig{
			Weights: WeightsConfig{
				Connascence: constants.DefaultConnascenceWeight,
				NASA:        constants.DefaultNASAWeight,
				Duplication: constants.DefaultDuplicationWeight,
			},
			ConnascenceNormalizer: constants.DefaultConnascenceNormalizer,
		},
		Trend: TrendConfig{
			HistorySize: constants.DefaultHistorySize,
			Window:      constants.DefaultTrendWindow,
			HistoryPath: constants.DefaultHistoryPath,
		},
		Check: CheckConfig{
			FailOn: DefaultFailOn,
		},
		Waivers: constants.DefaultWaiverFile,
		Output: OutputConfig{
			Format:      constants.OutputFormatText,
			ShowDetails: true,
		},
	}
}

// profile mutates a config into a preset
type profile struct {
	description string
	apply       func(*Config)
}

var profiles = map[string]profile{
	constants.ProfileDefault: {
		description: "Balanced defaults for application code",
		apply:       func(*Config) {},
	},
	constants.ProfileNASA: {
		description: "NASA/JPL Power of Ten: safety rules on, three positional parameters, 60-line functions",
		apply: func(c *Config) {
			c.Detectors.Safety.Enabled = true
			c.Detectors.Safety.MaxFunctionLines = 60
			c.Detectors.Position.MaxParams = 3
		},
	},
	constants.ProfileStrictCore: {
		description: "Strict settings for core libraries, fails on medium findings",
		apply: func(c *Config) {
			c.Detectors.Position.MaxParams = 3
			c.Detectors.GodObject.MaxMethods = 12
			c.MECE.Threshold = 0.75
			c.Check.FailOn = string(domain.SeverityMedium)
		},
	},
	constants.ProfileLenient: {
		description: "Relaxed thresholds for legacy code, fails on critical findings only",
		apply: func(c *Config) {
			c.Detectors.Position.MaxParams = 6
			c.Detectors.GodObject.MaxMethods = 25
			c.Check.FailOn = string(domain.SeverityCritical)
		},
	},
}

// ApplyProfile applies a named preset. Unknown names are a ConfigError.
func ApplyProfile(cfg *Config, name string) error {
	p, ok := profiles[name]
	if !ok {
		return domain.NewConfigError("policy", "unknown profile %q", name)
	}
	p.apply(cfg)
	cfg.Policy = name
	return nil
}

// ProfileNames returns the known profile names, sorted
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProfileDescription returns a one-line description of a profile
func ProfileDescription(name string) string {
	return profiles[name].description
}
