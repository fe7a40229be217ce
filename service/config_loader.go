package service

import (
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/analyzer"
	"github.com/ludo-technologies/connscan/internal/config"
	"github.com/ludo-technologies/connscan/internal/policy"
	"github.com/ludo-technologies/connscan/internal/scoring"
)

// ConfigurationLoaderImpl resolves configuration and converts it into the
// option structs consumed by the analyzer, scorer and policy packages
type ConfigurationLoaderImpl struct{}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// LoadConfig loads configuration for a target. An empty path searches for a
// config file starting at target; a non-empty profile wins over the file.
func (c *ConfigurationLoaderImpl) LoadConfig(path, target, profile string) (*config.Config, error) {
	return config.LoadConfigWithTarget(path, target, profile)
}

// ConfigOverrides carries CLI flags. Nil fields and empty slices leave the
// loaded configuration untouched.
type ConfigOverrides struct {
	OutputFormat    *string
	FailOn          *string
	Workers         *int
	Recursive       *bool
	MaxParams       *int
	MaxMethods      *int
	EnableSafety    *bool
	MECEThreshold   *float64
	HistoryPath     *string
	Waivers         *string
	MetricsFile     *string
	IncludePatterns []string
	ExcludePatterns []string
}

// MergeConfig applies CLI overrides on top of a loaded configuration and
// validates the result. The input config is not modified.
func (c *ConfigurationLoaderImpl) MergeConfig(base *config.Config, o ConfigOverrides) (*config.Config, error) {
	merged := *base

	if o.OutputFormat != nil {
		merged.Output.Format = *o.OutputFormat
	}
	if o.FailOn != nil {
		merged.Check.FailOn = strings.ToLower(*o.FailOn)
	}
	if o.Workers != nil {
		merged.Analysis.Workers = *o.Workers
	}
	if o.Recursive != nil {
		merged.Analysis.Recursive = *o.Recursive
	}
	if o.MaxParams != nil {
		merged.Detectors.Position.MaxParams = *o.MaxParams
	}
	if o.MaxMethods != nil {
		merged.Detectors.GodObject.MaxMethods = *o.MaxMethods
	}
	if o.EnableSafety != nil {
		merged.Detectors.Safety.Enabled = *o.EnableSafety
	}
	if o.MECEThreshold != nil {
		merged.MECE.Threshold = *o.MECEThreshold
	}
	if o.HistoryPath != nil {
		merged.Trend.HistoryPath = *o.HistoryPath
	}
	if o.Waivers != nil {
		merged.Waivers = *o.Waivers
	}
	if o.MetricsFile != nil {
		merged.Output.MetricsFile = *o.MetricsFile
	}

	// Slices are replaced, never appended to
	if len(o.IncludePatterns) > 0 {
		merged.Analysis.IncludePatterns = append([]string(nil), o.IncludePatterns...)
	}
	if len(o.ExcludePatterns) > 0 {
		merged.Analysis.ExcludePatterns = append([]string(nil), o.ExcludePatterns...)
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// DetectorOptions converts detector settings into analyzer options
func (c *ConfigurationLoaderImpl) DetectorOptions(cfg *config.Config) *analyzer.Options {
	d := cfg.Detectors
	opts := &analyzer.Options{
		MagicLiteral: analyzer.MagicLiteralOptions{
			Enabled:         d.MagicLiteral.Enabled,
			Allowlist:       append([]string(nil), d.MagicLiteral.Allowlist...),
			MinStringLength: d.MagicLiteral.MinStringLength,
		},
		Position: analyzer.PositionOptions{
			Enabled:           d.Position.Enabled,
			MaxParams:         d.Position.MaxParams,
			MaxPositionalArgs: d.Position.MaxPositionalArgs,
		},
		Timing: analyzer.TimingOptions{Enabled: d.Timing.Enabled},
		GodObject: analyzer.GodObjectOptions{
			Enabled:    d.GodObject.Enabled,
			MaxMethods: d.GodObject.MaxMethods,
			MaxLines:   d.GodObject.MaxClassLines,
		},
		GlobalState: analyzer.GlobalStateOptions{
			Enabled:    d.GlobalState.Enabled,
			MaxGlobals: d.GlobalState.MaxGlobals,
		},
		Algorithm: analyzer.AlgorithmOptions{Enabled: cfg.MECE.Enabled},
		Safety: analyzer.SafetyOptions{
			Enabled:          d.Safety.Enabled,
			MaxFunctionLines: d.Safety.MaxFunctionLines,
			MaxPointerDepth:  d.Safety.MaxPointerDepth,
		},
	}

	if len(d.SeverityOverrides) > 0 {
		opts.SeverityOverrides = make(map[string]domain.Severity, len(d.SeverityOverrides))
		for rule, sev := range d.SeverityOverrides {
			// rule ids are upper case; viper lowercases map keys
			opts.SeverityOverrides[strings.ToUpper(rule)] = domain.NormalizeSeverity(sev)
		}
	}
	return opts
}

// MECEOptions converts clustering settings into analyzer options
func (c *ConfigurationLoaderImpl) MECEOptions(cfg *config.Config) analyzer.MECEOptions {
	opts := analyzer.DefaultMECEOptions()
	opts.Threshold = cfg.MECE.Threshold
	opts.MinStatements = cfg.MECE.MinStatements
	opts.LSHMinFunctions = cfg.MECE.LSHMinFunctions
	return opts
}

// ScoringConfig converts scoring settings. Partial weight maps are layered on
// top of the built-in weights.
func (c *ConfigurationLoaderImpl) ScoringConfig(cfg *config.Config) scoring.Config {
	sc := scoring.DefaultConfig()
	sc.BaseWeights = domain.ScoreWeights{
		Connascence: cfg.Scoring.Weights.Connascence,
		NASA:        cfg.Scoring.Weights.NASA,
		Duplication: cfg.Scoring.Weights.Duplication,
	}
	sc.ConnascenceNormalize = cfg.Scoring.ConnascenceNormalizer

	if len(cfg.Scoring.SeverityWeights) > 0 {
		weights := make(map[domain.Severity]float64, len(scoring.DefaultSeverityWeights))
		for k, v := range scoring.DefaultSeverityWeights {
			weights[k] = v
		}
		for k, v := range cfg.Scoring.SeverityWeights {
			weights[domain.NormalizeSeverity(k)] = v
		}
		sc.SeverityWeights = weights
	}
	if len(cfg.Scoring.TypeWeights) > 0 {
		weights := make(map[domain.ConnascenceType]float64, len(scoring.DefaultTypeWeights))
		for k, v := range scoring.DefaultTypeWeights {
			weights[k] = v
		}
		for k, v := range cfg.Scoring.TypeWeights {
			if t, ok := domain.ParseConnascenceType(k); ok {
				weights[t] = v
			}
		}
		sc.TypeWeights = weights
	}
	return sc
}

// Budgets builds the violation budgets of the quality gate
func (c *ConfigurationLoaderImpl) Budgets(cfg *config.Config) (*policy.Budgets, error) {
	return policy.NewBudgets(cfg.Check.Budgets)
}

// Waivers loads the waiver file. Relative paths resolve against baseDir.
func (c *ConfigurationLoaderImpl) Waivers(cfg *config.Config, baseDir string) (*policy.WaiverSet, error) {
	if cfg.Waivers == "" {
		return policy.NewWaiverSet(nil)
	}
	path := cfg.Waivers
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	return policy.LoadWaivers(path)
}

// ServiceOptions assembles everything the connascence service needs from a
// validated configuration
func (c *ConfigurationLoaderImpl) ServiceOptions(cfg *config.Config, baseDir string) (ServiceOptions, error) {
	waivers, err := c.Waivers(cfg, baseDir)
	if err != nil {
		return ServiceOptions{}, err
	}
	return ServiceOptions{
		Profile:        cfg.Policy,
		Detectors:      c.DetectorOptions(cfg),
		MECEEnabled:    cfg.MECE.Enabled,
		MECE:           c.MECEOptions(cfg),
		EmitClusters:   cfg.MECE.EmitViolations,
		Scoring:        c.ScoringConfig(cfg),
		Waivers:        waivers,
		MaxConcurrency: cfg.Analysis.Workers,
	}, nil
}
