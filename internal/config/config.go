package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/constants"
)

// Config represents the main configuration structure
type Config struct {
	// Policy names the profile preset applied beneath the file's own keys
	Policy string `json:"policy" mapstructure:"policy" yaml:"policy"`

	// Analysis holds file discovery and execution settings
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis" yaml:"analysis"`

	// Detectors holds per-rule settings
	Detectors DetectorsConfig `json:"detectors" mapstructure:"detectors" yaml:"detectors"`

	// MECE holds duplicate-algorithm clustering settings
	MECE MECEConfig `json:"mece" mapstructure:"mece" yaml:"mece"`

	// Scoring holds the quality score weights
	Scoring ScoringConfig `json:"scoring" mapstructure:"scoring" yaml:"scoring"`

	// Trend holds snapshot history settings
	Trend TrendConfig `json:"trend" mapstructure:"trend" yaml:"trend"`

	// Check holds quality gate settings
	Check CheckConfig `json:"check" mapstructure:"check" yaml:"check"`

	// Waivers is the path of the waiver file
	Waivers string `json:"waivers" mapstructure:"waivers" yaml:"waivers"`

	// Output holds output formatting configuration
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`
}

// AnalysisConfig holds general analysis configuration
type AnalysisConfig struct {
	// IncludePatterns specifies file patterns to include
	IncludePatterns []string `json:"include_patterns" mapstructure:"include_patterns" yaml:"include_patterns"`

	// ExcludePatterns specifies file patterns to exclude
	ExcludePatterns []string `json:"exclude_patterns" mapstructure:"exclude_patterns" yaml:"exclude_patterns"`

	// Recursive controls whether to analyze directories recursively
	Recursive bool `json:"recursive" mapstructure:"recursive" yaml:"recursive"`

	// RespectGitignore skips files ignored by the target's .gitignore
	RespectGitignore bool `json:"respect_gitignore" mapstructure:"respect_gitignore" yaml:"respect_gitignore"`

	// Workers is the number of files analyzed in parallel (0 = number of CPUs)
	Workers int `json:"workers" mapstructure:"workers" yaml:"workers"`
}

// DetectorsConfig holds the settings of every per-file detector
type DetectorsConfig struct {
	MagicLiteral MagicLiteralConfig `json:"magic_literal" mapstructure:"magic_literal" yaml:"magic_literal"`
	Position     PositionConfig     `json:"position" mapstructure:"position" yaml:"position"`
	Timing       TimingConfig       `json:"timing" mapstructure:"timing" yaml:"timing"`
	GodObject    GodObjectConfig    `json:"god_object" mapstructure:"god_object" yaml:"god_object"`
	GlobalState  GlobalStateConfig  `json:"global_state" mapstructure:"global_state" yaml:"global_state"`
	Safety       SafetyConfig       `json:"safety" mapstructure:"safety" yaml:"safety"`

	// SeverityOverrides replaces the severity of a rule id
	SeverityOverrides map[string]string `json:"severity_overrides" mapstructure:"severity_overrides" yaml:"severity_overrides"`
}

type MagicLiteralConfig struct {
	Enabled         bool     `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	Allowlist       []string `json:"allowlist" mapstructure:"allowlist" yaml:"allowlist"`
	MinStringLength int      `json:"min_string_length" mapstructure:"min_string_length" yaml:"min_string_length"`
}

type PositionConfig struct {
	Enabled           bool `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	MaxParams         int  `json:"max_params" mapstructure:"max_params" yaml:"max_params"`
	MaxPositionalArgs int  `json:"max_positional_args" mapstructure:"max_positional_args" yaml:"max_positional_args"`
}

type TimingConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
}

type GlobalStateConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	MaxGlobals int  `json:"max_globals" mapstructure:"max_globals" yaml:"max_globals"`
}

type GodObjectConfig struct {
	Enabled       bool `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	MaxMethods    int  `json:"max_methods" mapstructure:"max_methods" yaml:"max_methods"`
	MaxClassLines int  `json:"max_class_lines" mapstructure:"max_class_lines" yaml:"max_class_lines"`
}

type SafetyConfig struct {
	Enabled          bool `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	MaxFunctionLines int  `json:"max_function_lines" mapstructure:"max_function_lines" yaml:"max_function_lines"`
	MaxPointerDepth  int  `json:"max_pointer_depth" mapstructure:"max_pointer_depth" yaml:"max_pointer_depth"`
}

// MECEConfig holds duplicate clustering configuration
type MECEConfig struct {
	Enabled         bool    `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	Threshold       float64 `json:"threshold" mapstructure:"threshold" yaml:"threshold"`
	MinStatements   int     `json:"min_statements" mapstructure:"min_statements" yaml:"min_statements"`
	LSHMinFunctions int     `json:"lsh_min_functions" mapstructure:"lsh_min_functions" yaml:"lsh_min_functions"`

	// EmitViolations adds one CON_ALGORITHM violation per cluster member
	EmitViolations bool `json:"emit_violations" mapstructure:"emit_violations" yaml:"emit_violations"`
}

// ScoringConfig holds the score weights
type ScoringConfig struct {
	Weights               WeightsConfig      `json:"weights" mapstructure:"weights" yaml:"weights"`
	ConnascenceNormalizer float64            `json:"connascence_normalizer" mapstructure:"connascence_normalizer" yaml:"connascence_normalizer"`
	SeverityWeights       map[string]float64 `json:"severity_weights,omitempty" mapstructure:"severity_weights" yaml:"severity_weights,omitempty"`
	TypeWeights           map[string]float64 `json:"type_weights,omitempty" mapstructure:"type_weights" yaml:"type_weights,omitempty"`
}

// WeightsConfig holds the base blend weights of the quality score
type WeightsConfig struct {
	Connascence float64 `json:"connascence" mapstructure:"connascence" yaml:"connascence"`
	NASA        float64 `json:"nasa" mapstructure:"nasa" yaml:"nasa"`
	Duplication float64 `json:"duplication" mapstructure:"duplication" yaml:"duplication"`
}

// TrendConfig holds snapshot history configuration
type TrendConfig struct {
	HistorySize int    `json:"history_size" mapstructure:"history_size" yaml:"history_size"`
	Window      int    `json:"window" mapstructure:"window" yaml:"window"`
	HistoryPath string `json:"history_path" mapstructure:"history_path" yaml:"history_path"`
}

// CheckConfig holds quality gate configuration
type CheckConfig struct {
	// FailOn is the lowest severity that fails the gate
	FailOn string `json:"fail_on" mapstructure:"fail_on" yaml:"fail_on"`

	// Budgets maps total_violations, severity or type names to a maximum count
	Budgets map[string]int `json:"budgets,omitempty" mapstructure:"budgets" yaml:"budgets,omitempty"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// ShowDetails controls whether to show every violation in text output
	ShowDetails bool `json:"show_details" mapstructure:"show_details" yaml:"show_details"`

	// MetricsFile is where prometheus gauges are written (empty = disabled)
	MetricsFile string `json:"metrics_file" mapstructure:"metrics_file" yaml:"metrics_file"`
}

// LoadConfig loads configuration from file or returns default config
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "", "")
}

// LoadConfigWithTarget resolves configuration in precedence order:
// built-in defaults, then the profile, then the file's keys. A non-empty
// profile argument wins over the file's policy key. CLI flags are layered
// on top by the caller.
func LoadConfigWithTarget(configPath, targetPath, profile string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}

	var v *viper.Viper
	if configPath != "" {
		// Create a new viper instance to avoid race conditions
		v = viper.New()
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, domain.NewConfigError("", "failed to read config file %s: %v", configPath, err)
		}
	}

	if profile == "" && v != nil {
		profile = v.GetString("policy")
	}
	if profile == "" {
		profile = constants.ProfileDefault
	}

	cfg := DefaultConfig()
	if err := ApplyProfile(cfg, profile); err != nil {
		return nil, err
	}

	if v != nil {
		if err := overlay(cfg, v); err != nil {
			return nil, err
		}
		cfg.Policy = profile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay copies the keys present in the file onto cfg
func overlay(cfg *Config, v *viper.Viper) error {
	if err := v.Unmarshal(cfg); err != nil {
		return domain.NewConfigError("", "failed to unmarshal config: %v", err)
	}

	// slices from the file replace the preset instead of merging element-wise
	slices := map[string]*[]string{
		"analysis.include_patterns":         &cfg.Analysis.IncludePatterns,
		"analysis.exclude_patterns":         &cfg.Analysis.ExcludePatterns,
		"detectors.magic_literal.allowlist": &cfg.Detectors.MagicLiteral.Allowlist,
	}
	for key, dst := range slices {
		if v.IsSet(key) {
			*dst = v.GetStringSlice(key)
		}
	}
	return nil
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// configCandidates lists config file names in order of preference
var configCandidates = []string{
	constants.ConfigFileName,
	".connscan.yml",
	"connscan.yaml",
	".connscan.toml",
	".connscan.json",
}

// findDefaultConfig looks for default configuration files in common locations
// targetPath is the path being analyzed (file or directory)
func findDefaultConfig(targetPath string) string {
	// If targetPath is provided, search from there upward
	if targetPath != "" {
		absPath, err := filepath.Abs(targetPath)
		if err == nil {
			// If it's a file, start from its directory
			info, err := os.Stat(absPath)
			if err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}

			volume := filepath.VolumeName(absPath)
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir, configCandidates); config != "" {
					return config
				}

				parent := filepath.Dir(dir)
				if parent == dir ||
					dir == volume ||
					(volume != "" && dir == volume+string(filepath.Separator)) {
					break
				}
			}
		}
	}

	// Fallback to current directory
	if config := searchConfigInDirectory(".", configCandidates); config != "" {
		return config
	}

	// Check XDG config directory (Linux/Mac standard)
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if config := searchConfigInDirectory(filepath.Join(xdgConfig, constants.ToolName), configCandidates); config != "" {
			return config
		}
	}

	// Check ~/.config/connscan/ (XDG default)
	if home, err := os.UserHomeDir(); err == nil {
		configDir := filepath.Join(home, ".config", constants.ToolName)
		if config := searchConfigInDirectory(configDir, configCandidates); config != "" {
			return config
		}
	}

	if envConfig := os.Getenv(constants.ConfigEnvVar); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}

	return ""
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	positive := []struct {
		field string
		value int
	}{
		{"detectors.position.max_params", c.Detectors.Position.MaxParams},
		{"detectors.position.max_positional_args", c.Detectors.Position.MaxPositionalArgs},
		{"detectors.god_object.max_methods", c.Detectors.GodObject.MaxMethods},
		{"detectors.god_object.max_class_lines", c.Detectors.GodObject.MaxClassLines},
		{"detectors.safety.max_function_lines", c.Detectors.Safety.MaxFunctionLines},
		{"detectors.safety.max_pointer_depth", c.Detectors.Safety.MaxPointerDepth},
		{"mece.min_statements", c.MECE.MinStatements},
		{"mece.lsh_min_functions", c.MECE.LSHMinFunctions},
		{"trend.history_size", c.Trend.HistorySize},
		{"trend.window", c.Trend.Window},
	}
	for _, p := range positive {
		if p.value < 1 {
			return domain.NewConfigError(p.field, "must be >= 1, got %d", p.value)
		}
	}

	if c.Detectors.GlobalState.MaxGlobals < 0 {
		return domain.NewConfigError("detectors.global_state.max_globals", "must be >= 0, got %d", c.Detectors.GlobalState.MaxGlobals)
	}

	if c.Detectors.MagicLiteral.MinStringLength < 0 {
		return domain.NewConfigError("detectors.magic_literal.min_string_length", "must be >= 0, got %d", c.Detectors.MagicLiteral.MinStringLength)
	}

	if c.MECE.Threshold <= 0 || c.MECE.Threshold > 1 {
		return domain.NewConfigError("mece.threshold", "must be in (0, 1], got %g", c.MECE.Threshold)
	}

	w := c.Scoring.Weights
	if w.Connascence < 0 || w.NASA < 0 || w.Duplication < 0 {
		return domain.NewConfigError("scoring.weights", "weights must be >= 0")
	}
	if w.Connascence+w.NASA+w.Duplication <= 0 {
		return domain.NewConfigError("scoring.weights", "at least one weight must be > 0")
	}
	if c.Scoring.ConnascenceNormalizer <= 0 {
		return domain.NewConfigError("scoring.connascence_normalizer", "must be > 0, got %g", c.Scoring.ConnascenceNormalizer)
	}
	for sev, weight := range c.Scoring.SeverityWeights {
		if !domain.Severity(strings.ToLower(sev)).IsValid() {
			return domain.NewConfigError("scoring.severity_weights."+sev, "unknown severity")
		}
		if weight < 0 {
			return domain.NewConfigError("scoring.severity_weights."+sev, "must be >= 0")
		}
	}
	for typ, weight := range c.Scoring.TypeWeights {
		if _, ok := domain.ParseConnascenceType(typ); !ok {
			return domain.NewConfigError("scoring.type_weights."+typ, "unknown connascence type")
		}
		if weight < 0 {
			return domain.NewConfigError("scoring.type_weights."+typ, "must be >= 0")
		}
	}

	for rule, sev := range c.Detectors.SeverityOverrides {
		if !domain.Severity(strings.ToLower(sev)).IsValid() {
			return domain.NewConfigError("detectors.severity_overrides."+rule, "unknown severity %q", sev)
		}
	}

	if !domain.Severity(strings.ToLower(c.Check.FailOn)).IsValid() {
		return domain.NewConfigError("check.fail_on", "unknown severity %q, must be one of: low, medium, high, critical", c.Check.FailOn)
	}

	if _, ok := domain.ParseOutputFormat(c.Output.Format); !ok {
		return domain.NewConfigError("output.format", "invalid format '%s', must be one of: text, json, yaml", c.Output.Format)
	}

	// Validate include patterns (at least one must be specified)
	if len(c.Analysis.IncludePatterns) == 0 {
		return domain.NewConfigError("analysis.include_patterns", "cannot be empty")
	}
	if c.Analysis.Workers < 0 {
		return domain.NewConfigError("analysis.workers", "must be >= 0, got %d", c.Analysis.Workers)
	}

	if _, ok := profiles[c.Policy]; !ok {
		return domain.NewConfigError("policy", "unknown profile %q, must be one of: %s", c.Policy, strings.Join(ProfileNames(), ", "))
	}
	return nil
}

// FailOnSeverity returns the gate threshold as a Severity
func (c *Config) FailOnSeverity() domain.Severity {
	return domain.NormalizeSeverity(c.Check.FailOn)
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	// Create a new viper instance to avoid race conditions
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("policy", config.Policy)
	v.Set("analysis", config.Analysis)
	v.Set("detectors", config.Detectors)
	v.Set("mece", config.MECE)
	v.Set("scoring", config.Scoring)
	v.Set("trend", config.Trend)
	v.Set("check", config.Check)
	v.Set("waivers", config.Waivers)
	v.Set("output", config.Output)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}
