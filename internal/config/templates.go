package config

import (
	"strconv"
	"strings"

	"github.com/ludo-technologies/connscan/internal/constants"
)

// ProjectType represents the language mix of the analyzed project
type ProjectType string

const (
	ProjectTypeMixed  ProjectType = "mixed"
	ProjectTypePython ProjectType = "python"
	ProjectTypeC      ProjectType = "c"
)

// ProjectTypes returns the project types offered by init
func ProjectTypes() []ProjectType {
	return []ProjectType{ProjectTypeMixed, ProjectTypePython, ProjectTypeC}
}

// ProjectPreset holds file discovery presets for a project type
type ProjectPreset struct {
	IncludePatterns []string
	ExcludePatterns []string
}

// GetProjectPresets returns presets for different project types
func GetProjectPresets() map[ProjectType]ProjectPreset {
	pythonExcludes := []string{
		"**/__pycache__/**",
		"**/.venv/**",
		"**/venv/**",
		"**/.tox/**",
		"**/*.egg-info/**",
	}
	cExcludes := []string{
		"**/build/**",
		"**/third_party/**",
		"**/vendor/**",
	}
	return map[ProjectType]ProjectPreset{
		ProjectTypeMixed: {
			IncludePatterns: []string{"**/*.py", "**/*.pyi", "**/*.c", "**/*.h"},
			ExcludePatterns: append(append([]string{"**/.git/**"}, pythonExcludes...), cExcludes...),
		},
		ProjectTypePython: {
			IncludePatterns: []string{"**/*.py", "**/*.pyi"},
			ExcludePatterns: append([]string{"**/.git/**", "**/build/**", "**/dist/**"}, pythonExcludes...),
		},
		ProjectTypeC: {
			IncludePatterns: []string{"**/*.c", "**/*.h"},
			ExcludePatterns: append([]string{"**/.git/**"}, cExcludes...),
		},
	}
}

// GetFullConfigTemplate returns the documented config template as YAML.
// The profile's thresholds are written out so the file is self-describing.
func GetFullConfigTemplate(projectType ProjectType, profile string) string {
	preset, ok := GetProjectPresets()[projectType]
	if !ok {
		preset = GetProjectPresets()[ProjectTypeMixed]
	}

	cfg := DefaultConfig()
	if err := ApplyProfile(cfg, profile); err != nil {
		profile = constants.ProfileDefault
		cfg = DefaultConfig()
	}
	d := cfg.Detectors

	return `# connscan configuration
# Documentation: https://github.com/ludo-technologies/connscan

# Preset applied beneath the keys in this file: ` + strings.Join(ProfileNames(), ", ") + `
policy: ` + profile + `

# ============================================================================
# ANALYSIS SCOPE
# ============================================================================
analysis:
  # File patterns to include (glob patterns)
  include_patterns:` + formatYAMLList(preset.IncludePatterns) + `
  # File patterns to exclude (glob patterns)
  exclude_patterns:` + formatYAMLList(preset.ExcludePatterns) + `
  recursive: true
  # Skip files ignored by .gitignore
  respect_gitignore: true
  # Number of parallel workers (0 = number of CPUs)
  workers: 0

# ============================================================================
# DETECTORS
# ============================================================================
detectors:
  # Unnamed numeric and string literals (Connascence of Meaning)
  magic_literal:
    enabled: ` + strconv.FormatBool(d.MagicLiteral.Enabled) + `
    allowlist:` + formatYAMLList(d.MagicLiteral.Allowlist) + `
    min_string_length: ` + strconv.Itoa(d.MagicLiteral.MinStringLength) + `

  # Long positional parameter lists (Connascence of Position)
  position:
    enabled: ` + strconv.FormatBool(d.Position.Enabled) + `
    max_params: ` + strconv.Itoa(d.Position.MaxParams) + `
    max_positional_args: ` + strconv.Itoa(d.Position.MaxPositionalArgs) + `

  # sleep() calls standing in for synchronization (Connascence of Timing)
  timing:
    enabled: ` + strconv.FormatBool(d.Timing.Enabled) + `

  # Classes with too many methods or lines
  god_object:
    enabled: ` + strconv.FormatBool(d.GodObject.Enabled) + `
    max_methods: ` + strconv.Itoa(d.GodObject.MaxMethods) + `
    max_class_lines: ` + strconv.Itoa(d.GodObject.MaxClassLines) + `

  # Too many names rebound through global statements (Connascence of Identity)
  global_state:
    enabled: ` + strconv.FormatBool(d.GlobalState.Enabled) + `
    max_globals: ` + strconv.Itoa(d.GlobalState.MaxGlobals) + `

  # NASA/JPL Power of Ten rules
  safety:
    enabled: ` + strconv.FormatBool(d.Safety.Enabled) + `
    max_function_lines: ` + strconv.Itoa(d.Safety.MaxFunctionLines) + `
    max_pointer_depth: ` + strconv.Itoa(d.Safety.MaxPointerDepth) + `

  # Replace the severity of a rule, e.g. CON_MAGIC_LITERAL: low
  severity_overrides: {}

# ============================================================================
# DUPLICATE ALGORITHMS
# ============================================================================
mece:
  enabled: ` + strconv.FormatBool(cfg.MECE.Enabled) + `
  # Minimum similarity for two functions to share a cluster (0, 1]
  threshold: ` + strconv.FormatFloat(cfg.MECE.Threshold, 'g', -1, 64) + `
  # Functions with fewer body statements are ignored
  min_statements: ` + strconv.Itoa(cfg.MECE.MinStatements) + `
  # Candidate pairs come from LSH buckets above this many functions
  lsh_min_functions: ` + strconv.Itoa(cfg.MECE.LSHMinFunctions) + `
  # Report one CON_ALGORITHM violation per cluster member
  emit_violations: ` + strconv.FormatBool(cfg.MECE.EmitViolations) + `

# ============================================================================
# SCORING
# ============================================================================
scoring:
  weights:
    connascence: ` + strconv.FormatFloat(cfg.Scoring.Weights.Connascence, 'g', -1, 64) + `
    nasa: ` + strconv.FormatFloat(cfg.Scoring.Weights.NASA, 'g', -1, 64) + `
    duplication: ` + strconv.FormatFloat(cfg.Scoring.Weights.Duplication, 'g', -1, 64) + `
  connascence_normalizer: ` + strconv.FormatFloat(cfg.Scoring.ConnascenceNormalizer, 'g', -1, 64) + `

# ============================================================================
# TREND
# ============================================================================
trend:
  history_size: ` + strconv.Itoa(cfg.Trend.HistorySize) + `
  window: ` + strconv.Itoa(cfg.Trend.Window) + `
  history_path: ` + cfg.Trend.HistoryPath + `

# ============================================================================
# QUALITY GATE
# ============================================================================
check:
  # Lowest severity that fails "connscan check": low, medium, high, critical
  fail_on: ` + cfg.Check.FailOn + `
  # Maximum counts by total_violations, severity or connascence type
  budgets: {}

waivers: ` + cfg.Waivers + `

output:
  # Output format: text, json, yaml
  format: ` + cfg.Output.Format + `
  show_details: true
  # Write prometheus gauges to this file (empty = disabled)
  metrics_file: ""
`
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate(profile string) string {
	if _, ok := profiles[profile]; !ok {
		profile = constants.ProfileDefault
	}
	return `# connscan configuration (minimal)
# See full options: https://github.com/ludo-technologies/connscan

policy: ` + profile + `

analysis:
  include_patterns: ["**/*.py", "**/*.pyi", "**/*.c", "**/*.h"]

check:
  fail_on: ` + DefaultConfigFor(profile).Check.FailOn + `
`
}

// DefaultConfigFor returns the defaults with a profile applied
func DefaultConfigFor(profile string) *Config {
	cfg := DefaultConfig()
	if err := ApplyProfile(cfg, profile); err != nil {
		return DefaultConfig()
	}
	return cfg
}

// formatYAMLList formats a string slice as an indented YAML block list.
// Items are double-quoted since glob stars would otherwise read as aliases.
func formatYAMLList(items []string) string {
	if len(items) == 0 {
		return " []"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("\n    - ")
		b.WriteString(strconv.Quote(item))
	}
	return b.String()
}
