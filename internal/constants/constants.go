package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "connscan"

	// ConfigFileName is the default config file name
	ConfigFileName = ".connscan.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "CONNSCAN"

	// ConfigEnvVar points at an explicit config file
	ConfigEnvVar = "CONNSCAN_CONFIG"

	// DefaultHistoryPath is where snapshots are kept between runs
	DefaultHistoryPath = ".connscan/history.db"

	// DefaultWaiverFile is the waiver file looked up next to the config
	DefaultWaiverFile = ".connscan-waivers.yaml"
)

// Profile names
const (
	ProfileDefault    = "default"
	ProfileNASA       = "nasa_jpl_pot10"
	ProfileStrictCore = "strict-core"
	ProfileLenient    = "lenient"
)

// Output format constants
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Scoring defaults
const (
	DefaultConnascenceWeight     = 0.4
	DefaultNASAWeight            = 0.3
	DefaultDuplicationWeight     = 0.3
	DefaultConnascenceNormalizer = 100.0
	DefaultHistorySize           = 20
	DefaultTrendWindow           = 5
)

// DefaultExcludePatterns are never analyzed unless explicitly included
var DefaultExcludePatterns = []string{
	"**/.git/**",
	"**/__pycache__/**",
	"**/.venv/**",
	"**/venv/**",
	"**/node_modules/**",
	"**/build/**",
	"**/dist/**",
	"**/.tox/**",
	"**/*.egg-info/**",
}
