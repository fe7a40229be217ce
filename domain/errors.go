package domain

import "fmt"

// ParseError records a file that could not be parsed. The file is skipped.
type ParseError struct {
	FilePath string `json:"file_path" yaml:"file_path"`
	Message  string `json:"message" yaml:"message"`
}

func (e ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.FilePath, e.Message)
}

// DetectorError records a detector failure on one file.
// Other detectors and files are unaffected.
type DetectorError struct {
	FilePath string `json:"file_path" yaml:"file_path"`
	Detector string `json:"detector" yaml:"detector"`
	Message  string `json:"message" yaml:"message"`
}

func (e DetectorError) Error() string {
	return fmt.Sprintf("detector %s failed on %s: %s", e.Detector, e.FilePath, e.Message)
}

// ConfigError is fatal for a run and surfaces before any parsing
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// NewConfigError creates a ConfigError for a config field
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvariantViolation signals a broken caller contract. It is raised with
// panic and must never be converted into a recoverable error.
type InvariantViolation struct {
	Message string
}

func (e InvariantViolation) Error() string {
	return "invariant violation: " + e.Message
}

// Require panics with an InvariantViolation when cond is false
func Require(cond bool, format string, args ...any) {
	if !cond {
		panic(InvariantViolation{Message: fmt.Sprintf(format, args...)})
	}
}
