package policy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/connscan/domain"
)

// Scope says what a waiver pattern is matched against
type Scope string

const (
	ScopeFinding Scope = "finding"
	ScopeRule    Scope = "rule"
	ScopeFile    Scope = "file"
	ScopeProject Scope = "project"
)

// Waiver suppresses matching violations until it expires
type Waiver struct {
	ID        string `yaml:"id" json:"id"`
	Scope     Scope  `yaml:"scope" json:"scope"`
	Pattern   string `yaml:"pattern" json:"pattern"`
	Reason    string `yaml:"reason" json:"reason"`
	ExpiresAt string `yaml:"expires_at,omitempty" json:"expires_at,omitempty"`

	expires time.Time
	glob    *ignore.GitIgnore
}

// waiverFile is the on-disk layout
type waiverFile struct {
	Waivers []Waiver `yaml:"waivers"`
}

// WaiverSet is a compiled, validated list of waivers
type WaiverSet struct {
	waivers []Waiver
	now     func() time.Time
}

// LoadWaivers reads a waiver file. A missing file yields an empty set.
func LoadWaivers(path string) (*WaiverSet, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewWaiverSet(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read waiver file %s: %w", path, err)
	}
	return ParseWaivers(data)
}

// ParseWaivers decodes and validates YAML waiver content
func ParseWaivers(data []byte) (*WaiverSet, error) {
	var file waiverFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid waiver file: %w", err)
	}
	return NewWaiverSet(file.Waivers)
}

// NewWaiverSet validates and compiles waivers
func NewWaiverSet(waivers []Waiver) (*WaiverSet, error) {
	set := &WaiverSet{now: time.Now}
	seen := make(map[string]bool)
	for i, w := range waivers {
		if w.ID == "" {
			w.ID = fmt.Sprintf("waiver-%d", i+1)
		}
		if seen[w.ID] {
			return nil, domain.NewConfigError("waivers", "duplicate waiver id %q", w.ID)
		}
		seen[w.ID] = true

		switch w.Scope {
		case ScopeFinding, ScopeRule, ScopeFile:
			if strings.TrimSpace(w.Pattern) == "" {
				return nil, domain.NewConfigError("waivers", "waiver %s: pattern is required for scope %s", w.ID, w.Scope)
			}
		case ScopeProject:
			if w.Pattern == "" {
				w.Pattern = "*"
			}
		default:
			return nil, domain.NewConfigError("waivers", "waiver %s: unknown scope %q", w.ID, w.Scope)
		}

		if w.ExpiresAt != "" {
			t, err := time.Parse(time.RFC3339, w.ExpiresAt)
			if err != nil {
				return nil, domain.NewConfigError("waivers", "waiver %s: expires_at must be RFC3339: %v", w.ID, err)
			}
			w.expires = t
		}
		if w.Scope == ScopeFile {
			w.glob = ignore.CompileIgnoreLines(w.Pattern)
		}
		set.waivers = append(set.waivers, w)
	}
	return set, nil
}

// Len returns the number of waivers in the set
func (s *WaiverSet) Len() int { return len(s.waivers) }

// Active returns the waivers that have not expired
func (s *WaiverSet) Active() []Waiver {
	now := s.now()
	var out []Waiver
	for _, w := range s.waivers {
		if !w.expired(now) {
			out = append(out, w)
		}
	}
	return out
}

func (w Waiver) expired(now time.Time) bool {
	return !w.expires.IsZero() && !now.Before(w.expires)
}

// Matches reports whether the waiver covers the violation
func (w Waiver) Matches(v domain.Violation) bool {
	switch w.Scope {
	case ScopeFinding:
		return v.ID == w.Pattern
	case ScopeRule:
		return w.Pattern == "*" || v.RuleID == w.Pattern
	case ScopeFile:
		return w.glob != nil && w.glob.MatchesPath(filepath.ToSlash(v.FilePath))
	case ScopeProject:
		return true
	}
	return false
}

// Apply splits violations into kept and waived. Expired waivers never match.
func (s *WaiverSet) Apply(violations []domain.Violation) (kept []domain.Violation, waived int) {
	if s == nil || len(s.waivers) == 0 {
		return violations, 0
	}
	active := s.Active()
	kept = make([]domain.Violation, 0, len(violations))
	for _, v := range violations {
		if matchesAny(active, v) {
			waived++
			continue
		}
		kept = append(kept, v)
	}
	return kept, waived
}

func matchesAny(waivers []Waiver, v domain.Violation) bool {
	for _, w := range waivers {
		if w.Matches(v) {
			return true
		}
	}
	return false
}
