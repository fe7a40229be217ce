package analyzer

import (
	"fmt"
	"strings"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/parser"
)

// Kind identifies a detector variant
type Kind int

const (
	KindMagicLiteral Kind = iota
	KindPosition
	KindGodObject
	KindAlgorithm
	KindSafety
	KindTiming
	KindGlobalState
)

var kindNames = [...]string{
	KindMagicLiteral: "magic_literal",
	KindPosition:     "position",
	KindGodObject:    "god_object",
	KindAlgorithm:    "algorithm",
	KindSafety:       "safety",
	KindTiming:       "timing",
	KindGlobalState:  "global_state",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// AllKinds lists the detector kinds in dispatch order
func AllKinds() []Kind {
	return []Kind{KindMagicLiteral, KindPosition, KindTiming, KindGodObject, KindGlobalState, KindAlgorithm, KindSafety}
}

// Detector is a rule unit dispatched once per node during a single tree walk.
// Instances are created per file and may hold per-file state.
type Detector interface {
	Kind() Kind
	Visit(node *parser.Node, ctx *Context)
	Finish(ctx *Context)
}

// Options configures the detector set for one run
type Options struct {
	MagicLiteral MagicLiteralOptions
	Position     PositionOptions
	Timing       TimingOptions
	GodObject    GodObjectOptions
	GlobalState  GlobalStateOptions
	Algorithm    AlgorithmOptions
	Safety       SafetyOptions

	// SeverityOverrides replaces the built-in severity of a rule id
	SeverityOverrides map[string]domain.Severity
}

// MagicLiteralOptions configures the magic-literal detector
type MagicLiteralOptions struct {
	Enabled         bool
	Allowlist       []string
	MinStringLength int
}

// PositionOptions configures the positional-parameter detector
type PositionOptions struct {
	Enabled           bool
	MaxParams         int
	MaxPositionalArgs int
}

// TimingOptions configures the sleep-call detector
type TimingOptions struct {
	Enabled bool
}

// GlobalStateOptions configures the global-statement detector
type GlobalStateOptions struct {
	Enabled    bool
	MaxGlobals int
}

// GodObjectOptions configures the god-object detector
type GodObjectOptions struct {
	Enabled    bool
	MaxMethods int
	MaxLines   int
}

// AlgorithmOptions configures fingerprint collection for duplicate detection
type AlgorithmOptions struct {
	Enabled bool
}

// SafetyOptions configures the safety-rule detector
type SafetyOptions struct {
	Enabled          bool
	MaxFunctionLines int
	MaxPointerDepth  int
}

// DefaultOptions returns the built-in detector settings
func DefaultOptions() *Options {
	return &Options{
		MagicLiteral: MagicLiteralOptions{
			Enabled:         true,
			Allowlist:       []string{"0", "1", "-1"},
			MinStringLength: 4,
		},
		Position: PositionOptions{
			Enabled:           true,
			MaxParams:         4,
			MaxPositionalArgs: 4,
		},
		Timing: TimingOptions{Enabled: true},
		GodObject: GodObjectOptions{
			Enabled:    true,
			MaxMethods: 15,
			MaxLines:   500,
		},
		GlobalState: GlobalStateOptions{
			Enabled:    true,
			MaxGlobals: 5,
		},
		Algorithm: AlgorithmOptions{Enabled: true},
		Safety: SafetyOptions{
			Enabled:          false,
			MaxFunctionLines: 60,
			MaxPointerDepth:  1,
		},
	}
}

// Enabled reports whether the detector kind is switched on
func (o *Options) Enabled(k Kind) bool {
	switch k {
	case KindMagicLiteral:
		return o.MagicLiteral.Enabled
	case KindPosition:
		return o.Position.Enabled
	case KindTiming:
		return o.Timing.Enabled
	case KindGodObject:
		return o.GodObject.Enabled
	case KindGlobalState:
		return o.GlobalState.Enabled
	case KindAlgorithm:
		return o.Algorithm.Enabled
	case KindSafety:
		return o.Safety.Enabled
	}
	return false
}

// NewDetectors creates fresh detector instances for the enabled kinds, in
// dispatch order
func NewDetectors(opts *Options) []Detector {
	domain.Require(opts != nil, "detector options must not be nil")

	var detectors []Detector
	for _, k := range AllKinds() {
		if !opts.Enabled(k) {
			continue
		}
		switch k {
		case KindMagicLiteral:
			detectors = append(detectors, newMagicLiteralDetector(opts.MagicLiteral))
		case KindPosition:
			detectors = append(detectors, newPositionDetector(opts.Position))
		case KindTiming:
			detectors = append(detectors, newTimingDetector())
		case KindGodObject:
			detectors = append(detectors, newGodObjectDetector(opts.GodObject))
		case KindGlobalState:
			detectors = append(detectors, newGlobalStateDetector(opts.GlobalState))
		case KindAlgorithm:
			detectors = append(detectors, newAlgorithmDetector())
		case KindSafety:
			detectors = append(detectors, newSafetyDetector(opts.Safety))
		}
	}
	return detectors
}

// finding is the detector-side description of a violation
type finding struct {
	RuleID         string
	Severity       domain.Severity
	Type           domain.ConnascenceType
	Node           *parser.Node
	Description    string
	Recommendation string
	Weight         float64
}

// Context carries the walk state visible to detectors
type Context struct {
	FilePath string
	Options  *Options

	// ancestors holds the nodes above the one being visited, root first
	ancestors []*parser.Node
	functions []*parser.Node
	classes   []*parser.Node

	current     int
	violations  [][]domain.Violation
	fingerprint []FunctionFingerprint
}

// Function returns the innermost function enclosing the visited node
func (c *Context) Function() *parser.Node {
	if len(c.functions) == 0 {
		return nil
	}
	return c.functions[len(c.functions)-1]
}

// Class returns the innermost class enclosing the visited node
func (c *Context) Class() *parser.Node {
	if len(c.classes) == 0 {
		return nil
	}
	return c.classes[len(c.classes)-1]
}

// Parent returns the direct parent of the visited node
func (c *Context) Parent() *parser.Node {
	if len(c.ancestors) == 0 {
		return nil
	}
	return c.ancestors[len(c.ancestors)-1]
}

// Ancestors returns the ancestor chain, nearest first
func (c *Context) Ancestors() []*parser.Node {
	out := make([]*parser.Node, len(c.ancestors))
	for i := range c.ancestors {
		out[i] = c.ancestors[len(c.ancestors)-1-i]
	}
	return out
}

// report builds a violation for the detector currently being dispatched
func (c *Context) report(f finding) {
	severity := f.Severity
	if override, ok := c.Options.SeverityOverrides[f.RuleID]; ok {
		severity = override
	}
	v, err := domain.NewViolation(domain.ViolationInput{
		RuleID:          f.RuleID,
		Severity:        severity,
		ConnascenceType: f.Type,
		Description:     f.Description,
		FilePath:        c.FilePath,
		Line:            f.Node.Location.StartLine,
		Column:          f.Node.Location.StartCol,
		Weight:          f.Weight,
		Recommendation:  f.Recommendation,
	})
	if err != nil {
		panic(fmt.Errorf("building %s violation: %w", f.RuleID, err))
	}
	c.violations[c.current] = append(c.violations[c.current], v)
}

// FileResult is the outcome of walking one file
type FileResult struct {
	FilePath       string
	Violations     []domain.Violation
	DetectorErrors []domain.DetectorError
	Functions      []FunctionFingerprint
}

// Walk traverses tree once and dispatches every node to each detector.
// A detector that panics contributes nothing for this file; the remaining
// detectors keep running.
func Walk(tree *parser.Node, filePath string, opts *Options, detectors []Detector) *FileResult {
	domain.Require(tree != nil, "nil tree passed to detectors")
	domain.Require(strings.TrimSpace(filePath) != "", "empty file path passed to detectors")
	if opts == nil {
		opts = DefaultOptions()
	}

	ctx := &Context{
		FilePath:   filePath,
		Options:    opts,
		violations: make([][]domain.Violation, len(detectors)),
	}
	failed := make([]bool, len(detectors))
	errs := make([]domain.DetectorError, 0)

	dispatch := func(i int, call func()) {
		if failed[i] {
			return
		}
		ctx.current = i
		defer func() {
			if r := recover(); r != nil {
				if iv, ok := r.(domain.InvariantViolation); ok {
					panic(iv)
				}
				failed[i] = true
				ctx.violations[i] = nil
				errs = append(errs, domain.DetectorError{
					FilePath: filePath,
					Detector: detectors[i].Kind().String(),
					Message:  fmt.Sprint(r),
				})
			}
		}()
		call()
	}

	var visit func(n *parser.Node)
	visit = func(n *parser.Node) {
		for i, d := range detectors {
			dispatch(i, func() { d.Visit(n, ctx) })
		}

		ctx.ancestors = append(ctx.ancestors, n)
		switch n.Type {
		case parser.NodeFunction:
			ctx.functions = append(ctx.functions, n)
		case parser.NodeClass:
			ctx.classes = append(ctx.classes, n)
		}
		for _, child := range n.Children {
			visit(child)
		}
		switch n.Type {
		case parser.NodeFunction:
			ctx.functions = ctx.functions[:len(ctx.functions)-1]
		case parser.NodeClass:
			ctx.classes = ctx.classes[:len(ctx.classes)-1]
		}
		ctx.ancestors = ctx.ancestors[:len(ctx.ancestors)-1]
	}
	visit(tree)

	for i, d := range detectors {
		dispatch(i, func() { d.Finish(ctx) })
	}

	result := &FileResult{
		FilePath:       filePath,
		Violations:     make([]domain.Violation, 0),
		DetectorErrors: errs,
	}
	for i, d := range detectors {
		if failed[i] {
			continue
		}
		result.Violations = append(result.Violations, ctx.violations[i]...)
		if d.Kind() == KindAlgorithm {
			result.Functions = append(result.Functions, ctx.fingerprint...)
		}
	}
	return result
}
