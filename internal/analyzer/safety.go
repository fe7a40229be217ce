package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/parser"
)

// Safety rule ids, grouped by the Power-of-Ten rule they enforce
const (
	RuleGoto                 = "NASA_RULE1_GOTO"
	RuleRecursion            = "NASA_RULE1_RECURSION"
	RuleUnboundedLoop        = "NASA_RULE2_UNBOUNDED_LOOP"
	RuleDynamicAllocation    = "NASA_RULE3_DYNAMIC_ALLOCATION"
	RuleFunctionLength       = "NASA_RULE4_FUNCTION_LENGTH"
	RulePointerIndirection   = "NASA_RULE9_POINTER_INDIRECTION"
	RuleUninitializedPointer = "NASA_RULE9_UNINITIALIZED_POINTER"
)

var allocationFunctions = map[string]bool{
	"malloc":  true,
	"calloc":  true,
	"realloc": true,
	"free":    true,
}

// safetyDetector enforces the safety profile. Besides per-node rules it
// records the in-file call graph so indirect recursion can be reported in
// Finish.
type safetyDetector struct {
	opts      SafetyOptions
	functions map[string]*parser.Node
	calls     map[string]map[string]bool
	direct    map[string]bool
}

func newSafetyDetector(opts SafetyOptions) *safetyDetector {
	return &safetyDetector{
		opts:      opts,
		functions: make(map[string]*parser.Node),
		calls:     make(map[string]map[string]bool),
		direct:    make(map[string]bool),
	}
}

func (d *safetyDetector) Kind() Kind { return KindSafety }

func (d *safetyDetector) Visit(node *parser.Node, ctx *Context) {
	switch node.Type {
	case parser.NodeGoto:
		ctx.report(finding{
			RuleID:         RuleGoto,
			Severity:       domain.SeverityCritical,
			Type:           domain.CoExecution,
			Node:           node,
			Description:    fmt.Sprintf("goto %s breaks structured control flow", node.Name),
			Recommendation: "Replace goto with structured loops or early returns",
		})
	case parser.NodeFunction:
		d.visitFunction(node, ctx)
	case parser.NodeCall:
		d.visitCall(node, ctx)
	case parser.NodeWhile, parser.NodeDoWhile, parser.NodeFor:
		d.visitLoop(node, ctx)
	case parser.NodeDeclarator, parser.NodeParameter:
		d.visitPointer(node, ctx)
	}
}

func (d *safetyDetector) visitFunction(fn *parser.Node, ctx *Context) {
	if fn.Name != "" {
		if _, seen := d.functions[fn.Name]; !seen {
			d.functions[fn.Name] = fn
		}
	}
	if lines := fn.Location.Lines(); d.opts.MaxFunctionLines > 0 && lines > d.opts.MaxFunctionLines {
		ctx.report(finding{
			RuleID:         RuleFunctionLength,
			Severity:       domain.SeverityMedium,
			Type:           domain.CoExecution,
			Node:           fn,
			Description:    fmt.Sprintf("Function '%s' spans %d lines (limit %d)", fn.Name, lines, d.opts.MaxFunctionLines),
			Recommendation: "Split the function so each part fits on a single page",
		})
	}
	if fn.PointerDepth > d.opts.MaxPointerDepth {
		d.reportIndirection(fn, fmt.Sprintf("function '%s' return type", fn.Name), ctx)
	}
}

func (d *safetyDetector) visitCall(call *parser.Node, ctx *Context) {
	fn := ctx.Function()
	if fn != nil && fn.Name != "" && call.Name != "" && isSelfReference(call) {
		if d.calls[fn.Name] == nil {
			d.calls[fn.Name] = make(map[string]bool)
		}
		d.calls[fn.Name][call.Name] = true

		if call.Name == fn.Name {
			d.direct[fn.Name] = true
			ctx.report(finding{
				RuleID:         RuleRecursion,
				Severity:       domain.SeverityCritical,
				Type:           domain.CoExecution,
				Node:           call,
				Description:    fmt.Sprintf("Function '%s' calls itself recursively", fn.Name),
				Recommendation: "Rewrite the recursion as a bounded loop",
			})
		}
	}

	if allocationFunctions[call.Name] && call.Callee != nil && call.Callee.Type == parser.NodeIdentifier {
		if fn == nil || isInitFunction(fn.Name) {
			return
		}
		ctx.report(finding{
			RuleID:         RuleDynamicAllocation,
			Severity:       domain.SeverityHigh,
			Type:           domain.CoTiming,
			Node:           call,
			Description:    fmt.Sprintf("Dynamic memory call %s() after initialization in '%s'", call.Name, fn.Name),
			Recommendation: "Allocate memory during initialization only",
		})
	}
}

// isSelfReference reports whether the callee is a plain name or a
// self/cls attribute, i.e. a call that resolves within this file
func isSelfReference(call *parser.Node) bool {
	if call.Callee == nil {
		return false
	}
	switch call.Callee.Type {
	case parser.NodeIdentifier:
		return true
	case parser.NodeAttribute:
		if len(call.Callee.Children) == 0 {
			return false
		}
		obj := call.Callee.Children[0]
		return obj.Type == parser.NodeIdentifier && (obj.Name == "self" || obj.Name == "cls")
	}
	return false
}

func isInitFunction(name string) bool {
	lower := strings.ToLower(name)
	return lower == "main" || strings.HasPrefix(lower, "init") || strings.HasPrefix(lower, "__init__")
}

func (d *safetyDetector) visitLoop(loop *parser.Node, ctx *Context) {
	if !isUnboundedHeader(loop) || hasBreak(loop.Body) {
		return
	}
	ctx.report(finding{
		RuleID:         RuleUnboundedLoop,
		Severity:       domain.SeverityCritical,
		Type:           domain.CoExecution,
		Node:           loop,
		Description:    "Loop has no fixed upper bound and no break",
		Recommendation: "Give the loop a statically provable iteration limit",
	})
}

// isUnboundedHeader reports loops whose condition is constantly true or absent
func isUnboundedHeader(loop *parser.Node) bool {
	test := loop.Test
	if test == nil {
		return loop.Type == parser.NodeFor
	}
	switch test.Type {
	case parser.NodeBooleanLiteral:
		return strings.EqualFold(test.Raw, "true")
	case parser.NodeNumberLiteral:
		n, ok := parseNumber(test.Raw)
		return ok && n != 0
	}
	return false
}

// hasBreak looks for a break that exits this loop; breaks inside nested
// loops and switches belong to those constructs
func hasBreak(body []*parser.Node) bool {
	found := false
	for _, stmt := range body {
		stmt.Walk(func(n *parser.Node) bool {
			if found {
				return false
			}
			switch n.Type {
			case parser.NodeBreak:
				found = true
				return false
			case parser.NodeWhile, parser.NodeDoWhile, parser.NodeFor, parser.NodeSwitch,
				parser.NodeFunction, parser.NodeClass, parser.NodeLambda:
				return false
			}
			return true
		})
	}
	return found
}

func (d *safetyDetector) visitPointer(node *parser.Node, ctx *Context) {
	if node.PointerDepth == 0 {
		return
	}
	if node.PointerDepth > d.opts.MaxPointerDepth {
		d.reportIndirection(node, fmt.Sprintf("'%s'", node.Name), ctx)
	}
	if node.Type == parser.NodeDeclarator && !node.Initialized && !node.Prototype && ctx.Function() != nil {
		ctx.report(finding{
			RuleID:         RuleUninitializedPointer,
			Severity:       domain.SeverityHigh,
			Type:           domain.CoValues,
			Node:           node,
			Description:    fmt.Sprintf("Pointer '%s' is declared without an initializer", node.Name),
			Recommendation: "Initialize pointers at declaration, using NULL when no target exists yet",
		})
	}
}

func (d *safetyDetector) reportIndirection(node *parser.Node, subject string, ctx *Context) {
	ctx.report(finding{
		RuleID:   RulePointerIndirection,
		Severity: domain.SeverityHigh,
		Type:     domain.CoType,
		Node:     node,
		Description: fmt.Sprintf("%s uses %d levels of pointer indirection (limit %d)",
			subject, node.PointerDepth, d.opts.MaxPointerDepth),
		Recommendation: "Limit pointers to a single level of dereferencing",
	})
}

// Finish reports functions that take part in an indirect recursion cycle
func (d *safetyDetector) Finish(ctx *Context) {
	names := make([]string, 0, len(d.functions))
	for name := range d.functions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if d.direct[name] {
			continue
		}
		cycle := d.findCycle(name)
		if cycle == nil {
			continue
		}
		ctx.report(finding{
			RuleID:         RuleRecursion,
			Severity:       domain.SeverityCritical,
			Type:           domain.CoExecution,
			Node:           d.functions[name],
			Description:    fmt.Sprintf("Function '%s' is part of a recursive call cycle: %s", name, strings.Join(cycle, " -> ")),
			Recommendation: "Break the call cycle so the call graph is acyclic",
		})
	}
}

// findCycle returns the shortest call path from start back to start through
// functions defined in this file, or nil
func (d *safetyDetector) findCycle(start string) []string {
	prev := map[string]string{}
	queue := []string{start}
	visited := map[string]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		callees := make([]string, 0, len(d.calls[cur]))
		for c := range d.calls[cur] {
			callees = append(callees, c)
		}
		sort.Strings(callees)
		for _, next := range callees {
			if _, defined := d.functions[next]; !defined {
				continue
			}
			if next == start {
				if cur == start {
					continue
				}
				path := []string{start}
				for n := cur; n != start; n = prev[n] {
					path = append(path, n)
				}
				for i, j := 1, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return append(path, start)
			}
			if !visited[next] {
				visited[next] = true
				prev[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return nil
}
