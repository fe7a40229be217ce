package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/parser"
)

const RuleGlobalState = "CON_GLOBAL_STATE"

// globalStateDetector counts the distinct names a file rebinds through
// global statements and reports once, at the first global statement, when the
// count passes MaxGlobals
type globalStateDetector struct {
	opts  GlobalStateOptions
	first *parser.Node
	names map[string]bool
}

func newGlobalStateDetector(opts GlobalStateOptions) *globalStateDetector {
	return &globalStateDetector{opts: opts, names: make(map[string]bool)}
}

func (d *globalStateDetector) Kind() Kind { return KindGlobalState }

func (d *globalStateDetector) Visit(node *parser.Node, _ *Context) {
	if node.Type != parser.NodeGlobal {
		return
	}
	if d.first == nil {
		d.first = node
	}
	for _, child := range node.Children {
		if child.Type == parser.NodeIdentifier && child.Name != "" {
			d.names[child.Name] = true
		}
	}
}

func (d *globalStateDetector) Finish(ctx *Context) {
	if d.first == nil || len(d.names) <= d.opts.MaxGlobals {
		return
	}
	names := make([]string, 0, len(d.names))
	for name := range d.names {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx.report(finding{
		RuleID:   RuleGlobalState,
		Severity: domain.SeverityHigh,
		Type:     domain.CoIdentity,
		Node:     d.first,
		Description: fmt.Sprintf("Excessive global variable usage: %d globals (threshold %d): %s",
			len(names), d.opts.MaxGlobals, strings.Join(names, ", ")),
		Recommendation: "Pass state explicitly or move it into a configuration object or class",
	})
}
