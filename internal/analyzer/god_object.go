package analyzer

import (
	"fmt"
	"strings"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/parser"
)

const RuleGodObject = "CON_GOD_OBJECT"

// godObjectDetector flags classes with too many methods or lines
type godObjectDetector struct {
	opts GodObjectOptions
}

func newGodObjectDetector(opts GodObjectOptions) *godObjectDetector {
	return &godObjectDetector{opts: opts}
}

func (d *godObjectDetector) Kind() Kind { return KindGodObject }

func (d *godObjectDetector) Finish(*Context) {}

func (d *godObjectDetector) Visit(node *parser.Node, ctx *Context) {
	if node.Type != parser.NodeClass {
		return
	}

	methods := len(node.Methods())
	lines := node.Location.Lines()
	overMethods := d.opts.MaxMethods > 0 && methods > d.opts.MaxMethods
	overLines := d.opts.MaxLines > 0 && lines > d.opts.MaxLines
	if !overMethods && !overLines {
		return
	}

	var reasons []string
	severity := domain.SeverityMedium
	if overMethods {
		reasons = append(reasons, fmt.Sprintf("%d methods (%s over threshold of %d)",
			methods, overPercent(methods, d.opts.MaxMethods), d.opts.MaxMethods))
		if methods > 2*d.opts.MaxMethods {
			severity = domain.SeverityHigh
		}
	}
	if overLines {
		reasons = append(reasons, fmt.Sprintf("%d lines (%s over threshold of %d)",
			lines, overPercent(lines, d.opts.MaxLines), d.opts.MaxLines))
		if lines > 2*d.opts.MaxLines {
			severity = domain.SeverityHigh
		}
	}

	ctx.report(finding{
		RuleID:         RuleGodObject,
		Severity:       severity,
		Type:           domain.CoIdentity,
		Node:           node,
		Description:    fmt.Sprintf("Class '%s' is a god object: %s", node.Name, strings.Join(reasons, ", ")),
		Recommendation: "Split the class along its responsibilities",
	})
}

func overPercent(actual, threshold int) string {
	return fmt.Sprintf("%.0f%%", float64(actual-threshold)*100/float64(threshold))
}
