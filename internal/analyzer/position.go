package analyzer

import (
	"fmt"
	"strings"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/parser"
)

const (
	RulePosition     = "CON_POSITION"
	RulePositionCall = "CON_POSITION_CALL"
)

// positionDetector flags connascence of position on declarations and call sites
type positionDetector struct {
	opts PositionOptions
}

func newPositionDetector(opts PositionOptions) *positionDetector {
	return &positionDetector{opts: opts}
}

func (d *positionDetector) Kind() Kind { return KindPosition }

func (d *positionDetector) Finish(*Context) {}

func (d *positionDetector) Visit(node *parser.Node, ctx *Context) {
	switch node.Type {
	case parser.NodeFunction:
		d.checkDeclaration(node, ctx)
	case parser.NodeCall:
		d.checkCall(node, ctx)
	}
}

func (d *positionDetector) checkDeclaration(fn *parser.Node, ctx *Context) {
	count := PositionalParamCount(fn)
	if count <= d.opts.MaxParams {
		return
	}
	ctx.report(finding{
		RuleID:   RulePosition,
		Severity: domain.SeverityHigh,
		Type:     domain.CoPosition,
		Node:     fn,
		Description: fmt.Sprintf("Function '%s' has %d positional parameters (threshold %d)",
			fn.Name, count, d.opts.MaxParams),
		Recommendation: "Group related parameters into an object or make them keyword-only",
	})
}

func (d *positionDetector) checkCall(call *parser.Node, ctx *Context) {
	positional := 0
	for _, arg := range call.Args {
		if arg.Type != parser.NodeKeywordArg && arg.Type != parser.NodeSplat {
			positional++
		}
	}
	if positional <= d.opts.MaxPositionalArgs {
		return
	}
	name := call.Name
	if name == "" {
		name = "<expression>"
	}
	ctx.report(finding{
		RuleID:   RulePositionCall,
		Severity: domain.SeverityMedium,
		Type:     domain.CoPosition,
		Node:     call,
		Description: fmt.Sprintf("Call to '%s' passes %d positional arguments (threshold %d)",
			name, positional, d.opts.MaxPositionalArgs),
		Recommendation: "Pass arguments by keyword or introduce a parameter object",
	})
}

// PositionalParamCount counts the parameters a caller must supply by
// position. Receivers, variadic collectors, keyword-only and underscore
// prefixed parameters are not counted.
func PositionalParamCount(fn *parser.Node) int {
	count := 0
	for _, p := range fn.Params {
		switch p.ParamKind {
		case parser.ParamPositional, parser.ParamDefault:
		default:
			continue
		}
		if strings.HasPrefix(p.Name, "_") {
			continue
		}
		count++
	}
	return count
}
