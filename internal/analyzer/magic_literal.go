package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/parser"
)

const RuleMagicLiteral = "CON_MAGIC_LITERAL"

var (
	identifierLike     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	securityIdentifier = regexp.MustCompile(`(?i)(password|passwd|secret|token|key|auth|crypt|salt)`)
)

// magicLiteralDetector flags numeric and string literals that are not bound
// to a named constant
type magicLiteralDetector struct {
	opts      MagicLiteralOptions
	allowNums map[float64]bool
	allowRaw  map[string]bool
}

func newMagicLiteralDetector(opts MagicLiteralOptions) *magicLiteralDetector {
	d := &magicLiteralDetector{
		opts:      opts,
		allowNums: make(map[float64]bool),
		allowRaw:  map[string]bool{"": true},
	}
	for _, entry := range opts.Allowlist {
		if n, ok := parseNumber(entry); ok {
			d.allowNums[n] = true
		} else {
			d.allowRaw[entry] = true
		}
	}
	return d
}

func (d *magicLiteralDetector) Kind() Kind { return KindMagicLiteral }

func (d *magicLiteralDetector) Finish(*Context) {}

func (d *magicLiteralDetector) Visit(node *parser.Node, ctx *Context) {
	var description string
	switch node.Type {
	case parser.NodeNumberLiteral:
		if n, ok := parseNumber(node.Raw); ok && d.allowNums[n] {
			return
		}
		if d.allowRaw[node.Raw] {
			return
		}
		description = fmt.Sprintf("Magic number %s should be a named constant", node.Raw)
	case parser.NodeStringLiteral:
		if node.Docstring || d.allowRaw[node.Raw] {
			return
		}
		if len(node.Raw) < d.opts.MinStringLength || identifierLike.MatchString(node.Raw) {
			return
		}
		description = fmt.Sprintf("Magic string %q should be a named constant", truncate(node.Raw, 40))
	default:
		return
	}

	if boundToConstant(ctx.Ancestors()) {
		return
	}

	ctx.report(finding{
		RuleID:         RuleMagicLiteral,
		Severity:       d.severity(node, ctx),
		Type:           domain.CoMeaning,
		Node:           node,
		Description:    description,
		Recommendation: "Extract the value into a named constant that explains its meaning",
	})
}

// severity escalates literals used in conditions and near security-sensitive names
func (d *magicLiteralDetector) severity(node *parser.Node, ctx *Context) domain.Severity {
	severity := domain.SeverityMedium

	ancestors := ctx.Ancestors()
	child := node
	for _, a := range ancestors {
		if a.Type == parser.NodeCompare || a.Test == child {
			severity = domain.SeverityHigh
			break
		}
		if a.IsStatement() {
			break
		}
		child = a
	}

	if stmt := enclosingStatement(ancestors); stmt != nil && mentionsSecurity(stmt) {
		severity = domain.SeverityCritical
	}
	return severity
}

// boundToConstant reports whether the literal sits in a default parameter,
// a constant binding or an import. The search stops at the enclosing statement.
func boundToConstant(ancestors []*parser.Node) bool {
	for _, a := range ancestors {
		switch a.Type {
		case parser.NodeParameter, parser.NodeImport, parser.NodeDefine:
			return true
		case parser.NodeAssign, parser.NodeDeclarator, parser.NodeDeclaration:
			if a.Constant {
				return true
			}
		}
		if a.IsStatement() {
			return false
		}
	}
	return false
}

func enclosingStatement(ancestors []*parser.Node) *parser.Node {
	for _, a := range ancestors {
		if a.IsStatement() {
			return a
		}
	}
	return nil
}

// mentionsSecurity reports whether any name bound or referenced in the
// statement looks security-sensitive. Compound statements only have their
// header expression searched.
func mentionsSecurity(stmt *parser.Node) bool {
	target := stmt
	if len(stmt.Body) > 0 || stmt.Type == parser.NodeFunction || stmt.Type == parser.NodeClass {
		if stmt.Test == nil {
			return false
		}
		target = stmt.Test
	}

	found := false
	target.Walk(func(n *parser.Node) bool {
		if found {
			return false
		}
		switch n.Type {
		case parser.NodeIdentifier, parser.NodeAttribute, parser.NodeAssign,
			parser.NodeDeclarator, parser.NodeKeywordArg:
			if n.Name != "" && securityIdentifier.MatchString(n.Name) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// parseNumber parses Python and C numeric literal spellings
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	lower := strings.ToLower(s)
	isHex := strings.HasPrefix(strings.TrimPrefix(lower, "-"), "0x")
	lower = strings.TrimRight(lower, "ul")
	if !isHex {
		lower = strings.TrimRight(lower, "fj")
	}
	if i, err := strconv.ParseInt(lower, 0, 64); err == nil {
		return float64(i), true
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(lower, "_", ""), 64); err == nil {
		return f, true
	}
	return 0, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
