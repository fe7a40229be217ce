package analyzer

import (
	"strings"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/parser"
)

const RuleAlgorithm = "CON_ALGORITHM"

// FunctionFingerprint is the name-independent structural shape of a function body
type FunctionFingerprint struct {
	Ref        domain.FunctionRef
	Tokens     []string
	Statements int
}

// algorithmDetector collects fingerprints of every function in the file.
// Clustering runs once across all files after the walk.
type algorithmDetector struct{}

func newAlgorithmDetector() *algorithmDetector { return &algorithmDetector{} }

func (d *algorithmDetector) Kind() Kind { return KindAlgorithm }

func (d *algorithmDetector) Finish(*Context) {}

func (d *algorithmDetector) Visit(node *parser.Node, ctx *Context) {
	if node.Type != parser.NodeFunction {
		return
	}
	name := node.Name
	if class := ctx.Parent(); class != nil && class.Type == parser.NodeClass && class.Name != "" {
		name = class.Name + "." + name
	}
	fp := Fingerprint(node)
	fp.Ref = domain.FunctionRef{
		FilePath: ctx.FilePath,
		Name:     name,
		Line:     node.Location.StartLine,
	}
	ctx.fingerprint = append(ctx.fingerprint, fp)
}

// Fingerprint computes the pre-order token sequence of a function body.
// Identifiers and literal values are abstracted; node kinds and operators
// are kept.
func Fingerprint(fn *parser.Node) FunctionFingerprint {
	var fp FunctionFingerprint
	for _, stmt := range fn.Body {
		if stmt.Docstring {
			continue
		}
		fp.Statements++
		stmt.Walk(func(n *parser.Node) bool {
			fp.Tokens = append(fp.Tokens, token(n))
			return true
		})
	}
	return fp
}

func token(n *parser.Node) string {
	switch n.Type {
	case parser.NodeIdentifier:
		return "ID"
	case parser.NodeNumberLiteral:
		return "NUM"
	case parser.NodeStringLiteral:
		return "STR"
	case parser.NodeBooleanLiteral:
		return "BOOL"
	case parser.NodeNullLiteral:
		return "NULL"
	case parser.NodeAttribute:
		return "ATTR"
	case parser.NodeBinary, parser.NodeCompare, parser.NodeBoolOp, parser.NodeUnary,
		parser.NodeAssign, parser.NodePointer:
		return string(n.Type) + ":" + n.Operator
	}
	return string(n.Type)
}

// Shingles returns the k-grams of a token sequence, used as MinHash features
func Shingles(tokens []string, k int) []string {
	if k <= 0 {
		k = 3
	}
	if len(tokens) <= k {
		if len(tokens) == 0 {
			return nil
		}
		return []string{strings.Join(tokens, " ")}
	}
	out := make([]string, 0, len(tokens)-k+1)
	for i := 0; i+k <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+k], " "))
	}
	return out
}
