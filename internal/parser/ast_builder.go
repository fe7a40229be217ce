package parser

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// treeBuilder converts a tree-sitter CST into the normalized AST
type treeBuilder interface {
	Build(root *sitter.Node) *Node
}

// baseBuilder holds helpers shared by the language front-ends
type baseBuilder struct {
	filename string
	source   []byte
}

// newNode creates a node positioned at tsNode
func (b *baseBuilder) newNode(nodeType NodeType, tsNode *sitter.Node) *Node {
	node := NewNode(nodeType)
	node.Kind = tsNode.Type()
	node.Location = b.getLocation(tsNode)
	return node
}

// getLocation extracts 1-based location information from a tree-sitter node
func (b *baseBuilder) getLocation(tsNode *sitter.Node) Location {
	return Location{
		File:      b.filename,
		StartLine: int(tsNode.StartPoint().Row) + 1,
		StartCol:  int(tsNode.StartPoint().Column) + 1,
		EndLine:   int(tsNode.EndPoint().Row) + 1,
		EndCol:    int(tsNode.EndPoint().Column) + 1,
	}
}

// content returns the source text of a node
func (b *baseBuilder) content(tsNode *sitter.Node) string {
	if tsNode == nil {
		return ""
	}
	return tsNode.Content(b.source)
}

// field gets a child node by field name
func (b *baseBuilder) field(tsNode *sitter.Node, fieldName string) *sitter.Node {
	return tsNode.ChildByFieldName(fieldName)
}

// fields returns every child carrying the field name
func (b *baseBuilder) fields(tsNode *sitter.Node, fieldName string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		if tsNode.FieldNameForChild(i) == fieldName {
			out = append(out, tsNode.Child(i))
		}
	}
	return out
}

// namedChildren returns the named, non-trivia children of a node
func (b *baseBuilder) namedChildren(tsNode *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if child != nil && !b.isTrivia(child) {
			out = append(out, child)
		}
	}
	return out
}

// operatorText joins the anonymous (operator) tokens of a node
func (b *baseBuilder) operatorText(tsNode *sitter.Node) string {
	var ops []string
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && !child.IsNamed() {
			t := child.Type()
			if t == "(" || t == ")" || t == "," {
				continue
			}
			ops = append(ops, t)
		}
	}
	return strings.Join(ops, " ")
}

// isTrivia checks if a node is trivia (comments etc.)
func (b *baseBuilder) isTrivia(tsNode *sitter.Node) bool {
	nodeType := tsNode.Type()
	return nodeType == "comment" || nodeType == ""
}

// isConstantName reports whether name follows the UPPER_CASE constant convention
func isConstantName(name string) bool {
	if name == "" {
		return false
	}
	hasLetter := false
	for _, r := range name {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// lastSegment returns the final dotted or arrow segment of an expression
func lastSegment(expr string) string {
	expr = strings.TrimSpace(expr)
	if i := strings.LastIndexAny(expr, ".>"); i >= 0 {
		return expr[i+1:]
	}
	return expr
}

// foldNegative merges a unary minus with a numeric literal operand
func foldNegative(op string, operand *Node) *Node {
	if op != "-" || operand == nil || operand.Type != NodeNumberLiteral {
		return nil
	}
	operand.Raw = "-" + operand.Raw
	return operand
}
