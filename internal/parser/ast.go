package parser

import "fmt"

// NodeType represents the normalized kind of an AST node
type NodeType string

// Language-neutral node kinds shared by every front-end
const (
	// Structure
	NodeModule      NodeType = "Module"
	NodeFunction    NodeType = "Function"
	NodeClass       NodeType = "Class"
	NodeParameter   NodeType = "Parameter"
	NodeBlock       NodeType = "Block"
	NodeDeclaration NodeType = "Declaration"
	NodeDeclarator  NodeType = "Declarator"
	NodeDefine      NodeType = "Define"
	NodeImport      NodeType = "Import"
	NodeGlobal      NodeType = "Global"

	// Control flow
	NodeIf       NodeType = "If"
	NodeElse     NodeType = "Else"
	NodeFor      NodeType = "For"
	NodeWhile    NodeType = "While"
	NodeDoWhile  NodeType = "DoWhile"
	NodeSwitch   NodeType = "Switch"
	NodeCase     NodeType = "Case"
	NodeTry      NodeType = "Try"
	NodeCatch    NodeType = "Catch"
	NodeFinally  NodeType = "Finally"
	NodeWith     NodeType = "With"
	NodeReturn   NodeType = "Return"
	NodeBreak    NodeType = "Break"
	NodeContinue NodeType = "Continue"
	NodeRaise    NodeType = "Raise"
	NodeGoto     NodeType = "Goto"
	NodeLabel    NodeType = "Label"
	NodePass     NodeType = "Pass"

	// Expressions
	NodeExpressionStatement NodeType = "ExpressionStatement"
	NodeAssign              NodeType = "Assign"
	NodeCall                NodeType = "Call"
	NodeKeywordArg          NodeType = "KeywordArg"
	NodeSplat               NodeType = "Splat"
	NodeBinary              NodeType = "Binary"
	NodeUnary               NodeType = "Unary"
	NodeCompare             NodeType = "Compare"
	NodeBoolOp              NodeType = "BoolOp"
	NodeConditional         NodeType = "Conditional"
	NodeLambda              NodeType = "Lambda"
	NodeAttribute           NodeType = "Attribute"
	NodeSubscript           NodeType = "Subscript"
	NodePointer             NodeType = "Pointer"
	NodeIdentifier          NodeType = "Identifier"

	// Literals
	NodeNumberLiteral  NodeType = "NumberLiteral"
	NodeStringLiteral  NodeType = "StringLiteral"
	NodeBooleanLiteral NodeType = "BooleanLiteral"
	NodeNullLiteral    NodeType = "NullLiteral"
	NodeCollection     NodeType = "Collection"

	// NodeOther wraps grammar nodes without a normalized kind
	NodeOther NodeType = "Other"
)

// ParamKind classifies how a parameter binds arguments
type ParamKind string

const (
	ParamPositional  ParamKind = "positional"
	ParamDefault     ParamKind = "default"
	ParamVariadic    ParamKind = "variadic"
	ParamKeywordOnly ParamKind = "keyword_only"
	ParamKwargs      ParamKind = "kwargs"
	ParamReceiver    ParamKind = "receiver"
)

// Location represents the position of a node in the source code.
// Lines and columns are 1-based.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// String returns a string representation of the location
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.StartLine, l.StartCol)
}

// Lines returns the number of source lines the location spans
func (l Location) Lines() int {
	if l.EndLine < l.StartLine {
		return 0
	}
	return l.EndLine - l.StartLine + 1
}

// Node is a normalized AST node. Children holds every sub-node in source
// order; the other node fields are typed views into Children.
type Node struct {
	Type     NodeType
	Kind     string // grammar node type the node was built from
	Name     string
	Raw      string
	Operator string
	Location Location
	Parent   *Node
	Children []*Node

	// Function fields
	Params []*Node
	Body   []*Node

	// Control flow and call fields
	Test   *Node
	Callee *Node
	Args   []*Node

	// Parameter and declarator fields
	ParamKind    ParamKind
	PointerDepth int
	Initialized  bool

	// Constant marks bindings to named constants (UPPER_CASE, const, #define)
	Constant bool
	// Docstring marks a leading string statement of a module, class or function
	Docstring bool
	// Prototype marks C function declarations without a body
	Prototype bool
}

// NewNode creates a new AST node
func NewNode(nodeType NodeType) *Node {
	return &Node{Type: nodeType}
}

// AddChild adds a child node
func (n *Node) AddChild(child *Node) {
	if child == nil {
		return
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Walk traverses the AST depth-first and calls the visitor function for each node
// If the visitor returns false, traversal of that branch is stopped
func (n *Node) Walk(visitor func(*Node) bool) {
	if n == nil {
		return
	}
	if !visitor(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(visitor)
	}
}

// String returns a string representation of the node
func (n *Node) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s(%s) at %s", n.Type, n.Name, n.Location)
	}
	return fmt.Sprintf("%s at %s", n.Type, n.Location)
}

// IsFunction returns true if the node is a function or method
func (n *Node) IsFunction() bool {
	return n.Type == NodeFunction
}

// IsLoop returns true for every loop construct
func (n *Node) IsLoop() bool {
	switch n.Type {
	case NodeFor, NodeWhile, NodeDoWhile:
		return true
	}
	return false
}

// IsLiteral returns true for scalar literals
func (n *Node) IsLiteral() bool {
	switch n.Type {
	case NodeNumberLiteral, NodeStringLiteral, NodeBooleanLiteral, NodeNullLiteral:
		return true
	}
	return false
}

// IsStatement returns true if the node is a statement
func (n *Node) IsStatement() bool {
	switch n.Type {
	case NodeIf, NodeFor, NodeWhile, NodeDoWhile, NodeSwitch, NodeTry, NodeWith,
		NodeReturn, NodeBreak, NodeContinue, NodeRaise, NodeGoto, NodeLabel, NodePass,
		NodeExpressionStatement, NodeDeclaration, NodeFunction, NodeClass, NodeImport,
		NodeDefine, NodeBlock, NodeGlobal:
		return true
	}
	return false
}

// Methods returns the functions defined directly in a class body
func (n *Node) Methods() []*Node {
	var methods []*Node
	for _, stmt := range n.Body {
		if stmt.Type == NodeFunction {
			methods = append(methods, stmt)
		}
	}
	return methods
}

// EnclosingStatement returns the nearest statement ancestor of n (or n itself)
func (n *Node) EnclosingStatement() *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.IsStatement() {
			return cur
		}
	}
	return nil
}
