package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// pythonBuilder builds the normalized AST from the tree-sitter Python grammar
type pythonBuilder struct {
	baseBuilder
}

func newPythonBuilder(filename string, source []byte) *pythonBuilder {
	return &pythonBuilder{baseBuilder{filename: filename, source: source}}
}

// Build builds the AST from the module node
func (b *pythonBuilder) Build(root *sitter.Node) *Node {
	if root == nil {
		return nil
	}
	module := b.newNode(NodeModule, root)
	module.Body = b.buildStatements(module, b.namedChildren(root))
	return module
}

// buildStatements builds a statement list under parent and marks a leading docstring
func (b *pythonBuilder) buildStatements(parent *Node, stmts []*sitter.Node) []*Node {
	var body []*Node
	for _, s := range stmts {
		node := b.buildNode(s)
		if node == nil {
			continue
		}
		parent.AddChild(node)
		body = append(body, node)
	}
	if len(body) > 0 && body[0].Type == NodeExpressionStatement &&
		len(body[0].Children) == 1 && body[0].Children[0].Type == NodeStringLiteral {
		body[0].Docstring = true
		body[0].Children[0].Docstring = true
	}
	return body
}

// blockStatements returns the statements of a block node
func (b *pythonBuilder) blockStatements(block *sitter.Node) []*sitter.Node {
	if block == nil {
		return nil
	}
	if block.Type() != "block" {
		return []*sitter.Node{block}
	}
	return b.namedChildren(block)
}

// buildNode converts a tree-sitter node to our internal AST node
func (b *pythonBuilder) buildNode(tsNode *sitter.Node) *Node {
	if tsNode == nil || b.isTrivia(tsNode) {
		return nil
	}

	switch tsNode.Type() {
	case "function_definition":
		return b.buildFunction(tsNode)
	case "class_definition":
		return b.buildClass(tsNode)
	case "decorated_definition":
		if def := b.field(tsNode, "definition"); def != nil {
			return b.buildNode(def)
		}
		return b.buildGeneric(NodeOther, tsNode)
	case "block":
		block := b.newNode(NodeBlock, tsNode)
		block.Body = b.buildStatements(block, b.namedChildren(tsNode))
		return block
	case "if_statement", "elif_clause":
		return b.buildIf(tsNode)
	case "else_clause":
		return b.buildBodyHolder(NodeElse, tsNode)
	case "for_statement":
		return b.buildLoop(NodeFor, tsNode, "right")
	case "while_statement":
		return b.buildLoop(NodeWhile, tsNode, "condition")
	case "try_statement":
		return b.buildGeneric(NodeTry, tsNode)
	case "except_clause", "except_group_clause":
		return b.buildGeneric(NodeCatch, tsNode)
	case "finally_clause":
		return b.buildGeneric(NodeFinally, tsNode)
	case "with_statement":
		return b.buildGeneric(NodeWith, tsNode)
	case "match_statement":
		return b.buildGeneric(NodeSwitch, tsNode)
	case "case_clause":
		return b.buildGeneric(NodeCase, tsNode)
	case "return_statement":
		return b.buildGeneric(NodeReturn, tsNode)
	case "break_statement":
		return b.newNode(NodeBreak, tsNode)
	case "continue_statement":
		return b.newNode(NodeContinue, tsNode)
	case "pass_statement":
		return b.newNode(NodePass, tsNode)
	case "raise_statement":
		return b.buildGeneric(NodeRaise, tsNode)
	case "import_statement", "import_from_statement", "future_import_statement":
		node := b.newNode(NodeImport, tsNode)
		node.Raw = b.content(tsNode)
		return node
	case "global_statement":
		return b.buildGeneric(NodeGlobal, tsNode)
	case "expression_statement":
		return b.buildGeneric(NodeExpressionStatement, tsNode)
	case "assignment", "augmented_assignment":
		return b.buildAssignment(tsNode)
	case "call":
		return b.buildCall(tsNode)
	case "keyword_argument":
		node := b.buildGeneric(NodeKeywordArg, tsNode)
		node.Name = b.content(b.field(tsNode, "name"))
		return node
	case "list_splat", "dictionary_splat":
		return b.buildGeneric(NodeSplat, tsNode)
	case "binary_operator":
		node := b.buildGeneric(NodeBinary, tsNode)
		node.Operator = b.content(b.field(tsNode, "operator"))
		return node
	case "boolean_operator":
		node := b.buildGeneric(NodeBoolOp, tsNode)
		node.Operator = b.content(b.field(tsNode, "operator"))
		return node
	case "comparison_operator":
		node := b.buildGeneric(NodeCompare, tsNode)
		node.Operator = b.operatorText(tsNode)
		return node
	case "not_operator":
		node := b.buildGeneric(NodeUnary, tsNode)
		node.Operator = "not"
		return node
	case "unary_operator":
		return b.buildUnary(tsNode)
	case "conditional_expression":
		return b.buildGeneric(NodeConditional, tsNode)
	case "lambda":
		return b.buildGeneric(NodeLambda, tsNode)
	case "attribute":
		node := b.buildGeneric(NodeAttribute, tsNode)
		node.Name = b.content(b.field(tsNode, "attribute"))
		return node
	case "subscript":
		return b.buildGeneric(NodeSubscript, tsNode)
	case "parenthesized_expression":
		inner := b.namedChildren(tsNode)
		if len(inner) == 1 {
			return b.buildNode(inner[0])
		}
		return b.buildGeneric(NodeOther, tsNode)
	case "identifier":
		node := b.newNode(NodeIdentifier, tsNode)
		node.Name = b.content(tsNode)
		return node
	case "integer", "float":
		node := b.newNode(NodeNumberLiteral, tsNode)
		node.Raw = b.content(tsNode)
		return node
	case "string":
		return b.buildString(tsNode)
	case "concatenated_string":
		return b.buildGeneric(NodeOther, tsNode)
	case "true", "false":
		node := b.newNode(NodeBooleanLiteral, tsNode)
		node.Raw = b.content(tsNode)
		return node
	case "none":
		node := b.newNode(NodeNullLiteral, tsNode)
		node.Raw = "None"
		return node
	case "list", "tuple", "dictionary", "set", "list_comprehension",
		"dictionary_comprehension", "set_comprehension", "generator_expression":
		return b.buildGeneric(NodeCollection, tsNode)
	default:
		return b.buildGeneric(NodeOther, tsNode)
	}
}

// buildGeneric creates a node of the given type and processes named children
func (b *pythonBuilder) buildGeneric(nodeType NodeType, tsNode *sitter.Node) *Node {
	node := b.newNode(nodeType, tsNode)
	for _, child := range b.namedChildren(tsNode) {
		node.AddChild(b.buildNode(child))
	}
	return node
}

// buildBodyHolder builds else-like clauses whose statements sit in a body block
func (b *pythonBuilder) buildBodyHolder(nodeType NodeType, tsNode *sitter.Node) *Node {
	node := b.newNode(nodeType, tsNode)
	body := b.field(tsNode, "body")
	if body == nil {
		named := b.namedChildren(tsNode)
		if len(named) > 0 {
			body = named[len(named)-1]
		}
	}
	node.Body = b.buildStatements(node, b.blockStatements(body))
	return node
}

// buildFunction builds a function definition node
func (b *pythonBuilder) buildFunction(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeFunction, tsNode)
	node.Name = b.content(b.field(tsNode, "name"))

	if params := b.field(tsNode, "parameters"); params != nil {
		node.Params = b.buildParameters(params)
		for _, p := range node.Params {
			node.AddChild(p)
		}
	}
	node.Body = b.buildStatements(node, b.blockStatements(b.field(tsNode, "body")))
	return node
}

// buildParameters builds the parameter list and classifies each parameter
func (b *pythonBuilder) buildParameters(tsNode *sitter.Node) []*Node {
	var params []*Node
	keywordOnly := false

	for _, child := range b.namedChildren(tsNode) {
		param := b.newNode(NodeParameter, child)
		kind := ParamPositional

		switch child.Type() {
		case "identifier":
			param.Name = b.content(child)
		case "typed_parameter":
			inner := child.NamedChild(0)
			param.Name = b.content(inner)
			if inner != nil {
				switch inner.Type() {
				case "list_splat_pattern":
					kind = ParamVariadic
				case "dictionary_splat_pattern":
					kind = ParamKwargs
				}
			}
		case "default_parameter", "typed_default_parameter":
			param.Name = b.content(b.field(child, "name"))
			kind = ParamDefault
			if value := b.field(child, "value"); value != nil {
				param.AddChild(b.buildNode(value))
				param.Initialized = true
			}
		case "list_splat_pattern":
			param.Name = b.content(child)
			kind = ParamVariadic
		case "dictionary_splat_pattern":
			param.Name = b.content(child)
			kind = ParamKwargs
		case "keyword_separator":
			keywordOnly = true
			continue
		case "positional_separator":
			continue
		default:
			param.Name = b.content(child)
		}

		param.Name = strings.TrimLeft(param.Name, "*")
		if kind == ParamVariadic {
			keywordOnly = true
		} else if keywordOnly && kind != ParamKwargs {
			kind = ParamKeywordOnly
		}
		param.ParamKind = kind
		params = append(params, param)
	}

	return params
}

// buildClass builds a class definition node and marks method receivers
func (b *pythonBuilder) buildClass(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeClass, tsNode)
	node.Name = b.content(b.field(tsNode, "name"))
	if supers := b.field(tsNode, "superclasses"); supers != nil {
		node.Raw = b.content(supers)
	}
	node.Body = b.buildStatements(node, b.blockStatements(b.field(tsNode, "body")))

	for _, method := range node.Methods() {
		if len(method.Params) == 0 {
			continue
		}
		first := method.Params[0]
		if first.Name == "self" || first.Name == "cls" {
			first.ParamKind = ParamReceiver
		}
	}
	return node
}

// buildIf builds if/elif nodes with their branches as children
func (b *pythonBuilder) buildIf(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeIf, tsNode)
	if cond := b.field(tsNode, "condition"); cond != nil {
		node.Test = b.buildNode(cond)
		node.AddChild(node.Test)
	}
	if cons := b.field(tsNode, "consequence"); cons != nil {
		node.Body = b.buildStatements(node, b.blockStatements(cons))
	}
	for _, alt := range b.fields(tsNode, "alternative") {
		node.AddChild(b.buildNode(alt))
	}
	return node
}

// buildLoop builds for/while loops; testField names the loop header expression
func (b *pythonBuilder) buildLoop(nodeType NodeType, tsNode *sitter.Node, testField string) *Node {
	node := b.newNode(nodeType, tsNode)
	if left := b.field(tsNode, "left"); left != nil {
		node.AddChild(b.buildNode(left))
	}
	if test := b.field(tsNode, testField); test != nil {
		node.Test = b.buildNode(test)
		node.AddChild(node.Test)
	}
	node.Body = b.buildStatements(node, b.blockStatements(b.field(tsNode, "body")))
	if alt := b.field(tsNode, "alternative"); alt != nil {
		node.AddChild(b.buildNode(alt))
	}
	return node
}

// buildAssignment builds plain and augmented assignments
func (b *pythonBuilder) buildAssignment(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeAssign, tsNode)
	left := b.field(tsNode, "left")
	if left != nil {
		node.Name = lastSegment(b.content(left))
		node.AddChild(b.buildNode(left))
	}
	if op := b.field(tsNode, "operator"); op != nil {
		node.Operator = b.content(op)
	} else {
		node.Operator = "="
	}
	if t := b.field(tsNode, "type"); t != nil {
		node.AddChild(b.buildNode(t))
	}
	if right := b.field(tsNode, "right"); right != nil {
		node.AddChild(b.buildNode(right))
		node.Initialized = true
	}
	node.Constant = left != nil && left.Type() == "identifier" && isConstantName(node.Name)
	return node
}

// buildCall builds a call with its callee and argument list
func (b *pythonBuilder) buildCall(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeCall, tsNode)
	if fn := b.field(tsNode, "function"); fn != nil {
		node.Callee = b.buildNode(fn)
		node.AddChild(node.Callee)
		node.Name = lastSegment(b.content(fn))
	}
	if args := b.field(tsNode, "arguments"); args != nil {
		if args.Type() == "argument_list" {
			for _, a := range b.namedChildren(args) {
				arg := b.buildNode(a)
				if arg == nil {
					continue
				}
				node.AddChild(arg)
				node.Args = append(node.Args, arg)
			}
		} else {
			arg := b.buildNode(args)
			node.AddChild(arg)
			node.Args = append(node.Args, arg)
		}
	}
	return node
}

// buildUnary builds unary operators, folding negative numeric literals
func (b *pythonBuilder) buildUnary(tsNode *sitter.Node) *Node {
	op := b.content(b.field(tsNode, "operator"))
	operand := b.buildNode(b.field(tsNode, "argument"))
	if folded := foldNegative(op, operand); folded != nil {
		folded.Location = b.getLocation(tsNode)
		return folded
	}
	node := b.newNode(NodeUnary, tsNode)
	node.Operator = op
	node.AddChild(operand)
	return node
}

// buildString builds a string literal; f-strings with interpolations stay generic
func (b *pythonBuilder) buildString(tsNode *sitter.Node) *Node {
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		if tsNode.NamedChild(i).Type() == "interpolation" {
			return b.buildGeneric(NodeOther, tsNode)
		}
	}
	node := b.newNode(NodeStringLiteral, tsNode)
	node.Raw = unquotePython(b.content(tsNode))
	return node
}

// unquotePython strips the prefix and quotes of a Python string literal
func unquotePython(s string) string {
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}
