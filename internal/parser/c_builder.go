package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// cBuilder builds the normalized AST from the tree-sitter C grammar
type cBuilder struct {
	baseBuilder
}

func newCBuilder(filename string, source []byte) *cBuilder {
	return &cBuilder{baseBuilder{filename: filename, source: source}}
}

// Build builds the AST from the translation unit
func (b *cBuilder) Build(root *sitter.Node) *Node {
	if root == nil {
		return nil
	}
	module := b.newNode(NodeModule, root)
	module.Body = b.buildStatements(module, b.namedChildren(root))
	return module
}

func (b *cBuilder) buildStatements(parent *Node, stmts []*sitter.Node) []*Node {
	var body []*Node
	for _, s := range stmts {
		node := b.buildNode(s)
		if node == nil {
			continue
		}
		parent.AddChild(node)
		body = append(body, node)
	}
	return body
}

// bodyStatements returns the statements of a compound statement, or the
// single statement itself for unbraced bodies
func (b *cBuilder) bodyStatements(tsNode *sitter.Node) []*sitter.Node {
	if tsNode == nil {
		return nil
	}
	if tsNode.Type() == "compound_statement" {
		return b.namedChildren(tsNode)
	}
	return []*sitter.Node{tsNode}
}

// buildNode converts a tree-sitter node to our internal AST node
func (b *cBuilder) buildNode(tsNode *sitter.Node) *Node {
	if tsNode == nil || b.isTrivia(tsNode) {
		return nil
	}

	switch tsNode.Type() {
	case "function_definition":
		return b.buildFunction(tsNode)
	case "declaration":
		return b.buildDeclaration(tsNode)
	case "preproc_def":
		node := b.newNode(NodeDefine, tsNode)
		node.Name = b.content(b.field(tsNode, "name"))
		node.Raw = strings.TrimSpace(b.content(b.field(tsNode, "value")))
		node.Constant = true
		return node
	case "preproc_function_def":
		node := b.newNode(NodeDefine, tsNode)
		node.Name = b.content(b.field(tsNode, "name"))
		node.Constant = true
		return node
	case "preproc_include":
		node := b.newNode(NodeImport, tsNode)
		node.Raw = b.content(b.field(tsNode, "path"))
		return node
	case "compound_statement":
		block := b.newNode(NodeBlock, tsNode)
		block.Body = b.buildStatements(block, b.namedChildren(tsNode))
		return block
	case "if_statement":
		return b.buildIf(tsNode)
	case "else_clause":
		node := b.newNode(NodeElse, tsNode)
		node.Body = b.buildStatements(node, b.bodyStatements(tsNode.NamedChild(0)))
		return node
	case "for_statement":
		return b.buildFor(tsNode)
	case "while_statement":
		return b.buildLoop(NodeWhile, tsNode)
	case "do_statement":
		return b.buildLoop(NodeDoWhile, tsNode)
	case "switch_statement":
		node := b.newNode(NodeSwitch, tsNode)
		if cond := b.field(tsNode, "condition"); cond != nil {
			node.Test = b.buildNode(cond)
			node.AddChild(node.Test)
		}
		node.Body = b.buildStatements(node, b.bodyStatements(b.field(tsNode, "body")))
		return node
	case "case_statement":
		return b.buildGeneric(NodeCase, tsNode)
	case "goto_statement":
		node := b.newNode(NodeGoto, tsNode)
		node.Name = b.content(b.field(tsNode, "label"))
		return node
	case "labeled_statement":
		node := b.buildGeneric(NodeLabel, tsNode)
		node.Name = b.content(b.field(tsNode, "label"))
		return node
	case "return_statement":
		return b.buildGeneric(NodeReturn, tsNode)
	case "break_statement":
		return b.newNode(NodeBreak, tsNode)
	case "continue_statement":
		return b.newNode(NodeContinue, tsNode)
	case "expression_statement":
		return b.buildGeneric(NodeExpressionStatement, tsNode)
	case "call_expression":
		return b.buildCall(tsNode)
	case "assignment_expression":
		node := b.buildGeneric(NodeAssign, tsNode)
		node.Name = lastSegment(b.content(b.field(tsNode, "left")))
		node.Operator = b.content(b.field(tsNode, "operator"))
		node.Initialized = true
		return node
	case "binary_expression":
		op := b.content(b.field(tsNode, "operator"))
		nodeType := NodeBinary
		switch op {
		case "==", "!=", "<", "<=", ">", ">=":
			nodeType = NodeCompare
		case "&&", "||":
			nodeType = NodeBoolOp
		}
		node := b.buildGeneric(nodeType, tsNode)
		node.Operator = op
		return node
	case "unary_expression":
		return b.buildUnary(tsNode)
	case "pointer_expression":
		node := b.buildGeneric(NodePointer, tsNode)
		node.Operator = b.content(b.field(tsNode, "operator"))
		return node
	case "field_expression":
		node := b.buildGeneric(NodeAttribute, tsNode)
		node.Name = b.content(b.field(tsNode, "field"))
		return node
	case "subscript_expression":
		return b.buildGeneric(NodeSubscript, tsNode)
	case "conditional_expression":
		return b.buildGeneric(NodeConditional, tsNode)
	case "parenthesized_expression", "condition_clause":
		inner := b.namedChildren(tsNode)
		if len(inner) == 1 {
			return b.buildNode(inner[0])
		}
		return b.buildGeneric(NodeOther, tsNode)
	case "identifier", "field_identifier":
		node := b.newNode(NodeIdentifier, tsNode)
		node.Name = b.content(tsNode)
		return node
	case "number_literal":
		node := b.newNode(NodeNumberLiteral, tsNode)
		node.Raw = b.content(tsNode)
		return node
	case "string_literal", "char_literal":
		node := b.newNode(NodeStringLiteral, tsNode)
		node.Raw = unquoteC(b.content(tsNode))
		return node
	case "concatenated_string":
		return b.buildGeneric(NodeOther, tsNode)
	case "true", "false":
		node := b.newNode(NodeBooleanLiteral, tsNode)
		node.Raw = b.content(tsNode)
		return node
	case "null":
		node := b.newNode(NodeNullLiteral, tsNode)
		node.Raw = b.content(tsNode)
		return node
	case "initializer_list":
		return b.buildGeneric(NodeCollection, tsNode)
	default:
		return b.buildGeneric(NodeOther, tsNode)
	}
}

// buildGeneric creates a node of the given type and processes named children
func (b *cBuilder) buildGeneric(nodeType NodeType, tsNode *sitter.Node) *Node {
	node := b.newNode(nodeType, tsNode)
	for _, child := range b.namedChildren(tsNode) {
		node.AddChild(b.buildNode(child))
	}
	return node
}

// declaratorInfo is the result of unwrapping a C declarator chain
type declaratorInfo struct {
	name     string
	depth    int
	function *sitter.Node
	value    *sitter.Node
}

// unwrapDeclarator follows pointer, array, function and init declarators
// down to the declared identifier
func (b *cBuilder) unwrapDeclarator(tsNode *sitter.Node) declaratorInfo {
	var info declaratorInfo
	for cur := tsNode; cur != nil; {
		switch cur.Type() {
		case "init_declarator":
			info.value = b.field(cur, "value")
			cur = b.field(cur, "declarator")
		case "pointer_declarator", "abstract_pointer_declarator":
			info.depth++
			cur = b.field(cur, "declarator")
		case "function_declarator", "abstract_function_declarator":
			if info.function == nil {
				info.function = cur
			}
			cur = b.field(cur, "declarator")
		case "array_declarator", "abstract_array_declarator":
			cur = b.field(cur, "declarator")
		case "parenthesized_declarator", "abstract_parenthesized_declarator":
			cur = cur.NamedChild(0)
		case "identifier", "field_identifier", "type_identifier":
			info.name = b.content(cur)
			cur = nil
		default:
			cur = nil
		}
	}
	return info
}

// hasConstQualifier reports whether a declaration carries a const qualifier
func (b *cBuilder) hasConstQualifier(tsNode *sitter.Node) bool {
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if child.Type() == "type_qualifier" && b.content(child) == "const" {
			return true
		}
	}
	return false
}

// buildFunction builds a function definition node
func (b *cBuilder) buildFunction(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeFunction, tsNode)
	info := b.unwrapDeclarator(b.field(tsNode, "declarator"))
	node.Name = info.name
	node.PointerDepth = info.depth

	if info.function != nil {
		node.Params = b.buildParameters(b.field(info.function, "parameters"))
		for _, p := range node.Params {
			node.AddChild(p)
		}
	}
	node.Body = b.buildStatements(node, b.bodyStatements(b.field(tsNode, "body")))
	return node
}

// buildParameters builds a parameter_list
func (b *cBuilder) buildParameters(tsNode *sitter.Node) []*Node {
	if tsNode == nil {
		return nil
	}
	var params []*Node
	for _, child := range b.namedChildren(tsNode) {
		param := b.newNode(NodeParameter, child)
		switch child.Type() {
		case "parameter_declaration":
			decl := b.field(child, "declarator")
			if decl == nil && strings.TrimSpace(b.content(child)) == "void" {
				continue
			}
			info := b.unwrapDeclarator(decl)
			param.Name = info.name
			param.PointerDepth = info.depth
			param.Constant = b.hasConstQualifier(child)
			param.ParamKind = ParamPositional
		case "variadic_parameter":
			param.Name = "..."
			param.ParamKind = ParamVariadic
		default:
			continue
		}
		params = append(params, param)
	}
	return params
}

// buildDeclaration builds a declaration with one Declarator per declared name
func (b *cBuilder) buildDeclaration(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeDeclaration, tsNode)
	constant := b.hasConstQualifier(tsNode)

	for _, d := range b.fields(tsNode, "declarator") {
		info := b.unwrapDeclarator(d)
		decl := b.newNode(NodeDeclarator, d)
		decl.Name = info.name
		decl.PointerDepth = info.depth
		decl.Constant = constant || isConstantName(info.name)
		decl.Prototype = info.function != nil
		if info.value != nil {
			decl.Initialized = true
			decl.AddChild(b.buildNode(info.value))
		}
		if decl.Prototype {
			node.Prototype = true
		}
		node.AddChild(decl)
	}
	if len(node.Children) == 1 {
		node.Name = node.Children[0].Name
	}
	node.Constant = constant
	return node
}

// buildIf builds an if statement; alternatives are wrapped in an Else node
func (b *cBuilder) buildIf(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeIf, tsNode)
	if cond := b.field(tsNode, "condition"); cond != nil {
		node.Test = b.buildNode(cond)
		node.AddChild(node.Test)
	}
	node.Body = b.buildStatements(node, b.bodyStatements(b.field(tsNode, "consequence")))

	if alt := b.field(tsNode, "alternative"); alt != nil {
		if alt.Type() == "else_clause" {
			node.AddChild(b.buildNode(alt))
		} else {
			elseNode := b.newNode(NodeElse, alt)
			elseNode.Body = b.buildStatements(elseNode, b.bodyStatements(alt))
			node.AddChild(elseNode)
		}
	}
	return node
}

// buildFor builds a for loop; a missing condition leaves Test nil
func (b *cBuilder) buildFor(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeFor, tsNode)
	if init := b.field(tsNode, "initializer"); init != nil {
		node.AddChild(b.buildNode(init))
	}
	if cond := b.field(tsNode, "condition"); cond != nil {
		node.Test = b.buildNode(cond)
		node.AddChild(node.Test)
	}
	if update := b.field(tsNode, "update"); update != nil {
		node.AddChild(b.buildNode(update))
	}
	node.Body = b.buildStatements(node, b.bodyStatements(b.field(tsNode, "body")))
	return node
}

// buildLoop builds while and do-while loops
func (b *cBuilder) buildLoop(nodeType NodeType, tsNode *sitter.Node) *Node {
	node := b.newNode(nodeType, tsNode)
	if cond := b.field(tsNode, "condition"); cond != nil {
		node.Test = b.buildNode(cond)
		node.AddChild(node.Test)
	}
	node.Body = b.buildStatements(node, b.bodyStatements(b.field(tsNode, "body")))
	return node
}

// buildCall builds a call expression with callee and arguments
func (b *cBuilder) buildCall(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeCall, tsNode)
	if fn := b.field(tsNode, "function"); fn != nil {
		node.Callee = b.buildNode(fn)
		node.AddChild(node.Callee)
		node.Name = lastSegment(b.content(fn))
	}
	if args := b.field(tsNode, "arguments"); args != nil {
		for _, a := range b.namedChildren(args) {
			arg := b.buildNode(a)
			if arg == nil {
				continue
			}
			node.AddChild(arg)
			node.Args = append(node.Args, arg)
		}
	}
	return node
}

// buildUnary builds unary expressions, folding negative numeric literals
func (b *cBuilder) buildUnary(tsNode *sitter.Node) *Node {
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

// unquoteC strips the quotes of a C string or character literal
func unquoteC(s string) string {
	s = strings.TrimLeft(s, "LuU8")
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
