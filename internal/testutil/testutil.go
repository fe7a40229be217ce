// Package testutil provides helper functions for testing connscan components
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ludo-technologies/connscan/internal/parser"
)

// CreateTestAST parses Python source code into a test AST
func CreateTestAST(t *testing.T, source string) *parser.Node {
	t.Helper()
	return CreateTestASTFor(t, parser.LanguagePython, source)
}

// CreateTestCAST parses C source code into a test AST
func CreateTestCAST(t *testing.T, source string) *parser.Node {
	t.Helper()
	return CreateTestASTFor(t, parser.LanguageC, source)
}

// CreateTestASTFor parses source in the given language, failing the test on error
func CreateTestASTFor(t *testing.T, lang parser.Language, source string) *parser.Node {
	t.Helper()
	p, err := parser.NewParser(lang)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	defer p.Close()

	ast, err := p.ParseString(source)
	if err != nil {
		t.Fatalf("Failed to parse test code: %v", err)
	}
	return ast
}

// WriteFiles writes name->content pairs under dir, creating parent directories
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
}

// FindFunctionInAST finds a function node by name in the AST
func FindFunctionInAST(ast *parser.Node, name string) *parser.Node {
	var found *parser.Node
	ast.Walk(func(n *parser.Node) bool {
		if n.IsFunction() && n.Name == name {
			found = n
			return false
		}
		return true
	})
	return found
}

// CountNodesOfType counts nodes of a specific type in an AST
func CountNodesOfType(ast *parser.Node, nodeType parser.NodeType) int {
	count := 0
	ast.Walk(func(n *parser.Node) bool {
		if n.Type == nodeType {
			count++
		}
		return true
	})
	return count
}
